//go:build !nogpu

package gpu

import _ "embed"

// Embedded WGSL shader sources, compiled at Init via naga.

//go:embed shaders/trs_compose.wgsl
var trsComposeShaderSource string
