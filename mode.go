package framepace

// Mode is a discrete performance tier derived from the rolling frame rate.
// It gates how many registered callbacks run each tick.
type Mode uint8

const (
	// ModeHigh runs every enabled callback. Selected at or above 55 fps,
	// and before the first measurement window has completed.
	ModeHigh Mode = iota

	// ModeMedium runs only callbacks with priority >= 0.
	// Selected between 40 and 55 fps.
	ModeMedium

	// ModeLow runs only the top half of the strictly-positive priority
	// callbacks (at least one). Selected below 40 fps.
	ModeLow
)

// Frame-rate thresholds for mode classification, in frames per second.
const (
	highFPSThreshold   = 55
	mediumFPSThreshold = 40
)

// String returns the mode name ("high", "medium", "low").
func (m Mode) String() string {
	switch m {
	case ModeHigh:
		return "high"
	case ModeMedium:
		return "medium"
	case ModeLow:
		return "low"
	default:
		return "unknown"
	}
}

// Classify maps a frame-rate estimate to a performance mode.
//
// Classify is a pure function with fixed thresholds (55, 40) and no
// hysteresis band: an fps value oscillating around a threshold will flap
// the mode every call. Callers that need debounce must layer it on top.
func Classify(fps float64) Mode {
	switch {
	case fps >= highFPSThreshold:
		return ModeHigh
	case fps >= mediumFPSThreshold:
		return ModeMedium
	default:
		return ModeLow
	}
}
