package framepace

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		fps  float64
		want Mode
	}{
		{"well above high threshold", 120, ModeHigh},
		{"exactly high threshold", 55, ModeHigh},
		{"just below high threshold", 54.9, ModeMedium},
		{"middle of medium band", 47, ModeMedium},
		{"exactly medium threshold", 40, ModeMedium},
		{"just below medium threshold", 39.9, ModeLow},
		{"single digit", 5, ModeLow},
		{"zero", 0, ModeLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.fps); got != tt.want {
				t.Errorf("Classify(%v) = %v, want %v", tt.fps, got, tt.want)
			}
		})
	}
}

// TestClassifyMonotonic verifies that a lower fps never maps to a more
// permissive mode than a higher fps.
func TestClassifyMonotonic(t *testing.T) {
	samples := []float64{0, 10, 39.9, 40, 41, 54.9, 55, 56, 90, 240}
	for i, lo := range samples {
		for _, hi := range samples[i+1:] {
			if Classify(lo) < Classify(hi) {
				t.Errorf("Classify(%v) = %v is more permissive than Classify(%v) = %v",
					lo, Classify(lo), hi, Classify(hi))
			}
		}
	}
}

func TestModeString(t *testing.T) {
	tests := []struct {
		mode Mode
		want string
	}{
		{ModeHigh, "high"},
		{ModeMedium, "medium"},
		{ModeLow, "low"},
		{Mode(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.mode.String(); got != tt.want {
			t.Errorf("Mode(%d).String() = %q, want %q", tt.mode, got, tt.want)
		}
	}
}
