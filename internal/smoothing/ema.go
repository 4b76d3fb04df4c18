package smoothing

import "math"

// Filter is an exponential moving average with sanity guards. A value outside
// (Low, High), a missing previous value, or a step larger than MaxJump makes
// the filter restart from the raw value instead of blending.
type Filter struct {
	Alpha   float64
	Low     float64
	High    float64
	MaxJump float64
}

// Default mirrors the configuration defaults.
func Default() Filter {
	return Filter{Alpha: 0.6, Low: 1, High: 100000, MaxJump: 25}
}

// Outcome reports how Apply produced its value.
type Outcome string

const (
	Blended      Outcome = "blended"
	NoHistory    Outcome = "no_history"
	OutOfRange   Outcome = "out_of_range"
	JumpTooLarge Outcome = "jump_too_large"
)

// Reset reports whether the outcome discarded the previous value.
func (o Outcome) Reset() bool { return o != Blended }

// Apply returns the new smoothed value for raw given the previous smoothed
// value, or nil when there is no history.
func (f Filter) Apply(raw float64, prev *float64) (float64, Outcome) {
	if prev == nil {
		return raw, NoHistory
	}
	p := *prev
	if !f.plausible(raw) || !f.plausible(p) {
		return raw, OutOfRange
	}
	if f.MaxJump > 0 && math.Abs(p-raw) > f.MaxJump {
		return raw, JumpTooLarge
	}
	a := f.alpha()
	return a*raw + (1-a)*p, Blended
}

func (f Filter) plausible(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	if f.Low != 0 || f.High != 0 {
		return v > f.Low && v < f.High
	}
	return v > 0
}

func (f Filter) alpha() float64 {
	if f.Alpha <= 0 || f.Alpha > 1 {
		return Default().Alpha
	}
	return f.Alpha
}
