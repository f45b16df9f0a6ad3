package geometry

import "fmt"

// DoubleRange is a closed interval [Min, Max].
type DoubleRange struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

var (
	UnitRange      = DoubleRange{Min: 0, Max: 1}
	SymmetricRange = DoubleRange{Min: -1, Max: 1}
)

// NewRange returns [min, max] or an error if min > max.
func NewRange(min, max float64) (DoubleRange, error) {
	if min > max {
		return DoubleRange{}, fmt.Errorf("invalid range: min %.3f > max %.3f", min, max)
	}
	return DoubleRange{Min: min, Max: max}, nil
}

// Symmetric returns [-r, r].
func Symmetric(r float64) DoubleRange { return DoubleRange{Min: -r, Max: r} }

func (r DoubleRange) Extent() float64         { return r.Max - r.Min }
func (r DoubleRange) Contains(v float64) bool { return v >= r.Min && v <= r.Max }
func (r DoubleRange) Valid() bool             { return r.Min <= r.Max }
func (r DoubleRange) Mid() float64            { return (r.Min + r.Max) / 2 }

func (r DoubleRange) Clip(v float64) float64 {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// Normalize maps v from the range into [0,1], clipping first.
func (r DoubleRange) Normalize(v float64) float64 {
	if r.Extent() == 0 {
		return 0.5
	}
	return (r.Clip(v) - r.Min) / r.Extent()
}

// Denormalize maps v from [0,1] into the range, clipping first.
func (r DoubleRange) Denormalize(v float64) float64 {
	return r.Min + UnitRange.Clip(v)*r.Extent()
}

func (r DoubleRange) String() string { return fmt.Sprintf("[%.3f, %.3f]", r.Min, r.Max) }
