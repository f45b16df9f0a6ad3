package robot

import (
	"math"

	"github.com/zeusync/robosim/internal/core/body"
)

// Controller computes the actuation of one cell. readings holds the normalized side
// compression sensed at the previous tick, indexed by side; ok is false before the first
// reading.
type Controller interface {
	Actuation(t float64, cell Cell, readings [4]float64, ok bool) [4]float64
	// Senses reports whether the controller needs side readings.
	Senses() bool
}

func newController(c ControllerConfig) Controller {
	switch c.Kind {
	case ControllerSine:
		return sine{amplitude: c.Amplitude, frequency: c.Frequency, phase: c.Phase, step: c.PhaseStep}
	case ControllerConstant:
		return constant(c.Values)
	case ControllerReflex:
		return reflex{gain: c.Gain}
	default:
		return constant{}
	}
}

// sine contracts all sides together, phase shifted by column.
type sine struct {
	amplitude, frequency, phase, step float64
}

func (s sine) Actuation(t float64, cell Cell, _ [4]float64, _ bool) [4]float64 {
	v := s.amplitude * math.Sin(2*math.Pi*s.frequency*t+s.phase+s.step*float64(cell.Col))
	return [4]float64{v, v, v, v}
}

func (sine) Senses() bool { return false }

type constant [4]float64

func (c constant) Actuation(float64, Cell, [4]float64, bool) [4]float64 { return c }
func (constant) Senses() bool                                           { return false }

// reflex pushes every side back toward its rest length: a compressed side expands.
type reflex struct {
	gain float64
}

func (r reflex) Actuation(_ float64, _ Cell, readings [4]float64, ok bool) [4]float64 {
	var out [4]float64
	if !ok {
		return out
	}
	for _, s := range body.Sides {
		out[s] = r.gain * readings[s]
	}
	return out
}

func (reflex) Senses() bool { return true }
