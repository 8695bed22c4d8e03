package interact

import (
	"math"

	"github.com/vanderheijden86/sage/pkg/debug"
)

// Zoom bounds and step used when configuration leaves them unset.
const (
	DefaultMinZoom  = 0.2
	DefaultMaxZoom  = 2.0
	DefaultZoomStep = 0.1
)

// Zoom is the single display scale applied to the whole canvas. Changing it
// never touches node coordinates.
type Zoom struct {
	scale   float64
	min     float64
	max     float64
	step    float64
	initial float64
}

// NewZoom creates a Zoom. Non-positive, NaN or inverted bounds fall back to
// the defaults; initial is clamped into range.
func NewZoom(min, max, step, initial float64) *Zoom {
	if math.IsNaN(min) || math.IsNaN(max) || min <= 0 || max <= 0 || min > max {
		min, max = DefaultMinZoom, DefaultMaxZoom
	}
	if math.IsNaN(step) || step <= 0 {
		step = DefaultZoomStep
	}
	z := &Zoom{min: min, max: max, step: step}
	if math.IsNaN(initial) || initial <= 0 {
		initial = 1
	}
	z.initial = z.clamp(initial)
	z.scale = z.initial
	return z
}

func (z *Zoom) clamp(v float64) float64 {
	if math.IsNaN(v) {
		return z.scale
	}
	return math.Min(z.max, math.Max(z.min, v))
}

// Scale returns the current scale.
func (z *Zoom) Scale() float64 { return z.scale }

// Bounds returns the allowed range.
func (z *Zoom) Bounds() (min, max float64) { return z.min, z.max }

// Set clamps v into range, applies it and returns the applied value.
func (z *Zoom) Set(v float64) float64 {
	// Round away float drift from repeated steps.
	z.scale = z.clamp(math.Round(v*1000) / 1000)
	debug.Assert(z.scale >= z.min && z.scale <= z.max, "zoom scale outside its bounds")
	return z.scale
}

// In zooms in by one step.
func (z *Zoom) In() float64 { return z.Set(z.scale + z.step) }

// Out zooms out by one step.
func (z *Zoom) Out() float64 { return z.Set(z.scale - z.step) }

// Reset restores the initial scale.
func (z *Zoom) Reset() float64 { return z.Set(z.initial) }

// Wheel handles a scroll event. Only scrolling with the zoom modifier held
// changes the scale; scrolling up (negative delta) zooms in. It reports
// whether the event was consumed.
func (z *Zoom) Wheel(deltaY float64, modifier bool) bool {
	if !modifier || deltaY == 0 {
		return false
	}
	if deltaY < 0 {
		z.In()
	} else {
		z.Out()
	}
	return true
}
