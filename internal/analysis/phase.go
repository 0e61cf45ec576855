package analysis

import (
	"math"

	"github.com/san-kum/ionmd/internal/trajectory"
)

type Point struct{ X, Y float64 }

// PhasePortrait2D pairs a coordinate with its velocity.
type PhasePortrait2D struct {
	Axis   Axis
	Points []Point
}

// GeneratePhasePortrait builds (x, dx/dt) pairs from a sampled series
// using central differences; the two end samples are dropped.
func GeneratePhasePortrait(samples []float64, dt float64, axis Axis) *PhasePortrait2D {
	portrait := &PhasePortrait2D{Axis: axis}
	if len(samples) < 3 || dt <= 0 {
		return portrait
	}

	portrait.Points = make([]Point, 0, len(samples)-2)
	for i := 1; i < len(samples)-1; i++ {
		v := (samples[i+1] - samples[i-1]) / (2 * dt)
		portrait.Points = append(portrait.Points, Point{X: samples[i], Y: v})
	}
	return portrait
}

// PoincareSection records where an ion sits in the (a, b) plane each
// time its cross coordinate passes upward through zero.
func PoincareSection(frames []trajectory.Frame, ion int, cross, a, b Axis) []Point {
	c := Series(frames, ion, cross)
	xa := Series(frames, ion, a)
	xb := Series(frames, ion, b)

	var pts []Point
	for i := 1; i < len(c); i++ {
		if c[i-1] < 0 && c[i] >= 0 {
			frac := -c[i-1] / (c[i] - c[i-1])
			pts = append(pts, Point{
				X: xa[i-1] + frac*(xa[i]-xa[i-1]),
				Y: xb[i-1] + frac*(xb[i]-xb[i-1]),
			})
		}
	}
	return pts
}

// Amplitudes returns the largest |x| and |dx/dt| in the portrait. For
// harmonic motion their ratio is the angular frequency.
func (p *PhasePortrait2D) Amplitudes() (x, v float64) {
	for _, pt := range p.Points {
		x = max(x, math.Abs(pt.X))
		v = max(v, math.Abs(pt.Y))
	}
	return x, v
}
