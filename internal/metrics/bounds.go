package metrics

import (
	"math"

	"github.com/san-kum/ionmd/internal/trajectory"
	"gonum.org/v1/gonum/spatial/r3"
)

// Bounds flags frames in which an ion has left a sphere of the given
// radius about the trap centre or has a non-finite coordinate.
type Bounds struct {
	frameOnly
	name       string
	radius     float64
	violations int
	samples    int
	first      int
	lost       map[int]bool
}

func NewBounds(radius float64) *Bounds {
	b := &Bounds{name: "in_bounds", radius: radius}
	b.Reset()
	return b
}

func (b *Bounds) Name() string { return b.name }

func (b *Bounds) OnFrame(step int, t float64, f trajectory.Frame) {
	b.samples++
	bad := false
	for i, x := range f {
		n := r3.Norm(x)
		if math.IsNaN(n) || math.IsInf(n, 0) || n > b.radius {
			b.lost[i] = true
			bad = true
		}
	}
	if bad {
		if b.violations == 0 {
			b.first = step
		}
		b.violations++
	}
}

// Value is the fraction of frames with every ion in bounds.
func (b *Bounds) Value() float64 {
	if b.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(b.violations)/float64(b.samples)
}

// FirstViolation is the step of the first out-of-bounds frame, or -1.
func (b *Bounds) FirstViolation() int { return b.first }

// Lost returns the number of distinct ions that ever left the bounds.
func (b *Bounds) Lost() int { return len(b.lost) }

func (b *Bounds) Reset() {
	b.violations = 0
	b.samples = 0
	b.first = -1
	b.lost = map[int]bool{}
}

// MaxExcursion tracks the largest absolute coordinate reached by any ion.
type MaxExcursion struct {
	frameOnly
	name string
	max  float64
	ion  int
}

func NewMaxExcursion() *MaxExcursion {
	return &MaxExcursion{name: "max_excursion", ion: -1}
}

func (m *MaxExcursion) Name() string { return m.name }

func (m *MaxExcursion) OnFrame(step int, t float64, f trajectory.Frame) {
	eachComponent(f, func(ion int, c float64) {
		if a := math.Abs(c); a > m.max {
			m.max, m.ion = a, ion
		}
	})
}

func (m *MaxExcursion) Value() float64 { return m.max }

// Ion is the index of the ion that reached the maximum, or -1.
func (m *MaxExcursion) Ion() int { return m.ion }

func (m *MaxExcursion) Reset() {
	m.max = 0
	m.ion = -1
}
