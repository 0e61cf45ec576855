// Package metrics provides run observers that reduce a trajectory to
// scalar figures.
package metrics

import (
	"github.com/san-kum/ionmd/internal/sim"
	"github.com/san-kum/ionmd/internal/trajectory"
)

// Metric is an engine observer with a scalar summary.
type Metric interface {
	sim.Observer
	Name() string
	Value() float64
	Reset()
}

// Report collects the current value of every metric by name.
func Report(ms ...Metric) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		out[m.Name()] = m.Value()
	}
	return out
}

// frameOnly supplies the progress half of sim.Observer.
type frameOnly struct{}

func (frameOnly) OnProgress(sim.Progress) {}

var (
	_ Metric = (*Bounds)(nil)
	_ Metric = (*MaxExcursion)(nil)
	_ Metric = (*EnergyDrift)(nil)
)

func eachComponent(f trajectory.Frame, fn func(ion int, c float64)) {
	for i, x := range f {
		fn(i, x.X)
		fn(i, x.Y)
		fn(i, x.Z)
	}
}
