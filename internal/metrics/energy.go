package metrics

import (
	"math"

	"github.com/san-kum/ionmd/internal/physics"
	"github.com/san-kum/ionmd/internal/trajectory"
)

// EnergyDrift follows the kinetic plus secular pseudopotential energy of
// an ensemble and reports the largest relative departure from its value
// at the first frame. Coulomb energy is not included, so the figure is
// only conserved for uncoupled runs with the dissipative terms off.
type EnergyDrift struct {
	frameOnly
	name     string
	ions     []*physics.Ion
	initial  float64
	current  float64
	maxDrift float64
	samples  int
}

func NewEnergyDrift(ions []*physics.Ion) *EnergyDrift {
	return &EnergyDrift{name: "energy_drift", ions: ions}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) OnFrame(step int, t float64, f trajectory.Frame) {
	energy := 0.0
	for _, ion := range e.ions {
		energy += ion.KineticEnergy() + ion.SecularEnergy()
	}

	if e.samples == 0 {
		e.initial = energy
	}
	e.current = energy
	e.samples++

	if e.initial != 0 {
		drift := math.Abs(energy-e.initial) / math.Abs(e.initial)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 { return e.maxDrift }

// Energy is the total at the most recent frame, in joules.
func (e *EnergyDrift) Energy() float64 { return e.current }

func (e *EnergyDrift) Reset() {
	e.initial = 0
	e.current = 0
	e.maxDrift = 0
	e.samples = 0
}
