package physics

import (
	"math"

	"github.com/san-kum/ionmd/internal/dynamo"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/spatial/r3"
)

// Ion is a single trapped particle. Mass is in atomic mass units and
// Charge in elementary charges; kinematic state is SI.
//
// An ion keeps non-owning pointers to the trap and parameters of the
// engine that runs it. Update must not be called concurrently on the
// same ion; distinct ions may be updated in parallel.
type Ion struct {
	Mass   float64
	Charge float64

	Position     r3.Vec
	Velocity     r3.Vec
	Acceleration r3.Vec

	Lasers []Laser

	params *dynamo.Params
	trap   *Trap
	rng    *rand.Rand
	index  int
}

type IonOption func(*Ion)

// WithRand sets the random source used by the stochastic force.
func WithRand(r *rand.Rand) IonOption {
	return func(ion *Ion) { ion.rng = r }
}

// WithLasers assigns cooling beams to the ion.
func WithLasers(lasers ...Laser) IonOption {
	return func(ion *Ion) { ion.Lasers = append(ion.Lasers, lasers...) }
}

// WithVelocity sets a non-zero initial velocity.
func WithVelocity(v r3.Vec) IonOption {
	return func(ion *Ion) { ion.Velocity = v }
}

func NewIon(params *dynamo.Params, trap *Trap, mass, charge float64, x0 r3.Vec, opts ...IonOption) *Ion {
	ion := &Ion{
		Mass:     mass,
		Charge:   charge,
		Position: x0,
		params:   params,
		trap:     trap,
	}
	for _, opt := range opts {
		opt(ion)
	}
	ion.source()
	return ion
}

// Bind points the ion at engine-owned trap and parameters and fixes its
// row in the Coulomb force table.
func (ion *Ion) Bind(params *dynamo.Params, trap *Trap, index int) {
	ion.params = params
	ion.trap = trap
	ion.index = index
}

func (ion *Ion) SetRand(r *rand.Rand) { ion.rng = r }

// Index is the ion's position in its ensemble.
func (ion *Ion) Index() int { return ion.index }

// Clone copies the kinematic state and laser list. The clone shares the
// trap and parameter pointers. Its random source is seeded with one draw
// from the parent's, so the two streams diverge.
func (ion *Ion) Clone() *Ion {
	c := *ion
	c.Lasers = append([]Laser(nil), ion.Lasers...)
	c.rng = rand.New(rand.NewSource(ion.source().Uint64()))
	return &c
}

func (ion *Ion) source() *rand.Rand {
	if ion.rng == nil {
		ion.rng = rand.New(rand.NewSource(1))
	}
	return ion.rng
}

// MassKg returns the mass in kilograms.
func (ion *Ion) MassKg() float64 { return ion.Mass * AMU }

// ChargeC returns the charge in coulombs.
func (ion *Ion) ChargeC() float64 { return ion.Charge * ElementaryCharge }

// KineticEnergy returns ½·m·|v|² in joules.
func (ion *Ion) KineticEnergy() float64 {
	return 0.5 * ion.MassKg() * r3.Norm2(ion.Velocity)
}

// SecularEnergy is the pseudopotential energy at the ion's position, in
// joules; SecularForce is its negative gradient.
func (ion *Ion) SecularEnergy() float64 {
	q := ion.ChargeC()
	a, b := ion.trap.stiffness(q, ion.MassKg())
	x := ion.Position
	return q*(a-b)*(x.X*x.X+x.Y*x.Y) + 2*q*b*x.Z*x.Z
}

// Update advances the ion by one timestep with a velocity-Verlet step
// and returns the new position. forces is the Coulomb table for the
// current instant; it is only read when the Coulomb term is enabled.
func (ion *Ion) Update(t float64, forces CoulombTable) r3.Vec {
	dt := ion.params.Dt

	dx := r3.Add(r3.Scale(dt, ion.Velocity), r3.Scale(0.5*dt*dt, ion.Acceleration))
	ion.Position = r3.Add(ion.Position, dx)

	f := ion.Force(t, forces)

	accel := r3.Scale(1/ion.MassKg(), f)
	ion.Velocity = r3.Add(ion.Velocity, r3.Scale(0.5*dt, r3.Add(ion.Acceleration, accel)))
	ion.Acceleration = accel

	return ion.Position
}

// Force sums the enabled terms at the ion's current position.
func (ion *Ion) Force(t float64, forces CoulombTable) r3.Vec {
	p := ion.params

	f := ion.SecularForce()
	if p.Micromotion {
		f = r3.Add(f, ion.MicromotionForce(t))
	}
	if p.Coulomb {
		f = r3.Add(f, ion.CoulombForce(forces))
	}
	if p.Stochastic {
		f = r3.Add(f, ion.StochasticForce())
	}
	if p.Doppler {
		f = r3.Add(f, ion.DopplerForce())
	}
	return f
}

// SecularForce is the time-averaged pseudopotential restoring force.
// The RF confines radially and the end caps axially.
func (ion *Ion) SecularForce() r3.Vec {
	q := ion.ChargeC()
	a, b := ion.trap.stiffness(q, ion.MassKg())
	x := ion.Position
	return r3.Vec{
		X: -2 * q * (a - b) * x.X,
		Y: -2 * q * (a - b) * x.Y,
		Z: -4 * q * b * x.Z,
	}
}

// MicromotionForce is the instantaneous RF quadrupole force
// −q·∇Φ with Φ = V·cos(Ωt+φ)·(x²−y²)/(2r0²).
func (ion *Ion) MicromotionForce(t float64) r3.Vec {
	tr := ion.trap
	e := ion.ChargeC() * tr.VRF * math.Cos(tr.OmegaRF*t+tr.RFPhase) / (tr.R0 * tr.R0)
	x := ion.Position
	return r3.Vec{X: -e * x.X, Y: e * x.Y}
}

// CoulombForce returns the ion's row of the precomputed table.
func (ion *Ion) CoulombForce(forces CoulombTable) r3.Vec {
	if ion.index < 0 || ion.index >= len(forces) {
		return r3.Vec{}
	}
	return forces[ion.index]
}

// StochasticForce models a background-gas collision as a speed kick
// sqrt(2·kB·γ·dt/m) along a freshly drawn unit direction.
func (ion *Ion) StochasticForce() r3.Vec {
	p := ion.params
	hat := ion.randomDirection()
	m := ion.MassKg()
	v := math.Sqrt(2 * Boltzmann * p.GammaCollision * p.Dt / m)
	return r3.Scale(m*v/p.Dt, hat)
}

// randomDirection normalises three uniform samples from [0, 1).
func (ion *Ion) randomDirection() r3.Vec {
	for {
		rng := ion.source()
		hat := r3.Vec{X: rng.Float64(), Y: rng.Float64(), Z: rng.Float64()}
		if n := r3.Norm(hat); n > 0 {
			return r3.Scale(1/n, hat)
		}
	}
}

// DopplerForce sums radiation pressure and damping over the ion's lasers.
func (ion *Ion) DopplerForce() r3.Vec {
	var f r3.Vec
	for _, l := range ion.Lasers {
		f = r3.Add(f, l.Force(ion.Velocity))
	}
	return f
}
