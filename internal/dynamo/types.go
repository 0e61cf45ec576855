package dynamo

import (
	"errors"
	"fmt"
	"math"
)

// Coulomb evaluation methods understood by the physics package.
const (
	CoulombDirect    = "direct"
	CoulombBarnesHut = "barneshut"
)

// MaxTheta is the largest Barnes-Hut opening angle. A cell's mean edge
// is at least a third of its diagonal, so below this bound a cell that
// contains the ion is always opened and never feeds it a self-force.
const MaxTheta = 1.0 / 3

// Params is the run configuration owned by an engine. Ions read it
// through a shared pointer while forces are evaluated.
type Params struct {
	Dt         float64 `yaml:"dt"`
	TMax       float64 `yaml:"t_max"`
	BufferSize int     `yaml:"buffer_size"`
	Filename   string  `yaml:"filename"`
	Verbosity  int     `yaml:"verbosity"`
	Seed       uint64  `yaml:"seed"`
	Workers    int     `yaml:"workers,omitempty"`

	Coulomb     bool `yaml:"coulomb_enabled"`
	Micromotion bool `yaml:"micromotion_enabled"`
	Stochastic  bool `yaml:"stochastic_enabled"`
	Doppler     bool `yaml:"doppler_enabled"`

	// GammaCollision is the background-gas collision rate in 1/s.
	GammaCollision float64 `yaml:"gamma_collision"`

	CoulombMethod string  `yaml:"coulomb_method"`
	Softening     float64 `yaml:"softening"`
	Theta         float64 `yaml:"theta"`

	ValidateState bool `yaml:"validate_state"`
}

func DefaultParams() Params {
	return Params{
		Dt:            1e-9,
		TMax:          1e-6,
		BufferSize:    100,
		Filename:      "trajectory.bin",
		Verbosity:     1,
		Seed:          1,
		Coulomb:       true,
		CoulombMethod: CoulombDirect,
		Theta:         0.3,
	}
}

// Steps returns the number of timesteps a run performs.
func (p Params) Steps() int {
	if p.Dt <= 0 {
		return 0
	}
	return int(math.Round(p.TMax / p.Dt))
}

// Validate reports every out-of-range field at once.
func (p Params) Validate() error {
	var errs []error
	if !(p.Dt > 0) || math.IsInf(p.Dt, 0) {
		errs = append(errs, fmt.Errorf("%w: dt must be positive, got %g", ErrInvalidParams, p.Dt))
	}
	if !(p.TMax > 0) || math.IsInf(p.TMax, 0) {
		errs = append(errs, fmt.Errorf("%w: t_max must be positive, got %g", ErrInvalidParams, p.TMax))
	}
	if p.BufferSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: buffer_size must be positive, got %d", ErrInvalidParams, p.BufferSize))
	}
	if p.Verbosity < 0 {
		errs = append(errs, fmt.Errorf("%w: verbosity must be >= 0, got %d", ErrInvalidParams, p.Verbosity))
	}
	if p.GammaCollision < 0 {
		errs = append(errs, fmt.Errorf("%w: gamma_collision must be >= 0, got %g", ErrInvalidParams, p.GammaCollision))
	}
	if p.Softening < 0 {
		errs = append(errs, fmt.Errorf("%w: softening must be >= 0, got %g", ErrInvalidParams, p.Softening))
	}
	if p.Theta < 0 || p.Theta > MaxTheta {
		errs = append(errs, fmt.Errorf("%w: theta must be in [0, %.4g], got %g", ErrInvalidParams, MaxTheta, p.Theta))
	}
	switch p.CoulombMethod {
	case "", CoulombDirect, CoulombBarnesHut:
	default:
		errs = append(errs, fmt.Errorf("%w: unknown coulomb_method %q", ErrInvalidParams, p.CoulombMethod))
	}
	if p.Dt > 0 && p.TMax > 0 && p.Steps() == 0 {
		errs = append(errs, fmt.Errorf("%w: t_max %g shorter than one step of %g", ErrInvalidParams, p.TMax, p.Dt))
	}
	return errors.Join(errs...)
}
