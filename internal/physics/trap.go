package physics

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidTrap = errors.New("physics: invalid trap")

// Trap holds the constants of a linear Paul trap. It is immutable for
// the duration of a run.
type Trap struct {
	VRF     float64 `yaml:"v_rf"`     // RF amplitude, V
	OmegaRF float64 `yaml:"omega_rf"` // RF angular frequency, rad/s
	R0      float64 `yaml:"r0"`       // electrode distance to trap axis, m
	Kappa   float64 `yaml:"kappa"`    // end-cap geometric efficiency
	UEC     float64 `yaml:"u_ec"`     // end-cap DC voltage, V
	Z0      float64 `yaml:"z0"`       // axial length scale, m
	RFPhase float64 `yaml:"rf_phase"` // RF phase at t = 0, rad
}

// DefaultTrap returns the constants of a typical linear trap for 40Ca+:
// 45 V at 2π·3.8 MHz on electrodes 3.18 mm from the axis, 300 V end caps.
func DefaultTrap() Trap {
	return Trap{
		VRF:     45.0,
		OmegaRF: 2 * math.Pi * 3.8e6,
		R0:      3.18e-3,
		Kappa:   0.0045,
		UEC:     300.0,
		Z0:      3.18e-3,
	}
}

func (t Trap) Validate() error {
	var errs []error
	if !(t.OmegaRF > 0) {
		errs = append(errs, fmt.Errorf("%w: omega_rf must be positive, got %g", ErrInvalidTrap, t.OmegaRF))
	}
	if !(t.R0 > 0) {
		errs = append(errs, fmt.Errorf("%w: r0 must be positive, got %g", ErrInvalidTrap, t.R0))
	}
	if !(t.Z0 > 0) {
		errs = append(errs, fmt.Errorf("%w: z0 must be positive, got %g", ErrInvalidTrap, t.Z0))
	}
	return errors.Join(errs...)
}

// stiffness returns the radial (A) and axial (B) pseudopotential terms
// for an ion of charge q (C) and mass m (kg).
func (t Trap) stiffness(q, m float64) (a, b float64) {
	a = q * t.VRF * t.VRF / (m * t.OmegaRF * t.OmegaRF * math.Pow(t.R0, 4))
	b = t.Kappa * t.UEC / (2 * t.Z0 * t.Z0)
	return a, b
}

// SecularFrequencies returns the radial and axial secular angular
// frequencies for an ion of the given mass (amu) and charge (e).
// A direction that is not confined reports 0.
func (t Trap) SecularFrequencies(massAMU, z float64) (omegaR, omegaZ float64) {
	q := z * ElementaryCharge
	m := massAMU * AMU
	a, b := t.stiffness(q, m)

	if wr2 := 2 * q * (a - b) / m; wr2 > 0 {
		omegaR = math.Sqrt(wr2)
	}
	if wz2 := 4 * q * b / m; wz2 > 0 {
		omegaZ = math.Sqrt(wz2)
	}
	return omegaR, omegaZ
}
