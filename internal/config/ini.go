package config

import (
	"fmt"
	"sort"

	"gopkg.in/gcfg.v1"
)

// An INI run description, read with gcfg:
//
//	[sim]
//	dt = 1e-9
//	t-max = 1e-6
//	coulomb = true
//
//	[trap]
//	v-rf = 45
//
//	[laser "cool"]
//	kz = 1
//	f0 = 1e-21
//
//	[ion "a"]
//	mass = 40
//	charge = 1
//	z = -20e-6
//	laser = cool
//
// Ions are ordered by subsection name.
type iniFile struct {
	Sim   iniSim
	Trap  iniTrap
	Laser map[string]*iniLaser
	Ion   map[string]*iniIon
}

type iniSim struct {
	Dt             float64 `gcfg:"dt"`
	TMax           float64 `gcfg:"t-max"`
	BufferSize     int     `gcfg:"buffer-size"`
	Filename       string  `gcfg:"filename"`
	Verbosity      int     `gcfg:"verbosity"`
	Seed           int64   `gcfg:"seed"`
	Workers        int     `gcfg:"workers"`
	Coulomb        bool    `gcfg:"coulomb"`
	Micromotion    bool    `gcfg:"micromotion"`
	Stochastic     bool    `gcfg:"stochastic"`
	Doppler        bool    `gcfg:"doppler"`
	GammaCollision float64 `gcfg:"gamma-collision"`
	CoulombMethod  string  `gcfg:"coulomb-method"`
	Softening      float64 `gcfg:"softening"`
	Theta          float64 `gcfg:"theta"`
	ValidateState  bool    `gcfg:"validate-state"`
}

type iniTrap struct {
	VRF     float64 `gcfg:"v-rf"`
	OmegaRF float64 `gcfg:"omega-rf"`
	R0      float64 `gcfg:"r0"`
	Kappa   float64 `gcfg:"kappa"`
	UEC     float64 `gcfg:"u-ec"`
	Z0      float64 `gcfg:"z0"`
	RFPhase float64 `gcfg:"rf-phase"`
}

type iniLaser struct {
	KX, KY, KZ float64
	F0         float64
	Beta       float64
}

type iniIon struct {
	Mass, Charge float64
	X, Y, Z      float64
	VX, VY, VZ   float64
	Laser        []string
}

// loadINI seeds the gcfg structs from the defaults so that omitted
// variables keep them.
func loadINI(path string) (*Config, error) {
	cfg := DefaultConfig()
	p, t := cfg.Sim, cfg.Trap

	f := iniFile{
		Sim: iniSim{
			Dt: p.Dt, TMax: p.TMax, BufferSize: p.BufferSize, Filename: p.Filename,
			Verbosity: p.Verbosity, Seed: int64(p.Seed), Workers: p.Workers,
			Coulomb: p.Coulomb, Micromotion: p.Micromotion, Stochastic: p.Stochastic,
			Doppler: p.Doppler, GammaCollision: p.GammaCollision, CoulombMethod: p.CoulombMethod,
			Softening: p.Softening, Theta: p.Theta, ValidateState: p.ValidateState,
		},
		Trap: iniTrap{
			VRF: t.VRF, OmegaRF: t.OmegaRF, R0: t.R0, Kappa: t.Kappa,
			UEC: t.UEC, Z0: t.Z0, RFPhase: t.RFPhase,
		},
	}
	if err := gcfg.ReadFileInto(&f, path); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if f.Sim.Seed < 0 {
		return nil, fmt.Errorf("%w: seed must be >= 0, got %d", ErrInvalidConfig, f.Sim.Seed)
	}

	s := f.Sim
	cfg.Sim.Dt, cfg.Sim.TMax, cfg.Sim.BufferSize = s.Dt, s.TMax, s.BufferSize
	cfg.Sim.Filename, cfg.Sim.Verbosity, cfg.Sim.Seed = s.Filename, s.Verbosity, uint64(s.Seed)
	cfg.Sim.Workers = s.Workers
	cfg.Sim.Coulomb, cfg.Sim.Micromotion = s.Coulomb, s.Micromotion
	cfg.Sim.Stochastic, cfg.Sim.Doppler = s.Stochastic, s.Doppler
	cfg.Sim.GammaCollision, cfg.Sim.CoulombMethod = s.GammaCollision, s.CoulombMethod
	cfg.Sim.Softening, cfg.Sim.Theta, cfg.Sim.ValidateState = s.Softening, s.Theta, s.ValidateState

	tr := f.Trap
	cfg.Trap.VRF, cfg.Trap.OmegaRF, cfg.Trap.R0 = tr.VRF, tr.OmegaRF, tr.R0
	cfg.Trap.Kappa, cfg.Trap.UEC, cfg.Trap.Z0, cfg.Trap.RFPhase = tr.Kappa, tr.UEC, tr.Z0, tr.RFPhase

	if len(f.Laser) > 0 {
		cfg.Lasers = cfg.Lasers[:0]
		for _, name := range sortedKeys(f.Laser) {
			l := f.Laser[name]
			cfg.Lasers = append(cfg.Lasers, LaserConfig{
				Name: name, K: []float64{l.KX, l.KY, l.KZ}, F0: l.F0, Beta: l.Beta,
			})
		}
	}

	if len(f.Ion) > 0 {
		cfg.Ions = cfg.Ions[:0]
		for _, name := range sortedKeys(f.Ion) {
			ion := f.Ion[name]
			cfg.Ions = append(cfg.Ions, IonConfig{
				Mass:     ion.Mass,
				Charge:   ion.Charge,
				Position: []float64{ion.X, ion.Y, ion.Z},
				Velocity: []float64{ion.VX, ion.VY, ion.VZ},
				Lasers:   ion.Laser,
			})
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
