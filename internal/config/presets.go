package config

import (
	"sort"

	"github.com/san-kum/ionmd/internal/dynamo"
	"github.com/san-kum/ionmd/internal/physics"
)

// Presets build fresh configurations on every call.
var Presets = map[string]func() *Config{
	"demo":    demo,
	"crystal": crystal,
	"cooled":  cooled,
}

// demo is two 40Ca+ ions 20 µm either side of the trap centre on the
// axis, uncoupled.
func demo() *Config {
	sim := dynamo.DefaultParams()
	sim.Coulomb = false
	return &Config{
		Sim:  sim,
		Trap: physics.DefaultTrap(),
		Ions: []IonConfig{
			{Mass: 40, Charge: 1, Position: []float64{0, 0, -20e-6}},
			{Mass: 40, Charge: 1, Position: []float64{0, 0, 20e-6}},
		},
	}
}

// crystal is a five-ion chain along the axis with Coulomb coupling.
func crystal() *Config {
	sim := dynamo.DefaultParams()
	sim.TMax = 5e-6
	sim.BufferSize = 500

	cfg := &Config{Sim: sim, Trap: physics.DefaultTrap()}
	for i := -2; i <= 2; i++ {
		cfg.Ions = append(cfg.Ions, IonConfig{
			Mass:     40,
			Charge:   1,
			Position: []float64{0, 0, float64(i) * 12e-6},
		})
	}
	return cfg
}

// cooled runs one hot ion against background-gas heating with a
// counter-propagating pair of damping beams along the axis.
func cooled() *Config {
	sim := dynamo.DefaultParams()
	sim.TMax = 2e-6
	sim.Coulomb = false
	sim.Stochastic = true
	sim.Doppler = true
	sim.GammaCollision = 1e2

	return &Config{
		Sim:  sim,
		Trap: physics.DefaultTrap(),
		Lasers: []LaserConfig{
			{Name: "axial+", K: []float64{0, 0, 1}, F0: 1e-21, Beta: 2e-21},
			{Name: "axial-", K: []float64{0, 0, -1}, F0: 1e-21, Beta: 2e-21},
		},
		Ions: []IonConfig{
			{
				Mass:     40,
				Charge:   1,
				Position: []float64{1e-6, 0, 10e-6},
				Velocity: []float64{0, 0, 5},
				Lasers:   []string{"axial+", "axial-"},
			},
		},
	}
}

// GetPreset returns nil for an unknown name.
func GetPreset(name string) *Config {
	build, ok := Presets[name]
	if !ok {
		return nil
	}
	return build()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
