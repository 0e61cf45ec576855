package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/san-kum/ionmd/internal/dynamo"
	"github.com/san-kum/ionmd/internal/physics"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config is a complete run description: engine parameters, trap, named
// lasers and the ion ensemble.
type Config struct {
	Sim    dynamo.Params `yaml:"sim"`
	Trap   physics.Trap  `yaml:"trap"`
	Lasers []LaserConfig `yaml:"lasers,omitempty"`
	Ions   []IonConfig   `yaml:"ions"`
}

type LaserConfig struct {
	Name string    `yaml:"name"`
	K    []float64 `yaml:"k,flow"`
	F0   float64   `yaml:"f0"`
	Beta float64   `yaml:"beta"`
}

// IonConfig describes one ion. Mass is in amu, charge in e, position in
// meters and velocity in m/s. Lasers names entries of Config.Lasers.
type IonConfig struct {
	Mass     float64   `yaml:"mass"`
	Charge   float64   `yaml:"charge"`
	Position []float64 `yaml:"position,flow"`
	Velocity []float64 `yaml:"velocity,flow,omitempty"`
	Lasers   []string  `yaml:"lasers,flow,omitempty"`
}

// DefaultConfig is the demo preset.
func DefaultConfig() *Config {
	return demo()
}

// Load reads a YAML file, or an INI file when the extension is .ini or
// .gcfg. Fields missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ini", ".gcfg":
		return loadINI(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// Validate reports every problem in the configuration at once.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Sim.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Trap.Validate(); err != nil {
		errs = append(errs, err)
	}

	lasers := make(map[string]bool, len(c.Lasers))
	for i, l := range c.Lasers {
		if l.Name == "" {
			errs = append(errs, fmt.Errorf("%w: laser %d has no name", ErrInvalidConfig, i))
		} else if lasers[l.Name] {
			errs = append(errs, fmt.Errorf("%w: duplicate laser %q", ErrInvalidConfig, l.Name))
		}
		lasers[l.Name] = true
		if len(l.K) != 3 {
			errs = append(errs, fmt.Errorf("%w: laser %q: k needs 3 components, got %d", ErrInvalidConfig, l.Name, len(l.K)))
		}
		if l.Beta < 0 {
			errs = append(errs, fmt.Errorf("%w: laser %q: beta must be >= 0", ErrInvalidConfig, l.Name))
		}
	}

	for i, ion := range c.Ions {
		if !(ion.Mass > 0) {
			errs = append(errs, fmt.Errorf("%w: ion %d: mass must be positive, got %g", ErrInvalidConfig, i, ion.Mass))
		}
		if len(ion.Position) != 3 {
			errs = append(errs, fmt.Errorf("%w: ion %d: position needs 3 components, got %d", ErrInvalidConfig, i, len(ion.Position)))
		}
		if n := len(ion.Velocity); n != 0 && n != 3 {
			errs = append(errs, fmt.Errorf("%w: ion %d: velocity needs 3 components, got %d", ErrInvalidConfig, i, n))
		}
		for _, name := range ion.Lasers {
			if !lasers[name] {
				errs = append(errs, fmt.Errorf("%w: ion %d: unknown laser %q", ErrInvalidConfig, i, name))
			}
		}
	}
	return errors.Join(errs...)
}

// BuildIons constructs the ensemble. The ions are unbound; an engine
// binds them to its trap and parameters.
func (c *Config) BuildIons() ([]*physics.Ion, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	lasers := make(map[string]physics.Laser, len(c.Lasers))
	for _, l := range c.Lasers {
		lasers[l.Name] = physics.NewLaser(l.Name, vec(l.K), l.F0, l.Beta)
	}

	ions := make([]*physics.Ion, len(c.Ions))
	for i, ic := range c.Ions {
		opts := []physics.IonOption{}
		if len(ic.Velocity) == 3 {
			opts = append(opts, physics.WithVelocity(vec(ic.Velocity)))
		}
		for _, name := range ic.Lasers {
			opts = append(opts, physics.WithLasers(lasers[name]))
		}
		ions[i] = physics.NewIon(nil, nil, ic.Mass, ic.Charge, vec(ic.Position), opts...)
	}
	return ions, nil
}

func vec(v []float64) r3.Vec {
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}
}

// Set assigns a numeric setting by its YAML key. It covers the trap
// constants and the continuous simulation settings, which is what
// parameter sweeps vary.
func (c *Config) Set(key string, v float64) error {
	switch key {
	case "dt":
		c.Sim.Dt = v
	case "t_max":
		c.Sim.TMax = v
	case "gamma_collision":
		c.Sim.GammaCollision = v
	case "softening":
		c.Sim.Softening = v
	case "theta":
		c.Sim.Theta = v
	case "v_rf":
		c.Trap.VRF = v
	case "omega_rf":
		c.Trap.OmegaRF = v
	case "r0":
		c.Trap.R0 = v
	case "kappa":
		c.Trap.Kappa = v
	case "u_ec":
		c.Trap.UEC = v
	case "z0":
		c.Trap.Z0 = v
	case "rf_phase":
		c.Trap.RFPhase = v
	default:
		return fmt.Errorf("%w: unknown setting %q", ErrInvalidConfig, key)
	}
	return nil
}
