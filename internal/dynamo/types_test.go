package dynamo

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	require.NoError(t, p.Validate())
	assert.Equal(t, 1000, p.Steps())
	assert.True(t, p.Coulomb)
	assert.False(t, p.Micromotion)
	assert.False(t, p.Stochastic)
	assert.False(t, p.Doppler)
	assert.LessOrEqual(t, p.Theta, MaxTheta)

	p.Theta = MaxTheta
	assert.NoError(t, p.Validate())
}

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"zero dt", func(p *Params) { p.Dt = 0 }},
		{"negative dt", func(p *Params) { p.Dt = -1e-9 }},
		{"zero t_max", func(p *Params) { p.TMax = 0 }},
		{"zero buffer", func(p *Params) { p.BufferSize = 0 }},
		{"negative verbosity", func(p *Params) { p.Verbosity = -1 }},
		{"negative gamma", func(p *Params) { p.GammaCollision = -2 }},
		{"negative softening", func(p *Params) { p.Softening = -1 }},
		{"unknown method", func(p *Params) { p.CoulombMethod = "fmm" }},
		{"negative theta", func(p *Params) { p.Theta = -0.1 }},
		{"theta above max", func(p *Params) { p.Theta = 0.5 }},
		{"t_max below dt", func(p *Params) { p.TMax = 1e-10 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)
			err := p.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidParams))
		})
	}
}

func TestParams_ValidateJoinsErrors(t *testing.T) {
	p := DefaultParams()
	p.Dt = 0
	p.BufferSize = -3
	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dt must be positive")
	assert.Contains(t, err.Error(), "buffer_size must be positive")
}

func TestParams_StepsRounds(t *testing.T) {
	p := Params{Dt: 0.1, TMax: 0.3}
	assert.Equal(t, 3, p.Steps())
	assert.Equal(t, 0, Params{}.Steps())
}

func TestSimulationError(t *testing.T) {
	err := &SimulationError{Step: 150, Time: 1.5e-7, Wrapped: ErrUnstable}
	assert.Equal(t, "step 150 (t=1.5000e-07): dynamo: simulation unstable (state diverged)", err.Error())
	assert.ErrorIs(t, err, ErrUnstable)
}
