package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/ionmd/internal/config"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSimCmd(t *testing.T) *cobra.Command {
	t.Helper()
	configFile, preset, envFiles = "", "", nil
	cmd := &cobra.Command{Use: "test"}
	addSimFlags(cmd)
	return cmd
}

func TestLoadConfig_FlagsOverridePreset(t *testing.T) {
	cmd := newSimCmd(t)
	require.NoError(t, cmd.Flags().Set("preset", "crystal"))
	require.NoError(t, cmd.Flags().Set("dt", "2e-9"))
	require.NoError(t, cmd.Flags().Set("seed", "42"))
	require.NoError(t, cmd.Flags().Set("coulomb-method", "barneshut"))

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)

	want := config.GetPreset("crystal")
	assert.Equal(t, 2e-9, cfg.Sim.Dt)
	assert.Equal(t, uint64(42), cfg.Sim.Seed)
	assert.Equal(t, "barneshut", cfg.Sim.CoulombMethod)
	assert.Equal(t, want.Sim.TMax, cfg.Sim.TMax, "unset flags keep the preset")
	assert.Len(t, cfg.Ions, len(want.Ions))
}

func TestLoadConfig_CoulombToggle(t *testing.T) {
	cmd := newSimCmd(t)
	require.NoError(t, cmd.Flags().Set("coulomb", "false"))
	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	assert.False(t, cfg.Sim.Coulomb)
	assert.Equal(t, config.DefaultConfig().Sim.CoulombMethod, cfg.Sim.CoulombMethod)

	cmd = newSimCmd(t)
	cfg, err = loadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().Sim.Coulomb, cfg.Sim.Coulomb, "unset toggle keeps the config")

	cmd = newSimCmd(t)
	require.Error(t, cmd.Flags().Set("coulomb", "barneshut"))
}

func TestLoadConfig_UnknownPreset(t *testing.T) {
	cmd := newSimCmd(t)
	require.NoError(t, cmd.Flags().Set("preset", "nope"))
	_, err := loadConfig(cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown preset")
}

func TestLoadConfig_InvalidOverride(t *testing.T) {
	cmd := newSimCmd(t)
	require.NoError(t, cmd.Flags().Set("buffer", "-1"))
	_, err := loadConfig(cmd)
	require.Error(t, err)
}

func TestLoadConfig_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.env")
	require.NoError(t, os.WriteFile(path, []byte("IONMD_SEED=7\n"), 0644))

	cmd := newSimCmd(t)
	require.NoError(t, cmd.Flags().Set("env", path))
	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), cfg.Sim.Seed)
}
