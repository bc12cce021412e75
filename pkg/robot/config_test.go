package robot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	assert.False(t, ConfigExistsAt(path))

	cfg := DefaultConfig()
	cfg.Port = "/dev/ttyUSB0"
	cfg.Lift.RequireFullSettle = true
	require.NoError(t, cfg.SaveTo(path))
	assert.True(t, ConfigExistsAt(path))

	got, err := LoadConfigFrom(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestLoadConfig_DefaultFile(t *testing.T) {
	t.Chdir(t.TempDir())
	assert.False(t, ConfigExists())

	cfg := DefaultConfig()
	cfg.Port = "/dev/ttyACM0"
	require.NoError(t, cfg.SaveTo(DefaultConfigFile))
	assert.True(t, ConfigExists())

	got, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM0", got.Port)
}

func TestLoadConfigFrom_BadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{port:"), 0644))
	_, err := LoadConfigFrom(path)
	assert.ErrorContains(t, err, "parse "+path)

	_, err = LoadConfigFrom(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
	assert.True(t, cfg.IsCalibrated())

	delete(cfg.Calibration, Wrist)
	assert.ErrorIs(t, cfg.Validate(), ErrNotConfigured)
	assert.False(t, cfg.IsCalibrated())

	cfg = DefaultConfig()
	intake := cfg.Calibration[Intake]
	intake.ID = 1
	cfg.Calibration[Intake] = intake
	err := cfg.Validate()
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorContains(t, err, "share servo id 1")
}
