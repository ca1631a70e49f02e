package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTuningConfig(t *testing.T) {
	cfg := DefaultTuningConfig()

	require.NotNil(t, cfg.PlantNoise)
	assert.Equal(t, 20.0, *cfg.PlantNoise)
	require.NotNil(t, cfg.InnovationReference)
	assert.Equal(t, InnovationPredicted, *cfg.InnovationReference)

	assert.Equal(t, 1.0, cfg.GetMeasurementNoise())
	assert.Equal(t, 50.0, cfg.GetGroupingWindow())
	assert.Equal(t, 0.95, cfg.GetGateConfidence())
	assert.Equal(t, 3, cfg.GetGateDOF())
	assert.Equal(t, 8, cfg.GetMaxClusterSize())

	require.NoError(t, cfg.Validate())
}

func TestEmptyConfigGettersFallBack(t *testing.T) {
	cfg := EmptyTuningConfig()

	assert.Equal(t, 20.0, cfg.GetPlantNoise())
	assert.Equal(t, 1.0, cfg.GetMeasurementNoise())
	assert.Equal(t, InnovationPredicted, cfg.GetInnovationReference())
	assert.Equal(t, 50.0, cfg.GetGroupingWindow())
	assert.Equal(t, 0.95, cfg.GetGateConfidence())
	assert.Equal(t, 3, cfg.GetGateDOF())
	assert.Equal(t, 1.0, cfg.GetGateCovarianceScale())
	assert.Equal(t, 8, cfg.GetMaxClusterSize())
	assert.Equal(t, 1<<16, cfg.GetMaxHypotheses())
}

func TestLoadTuningConfigPartial(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"plant_noise": 5, "max_cluster_size": 3}`), 0o644))

	cfg, err := LoadTuningConfig(path)
	require.NoError(t, err)

	// Overridden fields.
	assert.Equal(t, 5.0, cfg.GetPlantNoise())
	assert.Equal(t, 3, cfg.GetMaxClusterSize())
	// Omitted fields keep defaults.
	assert.Equal(t, 0.95, cfg.GetGateConfidence())
	assert.Equal(t, InnovationPredicted, cfg.GetInnovationReference())
}

func TestLoadTuningConfigRejectsBadExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))

	_, err := LoadTuningConfig(path)
	assert.ErrorContains(t, err, ".json extension")
}

func TestLoadTuningConfigMissingFile(t *testing.T) {
	_, err := LoadTuningConfig(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*TuningConfig)
		wantErr string
	}{
		{"negative plant noise", func(c *TuningConfig) { c.PlantNoise = ptrFloat64(-1) }, "plant_noise"},
		{"zero measurement noise", func(c *TuningConfig) { c.MeasurementNoise = ptrFloat64(0) }, "measurement_noise"},
		{"bad innovation reference", func(c *TuningConfig) { c.InnovationReference = ptrString("postdicted") }, "innovation_reference"},
		{"zero grouping window", func(c *TuningConfig) { c.GroupingWindow = ptrFloat64(0) }, "grouping_window"},
		{"confidence out of range", func(c *TuningConfig) { c.GateConfidence = ptrFloat64(1) }, "gate_confidence"},
		{"zero dof", func(c *TuningConfig) { c.GateDOF = ptrInt(0) }, "gate_dof"},
		{"zero covariance scale", func(c *TuningConfig) { c.GateCovarianceScale = ptrFloat64(0) }, "gate_covariance_scale"},
		{"zero cluster size", func(c *TuningConfig) { c.MaxClusterSize = ptrInt(0) }, "max_cluster_size"},
		{"zero hypotheses", func(c *TuningConfig) { c.MaxHypotheses = ptrInt(0) }, "max_hypotheses"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := EmptyTuningConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}
