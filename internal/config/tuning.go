// Package config loads tuning parameters for the tracking and
// association pipeline from JSON files. Fields omitted from a file keep
// their built-in defaults, so partial configs are safe.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Innovation reference modes for the filter update step.
const (
	// InnovationPredicted computes the innovation against the predicted
	// state. This is the statistically correct ordering and the default.
	InnovationPredicted = "predicted"
	// InnovationPrior computes the innovation against the pre-predict
	// state, matching the legacy processing chain. Kept selectable for
	// comparison runs.
	InnovationPrior = "prior"
)

// TuningConfig represents the root configuration for tuning parameters.
// All fields are pointers so that a JSON file can override any subset;
// the Get* accessors supply defaults for unset fields.
type TuningConfig struct {
	// Filter params
	PlantNoise          *float64 `json:"plant_noise,omitempty"`
	MeasurementNoise    *float64 `json:"measurement_noise,omitempty"`
	InnovationReference *string  `json:"innovation_reference,omitempty"`

	// Grouping params
	GroupingWindow *float64 `json:"grouping_window,omitempty"`

	// Association params
	GateConfidence      *float64 `json:"gate_confidence,omitempty"`
	GateDOF             *int     `json:"gate_dof,omitempty"`
	GateCovarianceScale *float64 `json:"gate_covariance_scale,omitempty"`
	MaxClusterSize      *int     `json:"max_cluster_size,omitempty"`
	MaxHypotheses       *int     `json:"max_hypotheses,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }
func ptrString(v string) *string    { return &v }

// DefaultTuningConfig returns a TuningConfig with every field populated
// with its built-in default value.
func DefaultTuningConfig() *TuningConfig {
	return &TuningConfig{
		PlantNoise:          ptrFloat64(20),
		MeasurementNoise:    ptrFloat64(1.0),
		InnovationReference: ptrString(InnovationPredicted),
		GroupingWindow:      ptrFloat64(50),
		GateConfidence:      ptrFloat64(0.95),
		GateDOF:             ptrInt(3),
		GateCovarianceScale: ptrFloat64(1.0),
		MaxClusterSize:      ptrInt(8),
		MaxHypotheses:       ptrInt(1 << 16),
	}
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file must
// have a .json extension and be under the max file size. Fields omitted
// from the JSON file retain their default values.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.PlantNoise != nil && *c.PlantNoise < 0 {
		return fmt.Errorf("plant_noise must be non-negative, got %f", *c.PlantNoise)
	}
	if c.MeasurementNoise != nil && *c.MeasurementNoise <= 0 {
		return fmt.Errorf("measurement_noise must be positive, got %f", *c.MeasurementNoise)
	}
	if c.InnovationReference != nil {
		switch *c.InnovationReference {
		case InnovationPredicted, InnovationPrior:
		default:
			return fmt.Errorf("innovation_reference must be %q or %q, got %q",
				InnovationPredicted, InnovationPrior, *c.InnovationReference)
		}
	}
	if c.GroupingWindow != nil && *c.GroupingWindow <= 0 {
		return fmt.Errorf("grouping_window must be positive, got %f", *c.GroupingWindow)
	}
	if c.GateConfidence != nil && (*c.GateConfidence <= 0 || *c.GateConfidence >= 1) {
		return fmt.Errorf("gate_confidence must be in (0, 1), got %f", *c.GateConfidence)
	}
	if c.GateDOF != nil && *c.GateDOF < 1 {
		return fmt.Errorf("gate_dof must be at least 1, got %d", *c.GateDOF)
	}
	if c.GateCovarianceScale != nil && *c.GateCovarianceScale <= 0 {
		return fmt.Errorf("gate_covariance_scale must be positive, got %f", *c.GateCovarianceScale)
	}
	if c.MaxClusterSize != nil && *c.MaxClusterSize < 1 {
		return fmt.Errorf("max_cluster_size must be at least 1, got %d", *c.MaxClusterSize)
	}
	if c.MaxHypotheses != nil && *c.MaxHypotheses < 1 {
		return fmt.Errorf("max_hypotheses must be at least 1, got %d", *c.MaxHypotheses)
	}
	return nil
}

// GetPlantNoise returns the plant_noise value or the default.
func (c *TuningConfig) GetPlantNoise() float64 {
	if c.PlantNoise == nil {
		return 20
	}
	return *c.PlantNoise
}

// GetMeasurementNoise returns the measurement_noise value or the default.
func (c *TuningConfig) GetMeasurementNoise() float64 {
	if c.MeasurementNoise == nil {
		return 1.0
	}
	return *c.MeasurementNoise
}

// GetInnovationReference returns the innovation_reference value or the default.
func (c *TuningConfig) GetInnovationReference() string {
	if c.InnovationReference == nil {
		return InnovationPredicted
	}
	return *c.InnovationReference
}

// GetGroupingWindow returns the grouping_window value or the default.
func (c *TuningConfig) GetGroupingWindow() float64 {
	if c.GroupingWindow == nil {
		return 50
	}
	return *c.GroupingWindow
}

// GetGateConfidence returns the gate_confidence value or the default.
func (c *TuningConfig) GetGateConfidence() float64 {
	if c.GateConfidence == nil {
		return 0.95
	}
	return *c.GateConfidence
}

// GetGateDOF returns the gate_dof value or the default.
func (c *TuningConfig) GetGateDOF() int {
	if c.GateDOF == nil {
		return 3
	}
	return *c.GateDOF
}

// GetGateCovarianceScale returns the gate_covariance_scale value or the default.
func (c *TuningConfig) GetGateCovarianceScale() float64 {
	if c.GateCovarianceScale == nil {
		return 1.0
	}
	return *c.GateCovarianceScale
}

// GetMaxClusterSize returns the max_cluster_size value or the default.
func (c *TuningConfig) GetMaxClusterSize() int {
	if c.MaxClusterSize == nil {
		return 8
	}
	return *c.MaxClusterSize
}

// GetMaxHypotheses returns the max_hypotheses value or the default.
func (c *TuningConfig) GetMaxHypotheses() int {
	if c.MaxHypotheses == nil {
		return 1 << 16
	}
	return *c.MaxHypotheses
}
