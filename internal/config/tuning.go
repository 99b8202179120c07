package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the checked-in tuning defaults file.
// Its values mirror the fallback constants below, which are what the
// Get* accessors return when a field is unset; the file is only read
// when passed to LoadTuningConfig.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for tracker tuning
// parameters. Fields are pointers so a partial JSON file overrides only
// what it names; the Get* accessors supply fallback defaults for the
// rest.
type TuningConfig struct {
	// Stage params
	YieldTimeUS    *int `json:"yield_time_us,omitempty"`
	InboxTimeoutUS *int `json:"inbox_timeout_us,omitempty"`

	// Association params
	MaxDist   *float64  `json:"max_dist,omitempty"`
	MaxTimeMS *int      `json:"max_time_ms,omitempty"`
	Targets   *[]string `json:"target_types,omitempty"`

	// Filter params
	InitialError    *float64 `json:"initial_error,omitempty"`
	MeasureVariance *float64 `json:"measure_variance,omitempty"`
	ProcessVariance *float64 `json:"process_variance,omitempty"`

	// Reporting
	Quiet *bool `json:"quiet,omitempty"`
}

// Fallback defaults, used when the JSON omits a field.
const (
	defaultYieldTimeUS    = 1000
	defaultInboxTimeoutUS = 1000
	defaultMaxDist        = 100.0
	defaultMaxTimeMS      = 1500
	defaultInitialError   = 100.0
	defaultMeasureVar     = 2.0
	defaultProcessVar     = 5.0
)

var defaultTargets = []string{"person", "pet", "vehicle"}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from a file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file must
// have a .json extension and stay under the max file size. Fields
// omitted from the JSON fall back to defaults, so partial configs are
// safe.
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

// Validate rejects values that would break the tracker: non-positive
// timings, a non-positive gate, or a measurement variance the filter
// cannot invert around.
func (c *TuningConfig) Validate() error {
	if c.YieldTimeUS != nil && *c.YieldTimeUS <= 0 {
		return fmt.Errorf("yield_time_us must be > 0, got %d", *c.YieldTimeUS)
	}
	if c.InboxTimeoutUS != nil && *c.InboxTimeoutUS <= 0 {
		return fmt.Errorf("inbox_timeout_us must be > 0, got %d", *c.InboxTimeoutUS)
	}
	if c.MaxDist != nil && *c.MaxDist <= 0 {
		return fmt.Errorf("max_dist must be > 0, got %v", *c.MaxDist)
	}
	if c.MaxTimeMS != nil && *c.MaxTimeMS <= 0 {
		return fmt.Errorf("max_time_ms must be > 0, got %d", *c.MaxTimeMS)
	}
	if c.MeasureVariance != nil && *c.MeasureVariance <= 0 {
		return fmt.Errorf("measure_variance must be > 0, got %v", *c.MeasureVariance)
	}
	if c.InitialError != nil && *c.InitialError < 0 {
		return fmt.Errorf("initial_error must be >= 0, got %v", *c.InitialError)
	}
	if c.ProcessVariance != nil && *c.ProcessVariance < 0 {
		return fmt.Errorf("process_variance must be >= 0, got %v", *c.ProcessVariance)
	}
	return nil
}

// GetYieldTimeUS returns the worker sleep between ticks in microseconds.
func (c *TuningConfig) GetYieldTimeUS() int {
	if c.YieldTimeUS != nil {
		return *c.YieldTimeUS
	}
	return defaultYieldTimeUS
}

// GetInboxTimeoutUS returns the bounded inbox lock wait in microseconds.
func (c *TuningConfig) GetInboxTimeoutUS() int {
	if c.InboxTimeoutUS != nil {
		return *c.InboxTimeoutUS
	}
	return defaultInboxTimeoutUS
}

// GetMaxDist returns the gating distance in pixels.
func (c *TuningConfig) GetMaxDist() float64 {
	if c.MaxDist != nil {
		return *c.MaxDist
	}
	return defaultMaxDist
}

// GetMaxTimeMS returns the track age-out threshold in milliseconds.
func (c *TuningConfig) GetMaxTimeMS() int {
	if c.MaxTimeMS != nil {
		return *c.MaxTimeMS
	}
	return defaultMaxTimeMS
}

// GetTargets returns the category names retained on ingest.
func (c *TuningConfig) GetTargets() []string {
	if c.Targets != nil {
		return *c.Targets
	}
	return defaultTargets
}

// GetInitialError returns the initial covariance diagonal.
func (c *TuningConfig) GetInitialError() float64 {
	if c.InitialError != nil {
		return *c.InitialError
	}
	return defaultInitialError
}

// GetMeasureVariance returns the measurement noise diagonal.
func (c *TuningConfig) GetMeasureVariance() float64 {
	if c.MeasureVariance != nil {
		return *c.MeasureVariance
	}
	return defaultMeasureVar
}

// GetProcessVariance returns the process noise diagonal.
func (c *TuningConfig) GetProcessVariance() float64 {
	if c.ProcessVariance != nil {
		return *c.ProcessVariance
	}
	return defaultProcessVar
}

// GetQuiet reports whether the halt-time stats dump is suppressed.
func (c *TuningConfig) GetQuiet() bool {
	if c.Quiet != nil {
		return *c.Quiet
	}
	return false
}
