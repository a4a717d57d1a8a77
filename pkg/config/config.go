// Package config provides configuration loading and management for the
// searchlight tools. It handles loading configuration from YAML files,
// provides default values, and turns the loaded values into searchlight
// parameters.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/c2h5oh/datasize"
	"gopkg.in/yaml.v3"

	"mrisearchlight/internal/models"
	"mrisearchlight/pkg/crossval"
	"mrisearchlight/pkg/estimator"
	"mrisearchlight/pkg/searchlight"
	"mrisearchlight/pkg/volume"
)

// Cross-validation kinds accepted in cv.kind.
const (
	CVKFold            = "kfold"
	CVStratifiedKFold  = "stratified"
	CVLeaveOneGroupOut = "logo"
	CVGroupKFold       = "groupkfold"
)

// Estimator kinds accepted in estimator.kind.
const (
	EstimatorNearestCentroid    = "nearest_centroid"
	EstimatorLogisticRegression = "logistic"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Searchlight parameters
	SearchLight struct {
		// Radius is the sphere radius in mm
		Radius float64 `yaml:"radius"`

		// NumJobs is the number of parallel workers; negative uses every CPU
		NumJobs int `yaml:"numJobs"`

		// Scoring lists metric names; empty uses the estimator's own score
		Scoring []string `yaml:"scoring"`

		// Verbose is 0 (silent), 1 (steps) or 2 (steps and progress)
		Verbose int `yaml:"verbose"`

		// MaxSampleMatrix caps the masked sample matrix, e.g. "512MB"; 0 disables the cap
		MaxSampleMatrix datasize.ByteSize `yaml:"maxSampleMatrix"`
	} `yaml:"searchlight"`

	// Cross-validation parameters
	CV struct {
		// Kind is one of kfold, stratified, logo, groupkfold
		Kind string `yaml:"kind"`

		// NSplits is the number of folds (ignored by logo)
		NSplits int `yaml:"nSplits"`

		// Shuffle permutes samples before splitting (kfold and stratified)
		Shuffle bool `yaml:"shuffle"`

		// Seed drives the shuffle
		Seed int64 `yaml:"seed"`
	} `yaml:"cv"`

	// Estimator parameters
	Estimator struct {
		// Kind is one of nearest_centroid, logistic
		Kind string `yaml:"kind"`

		// C is the inverse L2 regularisation strength of logistic regression
		C float64 `yaml:"c"`

		// MaxIterations bounds the logistic regression optimiser
		MaxIterations int `yaml:"maxIterations"`
	} `yaml:"estimator"`

	// Simulation parameters for the synthetic dataset
	Simulation struct {
		// Shape is the volume size in voxels
		Shape [3]int `yaml:"shape"`

		// Samples is the number of volumes, split evenly between two classes
		Samples int `yaml:"samples"`

		// Signal is the voxel carrying the class signal
		Signal [3]int `yaml:"signal"`

		// Amplitude is the signal value of the second class
		Amplitude float64 `yaml:"amplitude"`

		// Seed makes the noise reproducible
		Seed int64 `yaml:"seed"`

		// Radii lists the radii to sweep; empty means searchlight.radius only
		Radii []float64 `yaml:"radii"`
	} `yaml:"simulation"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default searchlight parameters
	cfg.SearchLight.Radius = searchlight.DefaultRadius
	cfg.SearchLight.NumJobs = 1
	cfg.SearchLight.Scoring = []string{"accuracy"}
	cfg.SearchLight.Verbose = 1
	cfg.SearchLight.MaxSampleMatrix = 512 * datasize.MB

	// Set default cross-validation parameters
	cfg.CV.Kind = CVKFold
	cfg.CV.NSplits = 4
	cfg.CV.Shuffle = false
	cfg.CV.Seed = 0

	// Set default estimator parameters
	cfg.Estimator.Kind = EstimatorNearestCentroid
	cfg.Estimator.C = 1.0
	cfg.Estimator.MaxIterations = 100

	// Set default simulation parameters
	cfg.Simulation.Shape = [3]int{5, 5, 5}
	cfg.Simulation.Samples = 30
	cfg.Simulation.Signal = [3]int{2, 2, 2}
	cfg.Simulation.Amplitude = 2.0
	cfg.Simulation.Seed = 0
	cfg.Simulation.Radii = []float64{0.5, 1, 2}

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}

// BuildEstimator returns the estimator described by the estimator section.
func (c *Config) BuildEstimator() (estimator.Estimator, error) {
	switch strings.ToLower(c.Estimator.Kind) {
	case "", EstimatorNearestCentroid:
		return estimator.NewNearestCentroid(), nil
	case EstimatorLogisticRegression:
		return estimator.NewLogisticRegression(c.Estimator.C, c.Estimator.MaxIterations), nil
	default:
		return nil, fmt.Errorf("unknown estimator kind %q", c.Estimator.Kind)
	}
}

// BuildSplitter returns the cross-validation splitter described by the cv section.
func (c *Config) BuildSplitter() (crossval.Splitter, error) {
	switch strings.ToLower(c.CV.Kind) {
	case "", CVKFold:
		return &crossval.KFold{NSplits: c.CV.NSplits, Shuffle: c.CV.Shuffle, Seed: c.CV.Seed}, nil
	case CVStratifiedKFold:
		return &crossval.StratifiedKFold{NSplits: c.CV.NSplits, Shuffle: c.CV.Shuffle, Seed: c.CV.Seed}, nil
	case CVLeaveOneGroupOut:
		return crossval.NewLeaveOneGroupOut(), nil
	case CVGroupKFold:
		return crossval.NewGroupKFold(c.CV.NSplits), nil
	default:
		return nil, fmt.Errorf("unknown cross-validation kind %q", c.CV.Kind)
	}
}

// UsesGroups reports whether the configured splitter needs sample groups.
func (c *Config) UsesGroups() bool {
	switch strings.ToLower(c.CV.Kind) {
	case CVLeaveOneGroupOut, CVGroupKFold:
		return true
	}
	return false
}

// SearchLightParams assembles searchlight parameters for the given masks
// and radius. A zero radius uses searchlight.radius.
func (c *Config) SearchLightParams(mask, processMask *volume.Mask, radius float64) (searchlight.Params, error) {
	est, err := c.BuildEstimator()
	if err != nil {
		return searchlight.Params{}, err
	}
	cv, err := c.BuildSplitter()
	if err != nil {
		return searchlight.Params{}, err
	}
	if radius == 0 {
		radius = c.SearchLight.Radius
	}
	return searchlight.Params{
		Mask:            mask,
		ProcessMask:     processMask,
		Radius:          radius,
		Estimator:       est,
		NumJobs:         c.SearchLight.NumJobs,
		Scoring:         append([]string(nil), c.SearchLight.Scoring...),
		CV:              cv,
		Verbose:         c.SearchLight.Verbose,
		MaxSampleMatrix: c.SearchLight.MaxSampleMatrix,
	}, nil
}

// SyntheticParams returns the synthetic dataset described by the simulation section.
func (c *Config) SyntheticParams() models.SyntheticParams {
	return models.SyntheticParams{
		Shape:     c.Simulation.Shape,
		Samples:   c.Simulation.Samples,
		Signal:    c.Simulation.Signal,
		Amplitude: c.Simulation.Amplitude,
		Seed:      c.Simulation.Seed,
	}
}

// Radii returns the radii to sweep.
func (c *Config) Radii() []float64 {
	if len(c.Simulation.Radii) == 0 {
		return []float64{c.SearchLight.Radius}
	}
	return append([]float64(nil), c.Simulation.Radii...)
}
