package dispatch

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/barqfleet/dispatch-engine/dispatch/geo"
)

// GridConfig sets the coverage grid dimensions and the city bounding box
// the grid is stretched over. Driver locations outside the box are dropped
// from coverage accounting.
type GridConfig struct {
	Rows   int             `yaml:"rows" json:"rows"`
	Cols   int             `yaml:"cols" json:"cols"`
	Bounds geo.BoundingBox `yaml:"bounds" json:"bounds"`
}

// TierCoverageConfig holds the under/over-service thresholds for one tier.
type TierCoverageConfig struct {
	MinDriversPerGrid int `yaml:"minDriversPerGrid" json:"minDriversPerGrid"`
	MaxDriversPerGrid int `yaml:"maxDriversPerGrid" json:"maxDriversPerGrid"`
}

// CoverageConfig groups per-tier coverage thresholds.
type CoverageConfig struct {
	BARQ   TierCoverageConfig `yaml:"BARQ" json:"BARQ"`
	BULLET TierCoverageConfig `yaml:"BULLET" json:"BULLET"`
}

// TriggersConfig controls the rebalance loop.
type TriggersConfig struct {
	// CheckIntervalMs is the rebalance period in milliseconds.
	CheckIntervalMs int64 `yaml:"checkInterval" json:"checkInterval"`
	// IdleTimeThresholdSec is the documented idle-seconds knob, carried
	// for operator visibility. Reposition eligibility uses the fixed
	// 300 s floor and does not read this value.
	IdleTimeThresholdSec int64 `yaml:"idleTimeThreshold" json:"idleTimeThreshold"`
}

// CheckInterval returns the rebalance period as a duration.
func (t TriggersConfig) CheckInterval() time.Duration {
	return time.Duration(t.CheckIntervalMs) * time.Millisecond
}

// WeightsConfig groups the per-tier scoring weight overrides.
type WeightsConfig struct {
	BARQ   ScoringWeights `yaml:"BARQ" json:"BARQ"`
	BULLET ScoringWeights `yaml:"BULLET" json:"BULLET"`
}

// ScoringConfig wraps the weight overrides.
type ScoringConfig struct {
	Weights WeightsConfig `yaml:"weights" json:"weights"`
}

// RouterConfig points at the external routing endpoint.
type RouterConfig struct {
	BaseURL   string `yaml:"baseUrl" json:"baseUrl"`
	TimeoutMs int64  `yaml:"timeout" json:"timeout"`
}

// Timeout returns the per-call router deadline.
func (r RouterConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutMs) * time.Millisecond
}

// Config is the engine configuration. Zero values are filled by
// DefaultConfig; LoadConfig applies a yaml file on top of the defaults.
type Config struct {
	Grid            GridConfig           `yaml:"grid" json:"grid"`
	Coverage        CoverageConfig       `yaml:"coverage" json:"coverage"`
	Triggers        TriggersConfig       `yaml:"triggers" json:"triggers"`
	Scoring         ScoringConfig        `yaml:"scoring" json:"scoring"`
	RestrictedAreas []geo.RestrictedArea `yaml:"restrictedAreas" json:"restrictedAreas"`
	Router          RouterConfig         `yaml:"router" json:"router"`
}

// DefaultConfig returns the stock configuration: a 10x10 grid over the
// Riyadh service area, BARQ 2..8 and BULLET 1..5 drivers per cell, a
// 5 minute rebalance period, and the default scoring profiles.
func DefaultConfig() Config {
	return Config{
		Grid: GridConfig{
			Rows: 10,
			Cols: 10,
			Bounds: geo.BoundingBox{
				MinLat: 24.40, MinLng: 46.30,
				MaxLat: 25.00, MaxLng: 47.00,
			},
		},
		Coverage: CoverageConfig{
			BARQ:   TierCoverageConfig{MinDriversPerGrid: 2, MaxDriversPerGrid: 8},
			BULLET: TierCoverageConfig{MinDriversPerGrid: 1, MaxDriversPerGrid: 5},
		},
		Triggers: TriggersConfig{
			CheckIntervalMs:      300_000,
			IdleTimeThresholdSec: 600,
		},
		Scoring: ScoringConfig{
			Weights: WeightsConfig{
				BARQ:   DefaultBARQWeights(),
				BULLET: DefaultBULLETWeights(),
			},
		},
		Router: RouterConfig{
			BaseURL:   "http://localhost:5000",
			TimeoutMs: 5_000,
		},
	}
}

// Validate checks the configuration for bootstrap errors. These are the
// only fatal errors in the engine; everything downstream degrades instead.
func (c Config) Validate() error {
	if c.Grid.Rows <= 0 || c.Grid.Cols <= 0 {
		return fmt.Errorf("grid dimensions must be positive, got %dx%d", c.Grid.Rows, c.Grid.Cols)
	}
	if c.Grid.Bounds.MinLat >= c.Grid.Bounds.MaxLat || c.Grid.Bounds.MinLng >= c.Grid.Bounds.MaxLng {
		return fmt.Errorf("grid bounds are degenerate: %+v", c.Grid.Bounds)
	}
	for tier, tc := range map[ServiceType]TierCoverageConfig{BARQ: c.Coverage.BARQ, BULLET: c.Coverage.BULLET} {
		if tc.MinDriversPerGrid < 0 || tc.MaxDriversPerGrid < tc.MinDriversPerGrid {
			return fmt.Errorf("%s coverage thresholds invalid: min=%d max=%d", tier, tc.MinDriversPerGrid, tc.MaxDriversPerGrid)
		}
	}
	if c.Triggers.CheckIntervalMs <= 0 {
		return fmt.Errorf("triggers.checkInterval must be positive, got %d", c.Triggers.CheckIntervalMs)
	}
	if err := c.Scoring.Weights.BARQ.Validate(); err != nil {
		return fmt.Errorf("BARQ scoring weights: %w", err)
	}
	if err := c.Scoring.Weights.BULLET.Validate(); err != nil {
		return fmt.Errorf("BULLET scoring weights: %w", err)
	}
	for _, area := range c.RestrictedAreas {
		if err := area.Polygon.Validate(); err != nil {
			return fmt.Errorf("restricted area %q: %w", area.Name, err)
		}
	}
	return nil
}

// LoadConfig reads a yaml config file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}
