package swarm

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Fixed simulation constants.
const (
	TickDuration    = float32(1.0 / 60.0)
	frameRateScale  = 60
	MinAgents       = 1
	MaxAgents       = 1000
	DefaultAgents   = 10
	MaxOccluders    = 32
	HitRadius       = float32(20)
	DeathDuration   = float32(2.0)
	ReviveDuration  = float32(1.0)
	exposureFreeze  = float32(0.5)
	wallRestitution = float32(-0.5)
	// timerEpsilon absorbs float32 drift so a countdown that lands a few
	// ULPs above zero after an integral number of ticks still expires.
	timerEpsilon = float32(1e-4)
)

// Config is the static configuration record. Only Count is meant to be set
// from the command line; the rest may come from a YAML file.
type Config struct {
	Count              int     `yaml:"count"`
	ThreatRadius       float32 `yaml:"threat_radius"`
	WallRadius         float32 `yaml:"wall_radius"`
	MaxSpeed           float32 `yaml:"max_speed"`
	EscapeAcceleration float32 `yaml:"escape_acceleration"`
	Friction           float32 `yaml:"friction"`
	RotationSpeed      float32 `yaml:"rotation_speed"`
	// Occluders is used in place of desktop window enumeration when set.
	Occluders []Rect `yaml:"occluders"`
}

// DefaultConfig returns the reference tuning.
func DefaultConfig() Config {
	return Config{
		Count:              DefaultAgents,
		ThreatRadius:       180,
		WallRadius:         30,
		MaxSpeed:           14,
		EscapeAcceleration: 4,
		Friction:           0.94,
		RotationSpeed:      12,
	}
}

// ClampCount bounds n to [MinAgents, MaxAgents].
func ClampCount(n int) int {
	if n < MinAgents {
		return MinAgents
	}
	if n > MaxAgents {
		return MaxAgents
	}
	return n
}

var errBadConfig = errors.New("invalid configuration")

// Validate clamps the agent count and rejects values that would break the
// movement phase.
func (c *Config) Validate() error {
	c.Count = ClampCount(c.Count)
	switch {
	case c.ThreatRadius <= 0:
		return fmt.Errorf("%w: threat_radius must be positive", errBadConfig)
	case c.WallRadius < 0:
		return fmt.Errorf("%w: wall_radius must not be negative", errBadConfig)
	case c.MaxSpeed <= 0:
		return fmt.Errorf("%w: max_speed must be positive", errBadConfig)
	case c.EscapeAcceleration < 0:
		return fmt.Errorf("%w: escape_acceleration must not be negative", errBadConfig)
	case c.Friction < 0 || c.Friction > 1:
		return fmt.Errorf("%w: friction must be within [0, 1]", errBadConfig)
	case c.RotationSpeed < 0:
		return fmt.Errorf("%w: rotation_speed must not be negative", errBadConfig)
	}
	for i, r := range c.Occluders {
		if r.MaxX < r.MinX || r.MaxY < r.MinY {
			return fmt.Errorf("%w: occluder %d has inverted corners", errBadConfig, i)
		}
	}
	c.Occluders = truncateOccluders(c.Occluders)
	return nil
}

// LoadConfig reads a YAML file on top of the defaults. Keys missing from the
// file keep their default values; unknown keys are rejected.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config %q: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("decoding config %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %q: %w", path, err)
	}
	return cfg, nil
}

// Params is the shared, read-only record every agent update sees during a
// single dispatch.
type Params struct {
	Threat             Vec2
	Bounds             Bounds
	DeltaTime          float32
	ThreatRadius       float32
	WallRadius         float32
	MaxSpeed           float32
	EscapeAcceleration float32
	Friction           float32
	RotationSpeed      float32
	AgentCount         int
	Frame              uint32
	OccluderCount      int
}

// NewParams builds the per-frame parameter record from the static
// configuration.
func (c Config) NewParams(threat Vec2, bounds Bounds, dt float32, agents int, frame uint32, occluders int) Params {
	return Params{
		Threat:             threat,
		Bounds:             bounds,
		DeltaTime:          dt,
		ThreatRadius:       c.ThreatRadius,
		WallRadius:         c.WallRadius,
		MaxSpeed:           c.MaxSpeed,
		EscapeAcceleration: c.EscapeAcceleration,
		Friction:           c.Friction,
		RotationSpeed:      c.RotationSpeed,
		AgentCount:         agents,
		Frame:              frame,
		OccluderCount:      occluders,
	}
}
