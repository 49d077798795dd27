package pathing

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned by Validate for out of range settings.
var ErrInvalidConfig = errors.New("pathing: invalid config")

// Config holds the tunables of a Coordinator.
type Config struct {
	// IterationsPerTick is the node expansion budget of one full search.
	// Recomputations run with half of it.
	IterationsPerTick int `yaml:"iterations_per_tick"`
	// Ratio is how many terrain cells one obstacle grid cell spans per axis.
	Ratio int `yaml:"ratio"`
	// GraceTicks is how long a finished route stays queryable.
	GraceTicks int `yaml:"grace_ticks"`
	// EventQueueSize bounds the event bridge.
	EventQueueSize int  `yaml:"event_queue_size"`
	Verbose        bool `yaml:"verbose"`
}

// DefaultConfig returns the stock settings.
func DefaultConfig() Config {
	return Config{
		IterationsPerTick: 200,
		Ratio:             2,
		GraceTicks:        300,
		EventQueueSize:    1024,
	}
}

// Validate checks every field range.
func (c Config) Validate() error {
	switch {
	case c.IterationsPerTick < 1:
		return fmt.Errorf("%w: iterations_per_tick must be at least 1, got %d", ErrInvalidConfig, c.IterationsPerTick)
	case c.Ratio < 1:
		return fmt.Errorf("%w: ratio must be at least 1, got %d", ErrInvalidConfig, c.Ratio)
	case c.GraceTicks < 0:
		return fmt.Errorf("%w: grace_ticks must not be negative, got %d", ErrInvalidConfig, c.GraceTicks)
	case c.EventQueueSize < 1:
		return fmt.Errorf("%w: event_queue_size must be at least 1, got %d", ErrInvalidConfig, c.EventQueueSize)
	}
	return nil
}

// ParseConfig decodes YAML on top of DefaultConfig, so omitted keys keep
// their default.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("pathing: unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("pathing: read %s: %w", path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("pathing: load %s: %w", path, err)
	}
	return cfg, nil
}
