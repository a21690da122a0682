package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dshills/watchable/dispatch"
	"github.com/dshills/watchable/loop"
)

// Dispatch strategy names accepted in configuration.
const (
	StrategyImmediate  = "immediate"
	StrategyOnLoop     = "onloop"
	StrategyNextTurn   = "nextturn"
	StrategyBackground = "background"
	StrategySerial     = "serial"
)

var (
	// ErrUnknownStrategy is returned for a strategy name outside the
	// known set.
	ErrUnknownStrategy = errors.New("config: unknown dispatch strategy")

	// ErrLoopRequired is returned when a loop-bound strategy is built
	// without a loop.
	ErrLoopRequired = errors.New("config: dispatch strategy requires a loop")

	// ErrUnknownFormat is returned for an unsupported config file
	// extension.
	ErrUnknownFormat = errors.New("config: unsupported config file format")
)

// Config is the root configuration.
type Config struct {
	Dispatch DispatchConfig `toml:"dispatch" yaml:"dispatch"`
	Logging  LoggingConfig  `toml:"logging" yaml:"logging"`
	Loop     LoopConfig     `toml:"loop" yaml:"loop"`
}

// DispatchConfig selects and sizes the default delivery strategy.
type DispatchConfig struct {
	// Strategy names the delivery strategy: immediate, onloop, nextturn,
	// background, or serial.
	Strategy string `toml:"strategy" yaml:"strategy"`

	// QueueSize bounds the task queue of the queued strategies.
	QueueSize int `toml:"queueSize" yaml:"queueSize"`

	// Workers is the worker count for the background strategy.
	Workers int `toml:"workers" yaml:"workers"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	// Level is the minimum level: debug, info, warn, or error.
	Level string `toml:"level" yaml:"level"`

	// Format selects the handler: text or json.
	Format string `toml:"format" yaml:"format"`

	// AddSource annotates records with the file and line that produced them.
	AddSource bool `toml:"addSource" yaml:"addSource"`
}

// LoopConfig sizes the coordination loop.
type LoopConfig struct {
	// QueueSize bounds the loop's task queue.
	QueueSize int `toml:"queueSize" yaml:"queueSize"`
}

// Default returns the configuration used when no source provides a value.
func Default() *Config {
	return &Config{
		Dispatch: DispatchConfig{
			Strategy:  StrategyImmediate,
			QueueSize: 4096,
			Workers:   4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Loop: LoopConfig{
			QueueSize: 1024,
		},
	}
}

// Apply overlays values from a loader-produced map onto the config.
// Unknown keys are ignored.
func (c *Config) Apply(m map[string]any) {
	if m == nil {
		return
	}
	if v, ok := getString(m, "dispatch", "strategy"); ok {
		c.Dispatch.Strategy = strings.ToLower(v)
	}
	if v, ok := getInt(m, "dispatch", "queueSize"); ok {
		c.Dispatch.QueueSize = v
	}
	if v, ok := getInt(m, "dispatch", "workers"); ok {
		c.Dispatch.Workers = v
	}
	if v, ok := getString(m, "logging", "level"); ok {
		c.Logging.Level = strings.ToLower(v)
	}
	if v, ok := getString(m, "logging", "format"); ok {
		c.Logging.Format = strings.ToLower(v)
	}
	if v, ok := getBool(m, "logging", "addSource"); ok {
		c.Logging.AddSource = v
	}
	if v, ok := getInt(m, "loop", "queueSize"); ok {
		c.Loop.QueueSize = v
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	switch c.Dispatch.Strategy {
	case StrategyImmediate, StrategyOnLoop, StrategyNextTurn, StrategyBackground, StrategySerial:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStrategy, c.Dispatch.Strategy)
	}
	if c.Dispatch.QueueSize < 0 {
		return fmt.Errorf("config: dispatch queue size must not be negative, got %d", c.Dispatch.QueueSize)
	}
	if c.Dispatch.Workers < 0 {
		return fmt.Errorf("config: dispatch workers must not be negative, got %d", c.Dispatch.Workers)
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Logging.Format)
	}
	if c.Loop.QueueSize < 0 {
		return fmt.Errorf("config: loop queue size must not be negative, got %d", c.Loop.QueueSize)
	}
	return nil
}

// Load reads the file at path, chosen by extension (.toml, .yaml, .yml),
// overlays WATCHABLE_ environment variables, and validates the result. A
// missing file leaves the defaults in place.
func Load(path string) (*Config, error) {
	var file Loader
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		file = NewTOMLLoader(path)
	case ".yaml", ".yml":
		file = NewYAMLLoader(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
	return LoadWith(file, NewEnvLoader("WATCHABLE_"))
}

// LoadWith merges the loaders' output over the defaults, in order, with
// later loaders overriding earlier ones.
func LoadWith(loaders ...Loader) (*Config, error) {
	merged := make(map[string]any)
	for _, l := range loaders {
		if l == nil {
			continue
		}
		m, err := l.Load()
		if err != nil {
			return nil, err
		}
		merged = DeepMerge(merged, m)
	}

	cfg := Default()
	cfg.Apply(merged)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// StopFunc shuts down a built dispatcher. Strategies without a lifecycle
// return a no-op.
type StopFunc func(context.Context) error

// BuildDispatcher constructs the configured strategy. Loop-bound
// strategies require l; queued strategies are started before returning.
func (c DispatchConfig) BuildDispatcher(l *loop.Loop) (dispatch.Dispatcher, StopFunc, error) {
	noop := func(context.Context) error { return nil }

	switch c.Strategy {
	case StrategyImmediate, "":
		return dispatch.NewImmediate(), noop, nil

	case StrategyOnLoop:
		if l == nil {
			return nil, nil, fmt.Errorf("%w: %s", ErrLoopRequired, c.Strategy)
		}
		return dispatch.NewOnLoop(l), noop, nil

	case StrategyNextTurn:
		if l == nil {
			return nil, nil, fmt.Errorf("%w: %s", ErrLoopRequired, c.Strategy)
		}
		return dispatch.NewNextTurn(l), noop, nil

	case StrategyBackground:
		d := dispatch.NewBackground(
			dispatch.WithQueueSize(c.QueueSize),
			dispatch.WithWorkerCount(c.Workers),
		)
		if err := d.Start(); err != nil {
			return nil, nil, err
		}
		return d, d.Stop, nil

	case StrategySerial:
		d := dispatch.NewSerial(dispatch.WithSerialQueueSize(c.QueueSize))
		if err := d.Start(); err != nil {
			return nil, nil, err
		}
		return d, d.Stop, nil

	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, c.Strategy)
	}
}

func section(m map[string]any, name string) map[string]any {
	if s, ok := m[name].(map[string]any); ok {
		return s
	}
	return nil
}

func getString(m map[string]any, sec, key string) (string, bool) {
	s := section(m, sec)
	if s == nil {
		return "", false
	}
	v, ok := s[key].(string)
	return v, ok
}

func getBool(m map[string]any, sec, key string) (bool, bool) {
	s := section(m, sec)
	if s == nil {
		return false, false
	}
	v, ok := s[key].(bool)
	return v, ok
}

func getInt(m map[string]any, sec, key string) (int, bool) {
	s := section(m, sec)
	if s == nil {
		return 0, false
	}
	switch v := s[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
