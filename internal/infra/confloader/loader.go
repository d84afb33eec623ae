package confloader

import (
	"fmt"
	"strings"
	"sync"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the default environment variable prefix.
const DefaultEnvPrefix = "FWT_"

// envLevelSeparator separates nesting levels in environment variable names.
const envLevelSeparator = "__"

// Loader loads configuration from multiple sources.
type Loader struct {
	mu        sync.Mutex
	k         *koanf.Koanf
	envPrefix string
	filePath  string
	overrides []map[string]any
	loaded    bool
}

// Option is a function that configures the Loader.
type Option func(*Loader)

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithConfigFile sets the configuration file path.
func WithConfigFile(path string) Option {
	return func(l *Loader) {
		l.filePath = path
	}
}

// NewLoader creates a new configuration loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		k:         koanf.New("."),
		envPrefix: DefaultEnvPrefix,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// FilePath returns the configuration file path, or "" if none.
func (l *Loader) FilePath() string {
	return l.filePath
}

// Load loads configuration from all sources and unmarshals into target.
// Fields of target that no source sets keep their current values, so
// callers pass a struct pre-filled with defaults.
func (l *Loader) Load(target any) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.filePath != "" {
		if err := l.loadFile(l.filePath); err != nil {
			return fmt.Errorf("load config file: %w", err)
		}
	}
	if err := l.loadEnv(); err != nil {
		return err
	}
	for _, m := range l.overrides {
		if err := l.k.Load(mapProvider(m), nil); err != nil {
			return fmt.Errorf("load map: %w", err)
		}
	}

	if err := l.k.Unmarshal("", target); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}

	l.loaded = true
	return nil
}

// Reload discards previously loaded values and loads every source again
// into target. Maps passed to LoadMap are applied again.
func (l *Loader) Reload(target any) error {
	l.mu.Lock()
	l.k = koanf.New(".")
	l.mu.Unlock()
	return l.Load(target)
}

// LoadFile loads configuration from a YAML file.
func (l *Loader) LoadFile(path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loadFile(path)
}

func (l *Loader) loadFile(path string) error {
	if path == "" {
		return nil
	}
	if err := l.k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("load file %s: %w", path, err)
	}
	return nil
}

// LoadEnv loads configuration from environment variables.
// Example: FWT_SERVER__HTTP__ADDR=0.0.0.0:8080 sets server.http.addr.
func (l *Loader) LoadEnv() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loadEnv()
}

func (l *Loader) loadEnv() error {
	provider := env.Provider(l.envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, l.envPrefix)
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, envLevelSeparator, ".")
	})
	if err := l.k.Load(provider, nil); err != nil {
		return fmt.Errorf("load env: %w", err)
	}
	return nil
}

// LoadMap loads configuration from a map with dotted keys (useful for
// flags or testing). The map is kept and re-applied by Load and Reload.
func (l *Loader) LoadMap(data map[string]any) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.k.Load(mapProvider(data), nil); err != nil {
		return fmt.Errorf("load map: %w", err)
	}
	l.overrides = append(l.overrides, data)
	return nil
}

// Unmarshal unmarshals the loaded configuration into the target struct.
// Uses koanf tags for struct field mapping.
func (l *Loader) Unmarshal(target any) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.k.Unmarshal("", target)
}

// GetString returns a string value from the configuration.
func (l *Loader) GetString(key string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.k.String(key)
}

// IsLoaded returns true if configuration has been loaded.
func (l *Loader) IsLoaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded
}

// Keys returns all configuration keys.
func (l *Loader) Keys() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.k.Keys()
}
