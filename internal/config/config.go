// Package config loads stepview settings from .stepview.yaml, STEPVIEW_*
// environment variables and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read from the working directory when no path is given.
const DefaultFile = ".stepview.yaml"

// Store kinds.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// MaxTimeout is the longest execution timeout the backend accepts.
const MaxTimeout = 60 * time.Second

// Config holds every setting shared by the stepview commands.
type Config struct {
	// Server is the base URL of the execution backend.
	Server string `mapstructure:"server" yaml:"server"`

	// Interval is the autoplay cadence.
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`

	// Timeout is the execution timeout requested from the backend.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`

	Store StoreConfig `mapstructure:"store" yaml:"store"`

	// Listen is the address of the serve, backend and mcp (sse) commands.
	Listen string `mapstructure:"listen" yaml:"listen"`

	// RateLimit caps executions per minute on the HTTP service. 0 disables it.
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"`

	Debug bool `mapstructure:"debug" yaml:"debug"`
}

// StoreConfig selects where recorded traces live.
type StoreConfig struct {
	Kind          string        `mapstructure:"kind" yaml:"kind"`
	Path          string        `mapstructure:"path" yaml:"path"`
	RedisAddr     string        `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password" yaml:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db" yaml:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server:   "http://localhost:8000",
		Interval: time.Second,
		Timeout:  30 * time.Second,
		Store: StoreConfig{
			Kind:      StoreFile,
			Path:      ".stepview/traces",
			RedisAddr: "localhost:6379",
		},
		Listen:    ":8080",
		RateLimit: 30,
	}
}

// envKeys maps environment variables to configuration keys.
var envKeys = map[string]string{
	"STEPVIEW_SERVER":         "server",
	"STEPVIEW_INTERVAL":       "interval",
	"STEPVIEW_TIMEOUT":        "timeout",
	"STEPVIEW_STORE":          "store.kind",
	"STEPVIEW_STORE_PATH":     "store.path",
	"STEPVIEW_STORE_TTL":      "store.ttl",
	"STEPVIEW_REDIS_ADDR":     "store.redis_addr",
	"STEPVIEW_REDIS_PASSWORD": "store.redis_password",
	"STEPVIEW_REDIS_DB":       "store.redis_db",
	"STEPVIEW_LISTEN":         "listen",
	"STEPVIEW_RATE_LIMIT":     "rate_limit",
	"STEPVIEW_DEBUG":          "debug",
}

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"server":     "server",
	"interval":   "interval",
	"timeout":    "timeout",
	"store":      "store.kind",
	"store-path": "store.path",
	"redis-addr": "store.redis_addr",
	"listen":     "listen",
	"rate-limit": "rate_limit",
	"debug":      "debug",
}

// Load reads path (or DefaultFile when path is empty and the file exists),
// then applies STEPVIEW_* environment variables. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	raw, err := readFile(path)
	switch {
	case err == nil:
		if err := decode(raw, cfg); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	if err := decode(fromEnv(), cfg); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyFlags overlays every flag of fs that was set explicitly and
// validates the result. Flags unknown to Config are ignored.
func (c *Config) ApplyFlags(fs *pflag.FlagSet) error {
	overrides := make(map[string]any)
	fs.Visit(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok {
			set(overrides, key, f.Value.String())
		}
	})
	if err := decode(overrides, c); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	return c.Validate()
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server must be an http(s) URL, got %q", c.Server)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", c.Interval)
	}
	if c.Timeout < time.Second || c.Timeout > MaxTimeout {
		return fmt.Errorf("timeout must be between 1s and %s, got %s", MaxTimeout, c.Timeout)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate_limit must not be negative, got %v", c.RateLimit)
	}
	switch c.Store.Kind {
	case StoreMemory:
	case StoreFile:
		if c.Store.Path == "" {
			return errors.New("store.path is required for the file store")
		}
	case StoreRedis:
		if c.Store.RedisAddr == "" {
			return errors.New("store.redis_addr is required for the redis store")
		}
	default:
		return fmt.Errorf("unknown store kind %q (want memory, file or redis)", c.Store.Kind)
	}
	return nil
}

func readFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	raw := make(map[string]any)
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func fromEnv() map[string]any {
	raw := make(map[string]any)
	for env, key := range envKeys {
		if v, ok := os.LookupEnv(env); ok {
			set(raw, key, v)
		}
	}
	return raw
}

// set stores value under a dotted key, creating nested maps as needed.
func set(m map[string]any, key string, value any) {
	parts := strings.Split(key, ".")
	for _, p := range parts[:len(parts)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[p] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = value
}

func decode(raw map[string]any, out *Config) error {
	if len(raw) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}
