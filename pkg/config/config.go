// Package config loads runtime settings for the viewstate tooling: codec
// keys, the page-state store, caching, filter engine, method resolution,
// paging and telemetry.
//
// Precedence is defaults, then the YAML file, then VIEWSTATE_* environment
// variables (VIEWSTATE_STATE_MAC_KEY, VIEWSTATE_CACHE_DURATION, ...).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-viewstate/pkg/filter"
	"github.com/goliatone/go-viewstate/pkg/method"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "VIEWSTATE"

// Store kinds accepted by StateConfig.Store.
const (
	StoreMemory = "memory"
	StoreBolt   = "bolt"
)

// Cache policies accepted by CacheConfig.Policy.
const (
	PolicyAbsolute = "absolute"
	PolicySliding  = "sliding"
)

// Config is the full runtime configuration.
type Config struct {
	State     StateConfig     `yaml:"state" mapstructure:"state"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Filter    FilterConfig    `yaml:"filter" mapstructure:"filter"`
	Method    MethodConfig    `yaml:"method" mapstructure:"method"`
	Paging    PagingConfig    `yaml:"paging" mapstructure:"paging"`
	Telemetry TelemetryConfig `yaml:"telemetry" mapstructure:"telemetry"`
}

// StateConfig configures the blob codec and the page-state store.
type StateConfig struct {
	MACKey  string `yaml:"mac_key" mapstructure:"mac_key"`
	Version int    `yaml:"version" mapstructure:"version"`
	Store   string `yaml:"store" mapstructure:"store"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// CacheConfig configures the select cache.
type CacheConfig struct {
	Enabled  bool          `yaml:"enabled" mapstructure:"enabled"`
	Duration time.Duration `yaml:"duration" mapstructure:"duration"`
	Policy   string        `yaml:"policy" mapstructure:"policy"`
}

// FilterConfig selects the filter expression engine.
type FilterConfig struct {
	Engine string `yaml:"engine" mapstructure:"engine"`
}

// MethodConfig configures method resolution for object views.
type MethodConfig struct {
	ConvertNullToDBNull bool   `yaml:"convert_null_to_dbnull" mapstructure:"convert_null_to_dbnull"`
	OldValuesFormat     string `yaml:"old_values_format" mapstructure:"old_values_format"`
}

// PagingConfig holds paging defaults for data-bound controls.
type PagingConfig struct {
	PageSize int `yaml:"page_size" mapstructure:"page_size"`
}

// TelemetryConfig configures the OTLP metrics exporter. An empty endpoint
// disables export.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint" mapstructure:"otlp_endpoint"`
	ServiceName  string `yaml:"service_name" mapstructure:"service_name"`
	Insecure     bool   `yaml:"insecure" mapstructure:"insecure"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		State: StateConfig{
			Version: 1,
			Store:   StoreMemory,
		},
		Cache: CacheConfig{
			Duration: 5 * time.Minute,
			Policy:   PolicyAbsolute,
		},
		Filter: FilterConfig{
			Engine: filter.EngineExpr,
		},
		Method: MethodConfig{
			OldValuesFormat: method.DefaultOldValuesFormat,
		},
		Paging: PagingConfig{
			PageSize: 10,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "viewstate",
		},
	}
}

// Load reads path (which may be empty or missing) over the defaults, applies
// environment overrides and validates the result.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, Default())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path = strings.TrimSpace(path)
	if path != "" {
		v.SetConfigFile(path)
		if filepath.Ext(path) == "" {
			v.SetConfigType("yaml")
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return Config{}, fmt.Errorf("config: read %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// setDefaults registers every key so environment overrides apply even when
// the file omits them.
func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("state.mac_key", cfg.State.MACKey)
	v.SetDefault("state.version", cfg.State.Version)
	v.SetDefault("state.store", cfg.State.Store)
	v.SetDefault("state.path", cfg.State.Path)
	v.SetDefault("cache.enabled", cfg.Cache.Enabled)
	v.SetDefault("cache.duration", cfg.Cache.Duration)
	v.SetDefault("cache.policy", cfg.Cache.Policy)
	v.SetDefault("filter.engine", cfg.Filter.Engine)
	v.SetDefault("method.convert_null_to_dbnull", cfg.Method.ConvertNullToDBNull)
	v.SetDefault("method.old_values_format", cfg.Method.OldValuesFormat)
	v.SetDefault("paging.page_size", cfg.Paging.PageSize)
	v.SetDefault("telemetry.otlp_endpoint", cfg.Telemetry.OTLPEndpoint)
	v.SetDefault("telemetry.service_name", cfg.Telemetry.ServiceName)
	v.SetDefault("telemetry.insecure", cfg.Telemetry.Insecure)
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.State.Version < 1 {
		return fmt.Errorf("config: state.version must be >= 1, got %d", c.State.Version)
	}
	switch c.State.Store {
	case StoreMemory:
	case StoreBolt:
		if strings.TrimSpace(c.State.Path) == "" {
			return errors.New("config: state.path is required for the bolt store")
		}
	default:
		return fmt.Errorf("config: unknown state.store %q", c.State.Store)
	}
	if c.Cache.Enabled && c.Cache.Duration < 0 {
		return fmt.Errorf("config: cache.duration must not be negative, got %s", c.Cache.Duration)
	}
	switch c.Cache.Policy {
	case PolicyAbsolute, PolicySliding:
	default:
		return fmt.Errorf("config: unknown cache.policy %q", c.Cache.Policy)
	}
	switch c.Filter.Engine {
	case filter.EngineExpr, filter.EngineCEL, filter.EngineJS:
	default:
		return fmt.Errorf("config: unknown filter.engine %q", c.Filter.Engine)
	}
	if f := c.Method.OldValuesFormat; !strings.Contains(f, "{0}") && !strings.Contains(f, "%s") {
		return fmt.Errorf("config: method.old_values_format %q must contain {0} or %%s", f)
	}
	if c.Paging.PageSize < 1 {
		return fmt.Errorf("config: paging.page_size must be >= 1, got %d", c.Paging.PageSize)
	}
	return nil
}

// WriteDefault writes the default configuration as YAML, creating parent
// directories. An existing file is left alone.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: stat %s: %w", path, err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: create %s: %w", dir, err)
		}
	}
	raw, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("config: encode defaults: %w", err)
	}
	return os.WriteFile(path, raw, 0o644)
}
