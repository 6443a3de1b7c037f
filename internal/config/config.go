// Package config loads the shpgeo YAML configuration.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DataConfig names the boundary dataset and how to index it.
type DataConfig struct {
	Path       string `yaml:"path"`
	NameField  string `yaml:"name_field"`
	MaxEntries int    `yaml:"max_entries"`
}

// GeocodeConfig tunes matching.
type GeocodeConfig struct {
	MinConfidence float64 `yaml:"min_confidence"`
	MaxDistance   float64 `yaml:"max_distance"`
	MaxResults    int     `yaml:"max_results"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr             string `yaml:"addr"`
	ReadTimeoutSecs  int    `yaml:"read_timeout_secs"`
	WriteTimeoutSecs int    `yaml:"write_timeout_secs"`
	MaxBatch         int    `yaml:"max_batch"`
}

// RedisConfig locates the Redis result cache. Empty fields fall back to
// the REDIS_* environment.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// CacheConfig selects the result cache: "none", "memory" or "redis".
type CacheConfig struct {
	Type    string       `yaml:"type"`
	Size    int          `yaml:"size"`
	TTLSecs int          `yaml:"ttl_secs"`
	Redis   *RedisConfig `yaml:"redis,omitempty"`
}

// TTL returns the cache entry lifetime.
func (c CacheConfig) TTL() time.Duration { return time.Duration(c.TTLSecs) * time.Second }

// PostgresConfig configures record export. An empty DSN falls back to the
// PG_* environment.
type PostgresConfig struct {
	DSN   string `yaml:"dsn"`
	Table string `yaml:"table"`
}

// AppConfig is the root configuration.
type AppConfig struct {
	Data     DataConfig     `yaml:"data"`
	Geocode  GeocodeConfig  `yaml:"geocode"`
	Server   ServerConfig   `yaml:"server"`
	Cache    CacheConfig    `yaml:"cache"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// Load reads a config file. A missing file yields the defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./shpgeo.yaml, then ~/.config/shpgeo/config.yaml, and
// returns the defaults with an empty path when neither exists.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "shpgeo.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	if userPath, err := UserConfigPath(); err == nil {
		if _, err := os.Stat(userPath); err == nil {
			cfg, err := Load(userPath)
			return cfg, userPath, err
		}
	}
	return Default(), "", nil
}

// Save writes cfg to path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// UserConfigPath is the per-user config location.
func UserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "shpgeo", "config.yaml"), nil
}

// Default returns the built-in configuration.
func Default() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Data.NameField == "" {
		cfg.Data.NameField = "NAME"
	}
	if cfg.Data.MaxEntries == 0 {
		cfg.Data.MaxEntries = 16
	}
	if cfg.Geocode.MinConfidence == 0 {
		cfg.Geocode.MinConfidence = 0.3
	}
	if cfg.Geocode.MaxDistance == 0 {
		cfg.Geocode.MaxDistance = 100
	}
	if cfg.Geocode.MaxResults == 0 {
		cfg.Geocode.MaxResults = 10
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.ReadTimeoutSecs == 0 {
		cfg.Server.ReadTimeoutSecs = 10
	}
	if cfg.Server.WriteTimeoutSecs == 0 {
		cfg.Server.WriteTimeoutSecs = 30
	}
	if cfg.Server.MaxBatch == 0 {
		cfg.Server.MaxBatch = 1000
	}
	if cfg.Cache.Type == "" {
		cfg.Cache.Type = "memory"
	}
	if cfg.Cache.Size == 0 {
		cfg.Cache.Size = 10000
	}
	if cfg.Cache.TTLSecs == 0 {
		cfg.Cache.TTLSecs = 3600
	}
	if cfg.Postgres.Table == "" {
		cfg.Postgres.Table = "shape_records"
	}
}

// ApplyEnv overrides fields from SHPGEO_DATA, SHPGEO_NAME_FIELD,
// SHPGEO_ADDR, SHPGEO_CACHE, SHPGEO_CACHE_TTL and PG_DSN.
func ApplyEnv(cfg *AppConfig) {
	if v := os.Getenv("SHPGEO_DATA"); v != "" {
		cfg.Data.Path = v
	}
	if v := os.Getenv("SHPGEO_NAME_FIELD"); v != "" {
		cfg.Data.NameField = v
	}
	if v := os.Getenv("SHPGEO_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("SHPGEO_CACHE"); v != "" {
		cfg.Cache.Type = v
	}
	if v := os.Getenv("SHPGEO_CACHE_TTL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Cache.TTLSecs = n
		}
	}
	if v := os.Getenv("PG_DSN"); v != "" {
		cfg.Postgres.DSN = v
	}
}
