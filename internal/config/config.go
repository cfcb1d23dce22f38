package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
		// Mode is "debug" or "release" (gin mode).
		Mode string `yaml:"mode"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		// ReferenceTTL bounds how long reference data is cached; empty never expires in-process.
		ReferenceTTL   string `yaml:"reference_ttl"`
		SnapshotMaxAge string `yaml:"snapshot_max_age"`
		Fallback       *bool  `yaml:"fallback"`
	} `yaml:"quiz"`
	Storage struct {
		Type      string `yaml:"type"`
		LocalPath string `yaml:"local_path"`
		Minio     struct {
			Endpoint  string `yaml:"endpoint"`
			AccessKey string `yaml:"access_key"`
			SecretKey string `yaml:"secret_key"`
			Bucket    string `yaml:"bucket"`
			UseSSL    bool   `yaml:"use_ssl"`
			PublicURL string `yaml:"public_url"`
		} `yaml:"minio"`
	} `yaml:"storage"`
	Log struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"log"`
	Client struct {
		BaseURL string `yaml:"base_url"`
		Timeout string `yaml:"timeout"`
		StateDB string `yaml:"state_db"`
	} `yaml:"client"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadOptional is Load, but a missing file yields the zero config.
func LoadOptional(path string) (Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Config{}, nil
	}
	return cfg, err
}

// FallbackEnabled reports whether the bundled question set may replace
// unavailable reference data. Defaults to true.
func (c Config) FallbackEnabled() bool {
	return c.Quiz.Fallback == nil || *c.Quiz.Fallback
}

// TTLDuration parses a duration string or returns the fallback if empty.
// Besides time.ParseDuration syntax it accepts a day suffix ("10d").
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if n := len(raw); n > 1 && raw[n-1] == 'd' {
		if d, err := time.ParseDuration(raw[:n-1] + "h"); err == nil {
			return d * 24
		}
	}
	return fallback
}
