package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix namespaces environment overrides; "__" separates nested keys,
// e.g. BEERQUIZ_QUIZ__ALLOWED_DOMAIN.
const EnvPrefix = "BEERQUIZ_"

var ErrInvalidConfig = errors.New("invalid config")

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverBolt     = "bolt"
)

// Content sources.
const (
	ContentBuiltin  = "builtin"
	ContentFile     = "file"
	ContentPostgres = "postgres"
)

type Config struct {
	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`

	Server struct {
		Port string `koanf:"port"`
	} `koanf:"server"`
	Store struct {
		Driver     string `koanf:"driver"`
		SQLitePath string `koanf:"sqlite_path"`
		BoltPath   string `koanf:"bolt_path"`
	} `koanf:"store"`
	Redis struct {
		Addr     string `koanf:"addr"`
		Password string `koanf:"password"`
		DB       int    `koanf:"db"`
		TTL      string `koanf:"ttl"`
	} `koanf:"redis"`
	Postgres struct {
		URL string `koanf:"url"`
	} `koanf:"postgres"`
	Quiz struct {
		AllowedDomain string `koanf:"allowed_domain"`
		// FailClosed blocks users when the response store cannot be queried.
		FailClosed    bool   `koanf:"fail_closed"`
		ContentSource string `koanf:"content_source"`
		ContentPath   string `koanf:"content_path"`
		ContentID     string `koanf:"content_id"`
		ContentTTL    string `koanf:"content_ttl"`
		StoreTimeout  string `koanf:"store_timeout"`
	} `koanf:"quiz"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	var c Config
	c.LogLevel = "info"
	c.LogFormat = "json"
	c.Server.Port = "8080"
	c.Store.Driver = DriverMemory
	c.Store.SQLitePath = "quiz.db"
	c.Store.BoltPath = "quiz.bolt"
	c.Redis.TTL = "30m"
	c.Quiz.AllowedDomain = "arkusnexus.com"
	c.Quiz.FailClosed = true
	c.Quiz.ContentSource = ContentBuiltin
	c.Quiz.ContentID = "default"
	c.Quiz.ContentTTL = "10m"
	c.Quiz.StoreTimeout = "5s"
	return c
}

// Load layers defaults, the YAML file at path (skipped when absent) and
// BEERQUIZ_ environment variables, then validates the result.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return Config{}, fmt.Errorf("load %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return Config{}, err
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Config{}, err
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects combinations the server cannot start with.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory, DriverSQLite, DriverBolt:
	case DriverPostgres:
		if c.Postgres.URL == "" {
			return fmt.Errorf("%w: store.driver postgres needs postgres.url", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store.driver %q", ErrInvalidConfig, c.Store.Driver)
	}

	switch c.Quiz.ContentSource {
	case ContentBuiltin:
	case ContentFile:
		if c.Quiz.ContentPath == "" {
			return fmt.Errorf("%w: quiz.content_source file needs quiz.content_path", ErrInvalidConfig)
		}
	case ContentPostgres:
		if c.Postgres.URL == "" {
			return fmt.Errorf("%w: quiz.content_source postgres needs postgres.url", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown quiz.content_source %q", ErrInvalidConfig, c.Quiz.ContentSource)
	}

	domain := strings.TrimPrefix(strings.TrimSpace(c.Quiz.AllowedDomain), "@")
	if domain == "" || !strings.Contains(domain, ".") || strings.Contains(domain, "@") {
		return fmt.Errorf("%w: quiz.allowed_domain %q", ErrInvalidConfig, c.Quiz.AllowedDomain)
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("%w: log_format must be json or text", ErrInvalidConfig)
	}
	for key, raw := range map[string]string{
		"redis.ttl":          c.Redis.TTL,
		"quiz.content_ttl":   c.Quiz.ContentTTL,
		"quiz.store_timeout": c.Quiz.StoreTimeout,
	} {
		if raw == "" {
			continue
		}
		if _, err := time.ParseDuration(raw); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
		}
	}
	return nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
