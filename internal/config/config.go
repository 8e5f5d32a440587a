// Package config loads and validates environment-based configuration.
package config

import (
	"errors"
	"fmt"
	"time"

	"rutasonora/internal/env"
	"rutasonora/internal/storage"
)

// ConfigError represents a configuration error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: field %q: %s", e.Field, e.Message)
}

type Overpass struct {
	URL            string
	Timeout        time.Duration
	RadiusMeters   int
	CategoriesFile string
}

type Wikipedia struct {
	APIURL       string
	RESTURL      string
	RadiusMeters int
	Limit        int
	Concurrency  int
}

type Kafka struct {
	Broker  string
	Topic   string
	GroupID string
}

// Enabled reports whether a broker is configured. Without one the change
// feed stays in process.
func (k Kafka) Enabled() bool { return k.Broker != "" }

type Config struct {
	Port        int
	DatabaseURL string
	VerboseSQL  bool
	UserAgent   string

	Overpass     Overpass
	Wikipedia    Wikipedia
	NominatimURL string
	GeoTimeout   time.Duration

	Storage storage.S3Config
	Kafka   Kafka

	CORSOrigins    []string
	SecureCookie   bool
	RateLimitRPS   float64
	RateLimitBurst int

	TTSBinary string
}

// Load reads every variable, applying defaults. It fails with a
// *ConfigError on the first malformed value; required settings are checked
// separately by ValidateServer.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL: env.Get("DATABASE_URL", ""),
		VerboseSQL:  env.Bool("DB_VERBOSE", false),
		UserAgent:   env.Get("USER_AGENT", "RutaSonora/1.0 (+https://github.com/rutasonora)"),
		Overpass: Overpass{
			URL:            env.Get("OVERPASS_URL", "https://overpass-api.de/api/interpreter"),
			CategoriesFile: env.Get("CATEGORIES_FILE", ""),
		},
		Wikipedia: Wikipedia{
			APIURL:  env.Get("WIKIPEDIA_API_URL", "https://es.wikipedia.org/w/api.php"),
			RESTURL: env.Get("WIKIPEDIA_REST_URL", "https://es.wikipedia.org/api/rest_v1"),
		},
		NominatimURL: env.Get("NOMINATIM_URL", "https://nominatim.openstreetmap.org"),
		Storage: storage.S3Config{
			Endpoint:  env.Get("MINIO_ENDPOINT", ""),
			AccessKey: env.Get("MINIO_ACCESS_KEY", ""),
			SecretKey: env.Get("MINIO_SECRET_KEY", ""),
			UseSSL:    env.Bool("MINIO_USE_SSL", false),
			Region:    env.Get("MINIO_REGION", "us-east-1"),
			Bucket:    env.Get("UPLOADS_BUCKET", "ruta-sonora"),
			PublicURL: env.Get("STORAGE_PUBLIC_URL", ""),
		},
		Kafka: Kafka{
			Broker:  env.Get("KAFKA_BROKER", ""),
			Topic:   env.Get("KAFKA_TOPIC", "upload-changes"),
			GroupID: env.Get("KAFKA_GROUP_ID", ""),
		},
		CORSOrigins:  env.List("CORS_ORIGINS"),
		SecureCookie: env.Bool("SECURE_COOKIE", false),
		TTSBinary:    env.Get("TTS_BINARY", "espeak-ng"),
	}

	var ok bool
	ints := []struct {
		key string
		dst *int
		def int
		min int
	}{
		{"PORT", &cfg.Port, 8080, 1},
		{"SEARCH_RADIUS_M", &cfg.Overpass.RadiusMeters, 1500, 1},
		{"WIKI_RADIUS_M", &cfg.Wikipedia.RadiusMeters, 10000, 10},
		{"WIKI_LIMIT", &cfg.Wikipedia.Limit, 50, 1},
		{"SUMMARY_CONCURRENCY", &cfg.Wikipedia.Concurrency, 8, 1},
		{"RATE_LIMIT_BURST", &cfg.RateLimitBurst, 5, 1},
	}
	for _, it := range ints {
		if *it.dst, ok = env.Int(it.key, it.def); !ok {
			return nil, &ConfigError{Field: it.key, Message: "must be a valid integer"}
		}
		if *it.dst < it.min {
			return nil, &ConfigError{Field: it.key, Message: fmt.Sprintf("must be at least %d", it.min)}
		}
	}
	if cfg.Port > 65535 {
		return nil, &ConfigError{Field: "PORT", Message: "must be between 1 and 65535"}
	}
	// Wikipedia geosearch caps both values.
	if cfg.Wikipedia.RadiusMeters > 10000 {
		return nil, &ConfigError{Field: "WIKI_RADIUS_M", Message: "must be at most 10000"}
	}
	if cfg.Wikipedia.Limit > 500 {
		return nil, &ConfigError{Field: "WIKI_LIMIT", Message: "must be at most 500"}
	}

	if cfg.RateLimitRPS, ok = env.Float("RATE_LIMIT_RPS", 2); !ok || cfg.RateLimitRPS <= 0 {
		return nil, &ConfigError{Field: "RATE_LIMIT_RPS", Message: "must be a positive number"}
	}
	if cfg.Overpass.Timeout, ok = env.Duration("OVERPASS_TIMEOUT", 30*time.Second); !ok {
		return nil, &ConfigError{Field: "OVERPASS_TIMEOUT", Message: "must be a duration like 30s"}
	}
	if cfg.GeoTimeout, ok = env.Duration("GEO_TIMEOUT", 10*time.Second); !ok {
		return nil, &ConfigError{Field: "GEO_TIMEOUT", Message: "must be a duration like 10s"}
	}
	return cfg, nil
}

// ValidateServer checks the settings the HTTP server cannot start without.
func (c *Config) ValidateServer() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, &ConfigError{Field: "DATABASE_URL", Message: "required but not set"})
	}
	for field, val := range map[string]string{
		"MINIO_ENDPOINT":   c.Storage.Endpoint,
		"MINIO_ACCESS_KEY": c.Storage.AccessKey,
		"MINIO_SECRET_KEY": c.Storage.SecretKey,
	} {
		if val == "" {
			errs = append(errs, &ConfigError{Field: field, Message: "required but not set"})
		}
	}
	if c.Kafka.Enabled() && c.Kafka.GroupID == "" {
		errs = append(errs, &ConfigError{Field: "KAFKA_GROUP_ID", Message: "required when KAFKA_BROKER is set"})
	}
	return errors.Join(errs...)
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
