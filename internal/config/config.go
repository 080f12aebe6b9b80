// Package config provides configuration loading with layered overrides.
// Load order: defaults -> config file -> environment variables -> flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// envPrefix namespaces the environment variables read by Load.
const envPrefix = "LOG_INDEXER_"

// Config is the root configuration structure for the log indexer.
type Config struct {
	LogLevel      string              `koanf:"loglevel" yaml:"log_level" json:"log_level"`
	Elasticsearch ElasticsearchConfig `koanf:"elasticsearch"`
	Indices       IndicesConfig       `koanf:"indices"`
	Server        ServerConfig        `koanf:"server"`
	DeadLetter    DeadLetterConfig    `koanf:"deadletter" yaml:"dead_letter" json:"dead_letter"`
	Backfill      BackfillConfig      `koanf:"backfill"`
}

// ElasticsearchConfig configures the cluster connection and the bulk
// indexer feeding it.
type ElasticsearchConfig struct {
	Addresses     []string      `koanf:"addresses"`
	Username      string        `koanf:"username"`
	Password      string        `koanf:"password"`
	CACertPath    string        `koanf:"cacert" yaml:"ca_cert" json:"ca_cert"`
	Workers       int           `koanf:"workers"`
	FlushBytes    int           `koanf:"flushbytes" yaml:"flush_bytes" json:"flush_bytes"`
	FlushInterval time.Duration `koanf:"flushinterval" yaml:"flush_interval" json:"flush_interval"`
}

// IndicesConfig controls index naming, sizing and retention.
type IndicesConfig struct {
	Prefix        string `koanf:"prefix"`
	Shards        int    `koanf:"shards"`
	Replicas      int    `koanf:"replicas"`
	RetentionDays int    `koanf:"retentiondays" yaml:"retention_days" json:"retention_days"`
}

// ServerConfig configures the ingest HTTP server.
type ServerConfig struct {
	Listen          string        `koanf:"listen"`
	MaxBodyMB       int           `koanf:"maxbodymb" yaml:"max_body_mb" json:"max_body_mb"`
	ShutdownTimeout time.Duration `koanf:"shutdowntimeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// DeadLetterConfig configures the rejected-document file.
type DeadLetterConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Path       string `koanf:"path"`
	MaxSizeMB  int    `koanf:"maxsizemb" yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `koanf:"maxbackups" yaml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `koanf:"maxagedays" yaml:"max_age_days" json:"max_age_days"`
	Compress   bool   `koanf:"compress"`
}

// BackfillConfig controls archive replay.
type BackfillConfig struct {
	Workers int `koanf:"workers"`
}

// Defaults returns the default configuration values.
func Defaults() Config {
	return Config{
		LogLevel: "info",
		Elasticsearch: ElasticsearchConfig{
			Addresses:     []string{"http://localhost:9200"},
			Workers:       2,
			FlushBytes:    5e+6, // 5MB
			FlushInterval: 5 * time.Second,
		},
		Indices: IndicesConfig{
			Prefix:        "cw-logs",
			Shards:        2,
			Replicas:      1,
			RetentionDays: 380,
		},
		Server: ServerConfig{
			Listen:          ":8088",
			MaxBodyMB:       10,
			ShutdownTimeout: 30 * time.Second,
		},
		DeadLetter: DeadLetterConfig{
			Enabled:    true,
			Path:       "dead-letter.ndjson",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 14,
			Compress:   true,
		},
		Backfill: BackfillConfig{
			Workers: 4,
		},
	}
}

// flagKeys maps command line flag names onto config keys. Flags not
// listed here are CLI-only and never reach the config map.
var flagKeys = map[string]string{
	"log-level": "loglevel",
	"listen":    "server.listen",
	"workers":   "backfill.workers",
}

// Load reads configuration from all sources with proper override order.
// Order: defaults -> config file -> environment variables -> flags
// (explicitly set flags only; flags may be nil). The loaded config is
// validated before it is returned.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if configPath == "" {
		// Try default config locations
		for _, path := range []string{"./config.yaml", "/etc/log-indexer/config.yaml"} {
			if _, err := os.Stat(path); err == nil {
				configPath = path
				break
			}
		}
	}
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), parserFor(configPath)); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			return envKey(key), value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	if flags != nil {
		p := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(p, nil); err != nil {
			return nil, fmt.Errorf("loading flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps LOG_INDEXER_ELASTICSEARCH_FLUSHINTERVAL to
// elasticsearch.flushinterval. Key segments never contain underscores,
// so the replacement is unambiguous.
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", ".")
}

// parserFor selects the file parser by extension. Anything that is not
// JSON is treated as YAML, which also covers .yml.
func parserFor(path string) koanf.Parser {
	if filepath.Ext(path) == ".json" {
		return json.Parser()
	}
	return yaml.Parser()
}

// Validate checks settings that would otherwise fail deep inside the
// pipeline, so misconfiguration surfaces at startup.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid loglevel %q", c.LogLevel)
	}

	if len(c.Elasticsearch.Addresses) == 0 {
		return fmt.Errorf("elasticsearch.addresses must not be empty")
	}
	if c.Elasticsearch.Workers < 1 {
		return fmt.Errorf("elasticsearch.workers must be at least 1, got %d", c.Elasticsearch.Workers)
	}
	if c.Elasticsearch.FlushBytes < 1 {
		return fmt.Errorf("elasticsearch.flushbytes must be positive, got %d", c.Elasticsearch.FlushBytes)
	}

	if c.Indices.Prefix == "" {
		return fmt.Errorf("indices.prefix must not be empty")
	}
	if c.Indices.Shards < 1 {
		return fmt.Errorf("indices.shards must be at least 1, got %d", c.Indices.Shards)
	}
	if c.Indices.Replicas < 0 {
		return fmt.Errorf("indices.replicas must not be negative, got %d", c.Indices.Replicas)
	}
	if c.Indices.RetentionDays < 1 {
		return fmt.Errorf("indices.retentiondays must be at least 1, got %d", c.Indices.RetentionDays)
	}

	if c.Server.Listen == "" {
		return fmt.Errorf("server.listen must not be empty")
	}
	if c.Server.MaxBodyMB < 1 {
		return fmt.Errorf("server.maxbodymb must be at least 1, got %d", c.Server.MaxBodyMB)
	}

	if c.Backfill.Workers < 1 {
		return fmt.Errorf("backfill.workers must be at least 1, got %d", c.Backfill.Workers)
	}
	return nil
}
