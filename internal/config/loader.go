package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "IRR_"
	envConfig  = "IRR_CONFIG"
	listKeySep = ","
)

// listKeys are environment keys whose value is a comma-separated list.
var listKeys = map[string]bool{"exclusion_markers": true}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if IRR_CONFIG is set
//  3. env (prefix IRR_)
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)
	k := koanf.New(".")

	if path := os.Getenv(envConfig); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
		}
	}

	// IRR_MIN_SHARED_ARTICLES -> min_shared_articles (flat keys).
	envProvider := env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.TrimPrefix(strings.ToLower(key), strings.ToLower(envPrefix))
		if key == "config" {
			return "", nil
		}
		if listKeys[key] {
			var items []string
			for _, v := range strings.Split(value, listKeySep) {
				if v = strings.TrimSpace(v); v != "" {
					items = append(items, v)
				}
			}
			return key, items
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %v", ErrLoadConfig, err)
	}

	cfg := *base
	// Lists replace the default rather than merging into it.
	if k.Exists("exclusion_markers") {
		cfg.ExclusionMarkers = nil
	}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values Load cannot type-check.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.Backend != BackendFile && c.Backend != BackendSQLite:
		return fmt.Errorf("%w: backend must be %q or %q, got %q", ErrInvalidConfig, BackendFile, BackendSQLite, c.Backend)
	case c.Backend == BackendFile && c.DataFile == "":
		return fmt.Errorf("%w: data_file is required for the file backend", ErrInvalidConfig)
	case c.Backend == BackendSQLite && c.SQLiteDSN == "":
		return fmt.Errorf("%w: sqlite_dsn is required for the sqlite backend", ErrInvalidConfig)
	case c.ComparisonBasis != "question" && c.ComparisonBasis != "total":
		return fmt.Errorf("%w: comparison_basis must be question or total, got %q", ErrInvalidConfig, c.ComparisonBasis)
	case c.MinSharedArticles < 1:
		return fmt.Errorf("%w: min_shared_articles must be at least 1", ErrInvalidConfig)
	case c.LowConfidenceArticles < 2:
		return fmt.Errorf("%w: low_confidence_articles must be at least 2", ErrInvalidConfig)
	case c.QualityModerate < 0 || c.QualityHigh > 1 || c.QualityModerate > c.QualityHigh:
		return fmt.Errorf("%w: quality bands must satisfy 0 <= moderate <= high <= 1", ErrInvalidConfig)
	case c.FetchTimeout <= 0:
		return fmt.Errorf("%w: fetch_timeout must be positive", ErrInvalidConfig)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be at least 1", ErrInvalidConfig)
	case c.Workers < 0:
		return fmt.Errorf("%w: workers must not be negative", ErrInvalidConfig)
	case c.DrainTimeout <= 0:
		return fmt.Errorf("%w: drain_timeout must be positive", ErrInvalidConfig)
	}
	return nil
}
