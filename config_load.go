package insightengine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadConfig reads and parses a config file from the given path.
// Supported formats: JSON (.json), YAML (.yaml, .yml).
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file extension %q: use .json, .yaml, or .yml", ext)
	}

	return &cfg, nil
}

// ValidateConfig validates a Config for correctness. Zero values that
// have runtime defaults are accepted.
func ValidateConfig(cfg Config) error {
	// Default to the mock generator when kind is omitted to match
	// runtime behavior.
	kind := cfg.Generator.Kind
	if kind == "" {
		kind = GeneratorMock
	}
	switch kind {
	case GeneratorMock, GeneratorBedrock:
	case GeneratorOpenAI:
		if cfg.Generator.APIKey == "" {
			return fmt.Errorf("openai generator requires an api_key")
		}
	default:
		return fmt.Errorf("unknown generator kind: %q", cfg.Generator.Kind)
	}

	fastTier := cfg.Cache.FastTier
	if fastTier == "" {
		fastTier = FastTierMemory
	}
	switch fastTier {
	case FastTierMemory:
	case FastTierRedis:
		if cfg.Cache.RedisAddr == "" {
			return fmt.Errorf("redis fast tier requires redis_addr")
		}
	default:
		return fmt.Errorf("unknown fast tier: %q", cfg.Cache.FastTier)
	}

	backend := cfg.Store.Backend
	if backend == "" {
		backend = StoreSQLite
	}
	switch backend {
	case StoreSQLite:
	case StorePostgres:
		if cfg.Store.DSN == "" {
			return fmt.Errorf("postgres store requires a dsn")
		}
	default:
		return fmt.Errorf("unknown store backend: %q", cfg.Store.Backend)
	}

	switch cfg.ProviderLog.Backend {
	case "", StoreSQLite:
	case StorePostgres:
		if cfg.ProviderLog.DSN == "" {
			return fmt.Errorf("postgres provider log requires a dsn")
		}
	default:
		return fmt.Errorf("unknown provider log backend: %q", cfg.ProviderLog.Backend)
	}

	if cfg.Cache.TTLSeconds < 0 {
		return fmt.Errorf("cache ttl_seconds must not be negative")
	}
	if cfg.Generator.TimeoutSeconds < 0 {
		return fmt.Errorf("generator timeout_seconds must not be negative")
	}

	return nil
}
