package insightengine

// Config holds the configuration for the insight engine.
type Config struct {
	// Server configures the HTTP listener.
	Server ServerConfig `json:"server" yaml:"server"`
	// Generator selects and configures the AI generation backend.
	Generator GeneratorConfig `json:"generator" yaml:"generator"`
	// Cache configures the fast tier.
	Cache CacheConfig `json:"cache" yaml:"cache"`
	// Store configures the durable tier.
	Store StoreConfig `json:"store" yaml:"store"`
	// ProviderLog configures the generator audit log (optional).
	ProviderLog ProviderLogConfig `json:"provider_log,omitempty" yaml:"provider_log,omitempty"`
	// RateLimit configures per-user limiting on the AI endpoints.
	RateLimit RateLimitConfig `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`
	// Logging configures the structured logger.
	Logging LoggingConfig `json:"logging,omitempty" yaml:"logging,omitempty"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `json:"addr" yaml:"addr"`
}

// GeneratorKind identifies an AI generation backend.
type GeneratorKind string

// GeneratorKind constants define the supported backends.
const (
	GeneratorMock    GeneratorKind = "mock"
	GeneratorOpenAI  GeneratorKind = "openai"
	GeneratorBedrock GeneratorKind = "bedrock"
)

// GeneratorConfig selects and configures the AI generation backend.
// The backend is chosen once at process start and never swapped at
// runtime.
type GeneratorConfig struct {
	Kind GeneratorKind `json:"kind" yaml:"kind"`
	// Model names the backend model; each backend has a default.
	Model string `json:"model,omitempty" yaml:"model,omitempty"`
	// APIKey is the OpenAI API key. Ignored by other backends.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	// BaseURL overrides the OpenAI endpoint (for proxies).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	// Region is the AWS region for Bedrock.
	Region string `json:"region,omitempty" yaml:"region,omitempty"`
	// TimeoutSeconds bounds a single generator call. Default 60.
	TimeoutSeconds int `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty"`
}

// FastTierKind identifies a fast-tier backend.
type FastTierKind string

// FastTierKind constants define the supported fast tiers.
const (
	FastTierMemory FastTierKind = "memory"
	FastTierRedis  FastTierKind = "redis"
)

// CacheConfig configures the fast tier. The durable tier has no cache
// settings; insights persist indefinitely.
type CacheConfig struct {
	FastTier FastTierKind `json:"fast_tier" yaml:"fast_tier"`
	// TTLSeconds is the fast-tier entry lifetime. Default 3600.
	TTLSeconds int `json:"ttl_seconds,omitempty" yaml:"ttl_seconds,omitempty"`
	// MemoryCapacity bounds the in-memory tier. Default 4096 entries.
	MemoryCapacity int `json:"memory_capacity,omitempty" yaml:"memory_capacity,omitempty"`
	// RedisAddr is the host:port of the Redis fast tier.
	RedisAddr     string `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty"`
	RedisPassword string `json:"redis_password,omitempty" yaml:"redis_password,omitempty"`
	RedisDB       int    `json:"redis_db,omitempty" yaml:"redis_db,omitempty"`
	// FailureThreshold is the consecutive-failure count that degrades
	// the fast tier. Default 3.
	FailureThreshold int `json:"failure_threshold,omitempty" yaml:"failure_threshold,omitempty"`
	// CooldownSeconds is how long a degraded tier rests before a probe.
	// Default 15.
	CooldownSeconds int `json:"cooldown_seconds,omitempty" yaml:"cooldown_seconds,omitempty"`
}

// StoreBackend identifies a durable-tier backend.
type StoreBackend string

// StoreBackend constants define the supported databases.
const (
	StoreSQLite   StoreBackend = "sqlite"
	StorePostgres StoreBackend = "postgres"
)

// StoreConfig configures the durable tier.
type StoreConfig struct {
	Backend StoreBackend `json:"backend" yaml:"backend"`
	// DSN is the database connection string. For sqlite an empty DSN
	// uses a local file.
	DSN string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
}

// ProviderLogConfig configures the generator audit log.
type ProviderLogConfig struct {
	// Backend is "sqlite", "postgres", or "" to disable audit logging.
	Backend StoreBackend `json:"backend,omitempty" yaml:"backend,omitempty"`
	DSN     string       `json:"dsn,omitempty" yaml:"dsn,omitempty"`
}

// RateLimitConfig configures per-user limiting on the AI endpoints.
type RateLimitConfig struct {
	// AIRequestsPerMinute is the per-user budget for generation
	// endpoints. Default 10; 0 keeps the default, -1 disables.
	AIRequestsPerMinute int `json:"ai_requests_per_minute,omitempty" yaml:"ai_requests_per_minute,omitempty"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	// Level is one of debug/info/warn/error. Default info.
	Level string `json:"level,omitempty" yaml:"level,omitempty"`
	// Format is "json" (default) or "text".
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}
