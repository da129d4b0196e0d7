// Package config loads and validates agent and authority config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreMemory   = "memory"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the session agent's local HTTP API listens on (e.g. :8090).
	HTTPAddr string `mapstructure:"AGENT_HTTP_ADDR"`
	// AuthorityAddr is the gRPC target of the remote session authority.
	AuthorityAddr string `mapstructure:"AUTHORITY_ADDR"`
	// AuthorityListenAddr is the listen address of the dev authority (cmd/authority only).
	AuthorityListenAddr string `mapstructure:"AUTHORITY_LISTEN_ADDR"`
	// AuthorityDialTimeout bounds the initial connection to the authority (e.g. "5s").
	AuthorityDialTimeout string `mapstructure:"AUTHORITY_DIAL_TIMEOUT"`
	// AuthorityCallTimeout bounds each authority RPC (e.g. "10s").
	AuthorityCallTimeout string `mapstructure:"AUTHORITY_CALL_TIMEOUT"`

	// StoreDriver selects the device-local key-value backend: sqlite, postgres, redis or memory.
	StoreDriver string `mapstructure:"STORE_DRIVER"`
	// StorePath is the SQLite database file used when StoreDriver is sqlite.
	StorePath string `mapstructure:"STORE_PATH"`
	// StoreNamespace scopes keys so several device profiles can share one backend.
	StoreNamespace string `mapstructure:"STORE_NAMESPACE"`
	// DatabaseURL is the Postgres DSN; required when StoreDriver is postgres.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RedisURL is the Redis URL (redis://host:port/db); required when StoreDriver is redis.
	RedisURL string `mapstructure:"REDIS_URL"`

	// RenewalWindow is the lead time before expiry at which renewal is attempted (e.g. "5m").
	RenewalWindow string `mapstructure:"RENEWAL_WINDOW"`
	// RenewalTick is the polling interval of the auto-renewal loop (e.g. "60s").
	RenewalTick string `mapstructure:"RENEWAL_TICK"`
	// ClientDescriptor is the free-form client string shown in device listings.
	ClientDescriptor string `mapstructure:"CLIENT_DESCRIPTOR"`
	// RolePolicyFile is an optional path to a Rego module overriding the default role-grant policy.
	RolePolicyFile string `mapstructure:"ROLE_POLICY_FILE"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// LogFormat is json or console.
	LogFormat string `mapstructure:"LOG_FORMAT"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// OTLPEndpoint is the OTLP gRPC endpoint for traces, metrics and logs; empty disables export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure disables TLS to the OTLP endpoint.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// ServiceName is the OTel service.name resource attribute.
	ServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	// TelemetryKafkaBrokers is a comma-separated list of Kafka broker addresses for session events.
	TelemetryKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// TelemetryKafkaTopic is the Kafka topic for session events.
	TelemetryKafkaTopic string `mapstructure:"TELEMETRY_KAFKA_TOPIC"`
	// LokiURL is where the worker pushes session events (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
	// KafkaGroupID is the consumer group ID for the worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`

	// Dev authority only.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	JWTPublicKey  string `mapstructure:"JWT_PUBLIC_KEY"`
	JWTIssuer     string `mapstructure:"JWT_ISSUER"`
	JWTAudience   string `mapstructure:"JWT_AUDIENCE"`
	JWTAccessTTL  string `mapstructure:"JWT_ACCESS_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31) for dev identity passwords.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// DevSeedEmail and DevSeedPassword, when both set, register one account at authority startup.
	DevSeedEmail    string `mapstructure:"DEV_SEED_EMAIL"`
	DevSeedPassword string `mapstructure:"DEV_SEED_PASSWORD"`
	// DevSeedRoles is a comma-separated role list for the seeded account; the first is active.
	DevSeedRoles string `mapstructure:"DEV_SEED_ROLES"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored. Env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("AGENT_HTTP_ADDR", ":8090")
	v.SetDefault("AUTHORITY_ADDR", "localhost:9090")
	v.SetDefault("AUTHORITY_LISTEN_ADDR", ":9090")
	v.SetDefault("AUTHORITY_DIAL_TIMEOUT", "5s")
	v.SetDefault("AUTHORITY_CALL_TIMEOUT", "10s")
	v.SetDefault("STORE_DRIVER", StoreSQLite)
	v.SetDefault("STORE_PATH", "data/device.db")
	v.SetDefault("STORE_NAMESPACE", "default")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("RENEWAL_WINDOW", "5m")
	v.SetDefault("RENEWAL_TICK", "60s")
	v.SetDefault("CLIENT_DESCRIPTOR", "session-agent")
	v.SetDefault("ROLE_POLICY_FILE", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "session-agent")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("TELEMETRY_KAFKA_TOPIC", "session-events")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("KAFKA_GROUP_ID", "session-events-worker")
	v.SetDefault("JWT_PRIVATE_KEY", "")
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("JWT_ISSUER", "session-authority")
	v.SetDefault("JWT_AUDIENCE", "scheduling-api")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("DEV_SEED_EMAIL", "")
	v.SetDefault("DEV_SEED_PASSWORD", "")
	v.SetDefault("DEV_SEED_ROLES", "client")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	switch c.StoreDriver {
	case StoreSQLite:
		if c.StorePath == "" {
			return errors.New("config: STORE_PATH must be set when STORE_DRIVER=sqlite")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL must be set when STORE_DRIVER=postgres")
		}
	case StoreRedis:
		if c.RedisURL == "" {
			return errors.New("config: REDIS_URL must be set when STORE_DRIVER=redis")
		}
	case StoreMemory:
	default:
		return errors.New("config: STORE_DRIVER must be one of sqlite, postgres, redis, memory")
	}

	tick, err := time.ParseDuration(c.RenewalTick)
	if err != nil || tick <= 0 {
		return errors.New("config: RENEWAL_TICK must be a positive duration")
	}
	window, err := time.ParseDuration(c.RenewalWindow)
	if err != nil || window <= 0 {
		return errors.New("config: RENEWAL_WINDOW must be a positive duration")
	}
	// A window shorter than one tick lets expiry fall between two polls.
	if window < tick {
		return errors.New("config: RENEWAL_WINDOW must be at least RENEWAL_TICK")
	}

	if c.BcryptCost == 0 {
		c.BcryptCost = 12
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	return nil
}

// Window parses RenewalWindow. Returns 5m if unset or invalid.
func (c *Config) Window() time.Duration {
	return parseDuration(c.RenewalWindow, 5*time.Minute)
}

// Tick parses RenewalTick. Returns 60s if unset or invalid.
func (c *Config) Tick() time.Duration {
	return parseDuration(c.RenewalTick, time.Minute)
}

// DialTimeout parses AuthorityDialTimeout. Returns 5s if unset or invalid.
func (c *Config) DialTimeout() time.Duration {
	return parseDuration(c.AuthorityDialTimeout, 5*time.Second)
}

// CallTimeout parses AuthorityCallTimeout. Returns 10s if unset or invalid.
func (c *Config) CallTimeout() time.Duration {
	return parseDuration(c.AuthorityCallTimeout, 10*time.Second)
}

// AccessTTL parses JWTAccessTTL. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	return parseDuration(c.JWTAccessTTL, 15*time.Minute)
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Env), "production")
}

// DevSeedRoleList returns the seeded account's roles from the comma-separated config.
func (c *Config) DevSeedRoleList() []string {
	return splitList(c.DevSeedRoles)
}

// TelemetryKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// An empty list means session events are not published to Kafka.
func (c *Config) TelemetryKafkaBrokersList() []string {
	if c == nil {
		return nil
	}
	return splitList(c.TelemetryKafkaBrokers)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
