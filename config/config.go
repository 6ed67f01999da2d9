package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix marks the environment variables read into the config.
// VENUES_SERVER__PORT maps to server.port.
const EnvPrefix = "VENUES_"

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// Store backends.
const (
	BackendMongo = "mongo"
	BackendRedis = "redis"
)

// EnvironmentDevelopment enables error detail in 5xx responses.
const EnvironmentDevelopment = "development"

// Resources file paths
const RESOURCES_PATH_PREFIX = "resources"
const VENUES_SEED_RESOURCE = "venues_seed.json"

// DefaultConfigPaths is searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/venues/config.yaml",
}

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Store    StoreConfig    `koanf:"store"`
	Mongo    MongoConfig    `koanf:"mongo"`
	Redis    RedisConfig    `koanf:"redis"`
	Query    QueryConfig    `koanf:"query"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
	Stats    StatsConfig    `koanf:"stats"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Environment     string        `koanf:"environment"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// RequestTimeout bounds the store calls of a single query.
	RequestTimeout time.Duration `koanf:"request_timeout"`
	MaxBodyBytes   int64         `koanf:"max_body_bytes"`
}

type StoreConfig struct {
	Backend string        `koanf:"backend"`
	Breaker BreakerConfig `koanf:"breaker"`
}

// BreakerConfig controls the circuit breaker in front of the store.
type BreakerConfig struct {
	Enabled bool `koanf:"enabled"`
	// The breaker opens once at least MinRequests calls were made in the
	// current window and FailureRatio of them failed.
	MinRequests  uint32        `koanf:"min_requests"`
	FailureRatio float64       `koanf:"failure_ratio"`
	Window       time.Duration `koanf:"window"`
	OpenTimeout  time.Duration `koanf:"open_timeout"`
}

type MongoConfig struct {
	URI            string        `koanf:"uri"`
	Database       string        `koanf:"database"`
	Collection     string        `koanf:"collection"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
	EnsureIndexes  bool          `koanf:"ensure_indexes"`
}

type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type QueryConfig struct {
	DefaultLimit  int `koanf:"default_limit"`
	MaxLimit      int `koanf:"max_limit"`
	DefaultRadius int `koanf:"default_radius"`
	MaxRadius     int `koanf:"max_radius"`
	// Timezone is the IANA zone used for open-now evaluation.
	Timezone string `koanf:"timezone"`
}

type SecurityConfig struct {
	JWTSecret         string        `koanf:"jwt_secret"`
	TokenTTL          time.Duration `koanf:"token_ttl"`
	AdminUsername     string        `koanf:"admin_username"`
	AdminPasswordHash string        `koanf:"admin_password_hash"`
	AdminRole         string        `koanf:"admin_role"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type StatsConfig struct {
	RefreshInterval time.Duration `koanf:"refresh_interval"`
	RecentWindow    time.Duration `koanf:"recent_window"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			Environment:     EnvironmentDevelopment,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RequestTimeout:  5 * time.Second,
			MaxBodyBytes:    10 << 10,
		},
		Store: StoreConfig{
			Backend: BackendMongo,
			Breaker: BreakerConfig{
				Enabled:      true,
				MinRequests:  10,
				FailureRatio: 0.6,
				Window:       time.Minute,
				OpenTimeout:  30 * time.Second,
			},
		},
		Mongo: MongoConfig{
			URI:            "mongodb://localhost:27017",
			Database:       "venues",
			Collection:     "venues",
			ConnectTimeout: 10 * time.Second,
			EnsureIndexes:  true,
		},
		Redis: RedisConfig{
			Addr: "redis:6379",
		},
		Query: QueryConfig{
			DefaultLimit:  15,
			MaxLimit:      100,
			DefaultRadius: 5000,
			MaxRadius:     100000,
			Timezone:      "Local",
		},
		Security: SecurityConfig{
			TokenTTL:          24 * time.Hour,
			AdminUsername:     "admin",
			AdminRole:         "admin",
			CORSOrigins:       []string{"*"},
			RateLimitRequests: 100,
			RateLimitWindow:   15 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Stats: StatsConfig{
			RefreshInterval: 5 * time.Minute,
			RecentWindow:    30 * 24 * time.Hour,
		},
	}
}

// Default returns the built-in configuration without reading any source.
func Default() *Config {
	return defaultConfig()
}

// Load layers defaults, an optional YAML file and VENUES_* environment
// variables, in that order of precedence, and validates the result.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := splitCommaList(k, "security.cors_origins"); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// envTransformFunc maps VENUES_QUERY__MAX_LIMIT to query.max_limit.
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// splitCommaList turns an env-provided "a, b" string into a slice.
func splitCommaList(k *koanf.Koanf, path string) error {
	str, ok := k.Get(path).(string)
	if !ok {
		return nil
	}
	parts := make([]string, 0)
	for _, p := range strings.Split(str, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if err := k.Set(path, parts); err != nil {
		return fmt.Errorf("failed to set %s: %w", path, err)
	}
	return nil
}

// Validate checks ranges and cross-field constraints.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("server.request_timeout must be positive")
	}
	switch c.Store.Backend {
	case BackendMongo:
		if c.Mongo.URI == "" || c.Mongo.Database == "" || c.Mongo.Collection == "" {
			return fmt.Errorf("mongo.uri, mongo.database and mongo.collection are required for the mongo backend")
		}
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("store.backend must be %q or %q, got %q", BackendMongo, BackendRedis, c.Store.Backend)
	}
	if b := c.Store.Breaker; b.Enabled && (b.FailureRatio <= 0 || b.FailureRatio > 1 || b.OpenTimeout <= 0) {
		return fmt.Errorf("store.breaker.failure_ratio must be in (0, 1] and store.breaker.open_timeout positive")
	}
	if c.Query.MaxLimit < 1 {
		return fmt.Errorf("query.max_limit must be at least 1")
	}
	if c.Query.DefaultLimit < 1 || c.Query.DefaultLimit > c.Query.MaxLimit {
		return fmt.Errorf("query.default_limit must be between 1 and query.max_limit")
	}
	if c.Query.DefaultRadius <= 0 || c.Query.DefaultRadius > c.Query.MaxRadius {
		return fmt.Errorf("query.default_radius must be positive and not above query.max_radius")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("query.timezone: %w", err)
	}
	if c.Security.AdminPasswordHash != "" && c.Security.JWTSecret == "" {
		return fmt.Errorf("security.jwt_secret is required when an admin password is configured")
	}
	if !c.IsDevelopment() && c.Security.JWTSecret != "" && len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("security.jwt_secret must be at least 32 characters outside development")
	}
	if c.Security.RateLimitRequests < 1 || c.Security.RateLimitWindow <= 0 {
		return fmt.Errorf("security.rate_limit_requests and security.rate_limit_window must be positive")
	}
	if c.Stats.RefreshInterval <= 0 {
		return fmt.Errorf("stats.refresh_interval must be positive")
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

// IsDevelopment reports whether error details may be exposed.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == EnvironmentDevelopment
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Location resolves Query.Timezone; an empty zone means local time.
func (c *Config) Location() (*time.Location, error) {
	if c.Query.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Query.Timezone)
}

// BaseDir returns the absolute path of the project root directory
func BaseDir() string {
	if root := os.Getenv("PROJECT_ROOT"); root != "" {
		return root
	}

	wd, err := os.Getwd()
	if err != nil {
		panic("Unable to determine working directory: " + err.Error())
	}

	return wd
}

func GetResourcePath(resourceFile string) string {
	return filepath.Join(BaseDir(), RESOURCES_PATH_PREFIX, resourceFile)
}
