package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/dig"

	"github.com/davidbz/tollbooth/internal/rate/oracle"
	"github.com/davidbz/tollbooth/internal/rate/redis"
)

// Config represents the billing service configuration.
type Config struct {
	Server ServerConfig
	CORS   CORSConfig
	Rules  RulesConfig
	Rate   RateConfig
	Oracle oracle.Config
	Redis  redis.Config
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port         int `env:"SERVER_PORT"          envDefault:"8080"`
	ReadTimeout  int `env:"SERVER_READ_TIMEOUT"  envDefault:"30"`
	WriteTimeout int `env:"SERVER_WRITE_TIMEOUT" envDefault:"30"`
}

// CORSConfig contains CORS policy settings.
type CORSConfig struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS"   envSeparator:"," envDefault:"*"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS"   envSeparator:"," envDefault:"GET,POST,DELETE,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS"   envSeparator:"," envDefault:"Content-Type,Authorization"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS"                  envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE"                            envDefault:"86400"`
}

// RulesConfig locates the per-service rule documents.
type RulesConfig struct {
	Dir   string `env:"BILLING_RULES_DIR"   envDefault:"./rules"`
	Watch bool   `env:"BILLING_RULES_WATCH" envDefault:"true"`
}

// RateConfig tunes the rate provider and the conversion convention.
type RateConfig struct {
	CacheTTL       time.Duration `env:"RATE_CACHE_TTL"       envDefault:"30s"`
	MaxStaleness   time.Duration `env:"RATE_MAX_STALENESS"   envDefault:"0s"`
	MaxRetries     int           `env:"RATE_MAX_RETRIES"     envDefault:"3"`
	InitialBackoff time.Duration `env:"RATE_INITIAL_BACKOFF" envDefault:"200ms"`
	FetchTimeout   time.Duration `env:"RATE_FETCH_TIMEOUT"   envDefault:"5s"`
	Convention     string        `env:"RATE_CONVENTION"      envDefault:"per_min_unit"`

	// Static prices are used when no oracle is configured, as
	// "assetId=picoUSD,..." since asset ids may contain colons.
	StaticPrices   map[string]string `env:"RATE_STATIC_PRICES"   envSeparator:"," envKeyValSeparator:"="`
	StaticDecimals map[string]int    `env:"RATE_STATIC_DECIMALS" envSeparator:"," envKeyValSeparator:"="`
}

// DepConfig is used for dependency injection with dig.
type DepConfig struct {
	dig.Out
	*ServerConfig
	*CORSConfig
	*RulesConfig
	*RateConfig
	Oracle *oracle.Config
	Redis  *redis.Config
}

// Load loads environment files and parses configuration.
func Load() *Config {
	for _, file := range []string{".env"} {
		_ = godotenv.Load(file)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		panic(err)
	}

	return &cfg
}

// ParseDependenciesConfig returns pointers to sub-configs for dependency injection.
func ParseDependenciesConfig(cfg *Config) DepConfig {
	return DepConfig{
		dig.Out{},
		&cfg.Server,
		&cfg.CORS,
		&cfg.Rules,
		&cfg.Rate,
		&cfg.Oracle,
		&cfg.Redis,
	}
}
