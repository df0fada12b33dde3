package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/davidbz/tollbooth/internal/config"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("should load config with defaults", func(t *testing.T) {
		// Clear environment
		os.Clearenv()

		cfg := config.Load()

		require.NotNil(t, cfg)

		require.Equal(t, 8080, cfg.Server.Port)
		require.Equal(t, 30, cfg.Server.ReadTimeout)
		require.Equal(t, 30, cfg.Server.WriteTimeout)
		require.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
		require.Equal(t, "./rules", cfg.Rules.Dir)
		require.True(t, cfg.Rules.Watch)
		require.Equal(t, 30*time.Second, cfg.Rate.CacheTTL)
		require.Equal(t, time.Duration(0), cfg.Rate.MaxStaleness)
		require.Equal(t, 3, cfg.Rate.MaxRetries)
		require.Equal(t, 200*time.Millisecond, cfg.Rate.InitialBackoff)
		require.Equal(t, "per_min_unit", cfg.Rate.Convention)
		require.Empty(t, cfg.Rate.StaticPrices)
		require.Empty(t, cfg.Oracle.BaseURL)
		require.Equal(t, 10, cfg.Oracle.Timeout)
		require.Empty(t, cfg.Redis.Addr)
		require.Equal(t, "tollbooth:rate:", cfg.Redis.KeyPrefix)
		require.Equal(t, 24*time.Hour, cfg.Redis.Retention)
	})

	t.Run("should load config from environment variables", func(t *testing.T) {
		// Set environment variables using t.Setenv for automatic cleanup
		t.Setenv("SERVER_PORT", "9000")
		t.Setenv("BILLING_RULES_DIR", "/etc/tollbooth/rules")
		t.Setenv("BILLING_RULES_WATCH", "false")
		t.Setenv("RATE_CACHE_TTL", "1m")
		t.Setenv("RATE_MAX_STALENESS", "10m")
		t.Setenv("RATE_CONVENTION", "per_whole_unit")
		t.Setenv("RATE_STATIC_PRICES", "0x3::gas_coin::RGas=100,usdc=1000000")
		t.Setenv("RATE_STATIC_DECIMALS", "0x3::gas_coin::RGas=8,usdc=6")
		t.Setenv("ORACLE_BASE_URL", "https://oracle.test")
		t.Setenv("ORACLE_API_KEY", "secret")
		t.Setenv("REDIS_ADDR", "localhost:6379")
		t.Setenv("REDIS_DB", "2")

		cfg := config.Load()

		require.NotNil(t, cfg)

		require.Equal(t, 9000, cfg.Server.Port)
		require.Equal(t, "/etc/tollbooth/rules", cfg.Rules.Dir)
		require.False(t, cfg.Rules.Watch)
		require.Equal(t, time.Minute, cfg.Rate.CacheTTL)
		require.Equal(t, 10*time.Minute, cfg.Rate.MaxStaleness)
		require.Equal(t, "per_whole_unit", cfg.Rate.Convention)
		require.Equal(t, map[string]string{"0x3::gas_coin::RGas": "100", "usdc": "1000000"}, cfg.Rate.StaticPrices)
		require.Equal(t, map[string]int{"0x3::gas_coin::RGas": 8, "usdc": 6}, cfg.Rate.StaticDecimals)
		require.Equal(t, "https://oracle.test", cfg.Oracle.BaseURL)
		require.Equal(t, "secret", cfg.Oracle.APIKey)
		require.Equal(t, "localhost:6379", cfg.Redis.Addr)
		require.Equal(t, 2, cfg.Redis.DB)
	})
}

func TestParseDependenciesConfig(t *testing.T) {
	os.Clearenv()
	cfg := config.Load()

	deps := config.ParseDependenciesConfig(cfg)
	require.Same(t, &cfg.Server, deps.ServerConfig)
	require.Same(t, &cfg.Rules, deps.RulesConfig)
	require.Same(t, &cfg.Rate, deps.RateConfig)
	require.Same(t, &cfg.Oracle, deps.Oracle)
	require.Same(t, &cfg.Redis, deps.Redis)
}
