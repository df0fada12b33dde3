package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/davidbz/tollbooth/internal/billing"
	"github.com/davidbz/tollbooth/internal/config"
	"github.com/davidbz/tollbooth/internal/converter"
	"github.com/davidbz/tollbooth/internal/domain"
	"github.com/davidbz/tollbooth/internal/http"
	"github.com/davidbz/tollbooth/internal/http/middleware"
	"github.com/davidbz/tollbooth/internal/observability"
	"github.com/davidbz/tollbooth/internal/rate"
	"github.com/davidbz/tollbooth/internal/rate/oracle"
	raterdb "github.com/davidbz/tollbooth/internal/rate/redis"
	"github.com/davidbz/tollbooth/internal/ruleset"
	"github.com/davidbz/tollbooth/internal/strategy"
)

const shutdownTimeout = 10 * time.Second

func main() {
	container := buildContainer()

	err := container.Invoke(func(
		server *http.Server,
		rulesCfg *config.RulesConfig,
		loader *ruleset.Loader,
		service *billing.Service,
	) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if rulesCfg.Watch {
			watcher, err := ruleset.NewWatcher(rulesCfg.Dir, loader, service.ClearStrategyCache)
			if err != nil {
				return err
			}
			defer watcher.Close()
			go watcher.Run(ctx)
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start()
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if err != nil {
		log.Fatalf("Failed to run application: %v", err)
	}
}

func buildContainer() *dig.Container {
	container := dig.New()

	// Configuration
	if err := container.Provide(config.Load); err != nil {
		log.Fatalf("Failed to provide config: %v", err)
	}
	if err := container.Provide(config.ParseDependenciesConfig); err != nil {
		log.Fatalf("Failed to provide config dependencies: %v", err)
	}

	// Observability
	if err := container.Provide(observability.InitLogger); err != nil {
		log.Fatalf("Failed to provide logger: %v", err)
	}
	if err := container.Provide(observability.NewMetrics); err != nil {
		log.Fatalf("Failed to provide metrics: %v", err)
	}
	if err := container.Provide(func(logger *zap.Logger) domain.EventPublisher {
		return observability.NewEventBus(logger)
	}); err != nil {
		log.Fatalf("Failed to provide event bus: %v", err)
	}

	// Strategy Registry
	if err := container.Provide(func() (*strategy.Registry, error) {
		reg := strategy.NewRegistry()
		if err := strategy.RegisterBuiltins(context.Background(), reg); err != nil {
			return nil, err
		}
		return reg, nil
	}); err != nil {
		log.Fatalf("Failed to provide strategy registry: %v", err)
	}

	// Rates
	if err := container.Provide(provideFetcher); err != nil {
		log.Fatalf("Failed to provide rate fetcher: %v", err)
	}
	if err := container.Provide(provideRateStore); err != nil {
		log.Fatalf("Failed to provide rate store: %v", err)
	}
	if err := container.Provide(func(
		fetcher rate.Fetcher,
		store rate.Store,
		cfg *config.RateConfig,
		metrics *observability.Metrics,
	) (*rate.CachedProvider, error) {
		return rate.NewCachedProvider(fetcher, rate.Config{
			TTL:            cfg.CacheTTL,
			MaxStaleness:   cfg.MaxStaleness,
			MaxRetries:     cfg.MaxRetries,
			InitialBackoff: cfg.InitialBackoff,
			FetchTimeout:   cfg.FetchTimeout,
		}, rate.WithStore(store), rate.WithMetrics(metrics))
	}); err != nil {
		log.Fatalf("Failed to provide rate provider: %v", err)
	}
	if err := container.Provide(func(p *rate.CachedProvider) domain.RateProvider {
		return p
	}); err != nil {
		log.Fatalf("Failed to provide rate provider interface: %v", err)
	}
	if err := container.Provide(func(p domain.RateProvider, cfg *config.RateConfig) (*converter.Converter, error) {
		convention, err := domain.ParseConvention(cfg.Convention)
		if err != nil {
			return nil, err
		}
		return converter.NewConverter(p, convention)
	}); err != nil {
		log.Fatalf("Failed to provide converter: %v", err)
	}

	// Rules
	if err := container.Provide(func(
		cfg *config.RulesConfig,
		reg *strategy.Registry,
		metrics *observability.Metrics,
	) (*ruleset.Loader, error) {
		source, err := ruleset.NewDirSource(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return ruleset.NewLoader(source, reg, ruleset.WithMetrics(metrics))
	}); err != nil {
		log.Fatalf("Failed to provide rule loader: %v", err)
	}
	if err := container.Provide(func(l *ruleset.Loader) http.RuleCache {
		return l
	}); err != nil {
		log.Fatalf("Failed to provide rule cache: %v", err)
	}

	// Domain Services
	if err := container.Provide(func(
		loader *ruleset.Loader,
		reg *strategy.Registry,
		conv *converter.Converter,
		events domain.EventPublisher,
		metrics *observability.Metrics,
	) (*billing.Service, error) {
		return billing.NewService(loader, reg,
			billing.WithConverter(conv),
			billing.WithEvents(events),
			billing.WithMetrics(metrics))
	}); err != nil {
		log.Fatalf("Failed to provide billing service: %v", err)
	}

	// HTTP Layer
	if err := container.Provide(middleware.BuildMiddlewareChain); err != nil {
		log.Fatalf("Failed to provide middleware chain: %v", err)
	}
	if err := container.Provide(http.NewHandler); err != nil {
		log.Fatalf("Failed to provide HTTP handler: %v", err)
	}
	if err := container.Provide(http.NewServer); err != nil {
		log.Fatalf("Failed to provide HTTP server: %v", err)
	}

	return container
}

// provideFetcher uses the HTTP oracle when configured and falls back to
// static prices otherwise.
func provideFetcher(oracleCfg *oracle.Config, rateCfg *config.RateConfig) (rate.Fetcher, error) {
	logger := observability.FromContext(context.Background())

	if oracleCfg.BaseURL != "" {
		logger.Info("using HTTP price oracle", observability.String("base_url", oracleCfg.BaseURL))
		return oracle.NewClient(*oracleCfg)
	}

	if len(rateCfg.StaticPrices) == 0 {
		logger.Warn("no price oracle or static prices configured; asset conversion will fail")
	}

	return rate.NewStaticFetcherFromConfig(rateCfg.StaticPrices, rateCfg.StaticDecimals)
}

// provideRateStore shares price snapshots through Redis when REDIS_ADDR is
// set and keeps them in process memory otherwise.
func provideRateStore(cfg *raterdb.Config) (rate.Store, error) {
	if cfg.Addr == "" {
		return rate.NewMemoryStore(), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := raterdb.NewClient(*cfg)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Join(errors.New("redis unreachable"), err)
	}

	observability.FromContext(ctx).Info("using redis rate store", observability.String("addr", cfg.Addr))
	return raterdb.NewStore(client, cfg.KeyPrefix, cfg.Retention)
}
