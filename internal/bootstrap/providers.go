package bootstrap

import (
	"context"
	"errors"
	"net/http"

	"cryptoprice-service/internal/application"
	"cryptoprice-service/internal/config"
	httpserver "cryptoprice-service/internal/infrastructure/http"
	"cryptoprice-service/internal/infrastructure/httpx"
	"cryptoprice-service/internal/infrastructure/logx"
	"cryptoprice-service/internal/infrastructure/memcache"
	"cryptoprice-service/internal/infrastructure/memstore"
	"cryptoprice-service/internal/infrastructure/notify"
	"cryptoprice-service/internal/infrastructure/pg"
	"cryptoprice-service/internal/infrastructure/provider"
	redisstore "cryptoprice-service/internal/infrastructure/redis"
	"cryptoprice-service/internal/infrastructure/worker"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var ErrMissingDBURL = errors.New("DATABASE_URL is required for STORAGE=pg")

// fakePrice is what PROVIDER=fake quotes for every supported asset.
var fakePrice = decimal.RequireFromString("65000.12")

// Storage bundles the history backends selected by STORAGE.
type Storage struct {
	History   application.HistoryRepo
	Retention application.RetentionRepo
	// Ping backs /readyz; nil means always ready.
	Ping func(ctx context.Context) error
}

func noop() {}

func ProvideLogger() *zap.Logger { return logx.L() }

func ProvideConfig() (config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func ProvideDB(ctx context.Context, log *zap.Logger, cfg config.Config) (*pg.DB, func(), error) {
	if cfg.DatabaseURL == "" {
		return nil, noop, ErrMissingDBURL
	}
	db, err := pg.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, noop, err
	}
	if err := pg.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, noop, err
	}
	cleanup := func() {
		log.Info("closing pg")
		db.Close()
	}
	return db, cleanup, nil
}

func ProvideStorage(ctx context.Context, log *zap.Logger, cfg config.Config) (Storage, func(), error) {
	switch cfg.Storage {
	case "memory":
		log.Warn("history is kept in memory and lost on restart")
		h := memstore.NewHistory()
		return Storage{History: h, Retention: h}, noop, nil
	default:
		db, cleanup, err := ProvideDB(ctx, log, cfg)
		if err != nil {
			return Storage{}, noop, err
		}
		return Storage{
			History:   pg.NewHistoryRepo(db),
			Retention: pg.NewRetentionRepo(db),
			Ping:      db.Ping,
		}, cleanup, nil
	}
}

func ProvideRedisClient(cfg config.Config) (*redis.Client, func()) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return client, func() { _ = client.Close() }
}

// ProvideCache picks the quote cache. An unreachable redis is logged and kept:
// cache failures degrade to misses rather than failing requests.
func ProvideCache(ctx context.Context, log *zap.Logger, cfg config.Config) (application.CacheStore, func()) {
	switch cfg.CacheBackend {
	case "memory":
		return memcache.New(), noop
	case "none":
		return redisstore.Noop{}, noop
	default:
		client, cleanup := ProvideRedisClient(cfg)
		store := redisstore.New(client)
		if err := store.Ping(ctx); err != nil {
			log.Warn("redis unreachable; serving without cache until it recovers",
				zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		return store, cleanup
	}
}

// ProvideUpstreamClient builds the HTTP client for the price API. UPSTREAM_RPS
// of zero leaves it unthrottled.
func ProvideUpstreamClient(cfg config.Config) *httpx.Client {
	c := &httpx.Client{HTTP: &http.Client{Timeout: cfg.UpstreamTimeout}}
	if cfg.UpstreamRPS > 0 {
		burst := int(cfg.UpstreamRPS)
		if burst < 1 {
			burst = 1
		}
		c.Limiter = rate.NewLimiter(rate.Limit(cfg.UpstreamRPS), burst)
	}
	return c
}

func ProvidePriceProvider(cfg config.Config) application.PriceProvider {
	switch cfg.Provider {
	case "fake":
		return provider.NewFake(fakePrice)
	default:
		return &provider.CoinGeckoProvider{
			BaseURL: cfg.CoinGeckoAPIBase,
			APIKey:  cfg.CoinGeckoAPIKey,
			Client:  ProvideUpstreamClient(cfg),
		}
	}
}

// ProvideNotifier returns nil for NOTIFIER=none; the service then skips delivery.
func ProvideNotifier(log *zap.Logger, cfg config.Config) application.Notifier {
	switch cfg.Notifier {
	case "log":
		return notify.NewLogNotifier(log)
	case "none":
		return nil
	default:
		return notify.NewEmailNotifier(cfg.EmailAPIBase, cfg.EmailAPIKey, cfg.EmailFrom, cfg.UpstreamTimeout, log)
	}
}

func ProvidePriceService(log *zap.Logger, cfg config.Config, cache application.CacheStore, p application.PriceProvider, st Storage, n application.Notifier) *application.PriceService {
	return application.NewPriceService(cache, p, st.History, n,
		application.WithLogger(log),
		application.WithAttemptTimeout(cfg.UpstreamTimeout),
	)
}

func ProvideServer(svc *application.PriceService, st Storage) *httpserver.Server {
	srv := httpserver.NewServer(svc)
	if st.Ping != nil {
		srv.SetReadyCheck(st.Ping)
	}
	return srv
}

func ProvideRetentionWorker(log *zap.Logger, cfg config.Config, st Storage) *worker.RetentionWorker {
	return &worker.RetentionWorker{
		Repo:       st.Retention,
		SweepEvery: cfg.RetentionSweep,
		BatchLimit: cfg.RetentionBatch,
		Log:        log.With(zap.String("component", "retention")),
	}
}
