// Package bootstrap assembles the api and worker processes from config.
package bootstrap

import (
	"context"
	"net/http"

	"cryptoprice-service/internal/config"
	httpserver "cryptoprice-service/internal/infrastructure/http"
	"cryptoprice-service/internal/infrastructure/worker"
)

type API struct {
	Config  config.Config
	Handler http.Handler
	// Retention is set when history lives in this process's memory, so the
	// api has to sweep it itself.
	Retention *worker.RetentionWorker
}

// cleanups runs registered cleanup funcs in reverse order.
type cleanups []func()

func (c *cleanups) add(fn func()) { *c = append(*c, fn) }

func (c cleanups) run() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

func InitAPI(ctx context.Context) (*API, func(), error) {
	log := ProvideLogger()
	cfg, err := ProvideConfig()
	if err != nil {
		return nil, noop, err
	}

	var cs cleanups
	st, closeStorage, err := ProvideStorage(ctx, log, cfg)
	if err != nil {
		return nil, noop, err
	}
	cs.add(closeStorage)
	cache, closeCache := ProvideCache(ctx, log, cfg)
	cs.add(closeCache)

	svc := ProvidePriceService(log, cfg, cache, ProvidePriceProvider(cfg), st, ProvideNotifier(log, cfg))
	handler := httpserver.NewRouter(ProvideServer(svc, st), httpserver.RouterOptions{
		RequestTimeout: cfg.RequestTimeout,
	})

	api := &API{Config: cfg, Handler: handler}
	if cfg.Storage == "memory" {
		api.Retention = ProvideRetentionWorker(log, cfg, st)
	}
	return api, cs.run, nil
}
