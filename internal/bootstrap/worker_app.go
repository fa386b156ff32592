package bootstrap

import (
	"context"
	"errors"

	"cryptoprice-service/internal/application"
)

var ErrWorkerNeedsSharedStorage = errors.New("worker needs STORAGE=pg; in-memory history is swept by the api process")

type WorkerApp func(ctx context.Context) error

func InitWorker(ctx context.Context) (application.Worker, func(), error) {
	log := ProvideLogger()
	cfg, err := ProvideConfig()
	if err != nil {
		return nil, noop, err
	}
	if cfg.Storage != "pg" {
		return nil, noop, ErrWorkerNeedsSharedStorage
	}
	st, cleanup, err := ProvideStorage(ctx, log, cfg)
	if err != nil {
		return nil, noop, err
	}
	return ProvideRetentionWorker(log, cfg, st), cleanup, nil
}

// InitWorkerApp wraps InitWorker into a runner that blocks until ctx is done.
func InitWorkerApp(ctx context.Context) (WorkerApp, func(), error) {
	w, cleanup, err := InitWorker(ctx)
	if err != nil {
		return nil, noop, err
	}
	run := func(ctx context.Context) error {
		w.Start(ctx)
		return nil
	}
	return run, cleanup, nil
}
