package pg

import (
	"context"
	"time"

	"cryptoprice-service/internal/application"
	"cryptoprice-service/internal/infrastructure/logx"

	"go.uber.org/zap"
)

var _ application.RetentionRepo = (*RetentionRepo)(nil)

type RetentionRepo struct {
	db  *DB
	uow *UnitOfWork
}

func NewRetentionRepo(db *DB) *RetentionRepo {
	return &RetentionRepo{db: db, uow: &UnitOfWork{Pool: db.Pool}}
}

// PurgeExpired deletes up to limit records whose retention deadline is at or
// before now. Rows locked by another sweeper are skipped.
func (r *RetentionRepo) PurgeExpired(ctx context.Context, now time.Time, limit int) (int64, error) {
	const del = `
      WITH cte AS (
        SELECT id
        FROM price_history
        WHERE expires_at <= $1
        ORDER BY expires_at
        LIMIT $2
        FOR UPDATE SKIP LOCKED
      )
      DELETE FROM price_history h
      USING cte
      WHERE h.id = cte.id`
	log := logx.WithFields(ctx).With(
		zap.String("repo", "price_history"),
		zap.String("operation", "PurgeExpired"),
		zap.Time("now", now),
		zap.Int("limit", limit),
	)
	var n int64
	err := r.uow.Do(ctx, func(ctx context.Context) error {
		q := conn(ctx, r.db.Pool)
		if _, err := q.Exec(ctx, `SET LOCAL lock_timeout = '2s'`); err != nil {
			return err
		}
		tag, err := q.Exec(ctx, del, now, limit)
		if err != nil {
			return err
		}
		n = tag.RowsAffected()
		return nil
	})
	if err != nil {
		log.Error("sql.exec_failed", zap.Error(err))
		return 0, classify("pg.history.purge", err)
	}
	log.Info("sql.exec_success", zap.Int64("rows_affected", n))
	return n, nil
}
