package application

import (
	"context"
	"time"

	"cryptoprice-service/internal/domain"
	"cryptoprice-service/internal/retry"

	"go.uber.org/zap"
)

// HistoryStore appends immutable history records. Each write is conditional
// on the id being unused. A collision is retried under a fresh id; throttling
// is retried under the same one.
type HistoryStore struct {
	repo   HistoryRepo
	clock  Clock
	ids    IDGen
	policy retry.Policy
	log    *zap.Logger
}

func NewHistoryStore(repo HistoryRepo, opts ...Option) *HistoryStore {
	o := newOptions(opts)
	return &HistoryStore{
		repo:   repo,
		clock:  o.clock,
		ids:    o.idgen,
		policy: o.policy,
		log:    o.log.With(zap.String("component", "history_store")),
	}
}

func isRetryableWrite(err error) bool {
	switch domain.KindOf(err) {
	case domain.KindStorageConflict, domain.KindStorageThrottled:
		return true
	default:
		return false
	}
}

// Append writes a new record for email and q, stamped now and expiring after
// domain.HistoryRetention.
func (s *HistoryStore) Append(ctx context.Context, email string, q domain.PriceQuote) (domain.HistoryRecord, error) {
	now := s.clock.Now().UTC().Truncate(time.Microsecond)
	rec := domain.NewHistoryRecord(s.ids.NewID(), email, q, now)
	log := scoped(ctx, s.log)

	out, err := retry.Do(ctx, s.policy, isRetryableWrite, func(ctx context.Context, attempt int) error {
		err := s.repo.Insert(ctx, rec)
		if err == nil {
			return nil
		}
		switch domain.KindOf(err) {
		case domain.KindStorageConflict:
			prev := rec.ID
			rec.ID = s.ids.NewID()
			log.Warn("history.id_collision", zap.Int("attempt", attempt), zap.String("id", prev), zap.String("next_id", rec.ID))
		case domain.KindStorageThrottled:
			log.Warn("history.append_throttled", zap.Int("attempt", attempt), zap.String("id", rec.ID))
		}
		return err
	})
	if err != nil {
		log.Error("history.append_failed", zap.Int("attempts", out.Attempts), zap.Error(err))
		switch domain.KindOf(err) {
		case domain.KindTableMissing:
			return domain.HistoryRecord{}, err
		case domain.KindStorageConflict:
			return domain.HistoryRecord{}, domain.WithAttempts(err, out.Attempts)
		default:
			return domain.HistoryRecord{}, &domain.Error{
				Kind:     domain.KindStorageUnavailable,
				Op:       "history.append",
				Message:  "price history storage is unavailable; please try again later",
				Attempts: out.Attempts,
				Err:      err,
			}
		}
	}
	log.Info("history.appended", zap.String("id", rec.ID), zap.Int("attempts", out.Attempts))
	return rec, nil
}
