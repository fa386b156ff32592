package application

import (
	"context"

	"cryptoprice-service/internal/domain"

	"go.uber.org/zap"
)

// HistoryPage is one page of records, newest first. Next is nil once the
// ordering is exhausted.
type HistoryPage struct {
	Records []domain.HistoryRecord
	Next    *domain.Cursor
}

// HistoryQuery pages through history by recipient or by recency.
type HistoryQuery struct {
	repo HistoryRepo
	log  *zap.Logger
}

func NewHistoryQuery(repo HistoryRepo, opts ...Option) *HistoryQuery {
	o := newOptions(opts)
	return &HistoryQuery{repo: repo, log: o.log.With(zap.String("component", "history_query"))}
}

func (h *HistoryQuery) ByRecipient(ctx context.Context, email string, limit int, after *domain.Cursor) (HistoryPage, error) {
	recs, err := h.repo.ListByRecipient(ctx, email, after, limit+1)
	if err != nil {
		return HistoryPage{}, h.classify(ctx, err)
	}
	return page(domain.IndexByRecipient, recs, limit), nil
}

func (h *HistoryQuery) Recent(ctx context.Context, limit int, after *domain.Cursor) (HistoryPage, error) {
	recs, err := h.repo.ListRecent(ctx, domain.RecordTypeSearch, after, limit+1)
	if err != nil {
		return HistoryPage{}, h.classify(ctx, err)
	}
	return page(domain.IndexRecent, recs, limit), nil
}

// page trims the probe record fetched past limit and positions the cursor on
// the last record returned.
func page(index domain.HistoryIndex, recs []domain.HistoryRecord, limit int) HistoryPage {
	if len(recs) <= limit {
		return HistoryPage{Records: recs}
	}
	recs = recs[:limit]
	next := domain.CursorAfter(index, recs[len(recs)-1])
	return HistoryPage{Records: recs, Next: &next}
}

func (h *HistoryQuery) classify(ctx context.Context, err error) error {
	scoped(ctx, h.log).Error("history.query_failed", zap.Error(err))
	var msg string
	kind := domain.KindOf(err)
	switch kind {
	case domain.KindTableMissing:
		msg = "price history is not available; please contact support"
	case domain.KindStorageThrottled:
		msg = "price history is busy; please try again"
	case domain.KindStorageUnavailable:
		msg = "price history storage is unavailable; please try again later"
	default:
		kind = domain.KindInternal
	}
	return &domain.Error{Kind: kind, Op: "history.query", Message: msg, Err: err}
}
