// Package memstore keeps history records in process memory for local runs
// and tests. It orders records exactly like the Postgres indexes.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"cryptoprice-service/internal/application"
	"cryptoprice-service/internal/domain"
)

var (
	_ application.HistoryRepo   = (*History)(nil)
	_ application.RetentionRepo = (*History)(nil)
)

type History struct {
	mu   sync.RWMutex
	recs map[string]domain.HistoryRecord
	now  func() time.Time
}

func NewHistory() *History {
	return &History{recs: map[string]domain.HistoryRecord{}, now: time.Now}
}

func (h *History) Insert(_ context.Context, rec domain.HistoryRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.recs[rec.ID]; ok {
		return domain.E(domain.KindStorageConflict, "memstore.insert", "", nil)
	}
	h.recs[rec.ID] = rec
	return nil
}

func (h *History) ListByRecipient(_ context.Context, email string, after *domain.Cursor, limit int) ([]domain.HistoryRecord, error) {
	return h.list(func(r domain.HistoryRecord) bool { return r.Email == email }, after, limit), nil
}

func (h *History) ListRecent(_ context.Context, recordType string, after *domain.Cursor, limit int) ([]domain.HistoryRecord, error) {
	return h.list(func(r domain.HistoryRecord) bool { return r.RecordType == recordType }, after, limit), nil
}

func (h *History) PurgeExpired(_ context.Context, now time.Time, limit int) (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var n int64
	for id, r := range h.recs {
		if n >= int64(limit) {
			break
		}
		if !r.ExpiresAt.After(now) {
			delete(h.recs, id)
			n++
		}
	}
	return n, nil
}

func (h *History) list(match func(domain.HistoryRecord) bool, after *domain.Cursor, limit int) []domain.HistoryRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()
	now := h.now()
	out := make([]domain.HistoryRecord, 0)
	for _, r := range h.recs {
		if !match(r) || !r.ExpiresAt.After(now) {
			continue
		}
		if after != nil && !olderThan(r, after.CreatedAt, after.ID) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return olderThan(out[j], out[i].CreatedAt, out[i].ID) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// olderThan orders by (created_at, id) descending.
func olderThan(r domain.HistoryRecord, ts time.Time, id string) bool {
	return r.CreatedAt.Before(ts) || (r.CreatedAt.Equal(ts) && r.ID < id)
}
