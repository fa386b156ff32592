package application

import (
	"context"
	"time"

	"cryptoprice-service/internal/domain"
)

// PriceProvider looks up a live quote. Failures are *domain.Error values
// classified as transient (timeout, rate limit, network, 5xx) or permanent.
type PriceProvider interface {
	FetchQuote(ctx context.Context, assetID string) (domain.PriceQuote, error)
}

// CacheStore is a key-value store with per-entry expiry.
type CacheStore interface {
	// Get reports ok=false when the key is absent or expired.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// HistoryRepo persists history records and serves both secondary orderings,
// newest first. List methods return records strictly after the cursor.
type HistoryRepo interface {
	// Insert succeeds only if no record with rec.ID exists; otherwise it
	// returns a KindStorageConflict error.
	Insert(ctx context.Context, rec domain.HistoryRecord) error
	ListByRecipient(ctx context.Context, email string, after *domain.Cursor, limit int) ([]domain.HistoryRecord, error)
	ListRecent(ctx context.Context, recordType string, after *domain.Cursor, limit int) ([]domain.HistoryRecord, error)
}

// RetentionRepo deletes records whose retention deadline has passed.
type RetentionRepo interface {
	PurgeExpired(ctx context.Context, now time.Time, limit int) (int64, error)
}

// Notifier delivers a price notification and returns the channel's delivery id.
type Notifier interface {
	Notify(ctx context.Context, email string, quote domain.PriceQuote, at time.Time) (string, error)
}
