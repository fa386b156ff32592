package pg_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"cryptoprice-service/internal/domain"
	"cryptoprice-service/internal/infrastructure/pg"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func quote(asset, price string) domain.PriceQuote {
	return domain.PriceQuote{
		AssetID:   asset,
		Price:     decimal.RequireFromString(price),
		Change24h: decimal.RequireFromString("-3.5"),
		MarketCap: decimal.RequireFromString("1200000000000"),
		Currency:  domain.QuoteCurrency,
	}
}

func TestHistoryRepo_InsertIsConditional(t *testing.T) {
	db := withPostgres(t)
	repo := pg.NewHistoryRepo(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	rec := domain.NewHistoryRecord("rec-1", "a@example.com", quote("bitcoin", "65000.12"), now)
	require.NoError(t, repo.Insert(ctx, rec))

	dup := domain.NewHistoryRecord("rec-1", "b@example.com", quote("ethereum", "1"), now)
	require.ErrorIs(t, repo.Insert(ctx, dup), domain.ErrStorageConflict)

	got, err := repo.ListByRecipient(ctx, "a@example.com", nil, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "bitcoin", got[0].Quote.AssetID)
	require.True(t, got[0].Quote.Price.Equal(decimal.RequireFromString("65000.12")))
	require.True(t, got[0].Quote.MarketCap.Equal(decimal.RequireFromString("1.2e12")))
	require.Equal(t, now, got[0].CreatedAt)
	require.Equal(t, now.Add(domain.HistoryRetention), got[0].ExpiresAt)
}

func TestHistoryRepo_KeysetPagination(t *testing.T) {
	db := withPostgres(t)
	repo := pg.NewHistoryRepo(db)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	for i := 0; i < 9; i++ {
		// pairs of records share a timestamp
		ts := base.Add(time.Duration(i/2) * time.Second)
		rec := domain.NewHistoryRecord(fmt.Sprintf("rec-%02d", i), "a@example.com", quote("bitcoin", "1"), ts)
		require.NoError(t, repo.Insert(ctx, rec))
	}

	all, err := repo.ListByRecipient(ctx, "a@example.com", nil, 100)
	require.NoError(t, err)
	require.Len(t, all, 9)

	var paged []string
	var after *domain.Cursor
	for {
		recs, err := repo.ListByRecipient(ctx, "a@example.com", after, 4)
		require.NoError(t, err)
		for _, r := range recs {
			paged = append(paged, r.ID)
		}
		if len(recs) < 4 {
			break
		}
		c := domain.CursorAfter(domain.IndexByRecipient, recs[len(recs)-1])
		after = &c
	}
	want := make([]string, 0, len(all))
	for _, r := range all {
		want = append(want, r.ID)
	}
	require.Equal(t, want, paged)
	require.Equal(t, "rec-08", want[0])

	recent, err := repo.ListRecent(ctx, domain.RecordTypeSearch, nil, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
}

func TestHistoryRepo_SanitizesPartialRows(t *testing.T) {
	db := withPostgres(t)
	ctx := context.Background()
	_, err := db.Pool.Exec(ctx, `
        INSERT INTO price_history(id, email, created_at, expires_at)
        VALUES ('legacy-1', 'old@example.com', now(), now() + interval '1 day')`)
	require.NoError(t, err)

	got, err := pg.NewHistoryRepo(db).ListByRecipient(ctx, "old@example.com", nil, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, domain.UnknownAsset, got[0].Quote.AssetID)
	require.Equal(t, domain.QuoteCurrency, got[0].Quote.Currency)
	require.Equal(t, domain.RecordTypeSearch, got[0].RecordType)
	require.True(t, got[0].Quote.Price.IsZero())
}

func TestRetentionRepo_PurgesExpiredOnly(t *testing.T) {
	db := withPostgres(t)
	ctx := context.Background()
	repo := pg.NewHistoryRepo(db)
	now := time.Now().UTC()

	old := domain.NewHistoryRecord("old", "a@example.com", quote("bitcoin", "1"), now.Add(-91*24*time.Hour))
	fresh := domain.NewHistoryRecord("fresh", "a@example.com", quote("bitcoin", "1"), now)
	require.NoError(t, repo.Insert(ctx, old))
	require.NoError(t, repo.Insert(ctx, fresh))

	n, err := pg.NewRetentionRepo(db).PurgeExpired(ctx, now, 100)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	var left int
	require.NoError(t, db.Pool.QueryRow(ctx, `SELECT count(*) FROM price_history`).Scan(&left))
	require.Equal(t, 1, left)
}

func TestHistoryRepo_MissingTable(t *testing.T) {
	db := withPostgres(t)
	ctx := context.Background()
	require.NoError(t, pg.DropSchema(ctx, db))

	repo := pg.NewHistoryRepo(db)
	err := repo.Insert(ctx, domain.NewHistoryRecord("x", "a@example.com", quote("bitcoin", "1"), time.Now()))
	require.ErrorIs(t, err, domain.ErrTableMissing)
	_, err = repo.ListRecent(ctx, domain.RecordTypeSearch, nil, 10)
	require.ErrorIs(t, err, domain.ErrTableMissing)
}
