package pg

import (
	"context"
	"time"

	"cryptoprice-service/internal/application"
	"cryptoprice-service/internal/domain"
	"cryptoprice-service/internal/infrastructure/logx"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var _ application.HistoryRepo = (*HistoryRepo)(nil)

type HistoryRepo struct{ db *DB }

func NewHistoryRepo(db *DB) *HistoryRepo { return &HistoryRepo{db: db} }

const historyColumns = `id, record_type, email, cryptocurrency, price::text, change_24h::text,
        market_cap::text, currency, created_at, expires_at`

// Insert is conditional on the id: an existing row is left untouched and the
// call fails with a storage conflict.
func (r *HistoryRepo) Insert(ctx context.Context, rec domain.HistoryRecord) error {
	const ins = `
        INSERT INTO price_history(id, record_type, email, cryptocurrency, price, change_24h,
                                  market_cap, currency, created_at, expires_at)
        VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7::numeric, $8, $9, $10)
        ON CONFLICT (id) DO NOTHING`
	log := logx.WithFields(ctx).With(
		zap.String("repo", "price_history"),
		zap.String("operation", "Insert"),
		zap.String("id", rec.ID),
		zap.String("asset", rec.Quote.AssetID),
	)
	log.Debug("sql.exec_start")
	tag, err := conn(ctx, r.db.Pool).Exec(ctx, ins,
		rec.ID, rec.RecordType, rec.Email, rec.Quote.AssetID,
		rec.Quote.Price.String(), rec.Quote.Change24h.String(), rec.Quote.MarketCap.String(),
		rec.Quote.Currency, rec.CreatedAt, rec.ExpiresAt,
	)
	if err != nil {
		log.Error("sql.exec_failed", zap.Error(err))
		return classify("pg.history.insert", err)
	}
	if tag.RowsAffected() == 0 {
		log.Warn("sql.exec_conflict")
		return domain.E(domain.KindStorageConflict, "pg.history.insert", "", nil)
	}
	log.Info("sql.exec_success", zap.Int64("rows_affected", tag.RowsAffected()))
	return nil
}

func (r *HistoryRepo) ListByRecipient(ctx context.Context, email string, after *domain.Cursor, limit int) ([]domain.HistoryRecord, error) {
	const q = `
        SELECT ` + historyColumns + `
        FROM price_history
        WHERE email = $1
          AND expires_at > now()
          AND ($2::timestamptz IS NULL OR (created_at, id) < ($2::timestamptz, $3::text))
        ORDER BY created_at DESC, id DESC
        LIMIT $4`
	return r.list(ctx, "ListByRecipient", q, email, after, limit)
}

func (r *HistoryRepo) ListRecent(ctx context.Context, recordType string, after *domain.Cursor, limit int) ([]domain.HistoryRecord, error) {
	const q = `
        SELECT ` + historyColumns + `
        FROM price_history
        WHERE record_type = $1
          AND expires_at > now()
          AND ($2::timestamptz IS NULL OR (created_at, id) < ($2::timestamptz, $3::text))
        ORDER BY created_at DESC, id DESC
        LIMIT $4`
	return r.list(ctx, "ListRecent", q, recordType, after, limit)
}

func (r *HistoryRepo) list(ctx context.Context, operation, q, partition string, after *domain.Cursor, limit int) ([]domain.HistoryRecord, error) {
	var ts *time.Time
	var id *string
	if after != nil {
		ts, id = &after.CreatedAt, &after.ID
	}
	log := logx.WithFields(ctx).With(
		zap.String("repo", "price_history"),
		zap.String("operation", operation),
		zap.Int("limit", limit),
		zap.Bool("has_cursor", after != nil),
	)
	log.Debug("sql.query_start")
	rows, err := conn(ctx, r.db.Pool).Query(ctx, q, partition, ts, id, limit)
	if err != nil {
		log.Error("sql.query_failed", zap.Error(err))
		return nil, classify("pg.history."+operation, err)
	}
	out, err := pgx.CollectRows(rows, scanRecord)
	if err != nil {
		log.Error("sql.scan_failed", zap.Error(err))
		return nil, classify("pg.history."+operation, err)
	}
	log.Info("sql.query_success", zap.Int("rows", len(out)))
	return out, nil
}

func scanRecord(row pgx.CollectableRow) (domain.HistoryRecord, error) {
	var p domain.PartialRecord
	var price, change, marketCap *string
	err := row.Scan(&p.ID, &p.RecordType, &p.Email, &p.AssetID,
		&price, &change, &marketCap, &p.Currency, &p.CreatedAt, &p.ExpiresAt)
	if err != nil {
		return domain.HistoryRecord{}, err
	}
	if p.Price, err = parseNumeric(price); err != nil {
		return domain.HistoryRecord{}, err
	}
	if p.Change24h, err = parseNumeric(change); err != nil {
		return domain.HistoryRecord{}, err
	}
	if p.MarketCap, err = parseNumeric(marketCap); err != nil {
		return domain.HistoryRecord{}, err
	}
	rec := p.Sanitize()
	rec.CreatedAt, rec.ExpiresAt = rec.CreatedAt.UTC(), rec.ExpiresAt.UTC()
	return rec, nil
}

func parseNumeric(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
