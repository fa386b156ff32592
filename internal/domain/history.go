package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	RecordTypeSearch = "SEARCH"
	HistoryRetention = 90 * 24 * time.Hour

	// UnknownAsset is reported for legacy rows written without an asset id.
	UnknownAsset = "unknown"
)

// HistoryRecord is written once per successful fetch and never mutated.
type HistoryRecord struct {
	ID         string
	RecordType string
	Email      string
	Quote      PriceQuote
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// NewHistoryRecord stamps a record created at now with the retention deadline.
func NewHistoryRecord(id, email string, q PriceQuote, now time.Time) HistoryRecord {
	return HistoryRecord{
		ID:         id,
		RecordType: RecordTypeSearch,
		Email:      email,
		Quote:      q,
		CreatedAt:  now,
		ExpiresAt:  now.Add(HistoryRetention),
	}
}

// PartialRecord is a history row as read from storage where optional
// attributes may be absent.
type PartialRecord struct {
	ID         string
	RecordType *string
	Email      string
	AssetID    *string
	Price      *decimal.Decimal
	Change24h  *decimal.Decimal
	MarketCap  *decimal.Decimal
	Currency   *string
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// Sanitize fills absent attributes with their defaults: record type SEARCH,
// asset "unknown", currency "usd" and zero for every number.
func (p PartialRecord) Sanitize() HistoryRecord {
	rec := HistoryRecord{
		ID:         p.ID,
		RecordType: RecordTypeSearch,
		Email:      p.Email,
		CreatedAt:  p.CreatedAt,
		ExpiresAt:  p.ExpiresAt,
		Quote: PriceQuote{
			AssetID:  UnknownAsset,
			Currency: QuoteCurrency,
		},
	}
	if p.RecordType != nil && *p.RecordType != "" {
		rec.RecordType = *p.RecordType
	}
	if p.AssetID != nil && *p.AssetID != "" {
		rec.Quote.AssetID = *p.AssetID
	}
	if p.Currency != nil && *p.Currency != "" {
		rec.Quote.Currency = *p.Currency
	}
	if p.Price != nil {
		rec.Quote.Price = *p.Price
	}
	if p.Change24h != nil {
		rec.Quote.Change24h = *p.Change24h
	}
	if p.MarketCap != nil {
		rec.Quote.MarketCap = *p.MarketCap
	}
	return rec
}
