package domain

import "github.com/shopspring/decimal"

// QuoteCurrency is the only fiat currency prices are quoted in.
const QuoteCurrency = "usd"

// PriceQuote is an immutable price snapshot for one asset.
type PriceQuote struct {
	AssetID   string          `json:"assetId"`
	Price     decimal.Decimal `json:"price"`
	Change24h decimal.Decimal `json:"change24h"`
	MarketCap decimal.Decimal `json:"marketCap"`
	Currency  string          `json:"currency"`
}
