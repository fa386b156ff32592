package provider

import (
	"context"

	"cryptoprice-service/internal/application"
	"cryptoprice-service/internal/domain"

	"github.com/shopspring/decimal"
)

// Ensure Fake implements application.PriceProvider.
var _ application.PriceProvider = (*Fake)(nil)

// Fake quotes a fixed price for every supported asset and reports the rest
// as not found.
type Fake struct {
	price decimal.Decimal
}

func NewFake(price decimal.Decimal) *Fake { return &Fake{price: price} }

func (f *Fake) FetchQuote(_ context.Context, assetID string) (domain.PriceQuote, error) {
	if !domain.IsSupportedAsset(assetID) {
		return domain.PriceQuote{}, domain.E(domain.KindNotFound, "fake.fetch", "cryptocurrency "+assetID+" was not found", nil)
	}
	return domain.PriceQuote{
		AssetID:   assetID,
		Price:     f.price,
		Change24h: decimal.Zero,
		MarketCap: f.price.Mul(decimal.NewFromInt(1_000_000)),
		Currency:  domain.QuoteCurrency,
	}, nil
}
