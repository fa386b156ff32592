package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"cryptoprice-service/internal/application"
	"cryptoprice-service/internal/domain"
	"cryptoprice-service/internal/infrastructure/httpx"

	"github.com/shopspring/decimal"
)

const (
	DefaultCoinGeckoBase = "https://api.coingecko.com/api/v3"
	coinGeckoPricePath   = "/simple/price"
	coinGeckoKeyHeader   = "x-cg-demo-api-key"
)

type CoinGeckoProvider struct {
	BaseURL string
	APIKey  string
	Client  *httpx.Client
}

var _ application.PriceProvider = (*CoinGeckoProvider)(nil)

type cgPrice struct {
	USD       *decimal.Decimal `json:"usd"`
	Change24h *decimal.Decimal `json:"usd_24h_change"`
	MarketCap *decimal.Decimal `json:"usd_market_cap"`
}

func (p *CoinGeckoProvider) FetchQuote(ctx context.Context, assetID string) (domain.PriceQuote, error) {
	const op = "coingecko.fetch"

	base := p.BaseURL
	if base == "" {
		base = DefaultCoinGeckoBase
	}
	u, err := url.Parse(strings.TrimRight(base, "/") + coinGeckoPricePath)
	if err != nil {
		return domain.PriceQuote{}, domain.E(domain.KindInternal, op, "", fmt.Errorf("invalid base url: %w", err))
	}
	q := u.Query()
	q.Set("ids", assetID)
	q.Set("vs_currencies", domain.QuoteCurrency)
	q.Set("include_24hr_change", "true")
	q.Set("include_market_cap", "true")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return domain.PriceQuote{}, domain.E(domain.KindInternal, op, "", err)
	}
	if p.APIKey != "" {
		req.Header.Set(coinGeckoKeyHeader, p.APIKey)
	}

	client := p.Client
	if client == nil {
		client = &httpx.Client{}
	}
	var body map[string]cgPrice
	if err := client.DoJSON(ctx, req, &body); err != nil {
		return domain.PriceQuote{}, classify(op, assetID, err)
	}

	entry, ok := body[assetID]
	if !ok {
		return domain.PriceQuote{}, domain.E(domain.KindNotFound, op,
			fmt.Sprintf("cryptocurrency %q was not found", assetID), nil)
	}
	if entry.USD == nil {
		return domain.PriceQuote{}, domain.E(domain.KindDataIntegrity, op,
			fmt.Sprintf("price data for %q is incomplete", assetID), nil)
	}
	if entry.USD.IsNegative() {
		return domain.PriceQuote{}, domain.E(domain.KindDataIntegrity, op,
			fmt.Sprintf("price data for %q is invalid", assetID), fmt.Errorf("negative price %s", entry.USD))
	}

	quote := domain.PriceQuote{
		AssetID:  assetID,
		Price:    *entry.USD,
		Currency: domain.QuoteCurrency,
	}
	if entry.Change24h != nil {
		quote.Change24h = *entry.Change24h
	}
	if entry.MarketCap != nil {
		if entry.MarketCap.IsNegative() {
			return domain.PriceQuote{}, domain.E(domain.KindDataIntegrity, op,
				fmt.Sprintf("price data for %q is invalid", assetID), fmt.Errorf("negative market cap %s", entry.MarketCap))
		}
		quote.MarketCap = *entry.MarketCap
	}
	return quote, nil
}

func classify(op, assetID string, err error) error {
	var se *httpx.StatusError
	switch {
	case errors.As(err, &se):
		switch {
		case se.Status == http.StatusTooManyRequests:
			return domain.E(domain.KindRateLimited, op, "price provider rate limit reached; please try again shortly", err)
		case se.Status == http.StatusNotFound:
			return domain.E(domain.KindNotFound, op, fmt.Sprintf("cryptocurrency %q was not found", assetID), err)
		case se.Status >= 500:
			return domain.E(domain.KindUpstreamUnavailable, op, "price provider is unavailable; please try again later", err)
		default:
			return domain.E(domain.KindInternal, op, "", err)
		}
	case errors.Is(err, httpx.ErrLocalRateLimit):
		return domain.E(domain.KindRateLimited, op, "price provider rate limit reached; please try again shortly", err)
	case errors.Is(err, httpx.ErrDecode):
		return domain.E(domain.KindDataIntegrity, op, "price provider returned malformed data", err)
	}
	switch httpx.TransportKind(err) {
	case domain.KindTimeout:
		return domain.E(domain.KindTimeout, op, "price provider timed out", err)
	case domain.KindNetworkUnreachable:
		return domain.E(domain.KindNetworkUnreachable, op, "price provider could not be reached", err)
	}
	return domain.E(domain.KindInternal, op, "", err)
}
