package application

import (
	"context"
	"errors"
	"time"

	"cryptoprice-service/internal/domain"
	"cryptoprice-service/internal/retry"

	"go.uber.org/zap"
)

// UpstreamAttemptTimeout bounds each upstream call independently.
const UpstreamAttemptTimeout = 10 * time.Second

// FetchedQuote is a quote plus how it was obtained.
type FetchedQuote struct {
	Quote     domain.PriceQuote
	FromCache bool
	Attempts  int
}

// ResilientFetcher serves quotes from the cache or the upstream provider,
// retrying transient upstream failures with exponential backoff.
type ResilientFetcher struct {
	cache          *PriceCache
	upstream       PriceProvider
	policy         retry.Policy
	attemptTimeout time.Duration
	log            *zap.Logger
}

func NewResilientFetcher(cache *PriceCache, upstream PriceProvider, opts ...Option) *ResilientFetcher {
	o := newOptions(opts)
	return &ResilientFetcher{
		cache:          cache,
		upstream:       upstream,
		policy:         o.policy,
		attemptTimeout: o.attemptTimeout,
		log:            o.log.With(zap.String("component", "fetcher")),
	}
}

// IsRetryableUpstream reports whether an upstream failure is worth another attempt.
func IsRetryableUpstream(err error) bool {
	switch domain.KindOf(err) {
	case domain.KindTimeout, domain.KindRateLimited, domain.KindNetworkUnreachable, domain.KindUpstreamUnavailable:
		return true
	default:
		return false
	}
}

func (f *ResilientFetcher) Fetch(ctx context.Context, assetID string) (FetchedQuote, error) {
	log := scoped(ctx, f.log).With(zap.String("asset", assetID))

	if q, ok := f.cache.Get(ctx, assetID); ok {
		log.Info("price.cache_hit")
		return FetchedQuote{Quote: q, FromCache: true}, nil
	}

	var quote domain.PriceQuote
	out, err := retry.Do(ctx, f.policy, IsRetryableUpstream, func(ctx context.Context, attempt int) error {
		actx, cancel := context.WithTimeout(ctx, f.attemptTimeout)
		defer cancel()
		q, err := f.upstream.FetchQuote(actx, assetID)
		if err != nil {
			var de *domain.Error
			if !errors.As(err, &de) {
				err = domain.E(domain.KindInternal, "fetch", "", err)
			}
			log.Warn("price.upstream_failed",
				zap.Int("attempt", attempt),
				zap.String("kind", domain.KindOf(err).String()),
				zap.Error(err),
			)
			return err
		}
		quote = q
		return nil
	})
	if err != nil {
		if domain.KindOf(err) == domain.KindInternal && (errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)) {
			err = domain.E(domain.KindTimeout, "fetch", "price lookup ran out of time", err)
		}
		if IsRetryableUpstream(err) {
			err = domain.WithAttempts(err, out.Attempts)
		}
		log.Error("price.fetch_failed", zap.Int("attempts", out.Attempts), zap.Error(err))
		return FetchedQuote{}, err
	}

	f.cache.Put(ctx, assetID, quote)
	log.Info("price.fetched", zap.Int("attempts", out.Attempts), zap.Duration("backoff", out.Delay))
	return FetchedQuote{Quote: quote, Attempts: out.Attempts}, nil
}
