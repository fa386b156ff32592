package application

import (
	"context"
	"strings"

	"cryptoprice-service/internal/domain"

	"go.uber.org/zap"
)

// PriceService runs the two request flows: fetch-store-notify and history.
type PriceService struct {
	fetcher  *ResilientFetcher
	store    *HistoryStore
	query    *HistoryQuery
	notifier Notifier
	log      *zap.Logger
}

// NewPriceService wires every component from its ports. A nil cache store
// disables caching; a nil notifier skips notification.
func NewPriceService(cache CacheStore, provider PriceProvider, repo HistoryRepo, notifier Notifier, opts ...Option) *PriceService {
	o := newOptions(opts)
	return &PriceService{
		fetcher:  NewResilientFetcher(NewPriceCache(cache, opts...), provider, opts...),
		store:    NewHistoryStore(repo, opts...),
		query:    NewHistoryQuery(repo, opts...),
		notifier: notifier,
		log:      o.log.With(zap.String("component", "price_service")),
	}
}

// FetchResult is a stored fetch. NotifyErr is set when the record was
// persisted but the notification could not be delivered.
type FetchResult struct {
	Record     domain.HistoryRecord
	FromCache  bool
	DeliveryID string
	NotifyErr  error
}

// IsPartialSuccess reports whether a fetch stored its record but failed to notify.
func (r FetchResult) IsPartialSuccess() bool { return r.NotifyErr != nil }

// FetchPrice stores one history record per successful lookup and then notifies
// the recipient. Notification failure never undoes the stored record.
func (s *PriceService) FetchPrice(ctx context.Context, assetID, email string) (FetchResult, error) {
	in, err := domain.ValidateFetchInput(assetID, email)
	if err != nil {
		return FetchResult{}, err
	}
	fq, err := s.fetcher.Fetch(ctx, in.AssetID)
	if err != nil {
		return FetchResult{}, err
	}
	rec, err := s.store.Append(ctx, in.Email, fq.Quote)
	if err != nil {
		return FetchResult{}, err
	}
	res := FetchResult{Record: rec, FromCache: fq.FromCache}
	if s.notifier == nil {
		return res, nil
	}

	id, err := s.notifier.Notify(ctx, in.Email, fq.Quote, rec.CreatedAt)
	if err != nil {
		if !domain.KindOf(err).IsNotification() {
			err = domain.E(domain.KindNotifyDeliveryFailed, "notify", "", err)
		}
		scoped(ctx, s.log).Warn("notify.failed",
			zap.String("record_id", rec.ID),
			zap.String("kind", domain.KindOf(err).String()),
			zap.Error(err),
		)
		res.NotifyErr = err
		return res, nil
	}
	res.DeliveryID = id
	scoped(ctx, s.log).Info("notify.sent", zap.String("record_id", rec.ID), zap.String("delivery_id", id))
	return res, nil
}

// HistoryResult is a validated filter and the page it produced.
type HistoryResult struct {
	Filter    domain.HistoryFilter
	Records   []domain.HistoryRecord
	NextToken string
}

func (r HistoryResult) HasMore() bool { return r.NextToken != "" }

// History reads the recipient index when an email is given and the recency
// index otherwise. Records of other assets are dropped from the page after the read.
func (s *PriceService) History(ctx context.Context, f domain.QueryFilters) (HistoryResult, error) {
	filter, err := domain.ValidateQueryInput(f)
	if err != nil {
		return HistoryResult{}, err
	}

	var p HistoryPage
	if filter.Index == domain.IndexByRecipient {
		p, err = s.query.ByRecipient(ctx, filter.Email, filter.Limit, filter.After)
	} else {
		p, err = s.query.Recent(ctx, filter.Limit, filter.After)
	}
	if err != nil {
		return HistoryResult{}, err
	}

	res := HistoryResult{Filter: filter, Records: p.Records}
	if filter.AssetID != "" {
		kept := make([]domain.HistoryRecord, 0, len(p.Records))
		for _, r := range p.Records {
			if strings.EqualFold(r.Quote.AssetID, filter.AssetID) {
				kept = append(kept, r)
			}
		}
		res.Records = kept
	}
	if p.Next != nil {
		res.NextToken = p.Next.Encode()
	}
	return res, nil
}
