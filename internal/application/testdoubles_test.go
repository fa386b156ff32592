package application

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"cryptoprice-service/internal/domain"
	"cryptoprice-service/internal/retry"

	"github.com/shopspring/decimal"
)

var t0 = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func btcQuote() domain.PriceQuote {
	return domain.PriceQuote{
		AssetID:   "bitcoin",
		Price:     decimal.RequireFromString("43250.12"),
		Change24h: decimal.RequireFromString("2.45"),
		MarketCap: decimal.RequireFromString("845000000000"),
		Currency:  domain.QuoteCurrency,
	}
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// seqIDGen hands out the scripted ids first, then prefix-1, prefix-2, ...
type seqIDGen struct {
	mu       sync.Mutex
	scripted []string
	prefix   string
	n        int
}

func (g *seqIDGen) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.scripted) > 0 {
		id := g.scripted[0]
		g.scripted = g.scripted[1:]
		return id
	}
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

// instantTimer fires at once and records every requested wait.
type instantTimer struct {
	mu    sync.Mutex
	waits []time.Duration
	c     chan time.Time
}

func newInstantTimer() *instantTimer { return &instantTimer{c: make(chan time.Time, 1)} }

func (t *instantTimer) Start(d time.Duration) {
	t.mu.Lock()
	t.waits = append(t.waits, d)
	t.mu.Unlock()
	t.c <- time.Now()
}
func (t *instantTimer) Stop()               {}
func (t *instantTimer) C() <-chan time.Time { return t.c }

func (t *instantTimer) Waits() []time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]time.Duration(nil), t.waits...)
}

func instantPolicy(timer *instantTimer) retry.Policy {
	p := retry.Default()
	p.Timer = timer
	return p
}

type cacheItem struct {
	val []byte
	ttl time.Duration
}

type fakeCacheStore struct {
	mu     sync.Mutex
	items  map[string]cacheItem
	getErr error
	setErr error
}

func newFakeCacheStore() *fakeCacheStore {
	return &fakeCacheStore{items: map[string]cacheItem{}}
}

func (f *fakeCacheStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	it, ok := f.items[key]
	return it.val, ok, nil
}

func (f *fakeCacheStore) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.items[key] = cacheItem{val: val, ttl: ttl}
	return nil
}

type providerResult struct {
	quote domain.PriceQuote
	err   error
}

// scriptedProvider replays results in order and repeats the last one.
type scriptedProvider struct {
	mu      sync.Mutex
	results []providerResult
	calls   int
}

func (p *scriptedProvider) FetchQuote(_ context.Context, assetID string) (domain.PriceQuote, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if len(p.results) == 0 {
		return domain.PriceQuote{}, fmt.Errorf("no scripted result for %s", assetID)
	}
	r := p.results[0]
	if len(p.results) > 1 {
		p.results = p.results[1:]
	}
	return r.quote, r.err
}

func (p *scriptedProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// memRepo keeps records in memory and orders them like the Postgres indexes.
type memRepo struct {
	mu         sync.Mutex
	recs       map[string]domain.HistoryRecord
	insertErrs []error
	inserts    []string
	listErr    error
}

func newMemRepo() *memRepo { return &memRepo{recs: map[string]domain.HistoryRecord{}} }

func (m *memRepo) Insert(_ context.Context, rec domain.HistoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserts = append(m.inserts, rec.ID)
	if len(m.insertErrs) > 0 {
		err := m.insertErrs[0]
		m.insertErrs = m.insertErrs[1:]
		if err != nil {
			return err
		}
	}
	if _, ok := m.recs[rec.ID]; ok {
		return domain.E(domain.KindStorageConflict, "memrepo.insert", "", nil)
	}
	m.recs[rec.ID] = rec
	return nil
}

func (m *memRepo) ListByRecipient(_ context.Context, email string, after *domain.Cursor, limit int) ([]domain.HistoryRecord, error) {
	return m.list(func(r domain.HistoryRecord) bool { return r.Email == email }, after, limit)
}

func (m *memRepo) ListRecent(_ context.Context, recordType string, after *domain.Cursor, limit int) ([]domain.HistoryRecord, error) {
	return m.list(func(r domain.HistoryRecord) bool { return r.RecordType == recordType }, after, limit)
}

func (m *memRepo) list(match func(domain.HistoryRecord) bool, after *domain.Cursor, limit int) ([]domain.HistoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []domain.HistoryRecord
	for _, r := range m.recs {
		if !match(r) {
			continue
		}
		if after != nil && !before(r, after.CreatedAt, after.ID) {
			continue
		}
		out = append(out, r)
	}
	sortNewestFirst(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memRepo) Inserts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.inserts...)
}

func before(r domain.HistoryRecord, ts time.Time, id string) bool {
	return r.CreatedAt.Before(ts) || (r.CreatedAt.Equal(ts) && r.ID < id)
}

func sortNewestFirst(recs []domain.HistoryRecord) {
	sort.Slice(recs, func(i, j int) bool {
		return before(recs[j], recs[i].CreatedAt, recs[i].ID)
	})
}

type fakeNotifier struct {
	mu    sync.Mutex
	id    string
	err   error
	sent  []string
	quote domain.PriceQuote
}

func (n *fakeNotifier) Notify(_ context.Context, email string, q domain.PriceQuote, _ time.Time) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, email)
	n.quote = q
	if n.err != nil {
		return "", n.err
	}
	return n.id, nil
}
