// Package polymarket discovers the tradable sports events on Polymarket and
// keeps the live price feed subscribed to their tokens.
package polymarket

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/daszybak/fastbet/internal/platform"
	"github.com/daszybak/fastbet/internal/polymarket/gamma"
	"github.com/daszybak/fastbet/pkg/hashset"
)

var _ platform.Platform = (*Polymarket)(nil)

const (
	platformName = "polymarket"

	DefaultSyncInterval     = 30 * time.Second
	DefaultCacheTTL         = 5 * time.Second
	DefaultFetchConcurrency = 12

	// esportsTagID is the Gamma tag carried by every esports event.
	esportsTagID   = "64"
	esportsTagSlug = "esports"
	// moreMarketsSuffix names the child event holding an event's extra markets.
	moreMarketsSuffix = "-more-markets"
)

// DefaultEsportsCodes are the /sports codes that are not traditional sports.
var DefaultEsportsCodes = []string{
	"dota2", "lol", "val", "cs2", "mlbb", "ow", "codmw", "fifa",
	"pubg", "r6siege", "rl", "hok", "wildrift", "sc2", "sc",
}

// DefaultFallbackTagIDs cover football, basketball, hockey and tennis when
// the sports metadata cannot be read.
var DefaultFallbackTagIDs = []int{
	82, 306, 780, 450, 100351, 1494, 100350, 100100, 100639, 100977, 1234,
	745, 100254, 100149, 28, 101178,
	899, 100088,
	864, 101232, 102123,
}

type Config struct {
	SyncInterval     time.Duration
	CacheTTL         time.Duration
	LiveOnly         bool
	EsportsCodes     []string
	FallbackTagIDs   []int
	FetchConcurrency int
}

// EventSource is the part of the Gamma API discovery reads.
type EventSource interface {
	Sports(ctx context.Context) ([]gamma.Sport, error)
	EventsByTag(ctx context.Context, tagID int) ([]*gamma.Event, error)
	EventsBySlug(ctx context.Context, slug string) ([]*gamma.Event, error)
}

// Subscriber receives the token IDs worth streaming, most liquid first.
type Subscriber interface {
	EnsureSubscribed(tokenIDs []string) bool
}

type Polymarket struct {
	config  Config
	gamma   EventSource
	cache   Cache
	feed    Subscriber
	esports hashset.Set[string]
	log     *slog.Logger

	tagsMu sync.Mutex
	tagIDs []int

	// refreshMu lets one caller refresh while the others wait for its result.
	refreshMu sync.Mutex

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates the discovery adapter. Call Start to keep it refreshing in the
// background; Events also works without it.
func New(cfg Config, src EventSource, cache Cache, feed Subscriber, log *slog.Logger) *Polymarket {
	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = DefaultSyncInterval
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.EsportsCodes == nil {
		cfg.EsportsCodes = DefaultEsportsCodes
	}
	if len(cfg.FallbackTagIDs) == 0 {
		cfg.FallbackTagIDs = DefaultFallbackTagIDs
	}
	if cfg.FetchConcurrency <= 0 {
		cfg.FetchConcurrency = DefaultFetchConcurrency
	}
	if cache == nil {
		cache = NewMemoryCache()
	}

	esports := hashset.NewSet[string]()
	for _, c := range cfg.EsportsCodes {
		esports.Set(strings.ToLower(c))
	}

	return &Polymarket{
		config:  cfg,
		gamma:   src,
		cache:   cache,
		feed:    feed,
		esports: esports,
		log:     log.With("component", platformName),
	}
}

// Start refreshes the event list now and then every sync interval until Stop.
func (p *Polymarket) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.done != nil {
		return fmt.Errorf("%s already started", platformName)
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})

	p.log.Info("starting", "sync_interval", p.config.SyncInterval)
	go p.syncLoop(ctx, p.done)
	return nil
}

// Stop ends the refresh loop and waits for it.
func (p *Polymarket) Stop(ctx context.Context) error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	if done == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop %s: %w", platformName, ctx.Err())
	}
}

func (p *Polymarket) syncLoop(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	if _, err := p.Refresh(ctx); err != nil {
		p.log.Error("initial event sync", "error", err)
	}

	ticker := time.NewTicker(p.config.SyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := p.Refresh(ctx); err != nil {
				p.log.Error("syncing events", "error", err)
			}
		case <-ctx.Done():
			p.log.Info("event sync stopped", "reason", ctx.Err())
			return
		}
	}
}

// Events returns the ranked sports events, from cache when it is fresh.
func (p *Polymarket) Events(ctx context.Context) ([]*gamma.Event, error) {
	if events, ok := p.cached(ctx); ok {
		return events, nil
	}

	p.refreshMu.Lock()
	defer p.refreshMu.Unlock()

	// Someone else may have refreshed while we waited.
	if events, ok := p.cached(ctx); ok {
		return events, nil
	}
	return p.refreshLocked(ctx)
}

// Refresh fetches the event list regardless of the cache.
func (p *Polymarket) Refresh(ctx context.Context) ([]*gamma.Event, error) {
	p.refreshMu.Lock()
	defer p.refreshMu.Unlock()

	return p.refreshLocked(ctx)
}

func (p *Polymarket) cached(ctx context.Context) ([]*gamma.Event, bool) {
	events, ok, err := p.cache.Get(ctx)
	if err != nil {
		p.log.Warn("read event cache", "error", err)
		return nil, false
	}
	return events, ok
}

func (p *Polymarket) refreshLocked(ctx context.Context) ([]*gamma.Event, error) {
	start := time.Now()
	tagIDs := p.sportTagIDs(ctx)

	batches := make([][]*gamma.Event, len(tagIDs))
	g := errgroup.Group{}
	g.SetLimit(p.config.FetchConcurrency)
	for i, tagID := range tagIDs {
		g.Go(func() error {
			events, err := p.gamma.EventsByTag(ctx, tagID)
			if err != nil {
				p.log.Warn("fetch events for tag", "tag_id", tagID, "error", err)
				return nil
			}
			batches[i] = events
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("refresh events: %w", err)
	}

	events := p.filter(slices.Concat(batches...))
	slices.SortStableFunc(events, func(a, b *gamma.Event) int {
		return cmp.Compare(b.Rank(), a.Rank())
	})

	if err := p.cache.Set(ctx, events, p.config.CacheTTL); err != nil {
		p.log.Warn("write event cache", "error", err)
	}

	var tokenIDs []string
	for _, ev := range events {
		tokenIDs = append(tokenIDs, ev.TokenIDs()...)
	}
	if len(tokenIDs) > 0 && p.feed != nil {
		p.feed.EnsureSubscribed(tokenIDs)
	}

	p.log.Info("synced events", "tags", len(tagIDs), "events", len(events), "tokens", len(tokenIDs), "took", time.Since(start))
	return events, nil
}

// filter drops duplicates, esports events and, when configured, events
// that are not in play.
func (p *Polymarket) filter(events []*gamma.Event) []*gamma.Event {
	seen := hashset.NewSet[string]()
	out := make([]*gamma.Event, 0, len(events))
	for _, ev := range events {
		if ev == nil {
			continue
		}
		key := ev.Key()
		if key == "" || seen.Has(key) {
			continue
		}
		if p.isEsports(ev) {
			continue
		}
		if p.config.LiveOnly && !ev.Live {
			continue
		}
		seen.Set(key)
		out = append(out, ev)
	}
	return out
}

func (p *Polymarket) isEsports(ev *gamma.Event) bool {
	for _, t := range ev.Tags {
		if string(t.ID) == esportsTagID || strings.EqualFold(t.Slug, esportsTagSlug) {
			return true
		}
	}
	for _, team := range ev.Teams {
		if p.esports.Has(strings.ToLower(team.League)) {
			return true
		}
	}
	return false
}

// sportTagIDs resolves the tags of all non-esports sports once. Until that
// succeeds the configured fallback tags are used.
func (p *Polymarket) sportTagIDs(ctx context.Context) []int {
	p.tagsMu.Lock()
	defer p.tagsMu.Unlock()

	if p.tagIDs != nil {
		return p.tagIDs
	}

	sports, err := p.gamma.Sports(ctx)
	if err != nil {
		p.log.Warn("fetch sports metadata, using fallback tags", "error", err)
		return p.config.FallbackTagIDs
	}

	seen := hashset.NewSet[int]()
	var ids []int
	for _, s := range sports {
		if p.esports.Has(strings.ToLower(s.Sport)) {
			continue
		}
		for _, id := range s.TagIDs() {
			if seen.Add(id) {
				ids = append(ids, id)
			}
		}
	}
	if len(ids) == 0 {
		ids = p.config.FallbackTagIDs
	}

	p.tagIDs = ids
	p.log.Info("resolved sport tags", "sports", len(sports), "tags", len(ids))
	return ids
}

// Event fetches the event with slug together with its extra markets child
// and subscribes the feed to their tokens. A lookup that fails is logged
// and treated as empty.
func (p *Polymarket) Event(ctx context.Context, slug string) ([]*gamma.Event, error) {
	var events []*gamma.Event
	for _, s := range []string{slug, slug + moreMarketsSuffix} {
		batch, err := p.gamma.EventsBySlug(ctx, s)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("fetch event %s: %w", slug, ctx.Err())
			}
			p.log.Warn("fetch event by slug", "slug", s, "error", err)
			continue
		}
		events = append(events, batch...)
	}

	var tokenIDs []string
	for _, ev := range events {
		tokenIDs = append(tokenIDs, ev.TokenIDs()...)
	}
	if len(tokenIDs) > 0 && p.feed != nil {
		p.feed.EnsureSubscribed(tokenIDs)
	}
	return events, nil
}
