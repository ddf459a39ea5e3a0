package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/linklytics/linklytics/internal/cache"
	"github.com/linklytics/linklytics/internal/click"
	"github.com/linklytics/linklytics/internal/errx"
	"github.com/linklytics/linklytics/internal/shortlink"
)

// ClickSource loads click events for a set of aliases.
type ClickSource interface {
	ListByAliases(ctx context.Context, aliases []string) ([]click.Event, error)
}

// Aggregator computes scoped rollups with a cache-aside read path. A
// cache hit returns the cached serialization unchanged; on a miss the
// scope is resolved to its alias set, events are loaded, and the computed
// rollup is cached with a short TTL. Concurrent misses may recompute
// redundantly; aggregation is a pure read so no locking is needed.
type Aggregator struct {
	links   shortlink.LinkStore
	clicks  ClickSource
	cache   cache.Client
	logger  *slog.Logger
	baseURL string
	now     func() time.Time
}

// AggregatorConfig holds configuration for the Aggregator.
type AggregatorConfig struct {
	Links   shortlink.LinkStore
	Clicks  ClickSource
	Cache   cache.Client // nil disables rollup caching
	Logger  *slog.Logger
	BaseURL string // used for shortUrl fields in per-link breakdowns
}

// NewAggregator creates an Aggregator.
func NewAggregator(cfg AggregatorConfig) *Aggregator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Aggregator{
		links:   cfg.Links,
		clicks:  cfg.Clicks,
		cache:   cfg.Cache,
		logger:  logger,
		baseURL: cfg.BaseURL,
		now:     time.Now,
	}
}

// ForAlias returns the rollup for a single alias.
func (a *Aggregator) ForAlias(ctx context.Context, alias string) (json.RawMessage, error) {
	const op = "analytics.Aggregator.ForAlias"

	return a.cached(ctx, cache.AliasAnalyticsKey(alias), func() (any, error) {
		if _, err := a.links.GetByAlias(ctx, alias); err != nil {
			return nil, errx.E(op, errx.KindOf(err), err)
		}

		events, err := a.clicks.ListByAliases(ctx, []string{alias})
		if err != nil {
			return nil, errx.E(op, errx.KindOf(err), err)
		}

		return computeAliasRollup(events, a.now()), nil
	})
}

// ForTopic returns the rollup across all aliases sharing a topic. A topic
// with no links is NotFound, not an empty rollup.
func (a *Aggregator) ForTopic(ctx context.Context, topic string) (json.RawMessage, error) {
	const op = "analytics.Aggregator.ForTopic"

	return a.cached(ctx, cache.TopicAnalyticsKey(topic), func() (any, error) {
		links, err := a.links.ListByTopic(ctx, topic)
		if err != nil {
			return nil, errx.E(op, errx.KindOf(err), err)
		}
		if len(links) == 0 {
			return nil, errx.E(op, errx.NotFound, fmt.Errorf("no links for topic %q", topic))
		}

		events, err := a.clicks.ListByAliases(ctx, aliasesOf(links))
		if err != nil {
			return nil, errx.E(op, errx.KindOf(err), err)
		}

		return computeTopicRollup(links, events, a.baseURL, a.now()), nil
	})
}

// ForOwner returns the rollup across every alias the owner has created.
// An owner with no links is NotFound, not an empty rollup.
func (a *Aggregator) ForOwner(ctx context.Context, ownerID string) (json.RawMessage, error) {
	const op = "analytics.Aggregator.ForOwner"

	return a.cached(ctx, cache.OwnerAnalyticsKey(ownerID), func() (any, error) {
		links, err := a.links.ListByOwner(ctx, ownerID)
		if err != nil {
			return nil, errx.E(op, errx.KindOf(err), err)
		}
		if len(links) == 0 {
			return nil, errx.E(op, errx.NotFound, errors.New("no links for owner"))
		}

		events, err := a.clicks.ListByAliases(ctx, aliasesOf(links))
		if err != nil {
			return nil, errx.E(op, errx.KindOf(err), err)
		}

		return computeOwnerRollup(links, events, a.baseURL, a.now()), nil
	})
}

// cached runs the cache-aside protocol around a compute function. Cache
// failures degrade to recomputation; a failed cache write only means the
// next reader recomputes too.
func (a *Aggregator) cached(ctx context.Context, key string, compute func() (any, error)) (json.RawMessage, error) {
	if a.cache != nil {
		serialized, err := a.cache.Get(ctx, key)
		if err == nil {
			return json.RawMessage(serialized), nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			a.logger.WarnContext(ctx, "analytics cache read failed",
				"key", key,
				"error", err.Error(),
			)
		}
	}

	rollup, err := compute()
	if err != nil {
		return nil, err
	}

	serialized, err := json.Marshal(rollup)
	if err != nil {
		return nil, errx.E("analytics.Aggregator.cached", errx.Internal, err)
	}

	if a.cache != nil {
		if err := a.cache.Set(ctx, key, string(serialized), cache.AnalyticsTTL); err != nil {
			a.logger.WarnContext(ctx, "analytics cache write failed",
				"key", key,
				"error", err.Error(),
			)
		}
	}

	return serialized, nil
}

func aliasesOf(links []shortlink.ShortLink) []string {
	aliases := make([]string, len(links))
	for i, link := range links {
		aliases[i] = link.Alias
	}
	return aliases
}
