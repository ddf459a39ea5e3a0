package shortlink

import (
	"context"
	"errors"
	"log/slog"

	"github.com/linklytics/linklytics/internal/cache"
	"github.com/linklytics/linklytics/internal/errx"
)

// Resolver resolves an alias to its target URL through a read-through
// cache. Targets are immutable after creation, so a cached entry can never
// diverge from the store; cache failures degrade to store reads.
type Resolver struct {
	store  LinkStore
	cache  cache.Client
	logger *slog.Logger
}

// NewResolver creates a Resolver. The cache may be nil, in which case
// every resolution goes to the store.
func NewResolver(store LinkStore, c cache.Client, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{store: store, cache: c, logger: logger}
}

// Resolve returns the target URL for an alias. Generated and custom
// aliases share one namespace and one lookup.
func (r *Resolver) Resolve(ctx context.Context, alias string) (string, error) {
	const op = "shortlink.Resolver.Resolve"

	if alias == "" {
		return "", errx.E(op, errx.Invalid, errors.New("alias cannot be empty"))
	}

	if r.cache != nil {
		target, err := r.cache.Get(ctx, cache.ResolutionKey(alias))
		if err == nil {
			return target, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			r.logger.WarnContext(ctx, "resolution cache read failed",
				"alias", alias,
				"error", err.Error(),
			)
		}
	}

	link, err := r.store.GetByAlias(ctx, alias)
	if err != nil {
		return "", errx.E(op, errx.KindOf(err), err)
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, cache.ResolutionKey(alias), link.LongURL, cache.ResolutionTTL); err != nil {
			r.logger.WarnContext(ctx, "resolution cache write failed",
				"alias", alias,
				"error", err.Error(),
			)
		}
	}

	return link.LongURL, nil
}
