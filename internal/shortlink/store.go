package shortlink

import "context"

// LinkStore is the durable record of alias → target URL mappings. The
// store-level uniqueness constraint on the alias is the final arbiter of
// alias uniqueness; application-level checks are a fast path only.
type LinkStore interface {
	Create(ctx context.Context, link ShortLink) (ShortLink, error)
	GetByAlias(ctx context.Context, alias string) (ShortLink, error)
	ListByTopic(ctx context.Context, topic string) ([]ShortLink, error)
	ListByOwner(ctx context.Context, ownerID string) ([]ShortLink, error)
}
