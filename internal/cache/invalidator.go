package cache

import (
	"context"
	"log/slog"
)

// Invalidator evicts analytics cache entries that a write has made stale.
// Eviction is best-effort: a failure widens the staleness window to the
// entry's TTL but never fails the write that triggered it.
type Invalidator struct {
	client Client
	logger *slog.Logger
}

// NewInvalidator creates an Invalidator.
func NewInvalidator(client Client, logger *slog.Logger) *Invalidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Invalidator{client: client, logger: logger}
}

// LinkCreated evicts the owner-scope and topic-scope rollups after a new
// alias joins that owner/topic, so aggregate views pick up the new member
// without waiting out the TTL. Alias-scope entries are left to expire.
func (i *Invalidator) LinkCreated(ctx context.Context, ownerID, topic string) {
	keys := []string{OwnerAnalyticsKey(ownerID)}
	if topic != "" {
		keys = append(keys, TopicAnalyticsKey(topic))
	}

	if err := i.client.Del(ctx, keys...); err != nil {
		i.logger.WarnContext(ctx, "analytics cache invalidation failed",
			"owner_id", ownerID,
			"topic", topic,
			"error", err.Error(),
		)
	}
}
