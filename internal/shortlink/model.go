package shortlink

import (
	"time"

	"github.com/google/uuid"
)

// ShortLink maps an alias to its target URL. Records are immutable after
// creation; the alias is globally unique and case-sensitive across both
// generated and custom aliases.
type ShortLink struct {
	ID            uuid.UUID
	LongURL       string
	Alias         string
	IsCustomAlias bool
	Topic         string
	OwnerID       string
	CreatedAt     time.Time
}
