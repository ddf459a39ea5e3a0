package shortlink

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/linklytics/linklytics/internal/cache"
	"github.com/linklytics/linklytics/internal/errx"
)

const (
	DefaultAliasLength      = 7
	MinAliasLength          = 3
	MaxAliasLength          = 64
	MaxURLLength            = 2048
	DefaultAllocateAttempts = 5
)

// CreateLinkRequest represents the parameters for creating a new link.
type CreateLinkRequest struct {
	LongURL     string
	CustomAlias string // Optional: if empty, an alias will be generated
	Topic       string // Optional grouping
	OwnerID     string
}

// Allocator hands out aliases: it validates and reserves caller-supplied
// custom aliases, or generates random ones with a bounded retry budget.
// The store's uniqueness constraint is the final arbiter in both paths; a
// write-time violation surfaces as the same Conflict as a pre-check hit.
type Allocator struct {
	store       LinkStore
	aliases     AliasGenerator
	invalidator *cache.Invalidator
	aliasLength int
	maxAttempts int
}

// AllocatorConfig holds configuration for the Allocator.
type AllocatorConfig struct {
	AliasGenerator AliasGenerator
	AliasLength    int
	MaxAttempts    int // attempts when generating a unique alias (default: 5)
}

// NewAllocator creates an Allocator. The invalidator may be nil, in which
// case analytics cache entries are left to expire on their own TTL.
func NewAllocator(store LinkStore, invalidator *cache.Invalidator, config *AllocatorConfig) *Allocator {
	if config == nil {
		config = &AllocatorConfig{}
	}

	gen := config.AliasGenerator
	if gen == nil {
		gen = NewBase62Generator()
	}

	length := config.AliasLength
	if length < MinAliasLength || length > MaxAliasLength {
		length = DefaultAliasLength
	}

	attempts := config.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultAllocateAttempts
	}

	return &Allocator{
		store:       store,
		aliases:     gen,
		invalidator: invalidator,
		aliasLength: length,
		maxAttempts: attempts,
	}
}

// Allocate creates a new short link. On success the durable write has
// completed and the owner/topic analytics rollups have been invalidated
// (best-effort) before the record is returned.
func (a *Allocator) Allocate(ctx context.Context, req CreateLinkRequest) (ShortLink, error) {
	const op = "shortlink.Allocator.Allocate"

	if err := validateURL(req.LongURL); err != nil {
		return ShortLink{}, errx.E(op, errx.Invalid, err)
	}
	if req.OwnerID == "" {
		return ShortLink{}, errx.E(op, errx.Invalid, errors.New("owner id cannot be empty"))
	}

	var created ShortLink
	var err error
	if req.CustomAlias != "" {
		created, err = a.allocateCustom(ctx, req)
	} else {
		created, err = a.allocateGenerated(ctx, req)
	}
	if err != nil {
		return ShortLink{}, err
	}

	if a.invalidator != nil {
		a.invalidator.LinkCreated(ctx, created.OwnerID, created.Topic)
	}
	return created, nil
}

// allocateCustom reserves a caller-supplied alias. The existence pre-check
// is a fast path; a concurrent caller can still win the race, so a
// write-time unique violation maps to the same Conflict.
func (a *Allocator) allocateCustom(ctx context.Context, req CreateLinkRequest) (ShortLink, error) {
	const op = "shortlink.Allocator.allocateCustom"

	if err := validateAlias(req.CustomAlias); err != nil {
		return ShortLink{}, errx.E(op, errx.Invalid, err)
	}

	_, err := a.store.GetByAlias(ctx, req.CustomAlias)
	if err == nil {
		return ShortLink{}, errx.E(op, errx.Conflict, errors.New("alias taken"))
	}
	if errx.KindOf(err) != errx.NotFound {
		return ShortLink{}, errx.E(op, errx.KindOf(err), err)
	}

	created, err := a.store.Create(ctx, ShortLink{
		LongURL:       req.LongURL,
		Alias:         req.CustomAlias,
		IsCustomAlias: true,
		Topic:         req.Topic,
		OwnerID:       req.OwnerID,
	})
	if err != nil {
		return ShortLink{}, errx.E(op, errx.KindOf(err), err)
	}
	return created, nil
}

// allocateGenerated picks random aliases until an insert succeeds or the
// attempt budget runs out. Exhaustion means the alias space is saturated
// or the store is misbehaving, so it surfaces as ResourceExhausted.
func (a *Allocator) allocateGenerated(ctx context.Context, req CreateLinkRequest) (ShortLink, error) {
	const op = "shortlink.Allocator.allocateGenerated"

	for range a.maxAttempts {
		alias, err := a.aliases.Generate(a.aliasLength)
		if err != nil {
			return ShortLink{}, errx.E(op, errx.Unavailable, err)
		}

		created, err := a.store.Create(ctx, ShortLink{
			LongURL: req.LongURL,
			Alias:   alias,
			Topic:   req.Topic,
			OwnerID: req.OwnerID,
		})
		if err == nil {
			return created, nil
		}

		// Retry on conflict, fail on other errors
		if errx.KindOf(err) != errx.Conflict {
			return ShortLink{}, errx.E(op, errx.KindOf(err), err)
		}
	}

	return ShortLink{}, errx.E(op, errx.ResourceExhausted,
		errors.New("could not allocate unique alias after retries"))
}

func validateURL(rawURL string) error {
	if rawURL == "" {
		return errors.New("longUrl is required")
	}
	if len(rawURL) > MaxURLLength {
		return errors.New("url too long (max 2048 characters)")
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return errors.New("url scheme must be http or https")
	}
	if parsedURL.Host == "" {
		return errors.New("url must include host")
	}
	return nil
}

func validateAlias(alias string) error {
	if alias == "" {
		return errors.New("alias cannot be empty")
	}
	if len(alias) < MinAliasLength {
		return errors.New("alias too short (minimum 3 characters)")
	}
	if len(alias) > MaxAliasLength {
		return errors.New("alias too long (maximum 64 characters)")
	}

	if strings.HasPrefix(alias, "-") || strings.HasPrefix(alias, "_") ||
		strings.HasSuffix(alias, "-") || strings.HasSuffix(alias, "_") {
		return errors.New("alias cannot start or end with dash or underscore")
	}

	for _, char := range alias {
		if !isValidAliasChar(char) {
			return errors.New("alias contains invalid characters (only alphanumeric, dash, and underscore allowed)")
		}
	}
	return nil
}

func isValidAliasChar(c rune) bool {
	switch {
	case c >= 'a' && c <= 'z':
		return true
	case c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return true
	case c == '-' || c == '_':
		return true
	default:
		return false
	}
}
