package shortlink

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/linklytics/linklytics/internal/cache"
	"github.com/linklytics/linklytics/internal/errx"
)

/***************
 * Mocks
 ***************/

// mockLinkStore implements LinkStore interface for testing.
type mockLinkStore struct {
	createFunc      func(ctx context.Context, link ShortLink) (ShortLink, error)
	getByAliasFunc  func(ctx context.Context, alias string) (ShortLink, error)
	listByTopicFunc func(ctx context.Context, topic string) ([]ShortLink, error)
	listByOwnerFunc func(ctx context.Context, ownerID string) ([]ShortLink, error)
	createCalls     int
}

func (m *mockLinkStore) Create(ctx context.Context, link ShortLink) (ShortLink, error) {
	m.createCalls++
	if m.createFunc != nil {
		return m.createFunc(ctx, link)
	}
	link.ID = uuid.New()
	link.CreatedAt = time.Now()
	return link, nil
}

func (m *mockLinkStore) GetByAlias(ctx context.Context, alias string) (ShortLink, error) {
	if m.getByAliasFunc != nil {
		return m.getByAliasFunc(ctx, alias)
	}
	return ShortLink{}, errx.E("store.GetByAlias", errx.NotFound, errors.New("not found"))
}

func (m *mockLinkStore) ListByTopic(ctx context.Context, topic string) ([]ShortLink, error) {
	if m.listByTopicFunc != nil {
		return m.listByTopicFunc(ctx, topic)
	}
	return nil, nil
}

func (m *mockLinkStore) ListByOwner(ctx context.Context, ownerID string) ([]ShortLink, error) {
	if m.listByOwnerFunc != nil {
		return m.listByOwnerFunc(ctx, ownerID)
	}
	return nil, nil
}

// mockAliasGenerator implements AliasGenerator for testing.
type mockAliasGenerator struct {
	generateFunc func(length int) (string, error)
	aliases      []string
	callCount    int
}

func (m *mockAliasGenerator) Generate(length int) (string, error) {
	m.callCount++

	if m.generateFunc != nil {
		return m.generateFunc(length)
	}
	if m.aliases != nil {
		idx := m.callCount - 1
		if idx >= 0 && idx < len(m.aliases) {
			return m.aliases[idx], nil
		}
	}
	return "abc1234", nil
}

func conflictErr(op string) error {
	return errx.E(op, errx.Conflict, errors.New("duplicate alias"))
}

/***************
 * Allocate Tests
 ***************/

func TestAllocate_GeneratedAlias(t *testing.T) {
	ctx := context.Background()

	t.Run("creates link with generated alias", func(t *testing.T) {
		store := &mockLinkStore{}
		gen := &mockAliasGenerator{aliases: []string{"gen1234"}}
		allocator := NewAllocator(store, nil, &AllocatorConfig{AliasGenerator: gen})

		link, err := allocator.Allocate(ctx, CreateLinkRequest{
			LongURL: "https://example.com/page",
			Topic:   "launch",
			OwnerID: "user-1",
		})
		if err != nil {
			t.Fatalf("Allocate() error = %v", err)
		}
		if link.Alias != "gen1234" {
			t.Errorf("alias = %q, want %q", link.Alias, "gen1234")
		}
		if link.IsCustomAlias {
			t.Error("IsCustomAlias = true, want false")
		}
		if link.Topic != "launch" || link.OwnerID != "user-1" {
			t.Errorf("link = %+v, want topic/owner preserved", link)
		}
	})

	t.Run("retries on conflict until insert succeeds", func(t *testing.T) {
		store := &mockLinkStore{
			createFunc: func(_ context.Context, link ShortLink) (ShortLink, error) {
				if link.Alias != "third77" {
					return ShortLink{}, conflictErr("store.Create")
				}
				link.ID = uuid.New()
				link.CreatedAt = time.Now()
				return link, nil
			},
		}
		gen := &mockAliasGenerator{aliases: []string{"first11", "second2", "third77"}}
		allocator := NewAllocator(store, nil, &AllocatorConfig{AliasGenerator: gen})

		link, err := allocator.Allocate(ctx, CreateLinkRequest{
			LongURL: "https://example.com",
			OwnerID: "user-1",
		})
		if err != nil {
			t.Fatalf("Allocate() error = %v", err)
		}
		if link.Alias != "third77" {
			t.Errorf("alias = %q, want %q", link.Alias, "third77")
		}
		if gen.callCount != 3 {
			t.Errorf("generator called %d times, want 3", gen.callCount)
		}
	})

	t.Run("fails with ResourceExhausted when attempts run out", func(t *testing.T) {
		store := &mockLinkStore{
			createFunc: func(_ context.Context, _ ShortLink) (ShortLink, error) {
				return ShortLink{}, conflictErr("store.Create")
			},
		}
		allocator := NewAllocator(store, nil, &AllocatorConfig{
			AliasGenerator: &mockAliasGenerator{},
			MaxAttempts:    3,
		})

		_, err := allocator.Allocate(ctx, CreateLinkRequest{
			LongURL: "https://example.com",
			OwnerID: "user-1",
		})
		if errx.KindOf(err) != errx.ResourceExhausted {
			t.Fatalf("error kind = %v, want ResourceExhausted (err: %v)", errx.KindOf(err), err)
		}
		if store.createCalls != 3 {
			t.Errorf("store.Create called %d times, want 3", store.createCalls)
		}
	})

	t.Run("non-conflict store error fails immediately", func(t *testing.T) {
		store := &mockLinkStore{
			createFunc: func(_ context.Context, _ ShortLink) (ShortLink, error) {
				return ShortLink{}, errx.E("store.Create", errx.Unavailable, errors.New("connection refused"))
			},
		}
		allocator := NewAllocator(store, nil, &AllocatorConfig{AliasGenerator: &mockAliasGenerator{}})

		_, err := allocator.Allocate(ctx, CreateLinkRequest{
			LongURL: "https://example.com",
			OwnerID: "user-1",
		})
		if errx.KindOf(err) != errx.Unavailable {
			t.Fatalf("error kind = %v, want Unavailable", errx.KindOf(err))
		}
		if store.createCalls != 1 {
			t.Errorf("store.Create called %d times, want 1", store.createCalls)
		}
	})
}

func TestAllocate_CustomAlias(t *testing.T) {
	ctx := context.Background()

	t.Run("reserves available custom alias", func(t *testing.T) {
		store := &mockLinkStore{}
		allocator := NewAllocator(store, nil, nil)

		link, err := allocator.Allocate(ctx, CreateLinkRequest{
			LongURL:     "https://example.com",
			CustomAlias: "my-link",
			OwnerID:     "user-1",
		})
		if err != nil {
			t.Fatalf("Allocate() error = %v", err)
		}
		if link.Alias != "my-link" {
			t.Errorf("alias = %q, want %q", link.Alias, "my-link")
		}
		if !link.IsCustomAlias {
			t.Error("IsCustomAlias = false, want true")
		}
	})

	t.Run("conflict when alias already exists", func(t *testing.T) {
		store := &mockLinkStore{
			getByAliasFunc: func(_ context.Context, alias string) (ShortLink, error) {
				return ShortLink{Alias: alias}, nil
			},
		}
		allocator := NewAllocator(store, nil, nil)

		_, err := allocator.Allocate(ctx, CreateLinkRequest{
			LongURL:     "https://example.com",
			CustomAlias: "taken",
			OwnerID:     "user-1",
		})
		if errx.KindOf(err) != errx.Conflict {
			t.Fatalf("error kind = %v, want Conflict", errx.KindOf(err))
		}
		if store.createCalls != 0 {
			t.Errorf("store.Create called %d times, want 0", store.createCalls)
		}
	})

	t.Run("conflict when a concurrent writer wins the race", func(t *testing.T) {
		// Pre-check misses, but the insert itself hits the unique constraint.
		store := &mockLinkStore{
			createFunc: func(_ context.Context, _ ShortLink) (ShortLink, error) {
				return ShortLink{}, conflictErr("store.Create")
			},
		}
		allocator := NewAllocator(store, nil, nil)

		_, err := allocator.Allocate(ctx, CreateLinkRequest{
			LongURL:     "https://example.com",
			CustomAlias: "racer",
			OwnerID:     "user-1",
		})
		if errx.KindOf(err) != errx.Conflict {
			t.Fatalf("error kind = %v, want Conflict", errx.KindOf(err))
		}
	})

	t.Run("no retry budget for custom aliases", func(t *testing.T) {
		store := &mockLinkStore{
			createFunc: func(_ context.Context, _ ShortLink) (ShortLink, error) {
				return ShortLink{}, conflictErr("store.Create")
			},
		}
		allocator := NewAllocator(store, nil, &AllocatorConfig{MaxAttempts: 5})

		_, _ = allocator.Allocate(ctx, CreateLinkRequest{
			LongURL:     "https://example.com",
			CustomAlias: "one-shot",
			OwnerID:     "user-1",
		})
		if store.createCalls != 1 {
			t.Errorf("store.Create called %d times, want 1", store.createCalls)
		}
	})
}

func TestAllocate_Validation(t *testing.T) {
	ctx := context.Background()
	allocator := NewAllocator(&mockLinkStore{}, nil, nil)

	tests := []struct {
		name    string
		req     CreateLinkRequest
		wantMsg string
	}{
		{
			name:    "missing long URL",
			req:     CreateLinkRequest{OwnerID: "user-1"},
			wantMsg: "longUrl is required",
		},
		{
			name:    "unsupported scheme",
			req:     CreateLinkRequest{LongURL: "ftp://example.com", OwnerID: "user-1"},
			wantMsg: "scheme",
		},
		{
			name:    "missing host",
			req:     CreateLinkRequest{LongURL: "https://", OwnerID: "user-1"},
			wantMsg: "host",
		},
		{
			name:    "url too long",
			req:     CreateLinkRequest{LongURL: "https://example.com/" + strings.Repeat("a", MaxURLLength), OwnerID: "user-1"},
			wantMsg: "too long",
		},
		{
			name:    "missing owner",
			req:     CreateLinkRequest{LongURL: "https://example.com"},
			wantMsg: "owner",
		},
		{
			name:    "custom alias too short",
			req:     CreateLinkRequest{LongURL: "https://example.com", CustomAlias: "ab", OwnerID: "user-1"},
			wantMsg: "too short",
		},
		{
			name:    "custom alias with invalid characters",
			req:     CreateLinkRequest{LongURL: "https://example.com", CustomAlias: "has space", OwnerID: "user-1"},
			wantMsg: "invalid characters",
		},
		{
			name:    "custom alias with leading dash",
			req:     CreateLinkRequest{LongURL: "https://example.com", CustomAlias: "-lead", OwnerID: "user-1"},
			wantMsg: "start or end",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := allocator.Allocate(ctx, tt.req)
			if errx.KindOf(err) != errx.Invalid {
				t.Fatalf("error kind = %v, want Invalid (err: %v)", errx.KindOf(err), err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestAllocate_InvalidatesAnalyticsCache(t *testing.T) {
	ctx := context.Background()

	mem := cache.NewMemory()
	_ = mem.Set(ctx, cache.OwnerAnalyticsKey("user-1"), "{}", 0)
	_ = mem.Set(ctx, cache.TopicAnalyticsKey("launch"), "{}", 0)
	_ = mem.Set(ctx, cache.AliasAnalyticsKey("other"), "{}", 0)

	allocator := NewAllocator(&mockLinkStore{}, cache.NewInvalidator(mem, nil), nil)

	_, err := allocator.Allocate(ctx, CreateLinkRequest{
		LongURL: "https://example.com",
		Topic:   "launch",
		OwnerID: "user-1",
	})
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}

	if _, err := mem.Get(ctx, cache.OwnerAnalyticsKey("user-1")); !errors.Is(err, cache.ErrMiss) {
		t.Error("owner rollup still cached after link creation")
	}
	if _, err := mem.Get(ctx, cache.TopicAnalyticsKey("launch")); !errors.Is(err, cache.ErrMiss) {
		t.Error("topic rollup still cached after link creation")
	}
	if _, err := mem.Get(ctx, cache.AliasAnalyticsKey("other")); err != nil {
		t.Error("unrelated alias rollup was evicted")
	}
}

func TestAllocate_FailedAllocationDoesNotInvalidate(t *testing.T) {
	ctx := context.Background()

	mem := cache.NewMemory()
	_ = mem.Set(ctx, cache.OwnerAnalyticsKey("user-1"), "{}", 0)

	store := &mockLinkStore{
		createFunc: func(_ context.Context, _ ShortLink) (ShortLink, error) {
			return ShortLink{}, errx.E("store.Create", errx.Unavailable, errors.New("down"))
		},
	}
	allocator := NewAllocator(store, cache.NewInvalidator(mem, nil), nil)

	_, err := allocator.Allocate(ctx, CreateLinkRequest{
		LongURL: "https://example.com",
		OwnerID: "user-1",
	})
	if err == nil {
		t.Fatal("Allocate() succeeded, want error")
	}

	if _, err := mem.Get(ctx, cache.OwnerAnalyticsKey("user-1")); err != nil {
		t.Error("owner rollup evicted even though allocation failed")
	}
}
