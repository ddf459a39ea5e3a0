package shortlink

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linklytics/linklytics/internal/errx"
)

// pgStore implements LinkStore on PostgreSQL.
type pgStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a LinkStore backed by the given pool.
func NewPGStore(pool *pgxpool.Pool) LinkStore {
	return &pgStore{pool: pool}
}

func isAliasUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" &&
		pgErr.ConstraintName == "short_links_alias_unique"
}

func mapStoreError(op string, err error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return errx.E(op, errx.NotFound, err)

	case isAliasUniqueViolation(err):
		return errx.E(op, errx.Conflict, err)

	default:
		return errx.E(op, errx.Unavailable, err)
	}
}

func (s *pgStore) Create(ctx context.Context, link ShortLink) (ShortLink, error) {
	const op = "shortlink.pgStore.Create"

	if link.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return ShortLink{}, errx.E(op, errx.Unavailable, err)
		}
		link.ID = id
	}

	q := `
		INSERT INTO short_links (id, long_url, alias, is_custom_alias, topic, owner_id)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
		RETURNING created_at
	`
	err := s.pool.QueryRow(ctx, q,
		link.ID, link.LongURL, link.Alias, link.IsCustomAlias, link.Topic, link.OwnerID,
	).Scan(&link.CreatedAt)
	if err != nil {
		return ShortLink{}, mapStoreError(op, err)
	}

	return link, nil
}

func (s *pgStore) GetByAlias(ctx context.Context, alias string) (ShortLink, error) {
	const op = "shortlink.pgStore.GetByAlias"

	q := `
		SELECT id, long_url, alias, is_custom_alias, COALESCE(topic, ''), owner_id, created_at
		FROM short_links
		WHERE alias = $1
	`
	var link ShortLink
	err := s.pool.QueryRow(ctx, q, alias).Scan(
		&link.ID, &link.LongURL, &link.Alias, &link.IsCustomAlias,
		&link.Topic, &link.OwnerID, &link.CreatedAt,
	)
	if err != nil {
		return ShortLink{}, mapStoreError(op, err)
	}
	return link, nil
}

func (s *pgStore) ListByTopic(ctx context.Context, topic string) ([]ShortLink, error) {
	const op = "shortlink.pgStore.ListByTopic"

	q := `
		SELECT id, long_url, alias, is_custom_alias, COALESCE(topic, ''), owner_id, created_at
		FROM short_links
		WHERE topic = $1
		ORDER BY created_at
	`
	return s.list(ctx, op, q, topic)
}

func (s *pgStore) ListByOwner(ctx context.Context, ownerID string) ([]ShortLink, error) {
	const op = "shortlink.pgStore.ListByOwner"

	q := `
		SELECT id, long_url, alias, is_custom_alias, COALESCE(topic, ''), owner_id, created_at
		FROM short_links
		WHERE owner_id = $1
		ORDER BY created_at
	`
	return s.list(ctx, op, q, ownerID)
}

func (s *pgStore) list(ctx context.Context, op, q string, arg any) ([]ShortLink, error) {
	rows, err := s.pool.Query(ctx, q, arg)
	if err != nil {
		return nil, mapStoreError(op, err)
	}
	defer rows.Close()

	var links []ShortLink
	for rows.Next() {
		var link ShortLink
		if err := rows.Scan(
			&link.ID, &link.LongURL, &link.Alias, &link.IsCustomAlias,
			&link.Topic, &link.OwnerID, &link.CreatedAt,
		); err != nil {
			return nil, mapStoreError(op, err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, mapStoreError(op, err)
	}
	return links, nil
}
