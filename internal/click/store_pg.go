package click

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linklytics/linklytics/internal/errx"
)

// pgStore implements Store on PostgreSQL.
type pgStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a Store backed by the given pool.
func NewPGStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

func (s *pgStore) Append(ctx context.Context, event Event) error {
	const op = "click.pgStore.Append"

	q := `
		INSERT INTO click_events
			(alias, client_address, user_agent_raw, os_type, device_type, country, city, recorded_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8)
	`
	_, err := s.pool.Exec(ctx, q,
		event.Alias, event.ClientAddress, event.UserAgentRaw,
		event.OSType, event.DeviceType, event.Country, event.City, event.Timestamp,
	)
	if err != nil {
		return errx.E(op, errx.Unavailable, err)
	}
	return nil
}

func (s *pgStore) ListByAliases(ctx context.Context, aliases []string) ([]Event, error) {
	const op = "click.pgStore.ListByAliases"

	if len(aliases) == 0 {
		return nil, nil
	}

	q := `
		SELECT alias, client_address, user_agent_raw, os_type, device_type,
		       COALESCE(country, ''), COALESCE(city, ''), recorded_at
		FROM click_events
		WHERE alias = ANY($1)
		ORDER BY recorded_at, alias
	`
	rows, err := s.pool.Query(ctx, q, aliases)
	if err != nil {
		return nil, errx.E(op, errx.Unavailable, err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(
			&e.Alias, &e.ClientAddress, &e.UserAgentRaw, &e.OSType, &e.DeviceType,
			&e.Country, &e.City, &e.Timestamp,
		); err != nil {
			return nil, errx.E(op, errx.Unavailable, err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errx.E(op, errx.Unavailable, err)
	}
	return events, nil
}
