package click

import "context"

// Store is the append-only durable record of click events. Events are
// written once by the Recorder and read in bulk by analytics aggregation.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByAliases(ctx context.Context, aliases []string) ([]Event, error)
}
