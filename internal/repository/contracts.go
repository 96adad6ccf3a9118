package repository

import (
	"context"

	"github.com/maxviazov/care-events-dashboard/internal/model"
)

// Pinger represents a minimal readiness probe capability.
// I use it to decouple health checks from storage implementation details.
type Pinger interface {
	Ping(ctx context.Context) error
}

// TxFunc is the unit of work executed within a transaction boundary.
// I pass context through so nested calls can honor cancellations and deadlines.
type TxFunc func(ctx context.Context) error

// TxManager abstracts transactional execution for repositories that support it.
// I prefer a single entry point to keep transaction boundaries explicit and testable.
type TxManager interface {
	WithinTx(ctx context.Context, fn TxFunc) error
}

// EventRepository declares persistence operations for care events.
// Listing is ordered by timestamp descending, then id ascending, and reports the total.
type EventRepository interface {
	// Save stores a new event; an existing id yields ErrAlreadyExists.
	Save(ctx context.Context, e model.Event) (model.Event, error)
	GetByID(ctx context.Context, id string) (model.Event, error)
	List(ctx context.Context, p Page) (PageResult[model.Event], error)
}
