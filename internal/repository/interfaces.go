package repository

import (
	"context"
	"errors"
	"time"

	"versus-be/internal/domain"
)

// ErrVersionConflict is returned when a compare-and-swap write loses the race
// against a concurrent mutation of the same test document.
var ErrVersionConflict = errors.New("test document version conflict")

// ListFilter narrows and pages test listings.
type ListFilter struct {
	CategoryID string
	IsActive   *bool
	Trend      *bool
	Popular    *bool
	SortBy     string // "created_at" or "total_votes"
	SortDesc   bool
	Page       int
	Limit      int
}

// TestRepository persists test documents. The whole document (options and
// vote sessions included) is one unit of consistency: every mutation goes
// through an atomic read-modify-write guarded by a version column.
type TestRepository interface {
	// Create stores a new test document.
	Create(ctx context.Context, test *domain.Test) error

	// Get retrieves a test by id.
	Get(ctx context.Context, id string) (*domain.Test, error)

	// GetBySlug retrieves a test by slug.
	GetBySlug(ctx context.Context, slug string) (*domain.Test, error)

	// Update applies updateFn inside one compare-and-swap cycle: the current
	// document is read, mutated and written back only if its version is
	// unchanged. A lost race returns ErrVersionConflict; callers retry.
	Update(ctx context.Context, id string, updateFn func(test *domain.Test) error) error

	// Delete removes a test document entirely.
	Delete(ctx context.Context, id string) error

	// List returns test documents matching the filter plus the total count.
	List(ctx context.Context, filter ListFilter) ([]*domain.Test, int, error)

	// ListByParticipant returns tests holding at least one vote session owned
	// by the participant.
	ListByParticipant(ctx context.Context, participantID string) ([]*domain.Test, error)

	// ExpireDue deactivates every active test whose end date has passed.
	// Idempotent; safe to run before reads and from the periodic sweep.
	ExpireDue(ctx context.Context, now time.Time) (int64, error)

	// ClearExpiredEndDates removes end dates from already-expired tests.
	ClearExpiredEndDates(ctx context.Context, now time.Time) (int64, error)

	// GlobalStats aggregates active test and vote counts.
	GlobalStats(ctx context.Context) (*domain.GlobalStats, error)
}

// CategoryRepository resolves test categories.
type CategoryRepository interface {
	// Get retrieves a category by id.
	Get(ctx context.Context, id string) (*domain.Category, error)

	// List returns all active categories.
	List(ctx context.Context) ([]*domain.Category, error)
}

// OutboxRepository queues notification events for asynchronous delivery.
type OutboxRepository interface {
	// Enqueue appends a pending notification event.
	Enqueue(ctx context.Context, event *domain.NotificationEvent) error

	// FetchPending returns up to limit undispatched events, oldest first.
	FetchPending(ctx context.Context, limit int) ([]*domain.NotificationEvent, error)

	// MarkDispatched stamps an event as delivered.
	MarkDispatched(ctx context.Context, id int64, at time.Time) error
}
