package service

import (
	"context"

	"versus-be/internal/domain"
	"versus-be/internal/repository"
)

// AuthService defines the interface for authentication operations
type AuthService interface {
	// ValidateToken validates a bearer token and resolves the participant
	ValidateToken(ctx context.Context, token string) (*domain.Participant, error)
}

// TestListing is one page of test summaries.
type TestListing struct {
	Tests      []domain.TestSummary `json:"tests"`
	Pagination domain.Pagination    `json:"pagination"`
}

// TestService covers the test lifecycle and the flat voting path.
type TestService interface {
	// CreateTest validates and stores a new test. Admin only.
	CreateTest(ctx context.Context, caller *domain.Participant, test *domain.Test) (*domain.Test, error)

	// GetTest retrieves a test by id or slug, expiring it first if due.
	GetTest(ctx context.Context, idOrSlug string) (*domain.Test, error)

	// UpdateTest merges the draft into the stored test, preserving tallies of
	// options that survive the edit. Admin only.
	UpdateTest(ctx context.Context, caller *domain.Participant, id string, draft *domain.Test) (*domain.Test, error)

	// DeleteTest removes a test entirely. Admin only.
	DeleteTest(ctx context.Context, caller *domain.Participant, id string) error

	// ListTests returns a filtered, paginated listing.
	ListTests(ctx context.Context, filter repository.ListFilter) (*TestListing, error)

	// SubmitVote applies one flat vote and returns the refreshed tally. A
	// non-empty idempotencyKey suppresses duplicate submissions within the
	// lock TTL.
	SubmitVote(ctx context.Context, testID, optionID, idempotencyKey string) (*domain.TallyView, error)

	// Results returns the ranked leaderboard of cumulative tallies.
	Results(ctx context.Context, testID string) ([]domain.ResultEntry, error)

	// ResetVotes zeroes every tally while keeping session history. Admin only.
	ResetVotes(ctx context.Context, caller *domain.Participant, testID string) error

	// GlobalStats aggregates site-wide activity.
	GlobalStats(ctx context.Context) (*domain.GlobalStats, error)

	// Start begins the periodic expiry sweep.
	Start(ctx context.Context) error

	// Stop halts the periodic expiry sweep.
	Stop(ctx context.Context) error
}

// SessionResultsView joins session-derived rankings with participation stats.
type SessionResultsView struct {
	Results    []domain.ResultEntry     `json:"results"`
	Statistics domain.SessionStatistics `json:"statistics"`
}

// SessionService runs pairwise elimination sessions against tests.
type SessionService interface {
	// StartSession opens a fresh elimination session for the caller.
	StartSession(ctx context.Context, testID string, caller *domain.Participant) (*domain.SessionProgress, error)

	// GetSession returns the current state of a session.
	GetSession(ctx context.Context, testID, sessionID string) (*domain.SessionProgress, error)

	// AdvanceSession applies one pick. Completing the final round feeds the
	// aggregate tally and enqueues the completion notification.
	AdvanceSession(ctx context.Context, testID, sessionID, optionID string, caller *domain.Participant) (*domain.SessionProgress, error)

	// DeleteSession removes a session; owned sessions require the owner.
	DeleteSession(ctx context.Context, testID, sessionID string, caller *domain.Participant) error

	// SessionResults ranks options by completed-session wins.
	SessionResults(ctx context.Context, testID string) (*SessionResultsView, error)

	// ParticipantSessions lists the caller's sessions across all tests.
	ParticipantSessions(ctx context.Context, participantID string) ([]domain.ParticipantSessionView, error)
}

// NotificationSink delivers dispatched notification events somewhere useful.
type NotificationSink interface {
	Deliver(ctx context.Context, event *domain.NotificationEvent) error
}

// NotifierService drains the notification outbox in the background.
type NotifierService interface {
	// Start begins the outbox polling loop.
	Start(ctx context.Context) error

	// Stop drains in-flight work and halts polling.
	Stop(ctx context.Context) error
}

// CategoryService resolves categories for listings.
type CategoryService interface {
	ListCategories(ctx context.Context) ([]*domain.Category, error)
}

// Services aggregates all service interfaces
type Services struct {
	Auth     AuthService
	Test     TestService
	Session  SessionService
	Category CategoryService
	Notifier NotifierService
}
