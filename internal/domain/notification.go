package domain

import "time"

// NotificationKind identifies the event a notification describes.
type NotificationKind string

const (
	// NotificationVoteCompleted fires once per session, on the transition to
	// complete. Never on intermediate rounds, never twice.
	NotificationVoteCompleted NotificationKind = "vote_completed"
)

// NotificationEvent is an outbox row: enqueued inside the vote transaction's
// scope, delivered later by a background dispatcher. Delivery failures are
// logged and retried; they never roll back the vote that produced them.
type NotificationEvent struct {
	ID            int64            `json:"id"`
	ParticipantID string           `json:"participant_id"`
	Kind          NotificationKind `json:"kind"`
	Payload       VotePayload      `json:"payload"`
	DispatchedAt  *time.Time       `json:"dispatched_at,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

// VotePayload carries the test context of a vote-completed notification.
type VotePayload struct {
	TestID       string        `json:"test_id"`
	TestSlug     string        `json:"test_slug,omitempty"`
	TestTitle    LocalizedText `json:"test_title"`
	CategoryID   string        `json:"category_id,omitempty"`
	CategoryName string        `json:"category_name,omitempty"`
}
