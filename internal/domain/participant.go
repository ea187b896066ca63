package domain

import "time"

// Participant is the identity resolved from a request's credentials. A zero
// ID means the caller is a guest; IsAdmin gates destructive operations.
type Participant struct {
	ID      string `json:"id"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	IsAdmin bool   `json:"is_admin"`
}

// IsGuest reports whether the participant is anonymous.
func (p *Participant) IsGuest() bool {
	return p == nil || p.ID == ""
}

// AuthClaims are the JWT claims carried by a participant token.
type AuthClaims struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	Iat   int64  `json:"iat"`
	Exp   int64  `json:"exp"`
}

// ParticipantSessionView is one row of a participant's session history across
// tests, joined with the owning test's metadata.
type ParticipantSessionView struct {
	TestID      string        `json:"test_id"`
	TestTitle   LocalizedText `json:"test_title"`
	CategoryID  string        `json:"category_id"`
	SessionID   string        `json:"session_id"`
	IsComplete  bool          `json:"is_complete"`
	FinalWinner string        `json:"final_winner,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}
