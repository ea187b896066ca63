package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"time"
)

// VoteSession is one participant's single-elimination run through a test's
// options. The record is append-only: each round appends a winner and consumes
// one remaining option, and nothing is ever replayed or undone.
type VoteSession struct {
	SessionID        string     `json:"session_id"`
	ParticipantID    string     `json:"participant_id,omitempty"`
	IsGuest          bool       `json:"is_guest"`
	CurrentPair      []string   `json:"current_pair"`
	RemainingOptions []string   `json:"remaining_options"`
	Winners          []string   `json:"winners"`
	IsComplete       bool       `json:"is_complete"`
	FinalWinner      string     `json:"final_winner,omitempty"`
	StartedAt        time.Time  `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// RoundsPlayed is the number of comparisons the participant has decided.
func (s *VoteSession) RoundsPlayed() int {
	return len(s.Winners)
}

// inPair reports whether optionID is one of the two options under comparison.
func (s *VoteSession) inPair(optionID string) bool {
	for _, id := range s.CurrentPair {
		if id == optionID {
			return true
		}
	}
	return false
}

// Session returns the session with the given id, or ErrSessionNotFound.
func (t *Test) Session(sessionID string) (*VoteSession, error) {
	for i := range t.Sessions {
		if t.Sessions[i].SessionID == sessionID {
			return &t.Sessions[i], nil
		}
	}
	return nil, ErrSessionNotFound
}

// StartSession creates a fresh elimination session with the opening pair of
// the deterministic bracket already in place, so callers see the first
// comparison in the start response. A duplicate session id is rejected with
// ErrSessionConflict; callers wanting a new run must supply a fresh id.
func (t *Test) StartSession(sessionID, participantID string, now time.Time) (*VoteSession, error) {
	if !t.IsActive {
		return nil, ErrTestInactive
	}
	if len(t.Options) < 2 {
		return nil, ErrValidation
	}
	if _, err := t.Session(sessionID); err == nil {
		return nil, ErrSessionConflict
	}
	order := t.bracketOrder()
	t.Sessions = append(t.Sessions, VoteSession{
		SessionID:        sessionID,
		ParticipantID:    participantID,
		IsGuest:          participantID == "",
		CurrentPair:      order[:2],
		RemainingOptions: append([]string{}, order[2:]...),
		Winners:          []string{},
		StartedAt:        now,
	})
	return &t.Sessions[len(t.Sessions)-1], nil
}

// bracketOrder returns the test's options in the deterministic tournament
// order: lexicographic over sha256(testID:optionID). Stable, total, and
// independent of insertion order, so fresh sessions on the same test always
// see the same initial pairing.
func (t *Test) bracketOrder() []string {
	type ranked struct {
		id  string
		key string
	}
	order := make([]ranked, 0, len(t.Options))
	for i := range t.Options {
		sum := sha256.Sum256([]byte(t.ID + ":" + t.Options[i].ID))
		order = append(order, ranked{id: t.Options[i].ID, key: hex.EncodeToString(sum[:])})
	}
	sort.Slice(order, func(i, j int) bool { return order[i].key < order[j].key })
	ids := make([]string, len(order))
	for i, r := range order {
		ids[i] = r.id
	}
	return ids
}

// AdvanceSession applies the participant's pick for the current round. The
// pick must be a member of the current pair. The winner either meets the next
// queued opponent, or — when the queue is empty — becomes the final winner:
// the session completes and exactly one vote is applied to that option, the
// sole point where a session feeds the aggregate tally.
func (t *Test) AdvanceSession(sessionID, chosenOptionID string, now time.Time) (*VoteSession, error) {
	if !t.IsActive {
		return nil, ErrTestInactive
	}
	session, err := t.Session(sessionID)
	if err != nil {
		return nil, err
	}
	if session.IsComplete {
		return nil, ErrSessionComplete
	}
	if _, err := t.Option(chosenOptionID); err != nil {
		return nil, ErrInvalidChoice
	}
	if !session.inPair(chosenOptionID) {
		return nil, ErrInvalidChoice
	}

	session.Winners = append(session.Winners, chosenOptionID)

	if len(session.RemainingOptions) > 0 {
		next := session.RemainingOptions[0]
		session.RemainingOptions = session.RemainingOptions[1:]
		session.CurrentPair = []string{chosenOptionID, next}
		return session, nil
	}

	session.CurrentPair = []string{}
	session.FinalWinner = chosenOptionID
	session.IsComplete = true
	completed := now
	session.CompletedAt = &completed
	if err := t.ApplyVote(chosenOptionID); err != nil {
		return nil, err
	}
	return session, nil
}

// DeleteSession removes the session record entirely. Ownership is enforced
// only when both sides identify themselves: an authenticated caller cannot
// delete another participant's session, while unauthenticated callers and
// guest sessions fall through to deletion by session id alone.
func (t *Test) DeleteSession(sessionID, callerID string) error {
	for i := range t.Sessions {
		if t.Sessions[i].SessionID != sessionID {
			continue
		}
		if callerID != "" && t.Sessions[i].ParticipantID != "" && t.Sessions[i].ParticipantID != callerID {
			return ErrUnauthorized
		}
		t.Sessions = append(t.Sessions[:i], t.Sessions[i+1:]...)
		return nil
	}
	return ErrSessionNotFound
}

// CompletedSessions returns the sessions that reached a final winner.
func (t *Test) CompletedSessions() []VoteSession {
	done := make([]VoteSession, 0, len(t.Sessions))
	for _, s := range t.Sessions {
		if s.IsComplete && s.FinalWinner != "" {
			done = append(done, s)
		}
	}
	return done
}
