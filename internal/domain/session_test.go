package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartSession(t *testing.T) {
	test := newTestFixture("x", "y", "z")
	now := time.Now()

	session, err := test.StartSession("s1", "", now)
	require.NoError(t, err)

	order := test.bracketOrder()
	assert.True(t, session.IsGuest)
	assert.Equal(t, order[:2], session.CurrentPair, "opening pair is visible immediately after start")
	assert.Equal(t, order[2:], session.RemainingOptions)
	assert.Empty(t, session.Winners)
	assert.False(t, session.IsComplete)
	assert.Equal(t, now, session.StartedAt)
}

func TestStartSessionDuplicateIDConflicts(t *testing.T) {
	test := newTestFixture("x", "y")
	now := time.Now()

	_, err := test.StartSession("s1", "user-1", now)
	require.NoError(t, err)

	_, err = test.StartSession("s1", "user-1", now)
	assert.ErrorIs(t, err, ErrSessionConflict)
	assert.Len(t, test.Sessions, 1)
}

func TestStartSessionInactiveTest(t *testing.T) {
	test := newTestFixture("x", "y")
	test.IsActive = false

	_, err := test.StartSession("s1", "", time.Now())
	assert.ErrorIs(t, err, ErrTestInactive)
}

func TestBracketOrderIsDeterministic(t *testing.T) {
	a := newTestFixture("x", "y", "z")
	b := newTestFixture("x", "y", "z")
	// Different insertion order, same option set.
	c := newTestFixture("z", "x", "y")

	assert.Equal(t, a.bracketOrder(), b.bracketOrder())
	assert.Equal(t, a.bracketOrder(), c.bracketOrder())
	assert.ElementsMatch(t, []string{"x", "y", "z"}, a.bracketOrder())
}

// Full three-option tournament: two rounds, the second crowns a winner and
// applies exactly one vote to the tally.
func TestThreeOptionTournament(t *testing.T) {
	test := newTestFixture("x", "y", "z")
	now := time.Now()

	_, err := test.StartSession("s1", "", now)
	require.NoError(t, err)

	order := test.bracketOrder()
	first := order[0]

	session, err := test.AdvanceSession("s1", first, now)
	require.NoError(t, err)

	assert.Equal(t, []string{first, order[2]}, session.CurrentPair)
	assert.Empty(t, session.RemainingOptions)
	assert.Equal(t, []string{first}, session.Winners)
	assert.False(t, session.IsComplete)

	session, err = test.AdvanceSession("s1", first, now)
	require.NoError(t, err)

	assert.True(t, session.IsComplete)
	assert.Equal(t, first, session.FinalWinner)
	require.NotNil(t, session.CompletedAt)
	assert.Len(t, session.Winners, len(test.Options)-1)

	winner, err := test.Option(first)
	require.NoError(t, err)
	assert.Equal(t, 1, winner.Votes)
	assert.Equal(t, 1, test.TotalVotes)
}

func TestSessionProgressInvariant(t *testing.T) {
	test := newTestFixture("a", "b", "c", "d", "e")
	now := time.Now()
	_, err := test.StartSession("s1", "user-1", now)
	require.NoError(t, err)

	optionCount := len(test.Options)
	for round := 0; round < optionCount-1; round++ {
		session, err := test.Session("s1")
		require.NoError(t, err)

		session, err = test.AdvanceSession("s1", session.CurrentPair[0], now)
		require.NoError(t, err)

		if session.IsComplete {
			assert.Len(t, session.Winners, optionCount-1)
			assert.Empty(t, session.RemainingOptions)
		} else {
			assert.Equal(t, optionCount-1, len(session.Winners)+len(session.RemainingOptions)+1,
				"winners + remaining + the pending pair slot must cover all rounds")
			assert.Len(t, session.CurrentPair, 2)
		}
	}

	session, err := test.Session("s1")
	require.NoError(t, err)
	assert.True(t, session.IsComplete)
	assert.Equal(t, 1, test.TotalVotes)
}

func TestAdvanceRejectsChoiceOutsidePair(t *testing.T) {
	test := newTestFixture("x", "y", "z")
	now := time.Now()
	_, err := test.StartSession("s1", "", now)
	require.NoError(t, err)

	order := test.bracketOrder()
	// The third-ordered option is not in the initial pair.
	_, err = test.AdvanceSession("s1", order[2], now)
	assert.ErrorIs(t, err, ErrInvalidChoice)

	session, err := test.Session("s1")
	require.NoError(t, err)
	assert.Empty(t, session.Winners)
}

func TestAdvanceRejectsUnknownOption(t *testing.T) {
	test := newTestFixture("x", "y")
	now := time.Now()
	_, err := test.StartSession("s1", "", now)
	require.NoError(t, err)

	_, err = test.AdvanceSession("s1", "ghost", now)
	assert.ErrorIs(t, err, ErrInvalidChoice)
}

func TestNoDoubleCompletion(t *testing.T) {
	test := newTestFixture("x", "y")
	now := time.Now()
	_, err := test.StartSession("s1", "", now)
	require.NoError(t, err)

	pick := test.bracketOrder()[0]
	session, err := test.AdvanceSession("s1", pick, now)
	require.NoError(t, err)
	require.True(t, session.IsComplete)

	_, err = test.AdvanceSession("s1", pick, now)
	assert.ErrorIs(t, err, ErrSessionComplete)

	// Final winner unchanged, no double increment.
	session, err = test.Session("s1")
	require.NoError(t, err)
	assert.Equal(t, pick, session.FinalWinner)
	assert.Equal(t, 1, test.TotalVotes)
}

func TestAdvanceUnknownSession(t *testing.T) {
	test := newTestFixture("x", "y")
	_, err := test.AdvanceSession("missing", "x", time.Now())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestDeleteSession(t *testing.T) {
	now := time.Now()

	t.Run("owner can delete", func(t *testing.T) {
		test := newTestFixture("x", "y")
		_, err := test.StartSession("s1", "user-1", now)
		require.NoError(t, err)

		require.NoError(t, test.DeleteSession("s1", "user-1"))
		assert.Empty(t, test.Sessions)
	})

	t.Run("other participant cannot delete", func(t *testing.T) {
		test := newTestFixture("x", "y")
		_, err := test.StartSession("s1", "user-1", now)
		require.NoError(t, err)

		assert.ErrorIs(t, test.DeleteSession("s1", "user-2"), ErrUnauthorized)
		assert.Len(t, test.Sessions, 1)
	})

	t.Run("unauthenticated caller is not blocked by ownership", func(t *testing.T) {
		test := newTestFixture("x", "y")
		_, err := test.StartSession("s1", "user-1", now)
		require.NoError(t, err)

		assert.NoError(t, test.DeleteSession("s1", ""))
		assert.Empty(t, test.Sessions)
	})

	t.Run("guest session has no enforceable owner", func(t *testing.T) {
		test := newTestFixture("x", "y")
		_, err := test.StartSession("s1", "", now)
		require.NoError(t, err)

		assert.NoError(t, test.DeleteSession("s1", ""))
	})

	t.Run("missing session", func(t *testing.T) {
		test := newTestFixture("x", "y")
		assert.ErrorIs(t, test.DeleteSession("nope", ""), ErrSessionNotFound)
	})
}

func completeSession(t *testing.T, test *Test, sessionID, participantID, winner string) {
	t.Helper()
	now := time.Now()
	_, err := test.StartSession(sessionID, participantID, now)
	require.NoError(t, err)
	for {
		session, err := test.Session(sessionID)
		require.NoError(t, err)
		if session.IsComplete {
			return
		}
		pick := session.CurrentPair[0]
		if session.inPair(winner) {
			pick = winner
		}
		_, err = test.AdvanceSession(sessionID, pick, now)
		require.NoError(t, err)
	}
}

func TestSessionStats(t *testing.T) {
	test := newTestFixture("x", "y")
	completeSession(t, test, "s1", "user-1", "x")
	completeSession(t, test, "s2", "", "y")
	now := time.Now()
	_, err := test.StartSession("s3", "", now)
	require.NoError(t, err)

	stats := test.SessionStats()

	assert.Equal(t, 3, stats.TotalSessions)
	assert.Equal(t, 2, stats.CompletedSessions)
	assert.Equal(t, 2, stats.GuestSessions)
	assert.Equal(t, 1, stats.UserSessions)
	assert.Equal(t, 2, stats.TotalVotes)
}
