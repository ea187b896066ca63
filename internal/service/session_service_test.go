package service

import (
	"context"
	"testing"

	"versus-be/internal/domain"
	"versus-be/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSessionServiceForTest(repo *fakeTestRepo, outbox *fakeOutbox, retryLimit int) SessionService {
	return NewSessionService(repo, outbox, NewCacheService(nil, zap.NewNop()), zap.NewNop(), retryLimit)
}

// playToCompletion advances the session preferring the given option whenever
// it is in the current pair, and returns the final progress view.
func playToCompletion(t *testing.T, svc SessionService, testID, sessionID string, caller *domain.Participant, prefer string) *domain.SessionProgress {
	t.Helper()
	for i := 0; i < 20; i++ {
		current, err := svc.GetSession(context.Background(), testID, sessionID)
		require.NoError(t, err)
		if current.IsComplete {
			return current
		}
		require.Len(t, current.CurrentPair, 2)

		pick := current.CurrentPair[0].ID
		for _, opt := range current.CurrentPair {
			if opt.ID == prefer {
				pick = prefer
			}
		}

		progress, err := svc.AdvanceSession(context.Background(), testID, sessionID, pick, caller)
		require.NoError(t, err)
		if progress.IsComplete {
			return progress
		}
	}
	t.Fatal("session did not complete")
	return nil
}

func TestStartSessionInitialState(t *testing.T) {
	repo := newFakeTestRepo()
	seedTest(t, repo, "t1", "a", "b", "c")
	svc := newSessionServiceForTest(repo, newFakeOutbox(), 3)

	progress, err := svc.StartSession(context.Background(), "t1", &domain.Participant{ID: "u1"})
	require.NoError(t, err)
	assert.NotEmpty(t, progress.SessionID)
	assert.False(t, progress.IsComplete)
	require.Len(t, progress.CurrentPair, 2, "start response carries the opening pair")
	assert.Equal(t, 1, progress.RemainingCount)
	assert.Zero(t, progress.RoundsPlayed)
}

func TestStartSessionInactiveTest(t *testing.T) {
	repo := newFakeTestRepo()
	test := seedTest(t, repo, "t1", "a", "b")
	test.IsActive = false
	require.NoError(t, repo.Create(context.Background(), test))
	svc := newSessionServiceForTest(repo, newFakeOutbox(), 3)

	_, err := svc.StartSession(context.Background(), "t1", nil)
	assert.ErrorIs(t, err, domain.ErrTestInactive)
}

func TestStartSessionExposesOpeningPair(t *testing.T) {
	repo := newFakeTestRepo()
	seedTest(t, repo, "t1", "a", "b", "c")
	svc := newSessionServiceForTest(repo, newFakeOutbox(), 3)

	started, err := svc.StartSession(context.Background(), "t1", nil)
	require.NoError(t, err)
	require.Len(t, started.CurrentPair, 2)
	assert.Equal(t, 1, started.RemainingCount)

	// A read before any advance sees the same opening pair.
	fetched, err := svc.GetSession(context.Background(), "t1", started.SessionID)
	require.NoError(t, err)
	require.Len(t, fetched.CurrentPair, 2)
	assert.Equal(t, started.CurrentPair[0].ID, fetched.CurrentPair[0].ID)
	assert.Equal(t, started.CurrentPair[1].ID, fetched.CurrentPair[1].ID)

	// The round winner meets the queued challenger.
	winner := started.CurrentPair[0].ID
	progress, err := svc.AdvanceSession(context.Background(), "t1", started.SessionID, winner, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, progress.RoundsPlayed)
	assert.False(t, progress.IsComplete)
	require.Len(t, progress.CurrentPair, 2)
	assert.Equal(t, winner, progress.CurrentPair[0].ID, "round winner meets the next challenger")
}

func TestSessionCompletionFeedsTallyOnce(t *testing.T) {
	repo := newFakeTestRepo()
	seedTest(t, repo, "t1", "a", "b", "c")
	outbox := newFakeOutbox()
	svc := newSessionServiceForTest(repo, outbox, 3)
	caller := &domain.Participant{ID: "u1"}

	started, err := svc.StartSession(context.Background(), "t1", caller)
	require.NoError(t, err)

	final := playToCompletion(t, svc, "t1", started.SessionID, caller, "b")
	require.True(t, final.IsComplete)
	require.NotNil(t, final.FinalWinner)
	assert.Equal(t, "b", final.FinalWinner.ID)
	assert.Equal(t, 2, final.RoundsPlayed, "3 options take exactly 2 rounds")

	stored, err := repo.Get(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.TotalVotes, "completion applies exactly one vote")
	winner, err := stored.Option("b")
	require.NoError(t, err)
	assert.Equal(t, 1, winner.Votes)

	// Exactly one completion notification, carrying the test context.
	events := outbox.all()
	require.Len(t, events, 1)
	assert.Equal(t, domain.NotificationVoteCompleted, events[0].Kind)
	assert.Equal(t, "u1", events[0].ParticipantID)
	assert.Equal(t, "t1", events[0].Payload.TestID)
}

func TestSessionCompletionGuestSkipsNotification(t *testing.T) {
	repo := newFakeTestRepo()
	seedTest(t, repo, "t1", "a", "b")
	outbox := newFakeOutbox()
	svc := newSessionServiceForTest(repo, outbox, 3)

	started, err := svc.StartSession(context.Background(), "t1", nil)
	require.NoError(t, err)

	final := playToCompletion(t, svc, "t1", started.SessionID, nil, "a")
	assert.True(t, final.IsComplete)
	assert.Empty(t, outbox.all(), "guest completions produce no notification")
}

func TestAdvanceCompletedSessionRejected(t *testing.T) {
	repo := newFakeTestRepo()
	seedTest(t, repo, "t1", "a", "b")
	svc := newSessionServiceForTest(repo, newFakeOutbox(), 3)

	started, err := svc.StartSession(context.Background(), "t1", nil)
	require.NoError(t, err)
	final := playToCompletion(t, svc, "t1", started.SessionID, nil, "a")
	require.True(t, final.IsComplete)

	_, err = svc.AdvanceSession(context.Background(), "t1", started.SessionID, final.FinalWinner.ID, nil)
	assert.ErrorIs(t, err, domain.ErrSessionComplete)

	stored, err := repo.Get(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.TotalVotes, "no double counting")
}

func TestAdvanceSessionRetriesOnConflict(t *testing.T) {
	repo := newFakeTestRepo()
	seedTest(t, repo, "t1", "a", "b")
	outbox := newFakeOutbox()
	svc := newSessionServiceForTest(repo, outbox, 3)
	caller := &domain.Participant{ID: "u1"}

	started, err := svc.StartSession(context.Background(), "t1", caller)
	require.NoError(t, err)

	repo.conflictsLeft = 2
	final := playToCompletion(t, svc, "t1", started.SessionID, caller, "a")
	require.True(t, final.IsComplete)

	stored, err := repo.Get(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.TotalVotes, "retries never double-apply the final vote")
	assert.Len(t, outbox.all(), 1, "retries never duplicate the notification")
}

func TestAdvanceSessionConflictBudgetExhausted(t *testing.T) {
	repo := newFakeTestRepo()
	seedTest(t, repo, "t1", "a", "b")
	outbox := newFakeOutbox()
	svc := newSessionServiceForTest(repo, outbox, 2)
	caller := &domain.Participant{ID: "u1"}

	started, err := svc.StartSession(context.Background(), "t1", caller)
	require.NoError(t, err)

	repo.conflictsLeft = 2
	_, err = svc.AdvanceSession(context.Background(), "t1", started.SessionID, "a", caller)
	require.Error(t, err)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errors.ErrorTypeUnavailable, appErr.Type)
	assert.Empty(t, outbox.all(), "no notification for an uncommitted completion")
}

func TestDeleteSessionOwnership(t *testing.T) {
	repo := newFakeTestRepo()
	seedTest(t, repo, "t1", "a", "b")
	svc := newSessionServiceForTest(repo, newFakeOutbox(), 3)
	owner := &domain.Participant{ID: "u1"}

	started, err := svc.StartSession(context.Background(), "t1", owner)
	require.NoError(t, err)

	err = svc.DeleteSession(context.Background(), "t1", started.SessionID, &domain.Participant{ID: "u2"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	require.NoError(t, svc.DeleteSession(context.Background(), "t1", started.SessionID, owner))

	_, err = svc.GetSession(context.Background(), "t1", started.SessionID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestDeleteGuestSession(t *testing.T) {
	repo := newFakeTestRepo()
	seedTest(t, repo, "t1", "a", "b")
	svc := newSessionServiceForTest(repo, newFakeOutbox(), 3)

	started, err := svc.StartSession(context.Background(), "t1", nil)
	require.NoError(t, err)

	// Guest sessions carry no owner: anyone holding the id may delete.
	require.NoError(t, svc.DeleteSession(context.Background(), "t1", started.SessionID, &domain.Participant{ID: "u9"}))
}

func TestDeleteOwnedSessionByGuestCaller(t *testing.T) {
	repo := newFakeTestRepo()
	seedTest(t, repo, "t1", "a", "b")
	svc := newSessionServiceForTest(repo, newFakeOutbox(), 3)

	started, err := svc.StartSession(context.Background(), "t1", &domain.Participant{ID: "u1"})
	require.NoError(t, err)

	// Ownership is only enforced between identified participants; an
	// unauthenticated caller holding the session id may delete it.
	require.NoError(t, svc.DeleteSession(context.Background(), "t1", started.SessionID, nil))

	_, err = svc.GetSession(context.Background(), "t1", started.SessionID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionResultsView(t *testing.T) {
	repo := newFakeTestRepo()
	seedTest(t, repo, "t1", "a", "b")
	svc := newSessionServiceForTest(repo, newFakeOutbox(), 3)
	caller := &domain.Participant{ID: "u1"}

	s1, err := svc.StartSession(context.Background(), "t1", caller)
	require.NoError(t, err)
	playToCompletion(t, svc, "t1", s1.SessionID, caller, "a")

	s2, err := svc.StartSession(context.Background(), "t1", nil)
	require.NoError(t, err)
	playToCompletion(t, svc, "t1", s2.SessionID, nil, "a")

	s3, err := svc.StartSession(context.Background(), "t1", nil)
	require.NoError(t, err)
	_ = s3 // abandoned in progress

	view, err := svc.SessionResults(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, 3, view.Statistics.TotalSessions)
	assert.Equal(t, 2, view.Statistics.CompletedSessions)
	assert.Equal(t, 2, view.Statistics.GuestSessions)
	assert.Equal(t, 1, view.Statistics.UserSessions)
	require.NotEmpty(t, view.Results)
	assert.Equal(t, "a", view.Results[0].OptionID)
	assert.Equal(t, 2, view.Results[0].Votes)
	assert.Equal(t, 100.0, view.Results[0].Percentage)
}

func TestParticipantSessions(t *testing.T) {
	repo := newFakeTestRepo()
	seedTest(t, repo, "t1", "a", "b")
	seedTest(t, repo, "t2", "a", "b")
	svc := newSessionServiceForTest(repo, newFakeOutbox(), 3)
	caller := &domain.Participant{ID: "u1"}

	s1, err := svc.StartSession(context.Background(), "t1", caller)
	require.NoError(t, err)
	playToCompletion(t, svc, "t1", s1.SessionID, caller, "a")

	_, err = svc.StartSession(context.Background(), "t2", caller)
	require.NoError(t, err)

	// Other participants' sessions stay invisible.
	_, err = svc.StartSession(context.Background(), "t1", &domain.Participant{ID: "u2"})
	require.NoError(t, err)

	views, err := svc.ParticipantSessions(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, views, 2)

	_, err = svc.ParticipantSessions(context.Background(), "")
	assert.Error(t, err, "guests have no cross-test history")
}
