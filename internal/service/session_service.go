package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"versus-be/internal/domain"
	"versus-be/internal/repository"
	"versus-be/pkg/errors"
	"versus-be/pkg/redis"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type sessionService struct {
	tests      repository.TestRepository
	outbox     repository.OutboxRepository
	cache      *CacheService
	logger     *zap.Logger
	retryLimit int
}

// NewSessionService creates a new session service.
func NewSessionService(tests repository.TestRepository, outbox repository.OutboxRepository, cache *CacheService, logger *zap.Logger, retryLimit int) SessionService {
	if retryLimit < 1 {
		retryLimit = 1
	}
	return &sessionService{
		tests:      tests,
		outbox:     outbox,
		cache:      cache,
		logger:     logger,
		retryLimit: retryLimit,
	}
}

func (s *sessionService) StartSession(ctx context.Context, testID string, caller *domain.Participant) (*domain.SessionProgress, error) {
	sessionID := uuid.NewString()
	participantID := ""
	if !caller.IsGuest() {
		participantID = caller.ID
	}

	var progress domain.SessionProgress
	err := s.withRetry(ctx, testID, func(test *domain.Test) error {
		test.ExpireIfDue(time.Now().UTC())
		session, err := test.StartSession(sessionID, participantID, time.Now().UTC())
		if err != nil {
			return err
		}
		progress = test.Progress(session)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.InvalidateTestCaches(ctx, testID)
	s.logger.Info("vote session started",
		zap.String("test_id", testID),
		zap.String("session_id", sessionID),
		zap.Bool("guest", participantID == ""))
	return &progress, nil
}

func (s *sessionService) GetSession(ctx context.Context, testID, sessionID string) (*domain.SessionProgress, error) {
	test, err := s.tests.Get(ctx, testID)
	if err != nil {
		return nil, err
	}
	session, err := test.Session(sessionID)
	if err != nil {
		return nil, err
	}
	progress := test.Progress(session)
	return &progress, nil
}

func (s *sessionService) AdvanceSession(ctx context.Context, testID, sessionID, optionID string, caller *domain.Participant) (*domain.SessionProgress, error) {
	var (
		progress  domain.SessionProgress
		completed bool
		payload   domain.VotePayload
	)
	err := s.withRetry(ctx, testID, func(test *domain.Test) error {
		// Reset per attempt: only the committed attempt's outcome counts.
		completed = false

		test.ExpireIfDue(time.Now().UTC())
		session, err := test.AdvanceSession(sessionID, optionID, time.Now().UTC())
		if err != nil {
			return err
		}
		progress = test.Progress(session)
		if session.IsComplete {
			completed = true
			payload = domain.VotePayload{
				TestID:     test.ID,
				TestSlug:   test.Slug,
				TestTitle:  test.Title,
				CategoryID: test.CategoryID,
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.InvalidateTestCaches(ctx, testID)

	// The notification rides the committed completion, exactly once. Enqueue
	// failures are logged, never propagated: the vote already counted.
	if completed && !caller.IsGuest() {
		event := &domain.NotificationEvent{
			ParticipantID: caller.ID,
			Kind:          domain.NotificationVoteCompleted,
			Payload:       payload,
		}
		if err := s.outbox.Enqueue(ctx, event); err != nil {
			s.logger.Error("failed to enqueue completion notification",
				zap.String("test_id", testID),
				zap.String("session_id", sessionID),
				zap.Error(err))
		}
	}
	if completed {
		s.logger.Info("vote session completed",
			zap.String("test_id", testID),
			zap.String("session_id", sessionID),
			zap.String("final_winner", progress.FinalWinner.ID))
	}
	return &progress, nil
}

func (s *sessionService) DeleteSession(ctx context.Context, testID, sessionID string, caller *domain.Participant) error {
	callerID := ""
	if !caller.IsGuest() {
		callerID = caller.ID
	}

	err := s.withRetry(ctx, testID, func(test *domain.Test) error {
		return test.DeleteSession(sessionID, callerID)
	})
	if err != nil {
		return err
	}

	s.cache.InvalidateTestCaches(ctx, testID)
	s.logger.Info("vote session deleted",
		zap.String("test_id", testID),
		zap.String("session_id", sessionID))
	return nil
}

func (s *sessionService) SessionResults(ctx context.Context, testID string) (*SessionResultsView, error) {
	test, err := s.tests.Get(ctx, testID)
	if err != nil {
		return nil, err
	}

	var view SessionResultsView
	err = s.cache.GetResultsWithCache(ctx, s.cache.SessionResultsKey(test.ID), redis.TTLResults, &view,
		func(ctx context.Context) (interface{}, error) {
			return &SessionResultsView{
				Results:    test.SessionResults(),
				Statistics: test.SessionStats(),
			}, nil
		})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (s *sessionService) ParticipantSessions(ctx context.Context, participantID string) ([]domain.ParticipantSessionView, error) {
	if participantID == "" {
		return nil, errors.NewAuthenticationError("authentication required")
	}

	tests, err := s.tests.ListByParticipant(ctx, participantID)
	if err != nil {
		return nil, err
	}

	views := make([]domain.ParticipantSessionView, 0, len(tests))
	for _, test := range tests {
		for _, session := range test.Sessions {
			if session.ParticipantID != participantID {
				continue
			}
			views = append(views, domain.ParticipantSessionView{
				TestID:      test.ID,
				TestTitle:   test.Title,
				CategoryID:  test.CategoryID,
				SessionID:   session.SessionID,
				IsComplete:  session.IsComplete,
				FinalWinner: session.FinalWinner,
				StartedAt:   session.StartedAt,
				CompletedAt: session.CompletedAt,
			})
		}
	}
	return views, nil
}

func (s *sessionService) withRetry(ctx context.Context, testID string, updateFn func(test *domain.Test) error) error {
	var lastErr error
	for attempt := 1; attempt <= s.retryLimit; attempt++ {
		err := s.tests.Update(ctx, testID, updateFn)
		if err == nil {
			return nil
		}
		if !stderrors.Is(err, repository.ErrVersionConflict) {
			return err
		}
		lastErr = err
		s.logger.Debug("version conflict, retrying",
			zap.String("test_id", testID),
			zap.Int("attempt", attempt))
	}
	return errors.NewUnavailableError(
		fmt.Sprintf("test is under heavy contention, retried %d times", s.retryLimit), lastErr)
}
