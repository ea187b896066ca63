package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"versus-be/internal/domain"
	"versus-be/internal/repository"
	"versus-be/pkg/errors"
	"versus-be/pkg/redis"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SweepPeriod is how often the background expiry sweep runs.
const SweepPeriod = time.Minute

type testService struct {
	tests      repository.TestRepository
	cache      *CacheService
	logger     *zap.Logger
	retryLimit int

	sweepTicker *time.Ticker
	stopSweep   chan struct{}
	mu          sync.Mutex
	isRunning   bool
}

// NewTestService creates a new test service. retryLimit bounds how many times
// a mutation retries after losing an optimistic-concurrency race.
func NewTestService(tests repository.TestRepository, cache *CacheService, logger *zap.Logger, retryLimit int) TestService {
	if retryLimit < 1 {
		retryLimit = 1
	}
	return &testService{
		tests:      tests,
		cache:      cache,
		logger:     logger,
		retryLimit: retryLimit,
		stopSweep:  make(chan struct{}),
	}
}

func (s *testService) CreateTest(ctx context.Context, caller *domain.Participant, test *domain.Test) (*domain.Test, error) {
	if caller == nil || !caller.IsAdmin {
		return nil, errors.NewAuthorizationError("only admins can create tests")
	}

	if test.ID == "" {
		test.ID = uuid.NewString()
	}
	if test.Slug == "" {
		test.Slug = test.ID
	}
	for i := range test.Options {
		if test.Options[i].ID == "" {
			test.Options[i].ID = uuid.NewString()
		}
		test.Options[i].CustomFields = domain.CleanCustomFields(test.Options[i].CustomFields)
	}
	test.IsActive = true
	test.CreatedBy = caller.ID
	test.Sessions = nil
	test.ResetVotes()

	if err := test.Validate(); err != nil {
		return nil, err
	}
	test.Recompute()

	if err := s.tests.Create(ctx, test); err != nil {
		return nil, err
	}

	s.cache.InvalidateTestCaches(ctx, test.ID)
	s.logger.Info("test created",
		zap.String("test_id", test.ID),
		zap.String("created_by", caller.ID),
		zap.Int("options", len(test.Options)))
	return test, nil
}

func (s *testService) GetTest(ctx context.Context, idOrSlug string) (*domain.Test, error) {
	test, err := s.cache.GetTestWithCache(ctx, idOrSlug, func(ctx context.Context) (*domain.Test, error) {
		t, err := s.tests.Get(ctx, idOrSlug)
		if stderrors.Is(err, domain.ErrTestNotFound) {
			return s.tests.GetBySlug(ctx, idOrSlug)
		}
		return t, err
	})
	if err != nil {
		return nil, err
	}

	// Lazy expiry on the read path. The sweep also covers this, but a read
	// between ticks must not serve an expired test as active.
	if test.IsActive && test.Expired(time.Now().UTC()) {
		s.expireOne(ctx, test)
	}
	return test, nil
}

// expireOne persists the active-to-expired flip for a single test and patches
// the in-memory copy so the caller sees the post-expiry state.
func (s *testService) expireOne(ctx context.Context, test *domain.Test) {
	err := s.tests.Update(ctx, test.ID, func(t *domain.Test) error {
		t.ExpireIfDue(time.Now().UTC())
		return nil
	})
	if err != nil {
		s.logger.Warn("failed to persist test expiry",
			zap.String("test_id", test.ID),
			zap.Error(err))
	}
	test.IsActive = false
	s.cache.InvalidateTestCaches(ctx, test.ID)
}

func (s *testService) UpdateTest(ctx context.Context, caller *domain.Participant, id string, draft *domain.Test) (*domain.Test, error) {
	if caller == nil || !caller.IsAdmin {
		return nil, errors.NewAuthorizationError("only admins can update tests")
	}

	var updated *domain.Test
	err := s.withRetry(ctx, id, func(test *domain.Test) error {
		mergeDraft(test, draft)
		if err := test.Validate(); err != nil {
			return err
		}
		test.Recompute()
		updated = test
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.InvalidateTestCaches(ctx, id)
	s.logger.Info("test updated", zap.String("test_id", id), zap.String("updated_by", caller.ID))
	return updated, nil
}

// mergeDraft applies an admin edit on top of the stored document. Options are
// matched by id so tallies survive edits to titles and images; options absent
// from the draft are dropped along with their votes.
func mergeDraft(test, draft *domain.Test) {
	test.Title = draft.Title
	test.Description = draft.Description
	test.CoverImage = draft.CoverImage
	test.CategoryID = draft.CategoryID
	test.IsActive = draft.IsActive
	test.Trend = draft.Trend
	test.Popular = draft.Popular
	test.EndDate = draft.EndDate

	merged := make([]domain.Option, 0, len(draft.Options))
	for _, opt := range draft.Options {
		if opt.ID == "" {
			opt.ID = uuid.NewString()
		}
		opt.CustomFields = domain.CleanCustomFields(opt.CustomFields)
		if prev, err := test.Option(opt.ID); err == nil {
			opt.Votes = prev.Votes
		} else {
			opt.Votes = 0
		}
		merged = append(merged, opt)
	}
	test.Options = merged
}

func (s *testService) DeleteTest(ctx context.Context, caller *domain.Participant, id string) error {
	if caller == nil || !caller.IsAdmin {
		return errors.NewAuthorizationError("only admins can delete tests")
	}
	if err := s.tests.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.InvalidateTestCaches(ctx, id)
	s.logger.Info("test deleted", zap.String("test_id", id), zap.String("deleted_by", caller.ID))
	return nil
}

func (s *testService) ListTests(ctx context.Context, filter repository.ListFilter) (*TestListing, error) {
	if filter.Limit <= 0 || filter.Limit > 50 {
		filter.Limit = 10
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}

	cacheKey := s.cache.ListCacheKey(
		filter.CategoryID,
		boolFilterKey(filter.IsActive),
		boolFilterKey(filter.Trend),
		boolFilterKey(filter.Popular),
		filter.SortBy,
		strconv.FormatBool(filter.SortDesc),
		strconv.Itoa(filter.Page),
		strconv.Itoa(filter.Limit),
	)

	var listing TestListing
	err := s.cache.GetResultsWithCache(ctx, cacheKey, redis.TTLList, &listing, func(ctx context.Context) (interface{}, error) {
		if _, err := s.tests.ExpireDue(ctx, time.Now().UTC()); err != nil {
			s.logger.Warn("expiry sweep before listing failed", zap.Error(err))
		}

		tests, total, err := s.tests.List(ctx, filter)
		if err != nil {
			return nil, err
		}

		summaries := make([]domain.TestSummary, 0, len(tests))
		for _, t := range tests {
			summaries = append(summaries, t.Summary())
		}

		totalPages := (total + filter.Limit - 1) / filter.Limit
		return &TestListing{
			Tests: summaries,
			Pagination: domain.Pagination{
				CurrentPage:  filter.Page,
				TotalPages:   totalPages,
				TotalItems:   total,
				ItemsPerPage: filter.Limit,
			},
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

func boolFilterKey(b *bool) string {
	if b == nil {
		return "any"
	}
	return strconv.FormatBool(*b)
}

func (s *testService) SubmitVote(ctx context.Context, testID, optionID, idempotencyKey string) (*domain.TallyView, error) {
	if idempotencyKey != "" {
		acquired, err := s.cache.TryIdempotencyLock(ctx, idempotencyKey)
		if err != nil {
			s.logger.Warn("idempotency lock check failed, accepting vote",
				zap.String("test_id", testID),
				zap.Error(err))
		} else if !acquired {
			return nil, errors.NewConflictError("duplicate vote submission")
		}
	}

	var tally domain.TallyView
	err := s.withRetry(ctx, testID, func(test *domain.Test) error {
		test.ExpireIfDue(time.Now().UTC())
		if err := test.ApplyVote(optionID); err != nil {
			return err
		}
		tally = test.Tally()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.InvalidateTestCaches(ctx, testID)
	return &tally, nil
}

func (s *testService) Results(ctx context.Context, testID string) ([]domain.ResultEntry, error) {
	test, err := s.GetTest(ctx, testID)
	if err != nil {
		return nil, err
	}

	var results []domain.ResultEntry
	err = s.cache.GetResultsWithCache(ctx, s.cache.ResultsKey(test.ID), redis.TTLResults, &results,
		func(ctx context.Context) (interface{}, error) {
			return test.TallyResults(), nil
		})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (s *testService) ResetVotes(ctx context.Context, caller *domain.Participant, testID string) error {
	if caller == nil || !caller.IsAdmin {
		return errors.NewAuthorizationError("only admins can reset votes")
	}

	err := s.withRetry(ctx, testID, func(test *domain.Test) error {
		test.ResetVotes()
		return nil
	})
	if err != nil {
		return err
	}

	s.cache.InvalidateTestCaches(ctx, testID)
	s.logger.Info("test votes reset", zap.String("test_id", testID), zap.String("reset_by", caller.ID))
	return nil
}

func (s *testService) GlobalStats(ctx context.Context) (*domain.GlobalStats, error) {
	var stats domain.GlobalStats
	err := s.cache.GetResultsWithCache(ctx, s.cache.StatsKey(), redis.TTLGlobalStats, &stats,
		func(ctx context.Context) (interface{}, error) {
			return s.tests.GlobalStats(ctx)
		})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// withRetry runs one CAS cycle up to retryLimit times. Only version conflicts
// are retried; domain errors surface immediately. Exhausting the budget maps
// to an unavailable error so callers know the write was contended, not wrong.
func (s *testService) withRetry(ctx context.Context, testID string, updateFn func(test *domain.Test) error) error {
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

// Start begins the periodic expiry sweep.
func (s *testService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}

	s.sweepTicker = time.NewTicker(SweepPeriod)
	go s.sweepLoop()
	s.isRunning = true
	s.logger.Info("expiry sweep started", zap.Duration("period", SweepPeriod))
	return nil
}

// Stop halts the periodic expiry sweep.
func (s *testService) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return nil
	}

	s.sweepTicker.Stop()
	close(s.stopSweep)
	s.isRunning = false
	s.logger.Info("expiry sweep stopped")
	return nil
}

func (s *testService) sweepLoop() {
	for {
		select {
		case <-s.stopSweep:
			return
		case <-s.sweepTicker.C:
			s.sweepOnce()
		}
	}
}

func (s *testService) sweepOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	now := time.Now().UTC()
	expired, err := s.tests.ExpireDue(ctx, now)
	if err != nil {
		s.logger.Error("expiry sweep failed", zap.Error(err))
		return
	}
	cleared, err := s.tests.ClearExpiredEndDates(ctx, now)
	if err != nil {
		s.logger.Error("end date cleanup failed", zap.Error(err))
		return
	}
	if expired > 0 || cleared > 0 {
		s.logger.Info("expiry sweep completed",
			zap.Int64("expired", expired),
			zap.Int64("cleared_end_dates", cleared))
		s.cache.InvalidateListings(ctx)
	}
}
