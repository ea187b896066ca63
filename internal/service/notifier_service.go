package service

import (
	"context"
	"sync"
	"time"

	"versus-be/internal/domain"
	"versus-be/internal/repository"
	"versus-be/pkg/logger"
)

// DispatchBatchSize caps how many outbox rows one poll drains.
const DispatchBatchSize = 50

// notifierService drains the notification outbox on a fixed period. Events
// are enriched with the category name before delivery; a category lookup
// failure degrades to a placeholder rather than blocking the event.
type notifierService struct {
	outbox     repository.OutboxRepository
	categories repository.CategoryRepository
	sink       NotificationSink
	logger     *logger.Logger
	pollPeriod time.Duration

	pollTicker *time.Ticker
	stopPoll   chan struct{}
	mu         sync.Mutex
	isRunning  bool
}

// NewNotifierService creates a new notifier service.
func NewNotifierService(outbox repository.OutboxRepository, categories repository.CategoryRepository, sink NotificationSink, logger *logger.Logger, pollPeriod time.Duration) NotifierService {
	if pollPeriod <= 0 {
		pollPeriod = 15 * time.Second
	}
	return &notifierService{
		outbox:     outbox,
		categories: categories,
		sink:       sink,
		logger:     logger,
		pollPeriod: pollPeriod,
		stopPoll:   make(chan struct{}),
	}
}

// Start begins the outbox polling loop.
func (s *notifierService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}

	s.logger.WithField("poll_period", s.pollPeriod.String()).Info("Starting notification dispatcher")
	s.pollTicker = time.NewTicker(s.pollPeriod)
	go s.pollLoop()
	s.isRunning = true
	return nil
}

// Stop drains one final batch and halts polling.
func (s *notifierService) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return nil
	}

	s.logger.Info("Stopping notification dispatcher")
	s.pollTicker.Stop()
	close(s.stopPoll)
	s.dispatchPending(ctx)
	s.isRunning = false
	return nil
}

func (s *notifierService) pollLoop() {
	for {
		select {
		case <-s.stopPoll:
			return
		case <-s.pollTicker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			s.dispatchPending(ctx)
			cancel()
		}
	}
}

// dispatchPending delivers one batch of undispatched events. A failed delivery
// leaves the row pending; it will be retried on the next poll.
func (s *notifierService) dispatchPending(ctx context.Context) {
	events, err := s.outbox.FetchPending(ctx, DispatchBatchSize)
	if err != nil {
		s.logger.WithError(err).Error("Failed to fetch pending notifications")
		return
	}
	if len(events) == 0 {
		return
	}

	delivered := 0
	for _, event := range events {
		s.enrich(ctx, event)

		if err := s.sink.Deliver(ctx, event); err != nil {
			s.logger.WithError(err).
				WithField("event_id", event.ID).
				Warn("Notification delivery failed, will retry")
			continue
		}
		if err := s.outbox.MarkDispatched(ctx, event.ID, time.Now().UTC()); err != nil {
			s.logger.WithError(err).
				WithField("event_id", event.ID).
				Error("Failed to mark notification dispatched")
			continue
		}
		delivered++
	}

	s.logger.WithFields(map[string]interface{}{
		"fetched":   len(events),
		"delivered": delivered,
	}).Info("Notification batch dispatched")
}

// enrich resolves the category name for the payload. Failures degrade to a
// placeholder so one broken lookup never wedges the queue.
func (s *notifierService) enrich(ctx context.Context, event *domain.NotificationEvent) {
	if event.Payload.CategoryID == "" || event.Payload.CategoryName != "" {
		return
	}
	category, err := s.categories.Get(ctx, event.Payload.CategoryID)
	if err != nil {
		s.logger.WithError(err).
			WithField("category_id", event.Payload.CategoryID).
			Warn("Failed to resolve category for notification")
		event.Payload.CategoryName = "Unknown"
		return
	}
	event.Payload.CategoryName = category.Name.Get(domain.DefaultLanguage)
}

// LogSink is the default notification sink: it writes structured delivery
// records to the application log. Swappable for a push or email sink.
type LogSink struct {
	logger *logger.Logger
}

// NewLogSink creates a sink that logs deliveries.
func NewLogSink(logger *logger.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Deliver implements NotificationSink.
func (l *LogSink) Deliver(ctx context.Context, event *domain.NotificationEvent) error {
	l.logger.WithFields(map[string]interface{}{
		"event_id":       event.ID,
		"participant_id": event.ParticipantID,
		"kind":           string(event.Kind),
		"test_id":        event.Payload.TestID,
		"test_title":     event.Payload.TestTitle.Get(domain.DefaultLanguage),
		"category_name":  event.Payload.CategoryName,
	}).Info("Notification delivered")
	return nil
}
