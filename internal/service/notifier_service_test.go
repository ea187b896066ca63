package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"versus-be/internal/domain"
	"versus-be/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSink struct {
	mu        sync.Mutex
	delivered []*domain.NotificationEvent
	failNext  int
}

func (c *captureSink) Deliver(ctx context.Context, event *domain.NotificationEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failNext > 0 {
		c.failNext--
		return errors.New("sink unavailable")
	}
	c.delivered = append(c.delivered, event)
	return nil
}

func newNotifierForTest(t *testing.T, outbox *fakeOutbox, sink NotificationSink) *notifierService {
	t.Helper()
	log, err := logger.New("error", "test")
	require.NoError(t, err)
	categories := newFakeCategories(&domain.Category{
		ID:   "cat-1",
		Name: domain.LocalizedText{TR: "Futbol", EN: "Football"},
	})
	return NewNotifierService(outbox, categories, sink, log, time.Second).(*notifierService)
}

func TestDispatchPendingDeliversAndMarks(t *testing.T) {
	outbox := newFakeOutbox()
	sink := &captureSink{}
	notifier := newNotifierForTest(t, outbox, sink)
	ctx := context.Background()

	require.NoError(t, outbox.Enqueue(ctx, &domain.NotificationEvent{
		ParticipantID: "u1",
		Kind:          domain.NotificationVoteCompleted,
		Payload:       domain.VotePayload{TestID: "t1", CategoryID: "cat-1"},
	}))

	notifier.dispatchPending(ctx)

	require.Len(t, sink.delivered, 1)
	assert.Equal(t, "Futbol", sink.delivered[0].Payload.CategoryName)

	pending, err := outbox.FetchPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending, "delivered events leave the pending set")
}

func TestDispatchPendingRetriesFailedDelivery(t *testing.T) {
	outbox := newFakeOutbox()
	sink := &captureSink{failNext: 1}
	notifier := newNotifierForTest(t, outbox, sink)
	ctx := context.Background()

	require.NoError(t, outbox.Enqueue(ctx, &domain.NotificationEvent{
		ParticipantID: "u1",
		Kind:          domain.NotificationVoteCompleted,
		Payload:       domain.VotePayload{TestID: "t1"},
	}))

	notifier.dispatchPending(ctx)
	assert.Empty(t, sink.delivered, "failed delivery stays pending")

	pending, err := outbox.FetchPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	notifier.dispatchPending(ctx)
	assert.Len(t, sink.delivered, 1, "next poll retries the event")
}

func TestDispatchPendingUnknownCategoryDegrades(t *testing.T) {
	outbox := newFakeOutbox()
	sink := &captureSink{}
	notifier := newNotifierForTest(t, outbox, sink)
	ctx := context.Background()

	require.NoError(t, outbox.Enqueue(ctx, &domain.NotificationEvent{
		ParticipantID: "u1",
		Kind:          domain.NotificationVoteCompleted,
		Payload:       domain.VotePayload{TestID: "t1", CategoryID: "cat-missing"},
	}))

	notifier.dispatchPending(ctx)

	require.Len(t, sink.delivered, 1)
	assert.Equal(t, "Unknown", sink.delivered[0].Payload.CategoryName,
		"category lookup failure must not wedge the queue")
}

func TestNotifierStartStopIdempotent(t *testing.T) {
	outbox := newFakeOutbox()
	notifier := newNotifierForTest(t, outbox, &captureSink{})
	ctx := context.Background()

	require.NoError(t, notifier.Start(ctx))
	require.NoError(t, notifier.Start(ctx))
	require.NoError(t, notifier.Stop(ctx))
	require.NoError(t, notifier.Stop(ctx))
}
