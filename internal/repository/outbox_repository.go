package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"versus-be/internal/domain"
	"versus-be/pkg/database"
)

type PostgresOutboxRepository struct {
	db *database.PostgresDB
}

func NewOutboxRepository(db *database.PostgresDB) *PostgresOutboxRepository {
	return &PostgresOutboxRepository{db: db}
}

func (r *PostgresOutboxRepository) Enqueue(ctx context.Context, event *domain.NotificationEvent) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode notification payload: %w", err)
	}

	event.CreatedAt = time.Now().UTC()
	err = r.db.Pool.QueryRow(ctx, `
		INSERT INTO notification_outbox (participant_id, kind, payload, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, event.ParticipantID, event.Kind, payload, event.CreatedAt).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}
	return nil
}

func (r *PostgresOutboxRepository) FetchPending(ctx context.Context, limit int) ([]*domain.NotificationEvent, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, participant_id, kind, payload, created_at
		FROM notification_outbox
		WHERE dispatched_at IS NULL
		ORDER BY created_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pending notifications: %w", err)
	}
	defer rows.Close()

	var events []*domain.NotificationEvent
	for rows.Next() {
		var (
			event   domain.NotificationEvent
			payload []byte
		)
		if err := rows.Scan(&event.ID, &event.ParticipantID, &event.Kind, &payload, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification row: %w", err)
		}
		if err := json.Unmarshal(payload, &event.Payload); err != nil {
			return nil, fmt.Errorf("failed to decode notification payload: %w", err)
		}
		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read notification rows: %w", err)
	}
	return events, nil
}

func (r *PostgresOutboxRepository) MarkDispatched(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE notification_outbox SET dispatched_at = $2 WHERE id = $1 AND dispatched_at IS NULL`,
		id, at.UTC())
	if err != nil {
		return fmt.Errorf("failed to mark notification dispatched: %w", err)
	}
	return nil
}
