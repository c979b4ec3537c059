package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ikayjohn/wingside-sub005/internal/domain"
)

// WebhookEventRepository is the durable audit trail of every inbound payment
// event: what arrived, what the engine decided, and the untouched raw
// payload. Deferred rows are the manual-review queue.
type WebhookEventRepository struct {
	db *pgxpool.Pool
}

func NewWebhookEventRepository(db *pgxpool.Pool) *WebhookEventRepository {
	return &WebhookEventRepository{db: db}
}

func (r *WebhookEventRepository) RecordEvent(ctx context.Context, ev *domain.NormalizedEvent, outcome, reason string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO webhook_events (
			provider, reference, raw_status, status_category,
			amount_minor, outcome, reason, payload, occurred_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, ev.Provider, ev.Reference, ev.ProviderRawStatus, ev.StatusCategory,
		ev.AmountMinor, outcome, reason, []byte(ev.Raw), ev.OccurredAt)
	if err != nil {
		return fmt.Errorf("webhook event insert failed: %w", err)
	}
	return nil
}

// ListDeferred returns events held for operator review, oldest first.
func (r *WebhookEventRepository) ListDeferred(ctx context.Context, limit int) ([]*domain.NormalizedEvent, error) {
	rows, err := r.db.Query(ctx, `
		SELECT provider, reference, raw_status, status_category, amount_minor, payload, occurred_at
		FROM webhook_events
		WHERE outcome = 'deferred'
		ORDER BY received_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.NormalizedEvent
	for rows.Next() {
		var ev domain.NormalizedEvent
		var payload []byte
		if err := rows.Scan(&ev.Provider, &ev.Reference, &ev.ProviderRawStatus,
			&ev.StatusCategory, &ev.AmountMinor, &payload, &ev.OccurredAt); err != nil {
			return nil, err
		}
		ev.Raw = payload
		out = append(out, &ev)
	}
	return out, rows.Err()
}
