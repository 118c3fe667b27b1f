package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/VK7Cuber/Room2room-Tour/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OutboxRepository interface {
	Create(ctx context.Context, event *domain.OutboxEvent) error
	FetchBatch(ctx context.Context, limit int) ([]domain.OutboxEvent, error)
	MarkProcessed(ctx context.Context, ids []string) error
	MarkFailed(ctx context.Context, ids []string) error
}

type PGOutboxRepository struct {
	db *pgxpool.Pool
}

func NewOutboxRepository(db *pgxpool.Pool) OutboxRepository {
	return &PGOutboxRepository{db: db}
}

// Create joins the transaction in ctx, so the event commits together with the booking write.
func (r *PGOutboxRepository) Create(ctx context.Context, e *domain.OutboxEvent) error {
	if e.Status == "" {
		e.Status = domain.OutboxStatusNew
	}
	_, err := conn(ctx, r.db).Exec(ctx, `INSERT INTO outbox (id, event_type, aggregate_id, payload, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
		e.ID, e.EventType, e.AggregateID, e.Payload, e.Status, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

// processingLease is how long a claimed event may stay in 'processing' before another relay
// takes it back. It covers a relay that died between claiming and marking.
const processingLease = 5 * time.Minute

const fetchOutboxBatchSQL = `
	WITH claimed AS (
		SELECT id
		FROM outbox
		WHERE status = 'new'
		   OR (status = 'processing' AND updated_at < NOW() - make_interval(secs => $2))
		ORDER BY created_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	)
	UPDATE outbox
	SET status = 'processing', updated_at = NOW()
	WHERE id IN (SELECT id FROM claimed)
	RETURNING id, event_type, aggregate_id, payload, status, created_at, updated_at
`

// FetchBatch claims up to limit events, oldest first: new ones and those whose processing
// lease ran out. Concurrent relays skip each other's rows.
func (r *PGOutboxRepository) FetchBatch(ctx context.Context, limit int) ([]domain.OutboxEvent, error) {
	rows, err := conn(ctx, r.db).Query(ctx, fetchOutboxBatchSQL, limit, processingLease.Seconds())
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var events []domain.OutboxEvent
	for rows.Next() {
		var e domain.OutboxEvent
		if err := rows.Scan(&e.ID, &e.EventType, &e.AggregateID, &e.Payload, &e.Status, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *PGOutboxRepository) MarkProcessed(ctx context.Context, ids []string) error {
	return r.setStatus(ctx, ids, domain.OutboxStatusProcessed)
}

// MarkFailed puts events back in the queue for the next poll.
func (r *PGOutboxRepository) MarkFailed(ctx context.Context, ids []string) error {
	return r.setStatus(ctx, ids, domain.OutboxStatusNew)
}

func (r *PGOutboxRepository) setStatus(ctx context.Context, ids []string, status string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := conn(ctx, r.db).Exec(ctx, `UPDATE outbox SET status = $1, updated_at = NOW() WHERE id = ANY($2)`, status, ids); err != nil {
		return fmt.Errorf("mark outbox %s: %w", status, err)
	}
	return nil
}

var _ OutboxRepository = (*PGOutboxRepository)(nil)
