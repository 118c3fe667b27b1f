package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type InboxRepository interface {
	SaveIfNotExists(ctx context.Context, consumer, eventID, eventType string) (bool, error)
}

type PGInboxRepository struct {
	db *pgxpool.Pool
}

func NewInboxRepository(db *pgxpool.Pool) InboxRepository {
	return &PGInboxRepository{db: db}
}

const saveInboxEventSQL = `INSERT INTO inbox_events (consumer, event_id, event_type, processed_at)
	VALUES ($1, $2, $3, NOW())
	ON CONFLICT (consumer, event_id) DO NOTHING`

// SaveIfNotExists returns true if the event was recorded now, false if the consumer already saw it.
func (r *PGInboxRepository) SaveIfNotExists(ctx context.Context, consumer, eventID, eventType string) (bool, error) {
	tag, err := conn(ctx, r.db).Exec(ctx, saveInboxEventSQL, consumer, eventID, eventType)
	if err != nil {
		return false, fmt.Errorf("insert inbox event: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

var _ InboxRepository = (*PGInboxRepository)(nil)
