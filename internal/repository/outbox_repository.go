package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/SpideeCode/uberPharmaV2/internal/database"
	"github.com/SpideeCode/uberPharmaV2/internal/models"
	"github.com/SpideeCode/uberPharmaV2/pkg/logger"
)

const outboxColumns = `id, aggregate_type, aggregate_id, event_type, payload, created_at,
	processed_at, processing_attempts, last_error, status`

// OutboxRepository handles database operations for the transactional outbox
type OutboxRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewOutboxRepository creates a new OutboxRepository
func NewOutboxRepository(db *database.Database, logger logger.Logger) *OutboxRepository {
	return &OutboxRepository{
		db:     db,
		logger: logger,
	}
}

// CreateInTx inserts an outbox message in the same transaction as the state
// change it announces
func (r *OutboxRepository) CreateInTx(ctx context.Context, tx Tx, message *models.OutboxMessage) error {
	query := `
		INSERT INTO outbox_messages (aggregate_type, aggregate_id, event_type, payload, created_at, processing_attempts, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := tx.ExecContext(ctx, query,
		message.AggregateType, message.AggregateID, message.EventType,
		message.Payload, message.CreatedAt, message.ProcessingAttempts, message.Status,
	)

	if err != nil {
		r.logger.Error("Failed to create outbox message", "error", err, "eventType", message.EventType)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// GetPendingMessages retrieves a batch of messages waiting to be published
func (r *OutboxRepository) GetPendingMessages(ctx context.Context, limit int) ([]*models.OutboxMessage, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM outbox_messages
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
	`, outboxColumns)

	var messages []*models.OutboxMessage
	err := r.db.DB.SelectContext(ctx, &messages, query, models.OutboxStatusPending, limit)

	if err != nil {
		r.logger.Error("Failed to get pending outbox messages", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return messages, nil
}

// GetMessage retrieves a single outbox message
func (r *OutboxRepository) GetMessage(ctx context.Context, id int64) (*models.OutboxMessage, error) {
	query := fmt.Sprintf(`SELECT %s FROM outbox_messages WHERE id = $1`, outboxColumns)

	var message models.OutboxMessage
	err := r.db.DB.GetContext(ctx, &message, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get outbox message", "error", err, "messageID", id)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &message, nil
}

// MarkAsProcessing flags a message as picked up by the publisher
func (r *OutboxRepository) MarkAsProcessing(ctx context.Context, id int64) error {
	query := `
		UPDATE outbox_messages
		SET status = $2, processing_attempts = processing_attempts + 1
		WHERE id = $1
	`

	return r.exec(ctx, query, id, models.OutboxStatusProcessing)
}

// MarkAsCompleted flags a message as successfully published
func (r *OutboxRepository) MarkAsCompleted(ctx context.Context, id int64) error {
	query := `
		UPDATE outbox_messages
		SET status = $2, processed_at = NOW()
		WHERE id = $1
	`

	return r.exec(ctx, query, id, models.OutboxStatusCompleted)
}

// MarkAsFailed records a publish failure and returns the message to the queue
// or parks it, depending on the status the caller chooses
func (r *OutboxRepository) MarkAsFailed(ctx context.Context, id int64, status models.OutboxStatus, errorMsg string) error {
	query := `
		UPDATE outbox_messages
		SET status = $2, last_error = $3
		WHERE id = $1
	`

	return r.exec(ctx, query, id, status, errorMsg)
}

func (r *OutboxRepository) exec(ctx context.Context, query string, args ...interface{}) error {
	result, err := r.db.DB.ExecContext(ctx, query, args...)

	if err != nil {
		r.logger.Error("Failed to update outbox message", "error", err)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	rowsAffected, err := result.RowsAffected()

	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
