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

const deadLetterColumns = `id, original_message_id, aggregate_type, aggregate_id, event_type, payload,
	error_message, failure_reason, retry_count, last_retry_at, status, created_at, resolved_at`

// DeadLetterRepository handles database operations for dead letter messages
type DeadLetterRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewDeadLetterRepository creates a new DeadLetterRepository
func NewDeadLetterRepository(db *database.Database, logger logger.Logger) *DeadLetterRepository {
	return &DeadLetterRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a dead letter message
func (r *DeadLetterRepository) Create(ctx context.Context, message *models.DeadLetterMessage) error {
	query := `
		INSERT INTO dead_letter_messages (
			original_message_id, aggregate_type, aggregate_id, event_type, payload,
			error_message, failure_reason, retry_count, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.DB.ExecContext(ctx, query,
		message.OriginalMessageID, message.AggregateType, message.AggregateID,
		message.EventType, message.Payload, message.ErrorMessage, message.FailureReason,
		message.RetryCount, message.Status, message.CreatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create dead letter message", "error", err, "originalMessageID", message.OriginalMessageID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// GetMessages retrieves dead letter messages by status
func (r *DeadLetterRepository) GetMessages(ctx context.Context, status models.DeadLetterStatus, limit int) ([]*models.DeadLetterMessage, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM dead_letter_messages
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
	`, deadLetterColumns)

	var messages []*models.DeadLetterMessage
	err := r.db.DB.SelectContext(ctx, &messages, query, status, limit)

	if err != nil {
		r.logger.Error("Failed to get dead letter messages", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return messages, nil
}

// GetMessage retrieves a single dead letter message
func (r *DeadLetterRepository) GetMessage(ctx context.Context, id int64) (*models.DeadLetterMessage, error) {
	query := fmt.Sprintf(`SELECT %s FROM dead_letter_messages WHERE id = $1`, deadLetterColumns)

	var message models.DeadLetterMessage
	err := r.db.DB.GetContext(ctx, &message, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get dead letter message", "error", err, "messageID", id)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &message, nil
}

// MarkAsRetrying flags a dead letter message as queued for another attempt
func (r *DeadLetterRepository) MarkAsRetrying(ctx context.Context, id int64) error {
	query := `
		UPDATE dead_letter_messages
		SET status = $2, retry_count = retry_count + 1, last_retry_at = NOW()
		WHERE id = $1
	`

	return r.exec(ctx, query, id, models.DeadLetterStatusRetrying)
}

// MarkAsPending puts a dead letter message back in the replay queue
func (r *DeadLetterRepository) MarkAsPending(ctx context.Context, id int64) error {
	query := `
		UPDATE dead_letter_messages
		SET status = $2, resolved_at = NULL
		WHERE id = $1
	`

	return r.exec(ctx, query, id, models.DeadLetterStatusPending)
}

// MarkAsResolved flags a dead letter message as successfully republished
func (r *DeadLetterRepository) MarkAsResolved(ctx context.Context, id int64) error {
	query := `
		UPDATE dead_letter_messages
		SET status = $2, resolved_at = NOW()
		WHERE id = $1
	`

	return r.exec(ctx, query, id, models.DeadLetterStatusResolved)
}

// MarkAsDiscarded flags a dead letter message as abandoned by an operator
func (r *DeadLetterRepository) MarkAsDiscarded(ctx context.Context, id int64) error {
	query := `
		UPDATE dead_letter_messages
		SET status = $2, resolved_at = NOW()
		WHERE id = $1
	`

	return r.exec(ctx, query, id, models.DeadLetterStatusDiscarded)
}

func (r *DeadLetterRepository) exec(ctx context.Context, query string, args ...interface{}) error {
	result, err := r.db.DB.ExecContext(ctx, query, args...)

	if err != nil {
		r.logger.Error("Failed to update dead letter message", "error", err)
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
