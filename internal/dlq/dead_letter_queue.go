package dlq

import (
	"context"
	"fmt"
	"time"

	"github.com/vhvplatform/go-reminder-service/internal/domain"
	"github.com/vhvplatform/go-reminder-service/internal/gateway"
	"github.com/vhvplatform/go-reminder-service/internal/metrics"
	"github.com/vhvplatform/go-reminder-service/internal/repository"
	"github.com/vhvplatform/go-reminder-service/internal/shared/logger"
)

// DeadLetterQueue stores reminders that exhausted their retry budget so an
// operator can inspect and re-drive them.
type DeadLetterQueue struct {
	repo *repository.FailedReminderRepository
	log  *logger.Logger
}

// NewDeadLetterQueue creates a new dead letter queue
func NewDeadLetterQueue(repo *repository.FailedReminderRepository, log *logger.Logger) *DeadLetterQueue {
	return &DeadLetterQueue{
		repo: repo,
		log:  log,
	}
}

// Add records an exhausted reminder delivery
func (q *DeadLetterQueue) Add(ctx context.Context, userID, content string, slot time.Time, attempts int, cause error) error {
	q.log.Warn("adding reminder to DLQ", "user_id", userID, "slot", slot.Format(time.RFC3339), "error", cause)

	failed := &domain.FailedReminder{
		UserID:       userID,
		Content:      content,
		Slot:         slot,
		Error:        cause.Error(),
		AttemptCount: attempts,
		FailedAt:     time.Now().UTC(),
	}

	if err := q.repo.Create(ctx, failed); err != nil {
		return err
	}

	if _, total, err := q.repo.FindAll(ctx, 1, 1); err == nil {
		metrics.DLQSize.Set(float64(total))
	}
	return nil
}

// GetAll retrieves failed reminders with pagination
func (q *DeadLetterQueue) GetAll(ctx context.Context, page, pageSize int) ([]*domain.FailedReminder, int64, error) {
	return q.repo.FindAll(ctx, page, pageSize)
}

// Retry re-sends a failed reminder directly through the gateway and removes
// it from the queue on success. This is an operator action; it bypasses the
// schedule and does not touch next_fire_at.
func (q *DeadLetterQueue) Retry(ctx context.Context, id string, gw gateway.Gateway) error {
	failed, err := q.repo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to find reminder: %w", err)
	}

	q.log.Info("retrying failed reminder", "id", id, "user_id", failed.UserID)

	if err := gw.Send(ctx, failed.UserID, failed.Content); err != nil {
		return fmt.Errorf("retry failed: %w", err)
	}

	return q.repo.Delete(ctx, id)
}
