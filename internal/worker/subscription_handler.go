package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"resumeforge/internal/database"
	"resumeforge/internal/notify"
	"resumeforge/internal/tasks"
)

const defaultExpireBatchSize = 500

// SubscriptionTaskHandler runs the periodic expiry sweep: active
// subscriptions past their period end are flipped to expired and their
// owners are notified so clients drop back to Free entitlements.
type SubscriptionTaskHandler struct {
	db        *gorm.DB
	publisher notify.Publisher
	logger    *slog.Logger
}

// NewSubscriptionTaskHandler constructs the handler.
func NewSubscriptionTaskHandler(db *gorm.DB, publisher notify.Publisher, logger *slog.Logger) *SubscriptionTaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubscriptionTaskHandler{db: db, publisher: publisher, logger: logger}
}

// ProcessTask implements asynq.Handler.
func (h *SubscriptionTaskHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload tasks.SubscriptionExpirePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode expire payload: %w", err)
	}
	batchSize := payload.BatchSize
	if batchSize <= 0 {
		batchSize = defaultExpireBatchSize
	}

	var due []database.UserSubscription
	if err := h.db.WithContext(ctx).
		Where("status = ? AND current_period_end < ?", database.SubscriptionActive, time.Now()).
		Limit(batchSize).
		Find(&due).Error; err != nil {
		return fmt.Errorf("query due subscriptions: %w", err)
	}
	if len(due) == 0 {
		return nil
	}

	for _, sub := range due {
		if err := h.db.WithContext(ctx).Model(&database.UserSubscription{}).
			Where("id = ? AND status = ?", sub.ID, database.SubscriptionActive).
			Update("status", database.SubscriptionExpired).Error; err != nil {
			return fmt.Errorf("expire subscription %d: %w", sub.ID, err)
		}

		event := notify.Event{
			Resource: notify.ResourceSubscriptions,
			Action:   notify.ActionUpdate,
			ID:       sub.ID,
		}
		if err := h.publisher.Publish(ctx, sub.UserID, event); err != nil {
			h.logger.Error("publish expiry event failed",
				slog.Uint64("user_id", uint64(sub.UserID)),
				slog.Any("error", err),
			)
		}

		h.logger.Info("subscription expired",
			slog.Uint64("subscription_id", uint64(sub.ID)),
			slog.Uint64("user_id", uint64(sub.UserID)),
		)
	}

	return nil
}
