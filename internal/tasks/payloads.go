package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// Task type constants keep the queue producer and consumer in sync.
const (
	TypeSubscriptionExpire = "subscription:expire"
)

// SubscriptionExpirePayload bounds one expiry sweep.
type SubscriptionExpirePayload struct {
	BatchSize int `json:"batch_size"`
}

// NewSubscriptionExpireTask builds the periodic subscription expiry sweep.
func NewSubscriptionExpireTask(batchSize int) (*asynq.Task, error) {
	payload, err := json.Marshal(SubscriptionExpirePayload{BatchSize: batchSize})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeSubscriptionExpire, payload), nil
}
