package taskqueue

import (
	"encoding/json"
	"time"

	"homehub/internal/models"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const (
	// TypeActionLog records one dispatched automation command in the audit trail.
	TypeActionLog = "automation:action_log"
	// TypeHourlyValueCreated fans a completed hour window out to external notifiers.
	TypeHourlyValueCreated = "aggregation:hourly_value_created"
)

// Queue enqueues fire-and-forget side effects so the engines never block on
// them. Enqueue failures are logged and dropped.
type Queue struct {
	client *asynq.Client
	logger *zap.Logger
}

// NewQueue connects an asynq client to the given Redis instance.
func NewQueue(redisAddr string, logger *zap.Logger) *Queue {
	return &Queue{
		client: asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr}),
		logger: logger,
	}
}

// Close releases the underlying client.
func (q *Queue) Close() {
	if err := q.client.Close(); err != nil {
		q.logger.Warn("task queue close failed", zap.Error(err))
	}
}

// EnqueueActionLog schedules an audit row for a dispatched command.
func (q *Queue) EnqueueActionLog(cmd models.Command) {
	q.enqueue(TypeActionLog, cmd)
}

// NotifyHourlyValueCreated schedules a notification event for a persisted
// hourly row.
func (q *Queue) NotifyHourlyValueCreated(row models.HourlyValue) {
	q.enqueue(TypeHourlyValueCreated, row)
}

func (q *Queue) enqueue(taskType string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		q.logger.Error("task payload marshal failed", zap.String("type", taskType), zap.Error(err))
		return
	}
	task := asynq.NewTask(taskType, raw)
	info, err := q.client.Enqueue(task, asynq.MaxRetry(3), asynq.Timeout(10*time.Second))
	if err != nil {
		q.logger.Error("task enqueue failed", zap.String("type", taskType), zap.Error(err))
		return
	}
	q.logger.Debug("task enqueued", zap.String("type", taskType), zap.String("id", info.ID))
}
