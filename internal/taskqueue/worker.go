package taskqueue

import (
	"context"
	"encoding/json"
	"fmt"

	"homehub/internal/db"
	"homehub/internal/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const eventsTopic = "events/hourly_values"

// Worker consumes the side-effect tasks: audit rows go to Postgres, hour
// completion events go out on the event topic.
type Worker struct {
	srv    *asynq.Server
	mux    *asynq.ServeMux
	db     *db.DB
	mqtt   mqtt.Client
	logger *zap.Logger
}

// NewWorker wires the task handlers.
func NewWorker(redisAddr string, concurrency int, dbConn *db.DB, mqttClient mqtt.Client, logger *zap.Logger) *Worker {
	w := &Worker{
		srv: asynq.NewServer(
			asynq.RedisClientOpt{Addr: redisAddr},
			asynq.Config{Concurrency: concurrency},
		),
		mux:    asynq.NewServeMux(),
		db:     dbConn,
		mqtt:   mqttClient,
		logger: logger,
	}
	w.mux.HandleFunc(TypeActionLog, w.handleActionLog)
	w.mux.HandleFunc(TypeHourlyValueCreated, w.handleHourlyValueCreated)
	return w
}

// Start runs the worker loop in the background.
func (w *Worker) Start() error {
	return w.srv.Start(w.mux)
}

// Shutdown waits for in-flight tasks.
func (w *Worker) Shutdown() {
	w.srv.Shutdown()
}

func (w *Worker) handleActionLog(ctx context.Context, t *asynq.Task) error {
	var cmd models.Command
	if err := json.Unmarshal(t.Payload(), &cmd); err != nil {
		return fmt.Errorf("decode action log task: %w", err)
	}
	if err := w.db.InsertActionLog(ctx, cmd); err != nil {
		return fmt.Errorf("insert action log: %w", err)
	}
	w.logger.Debug("action logged",
		zap.String("output", cmd.OutputDeviceID), zap.String("action", string(cmd.Action)))
	return nil
}

func (w *Worker) handleHourlyValueCreated(_ context.Context, t *asynq.Task) error {
	var row models.HourlyValue
	if err := json.Unmarshal(t.Payload(), &row); err != nil {
		return fmt.Errorf("decode hourly value task: %w", err)
	}
	w.mqtt.Publish(eventsTopic, 1, false, t.Payload())
	w.logger.Info("hourly value event published",
		zap.String("device", row.DeviceSerial), zap.Time("hour", row.HourTimestamp))
	return nil
}
