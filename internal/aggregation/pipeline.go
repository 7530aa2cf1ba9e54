package aggregation

import (
	"context"
	"fmt"
	"math"
	"time"

	"homehub/internal/metrics"
	"homehub/internal/models"

	"go.uber.org/zap"
)

const (
	accumulateAttempts = 3
	retryBackoff       = 50 * time.Millisecond
)

// DeviceFinder resolves a device's durable record at hour completion.
type DeviceFinder interface {
	FindDeviceBySerial(ctx context.Context, serial string) (*models.Device, error)
}

// HourlySink persists completed hour windows.
type HourlySink interface {
	CreateHourlyValue(ctx context.Context, row models.HourlyValue) error
}

// Notifier is told about each persisted hourly row. Fire-and-forget.
type Notifier interface {
	NotifyHourlyValueCreated(row models.HourlyValue)
}

// Pipeline folds samples into per-device minute and hour windows and persists
// one HourlyValue row per closed hour.
type Pipeline struct {
	store    CounterStore
	devices  DeviceFinder
	sink     HourlySink
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewPipeline builds a pipeline. notifier may be nil.
func NewPipeline(store CounterStore, devices DeviceFinder, sink HourlySink, notifier Notifier, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		store:    store,
		devices:  devices,
		sink:     sink,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Ingest folds one raw sample into the device's windows. Non-numeric, NaN and
// infinite fields are dropped first; a sample with nothing left is a no-op
// that never reaches the store. The only error surfaced to the caller is
// models.ErrDeviceNotFound at hour completion; transient store trouble is
// retried and then dropped.
func (p *Pipeline) Ingest(ctx context.Context, deviceID string, fields map[string]any) error {
	clean := sanitizeFields(fields)
	if len(clean) == 0 {
		metrics.SamplesInvalid.Inc()
		return nil
	}
	metrics.SamplesTotal.Inc()

	res, err := p.accumulateWithRetry(ctx, deviceID, clean)
	if err != nil {
		metrics.StoreFailures.Inc()
		p.logger.Error("accumulator update dropped, window will expire via TTL",
			zap.String("device", deviceID), zap.Error(err))
		return nil
	}

	if res.MinuteClosed {
		metrics.MinuteRollups.Inc()
	}
	if !res.HourClosed {
		return nil
	}
	metrics.HourRollups.Inc()
	return p.persistHour(ctx, deviceID, res)
}

func (p *Pipeline) accumulateWithRetry(ctx context.Context, deviceID string, fields map[string]float64) (Result, error) {
	var lastErr error
	for attempt := 1; attempt <= accumulateAttempts; attempt++ {
		if attempt > 1 {
			metrics.StoreRetries.Inc()
			select {
			case <-ctx.Done():
				return Result{}, ctx.Err()
			case <-time.After(retryBackoff):
			}
		}
		res, err := p.store.Accumulate(ctx, deviceID, fields)
		if err == nil {
			return res, nil
		}
		lastErr = err
		p.logger.Warn("counter store accumulate failed",
			zap.String("device", deviceID), zap.Int("attempt", attempt), zap.Error(err))
	}
	return Result{}, lastErr
}

// persistHour writes the HourlyValue row for a closed hour. The accumulator
// keys are already gone, so a failed write here is logged and dropped rather
// than leaving the window to retry forever.
func (p *Pipeline) persistHour(ctx context.Context, deviceID string, res Result) error {
	device, err := p.devices.FindDeviceBySerial(ctx, deviceID)
	if err != nil {
		return fmt.Errorf("resolve device %s at hour completion: %w", deviceID, err)
	}

	avg := make(map[string]float64, len(res.HourSums))
	for name, sum := range res.HourSums {
		avg[name] = sum / float64(res.HourCount)
	}

	row := models.HourlyValue{
		DeviceSerial:  deviceID,
		SpaceID:       device.SpaceID,
		HourTimestamp: p.now().Truncate(time.Hour),
		AvgValue:      avg,
		SampleCount:   res.HourCount * res.MinuteCount,
	}
	if err := p.sink.CreateHourlyValue(ctx, row); err != nil {
		p.logger.Error("hourly value write failed, row dropped",
			zap.String("device", deviceID), zap.Time("hour", row.HourTimestamp), zap.Error(err))
		return nil
	}
	metrics.HourlyRowsWritten.Inc()
	p.logger.Info("hourly value persisted",
		zap.String("device", deviceID), zap.Time("hour", row.HourTimestamp),
		zap.Int("sample_count", row.SampleCount))
	if p.notifier != nil {
		p.notifier.NotifyHourlyValueCreated(row)
	}
	return nil
}

// sanitizeFields keeps only finite numeric fields.
func sanitizeFields(fields map[string]any) map[string]float64 {
	clean := make(map[string]float64, len(fields))
	for name, raw := range fields {
		var value float64
		switch v := raw.(type) {
		case float64:
			value = v
		case float32:
			value = float64(v)
		case int:
			value = float64(v)
		case int64:
			value = float64(v)
		default:
			continue
		}
		if math.IsNaN(value) || math.IsInf(value, 0) {
			continue
		}
		clean[name] = value
	}
	return clean
}
