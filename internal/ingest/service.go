package ingest

import (
	"context"
	"time"

	"homehub/internal/aggregation"
	"homehub/internal/automation"
	"homehub/internal/currentvalue"
	"homehub/internal/metrics"
	"homehub/internal/models"

	"go.uber.org/zap"
)

// Service is the ingestion boundary: one call per inbound sample, fanned out
// to the aggregation pipeline and the automation engine. The two consumers
// share the sample but not each other's outcome.
type Service struct {
	pipeline *aggregation.Pipeline
	engine   *automation.Engine
	values   currentvalue.Store
	timeout  time.Duration
	logger   *zap.Logger
}

// NewService builds the boundary. timeout bounds cache/store round trips for
// one sample.
func NewService(pipeline *aggregation.Pipeline, engine *automation.Engine, values currentvalue.Store, timeout time.Duration, logger *zap.Logger) *Service {
	return &Service{
		pipeline: pipeline,
		engine:   engine,
		values:   values,
		timeout:  timeout,
		logger:   logger,
	}
}

// HandleSample stores the device's new CurrentValue and invokes both engines.
// Only the pipeline's DeviceNotFound at hour completion propagates; everything
// else is handled downstream. A payload with no usable fields is dropped
// without touching any store.
func (s *Service) HandleSample(ctx context.Context, serial string, fields map[string]any) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	value := models.CurrentValueFromFields(fields)
	if len(value.Components) == 0 {
		metrics.SamplesInvalid.Inc()
		s.logger.Debug("sample with no usable fields dropped", zap.String("device", serial))
		return nil
	}

	if err := s.values.Set(ctx, serial, value); err != nil {
		// The engine still evaluates against the in-flight value.
		s.logger.Warn("current value write failed", zap.String("device", serial), zap.Error(err))
	}

	err := s.pipeline.Ingest(ctx, serial, fields)
	s.engine.OnValueChange(ctx, serial, value)
	return err
}
