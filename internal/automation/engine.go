package automation

import (
	"context"
	"fmt"

	"homehub/internal/metrics"
	"homehub/internal/models"

	"go.uber.org/zap"
)

// RuleStore reads device links. Rules are read-only from the engine's side.
type RuleStore interface {
	FindRulesByInput(ctx context.Context, deviceID string) ([]models.Rule, error)
	FindRulesByOutput(ctx context.Context, deviceID string) ([]models.Rule, error)
}

// ValueReader fetches a device's latest CurrentValue from the cache.
type ValueReader interface {
	Get(ctx context.Context, deviceID string) (models.CurrentValue, bool, error)
}

// StateStore persists the output device's power state when a trigger fires.
type StateStore interface {
	UpdateDeviceState(ctx context.Context, deviceID string, power bool) error
}

// Dispatcher pushes a command towards the real-time transport. Fire-and-forget.
type Dispatcher interface {
	Send(ctx context.Context, cmd models.Command) error
}

// ActionAuditor records dispatched commands out of band.
type ActionAuditor interface {
	EnqueueActionLog(cmd models.Command)
}

// Engine re-evaluates device links whenever an input device's value changes.
// It is level-triggered: every relevant change re-runs the whole trigger
// group, and a group that stops matching simply dispatches nothing.
type Engine struct {
	rules      RuleStore
	values     ValueReader
	state      StateStore
	dispatcher Dispatcher
	audit      ActionAuditor
	logger     *zap.Logger
}

// NewEngine builds an engine. audit may be nil.
func NewEngine(rules RuleStore, values ValueReader, state StateStore, dispatcher Dispatcher, audit ActionAuditor, logger *zap.Logger) *Engine {
	return &Engine{
		rules:      rules,
		values:     values,
		state:      state,
		dispatcher: dispatcher,
		audit:      audit,
		logger:     logger,
	}
}

// OnValueChange evaluates every output device linked to deviceID against its
// full trigger group. newValue is used for deviceID itself so the evaluation
// never reads a stale cache entry for the value being processed. A failure in
// one output group is logged and does not stop the others.
func (e *Engine) OnValueChange(ctx context.Context, deviceID string, newValue models.CurrentValue) {
	linked, err := e.rules.FindRulesByInput(ctx, deviceID)
	if err != nil {
		e.logger.Error("rule lookup failed", zap.String("device", deviceID), zap.Error(err))
		return
	}
	if len(linked) == 0 {
		return
	}

	for _, outputID := range distinctOutputs(linked) {
		if err := e.evaluateOutput(ctx, deviceID, newValue, outputID); err != nil {
			metrics.RuleEvalErrors.Inc()
			e.logger.Warn("output group evaluation failed",
				zap.String("output", outputID), zap.String("triggered_by", deviceID), zap.Error(err))
		}
	}
}

// evaluateOutput re-evaluates one output device's whole trigger group,
// including rules whose inputs did not just change.
func (e *Engine) evaluateOutput(ctx context.Context, triggeredBy string, newValue models.CurrentValue, outputID string) error {
	contributing, err := e.rules.FindRulesByOutput(ctx, outputID)
	if err != nil {
		return fmt.Errorf("rules for output %s: %w", outputID, err)
	}
	if len(contributing) == 0 {
		return nil
	}

	valueCache := make(map[string]models.CurrentValue, len(contributing))
	matched := make(map[string]bool, len(contributing))
	for _, rule := range contributing {
		value, cached := valueCache[rule.InputDeviceID]
		if !cached {
			var err error
			value, err = e.resolveValue(ctx, triggeredBy, newValue, rule.InputDeviceID)
			if err != nil {
				return err
			}
			valueCache[rule.InputDeviceID] = value
		}
		matched[rule.InputDeviceID] = Matches(value, rule.ValueActive)
	}

	if !triggerResult(contributing, matched) {
		return nil
	}

	// One action per output group, shaped by the first contributing rule.
	first := contributing[0]
	power := first.OutputAction == models.ActionTurnOn
	if err := e.state.UpdateDeviceState(ctx, outputID, power); err != nil {
		return fmt.Errorf("persist state for %s: %w", outputID, err)
	}

	cmd := models.Command{
		OutputDeviceID: outputID,
		Action:         first.OutputAction,
		OutputValue:    first.OutputValue,
		TriggeredBy:    triggeredBy,
	}
	if err := e.dispatcher.Send(ctx, cmd); err != nil {
		e.logger.Warn("command dispatch failed", zap.String("output", outputID), zap.Error(err))
	} else {
		metrics.ActionsDispatched.Inc()
	}
	if e.audit != nil {
		e.audit.EnqueueActionLog(cmd)
	}
	e.logger.Info("automation action dispatched",
		zap.String("output", outputID), zap.String("action", string(cmd.Action)),
		zap.String("triggered_by", triggeredBy))
	return nil
}

// resolveValue returns the in-flight value for the triggering device and the
// cached CurrentValue for every other input.
func (e *Engine) resolveValue(ctx context.Context, triggeredBy string, newValue models.CurrentValue, inputID string) (models.CurrentValue, error) {
	if inputID == triggeredBy {
		return newValue, nil
	}
	value, found, err := e.values.Get(ctx, inputID)
	if err != nil {
		return models.CurrentValue{}, fmt.Errorf("current value for %s: %w", inputID, err)
	}
	if !found {
		return models.CurrentValue{}, fmt.Errorf("no current value for input %s", inputID)
	}
	return value, nil
}

// triggerResult combines per-rule booleans: every rule in the AND half must
// match and at least one rule in the OR half must match; an empty half is
// vacuously satisfied.
func triggerResult(rules []models.Rule, matched map[string]bool) bool {
	andOK, orOK := true, false
	hasAND, hasOR := false, false
	for _, rule := range rules {
		hit := matched[rule.InputDeviceID]
		if rule.LogicOperator == models.LogicOR {
			hasOR = true
			orOK = orOK || hit
		} else {
			hasAND = true
			andOK = andOK && hit
		}
	}
	return (!hasAND || andOK) && (!hasOR || orOK)
}

func distinctOutputs(rules []models.Rule) []string {
	seen := make(map[string]bool, len(rules))
	var outputs []string
	for _, rule := range rules {
		if !seen[rule.OutputDeviceID] {
			seen[rule.OutputDeviceID] = true
			outputs = append(outputs, rule.OutputDeviceID)
		}
	}
	return outputs
}
