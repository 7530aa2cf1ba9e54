package automation

import (
	"context"
	"errors"
	"testing"

	"homehub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubRuleStore struct {
	byInput  map[string][]models.Rule
	byOutput map[string][]models.Rule
	inputErr error
}

func (s *stubRuleStore) FindRulesByInput(_ context.Context, id string) ([]models.Rule, error) {
	return s.byInput[id], s.inputErr
}

func (s *stubRuleStore) FindRulesByOutput(_ context.Context, id string) ([]models.Rule, error) {
	return s.byOutput[id], nil
}

type stubValueReader struct {
	values map[string]models.CurrentValue
	err    error
}

func (s *stubValueReader) Get(_ context.Context, id string) (models.CurrentValue, bool, error) {
	if s.err != nil {
		return models.CurrentValue{}, false, s.err
	}
	v, ok := s.values[id]
	return v, ok, nil
}

type stubStateStore struct {
	updates map[string][]bool
	err     error
}

func (s *stubStateStore) UpdateDeviceState(_ context.Context, id string, power bool) error {
	if s.err != nil {
		return s.err
	}
	if s.updates == nil {
		s.updates = make(map[string][]bool)
	}
	s.updates[id] = append(s.updates[id], power)
	return nil
}

type stubDispatcher struct {
	sent []models.Command
}

func (s *stubDispatcher) Send(_ context.Context, cmd models.Command) error {
	s.sent = append(s.sent, cmd)
	return nil
}

func gasValue(v string) models.CurrentValue {
	return models.CurrentValue{Components: []models.Component{
		{ComponentID: "gas", Datatype: models.DatatypeNumber, Instances: []models.Instance{{Index: 0, Value: v}}},
	}}
}

func newTestEngine(rules *stubRuleStore, values *stubValueReader, state *stubStateStore, disp *stubDispatcher) *Engine {
	return NewEngine(rules, values, state, disp, nil, zap.NewNop())
}

func TestSingleRuleTriggersExactlyOnce(t *testing.T) {
	rule := models.Rule{
		ID: 1, InputDeviceID: "D1", OutputDeviceID: "D2", ComponentID: "gas",
		ValueActive: ">600", LogicOperator: models.LogicAND, OutputAction: models.ActionTurnOn,
	}
	rules := &stubRuleStore{
		byInput:  map[string][]models.Rule{"D1": {rule}},
		byOutput: map[string][]models.Rule{"D2": {rule}},
	}
	state := &stubStateStore{}
	disp := &stubDispatcher{}
	engine := newTestEngine(rules, &stubValueReader{}, state, disp)

	engine.OnValueChange(context.Background(), "D1", gasValue("650"))

	require.Len(t, disp.sent, 1)
	assert.Equal(t, "D2", disp.sent[0].OutputDeviceID)
	assert.Equal(t, models.ActionTurnOn, disp.sent[0].Action)
	assert.Equal(t, "D1", disp.sent[0].TriggeredBy)
	require.Len(t, state.updates["D2"], 1)
	assert.True(t, state.updates["D2"][0])

	// level-triggered: a value below the threshold dispatches nothing
	engine.OnValueChange(context.Background(), "D1", gasValue("400"))
	assert.Len(t, disp.sent, 1)
	assert.Len(t, state.updates["D2"], 1)
}

func TestANDGroupNeedsAllInputs(t *testing.T) {
	ruleA := models.Rule{
		ID: 1, InputDeviceID: "A", OutputDeviceID: "O", ComponentID: "temp",
		ValueActive: ">25", LogicOperator: models.LogicAND, OutputAction: models.ActionTurnOn,
	}
	ruleB := models.Rule{
		ID: 2, InputDeviceID: "B", OutputDeviceID: "O", ComponentID: "motion",
		ValueActive: "true", LogicOperator: models.LogicAND, OutputAction: models.ActionTurnOn,
	}
	rules := &stubRuleStore{
		byInput:  map[string][]models.Rule{"A": {ruleA}},
		byOutput: map[string][]models.Rule{"O": {ruleA, ruleB}},
	}
	motion := func(v string) models.CurrentValue {
		return models.CurrentValue{Components: []models.Component{
			{ComponentID: "motion", Datatype: models.DatatypeBoolean, Instances: []models.Instance{{Index: 0, Value: v}}},
		}}
	}
	tempA := models.CurrentValue{Components: []models.Component{
		{ComponentID: "temp", Datatype: models.DatatypeNumber, Instances: []models.Instance{{Index: 0, Value: "30"}}},
	}}
	values := &stubValueReader{values: map[string]models.CurrentValue{"B": motion("false")}}
	state := &stubStateStore{}
	disp := &stubDispatcher{}
	engine := newTestEngine(rules, values, state, disp)

	// B's cached value is false, so the AND group must not fire
	engine.OnValueChange(context.Background(), "A", tempA)
	assert.Empty(t, disp.sent)

	// flip B to true: now both halves hold
	values.values["B"] = motion("true")
	engine.OnValueChange(context.Background(), "A", tempA)
	require.Len(t, disp.sent, 1)

	// flipping B back stops triggering on the next change
	values.values["B"] = motion("false")
	engine.OnValueChange(context.Background(), "A", tempA)
	assert.Len(t, disp.sent, 1)
}

func TestORGroupNeedsAnyInput(t *testing.T) {
	ruleA := models.Rule{
		ID: 1, InputDeviceID: "A", OutputDeviceID: "O", ComponentID: "gas",
		ValueActive: ">600", LogicOperator: models.LogicOR, OutputAction: models.ActionTurnOn,
	}
	ruleB := models.Rule{
		ID: 2, InputDeviceID: "B", OutputDeviceID: "O", ComponentID: "gas",
		ValueActive: ">600", LogicOperator: models.LogicOR, OutputAction: models.ActionTurnOn,
	}
	rules := &stubRuleStore{
		byInput:  map[string][]models.Rule{"A": {ruleA}},
		byOutput: map[string][]models.Rule{"O": {ruleA, ruleB}},
	}
	values := &stubValueReader{values: map[string]models.CurrentValue{"B": gasValue("100")}}
	disp := &stubDispatcher{}
	engine := newTestEngine(rules, values, &stubStateStore{}, disp)

	// A alone satisfies the OR half
	engine.OnValueChange(context.Background(), "A", gasValue("700"))
	require.Len(t, disp.sent, 1)

	// neither input matches
	engine.OnValueChange(context.Background(), "A", gasValue("100"))
	assert.Len(t, disp.sent, 1)
}

func TestTurnOffActionPersistsFalse(t *testing.T) {
	rule := models.Rule{
		ID: 1, InputDeviceID: "D1", OutputDeviceID: "D2", ComponentID: "temp",
		ValueActive: "<5", LogicOperator: models.LogicAND, OutputAction: models.ActionTurnOff,
	}
	rules := &stubRuleStore{
		byInput:  map[string][]models.Rule{"D1": {rule}},
		byOutput: map[string][]models.Rule{"D2": {rule}},
	}
	state := &stubStateStore{}
	disp := &stubDispatcher{}
	engine := newTestEngine(rules, &stubValueReader{}, state, disp)

	cv := models.CurrentValue{Components: []models.Component{
		{ComponentID: "temp", Datatype: models.DatatypeNumber, Instances: []models.Instance{{Index: 0, Value: "2"}}},
	}}
	engine.OnValueChange(context.Background(), "D1", cv)

	require.Len(t, disp.sent, 1)
	assert.Equal(t, models.ActionTurnOff, disp.sent[0].Action)
	require.Len(t, state.updates["D2"], 1)
	assert.False(t, state.updates["D2"][0])
}

func TestFailingGroupDoesNotAbortSiblings(t *testing.T) {
	// O1's evaluation needs B's missing current value; O2 is self-contained.
	ruleO1 := models.Rule{
		ID: 1, InputDeviceID: "B", OutputDeviceID: "O1", ComponentID: "gas",
		ValueActive: ">600", LogicOperator: models.LogicAND, OutputAction: models.ActionTurnOn,
	}
	linkO1 := models.Rule{
		ID: 2, InputDeviceID: "D1", OutputDeviceID: "O1", ComponentID: "gas",
		ValueActive: ">600", LogicOperator: models.LogicAND, OutputAction: models.ActionTurnOn,
	}
	ruleO2 := models.Rule{
		ID: 3, InputDeviceID: "D1", OutputDeviceID: "O2", ComponentID: "gas",
		ValueActive: ">600", LogicOperator: models.LogicAND, OutputAction: models.ActionTurnOn,
	}
	rules := &stubRuleStore{
		byInput:  map[string][]models.Rule{"D1": {linkO1, ruleO2}},
		byOutput: map[string][]models.Rule{"O1": {linkO1, ruleO1}, "O2": {ruleO2}},
	}
	disp := &stubDispatcher{}
	engine := newTestEngine(rules, &stubValueReader{}, &stubStateStore{}, disp)

	engine.OnValueChange(context.Background(), "D1", gasValue("700"))

	require.Len(t, disp.sent, 1, "O2 must still fire when O1's group fails")
	assert.Equal(t, "O2", disp.sent[0].OutputDeviceID)
}

func TestRuleLookupErrorStopsQuietly(t *testing.T) {
	rules := &stubRuleStore{inputErr: errors.New("db down")}
	disp := &stubDispatcher{}
	engine := newTestEngine(rules, &stubValueReader{}, &stubStateStore{}, disp)

	engine.OnValueChange(context.Background(), "D1", gasValue("700"))
	assert.Empty(t, disp.sent)
}

func TestFirstContributingRuleShapesTheAction(t *testing.T) {
	first := models.Rule{
		ID: 1, InputDeviceID: "A", OutputDeviceID: "O", ComponentID: "gas",
		ValueActive: ">600", LogicOperator: models.LogicOR, OutputAction: models.ActionTurnOn, OutputValue: "high",
	}
	second := models.Rule{
		ID: 2, InputDeviceID: "B", OutputDeviceID: "O", ComponentID: "gas",
		ValueActive: ">900", LogicOperator: models.LogicOR, OutputAction: models.ActionTurnOff, OutputValue: "low",
	}
	rules := &stubRuleStore{
		byInput:  map[string][]models.Rule{"A": {first}},
		byOutput: map[string][]models.Rule{"O": {first, second}},
	}
	values := &stubValueReader{values: map[string]models.CurrentValue{"B": gasValue("100")}}
	disp := &stubDispatcher{}
	engine := newTestEngine(rules, values, &stubStateStore{}, disp)

	engine.OnValueChange(context.Background(), "A", gasValue("700"))

	require.Len(t, disp.sent, 1)
	assert.Equal(t, models.ActionTurnOn, disp.sent[0].Action)
	assert.Equal(t, "high", disp.sent[0].OutputValue)
}
