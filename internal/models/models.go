package models

import (
	"errors"
	"time"
)

// Datatype of a component's readings.
type Datatype string

const (
	DatatypeNumber  Datatype = "NUMBER"
	DatatypeBoolean Datatype = "BOOLEAN"
	DatatypeString  Datatype = "STRING"
)

// LogicOperator decides which half of a trigger group a rule belongs to.
type LogicOperator string

const (
	LogicAND LogicOperator = "AND"
	LogicOR  LogicOperator = "OR"
)

// OutputAction is what a fired rule does to its output device.
type OutputAction string

const (
	ActionTurnOn  OutputAction = "turn_on"
	ActionTurnOff OutputAction = "turn_off"
)

// ErrDeviceNotFound is returned when a device serial has no row in storage.
var ErrDeviceNotFound = errors.New("device not found")

// Device is the durable device record, limited to what the engines need.
type Device struct {
	Serial    string `json:"serial"`
	Name      string `json:"name"`
	SpaceID   int    `json:"space_id"`
	AccountID int    `json:"account_id"`
	Power     bool   `json:"power"`
}

// Rule links an input device's condition to an action on an output device.
// Identity (input, output, component) is unique among non-deleted rows; the
// authoring API owns writes, the engine only reads.
type Rule struct {
	ID             int           `json:"id"`
	InputDeviceID  string        `json:"input_device_id"`
	OutputDeviceID string        `json:"output_device_id"`
	ComponentID    string        `json:"component_id"`
	ValueActive    string        `json:"value_active"`
	LogicOperator  LogicOperator `json:"logic_operator"`
	OutputAction   OutputAction  `json:"output_action"`
	OutputValue    string        `json:"output_value"`
}

// Instance is one physical reading under a component (e.g. one of several
// sensor heads). Values travel as strings and are parsed per datatype.
type Instance struct {
	Index int    `json:"index"`
	Value string `json:"value"`
}

// Component is one logical sensor/actuator channel of a device.
type Component struct {
	ComponentID string     `json:"component_id"`
	Datatype    Datatype   `json:"datatype"`
	Instances   []Instance `json:"instances"`
}

// CurrentValue is a device's latest structured reading. Replaced wholesale on
// every update.
type CurrentValue struct {
	Components []Component `json:"components"`
}

// HourlyValue is the durable result of one fully closed hour window.
type HourlyValue struct {
	DeviceSerial  string             `json:"device_serial"`
	SpaceID       int                `json:"space_id"`
	HourTimestamp time.Time          `json:"hour_timestamp"`
	AvgValue      map[string]float64 `json:"avg_value"`
	SampleCount   int                `json:"sample_count"`
}

// Command is handed to the action dispatcher when a trigger group fires.
type Command struct {
	OutputDeviceID string       `json:"output_device_id"`
	Action         OutputAction `json:"action"`
	OutputValue    string       `json:"output_value,omitempty"`
	TriggeredBy    string       `json:"triggered_by"`
}
