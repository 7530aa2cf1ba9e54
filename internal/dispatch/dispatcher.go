package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"homehub/internal/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// commandPayload is what an output device receives on its command topic.
type commandPayload struct {
	Power       bool   `json:"power"`
	Value       string `json:"value,omitempty"`
	TriggeredBy string `json:"triggered_by"`
}

// MQTTDispatcher publishes automation commands to devices/<serial>/commands.
// Fire-and-forget: the publish token is not awaited.
type MQTTDispatcher struct {
	client mqtt.Client
	logger *zap.Logger
}

// NewMQTTDispatcher wraps a connected client.
func NewMQTTDispatcher(client mqtt.Client, logger *zap.Logger) *MQTTDispatcher {
	return &MQTTDispatcher{client: client, logger: logger}
}

// Send publishes one command at QoS 1.
func (d *MQTTDispatcher) Send(_ context.Context, cmd models.Command) error {
	payload, err := json.Marshal(commandPayload{
		Power:       cmd.Action == models.ActionTurnOn,
		Value:       cmd.OutputValue,
		TriggeredBy: cmd.TriggeredBy,
	})
	if err != nil {
		return err
	}
	topic := fmt.Sprintf("devices/%s/commands", cmd.OutputDeviceID)
	d.logger.Debug("publishing command", zap.String("topic", topic))
	d.client.Publish(topic, 1, false, payload)
	return nil
}
