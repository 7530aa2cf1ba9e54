package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"homehub/internal/ingest"
	"homehub/internal/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

const samplesTopic = "devices/+/samples"

// SubscribeSamples feeds every devices/<serial>/samples message into the
// ingestion boundary.
func SubscribeSamples(client mqtt.Client, svc *ingest.Service, logger *zap.Logger) error {
	handler := func(_ mqtt.Client, msg mqtt.Message) {
		serial := parseDeviceSerial(msg.Topic())
		if serial == "" {
			logger.Warn("sample on unexpected topic", zap.String("topic", msg.Topic()))
			return
		}
		var fields map[string]any
		if err := json.Unmarshal(msg.Payload(), &fields); err != nil {
			logger.Warn("sample payload decode failed",
				zap.String("device", serial), zap.Error(err))
			return
		}
		if err := svc.HandleSample(context.Background(), serial, fields); err != nil {
			if errors.Is(err, models.ErrDeviceNotFound) {
				logger.Warn("sample for unknown device", zap.String("device", serial))
				return
			}
			logger.Error("sample handling failed", zap.String("device", serial), zap.Error(err))
		}
	}
	if token := client.Subscribe(samplesTopic, 1, handler); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	logger.Info("subscribed to sample topic", zap.String("topic", samplesTopic))
	return nil
}

// parseDeviceSerial extracts the serial from devices/<serial>/samples.
func parseDeviceSerial(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "devices" {
		return ""
	}
	return parts[1]
}
