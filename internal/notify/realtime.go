package notify

import (
	"context"
	"fmt"

	"github.com/wilheimcosta/adwrng2/internal/models"
)

// broadcaster is implemented by the websocket hub.
type broadcaster interface {
	Broadcast(msgType, icao string, data interface{}) bool
}

// alertPublisher is implemented by the MQTT client.
type alertPublisher interface {
	PublishAlert(event *models.AlertEvent) error
}

type HubNotifier struct {
	hub broadcaster
}

func NewHubNotifier(hub broadcaster) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) Name() string { return "websocket" }

func (n *HubNotifier) Notify(ctx context.Context, event *models.AlertEvent) error {
	if !n.hub.Broadcast("ALERT", event.Alert.ICAO, event) {
		return fmt.Errorf("hub dropped alert %s", event.Alert.ID)
	}
	return nil
}

type MQTTNotifier struct {
	client alertPublisher
}

func NewMQTTNotifier(client alertPublisher) *MQTTNotifier {
	return &MQTTNotifier{client: client}
}

func (n *MQTTNotifier) Name() string { return "mqtt" }

func (n *MQTTNotifier) Notify(ctx context.Context, event *models.AlertEvent) error {
	return n.client.PublishAlert(event)
}
