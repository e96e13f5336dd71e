package mqtt

import (
	"fmt"
	"strings"

	"github.com/wilheimcosta/adwrng2/internal/models"
)

// RegisterRequestTopic lets other systems ask for an immediate reconcile of
// one aerodrome, e.g. adwrng/requests/SBMQ/register.
const RegisterRequestTopic = "adwrng/requests/+/register"

// AlertTopic returns the per-aerodrome topic new alerts are published on.
func AlertTopic(base, icao string) string {
	return strings.TrimRight(base, "/") + "/" + icao
}

// PublishAlert publishes event on the alert topic of its aerodrome.
func (c *Client) PublishAlert(event *models.AlertEvent) error {
	if event == nil || event.Alert == nil {
		return fmt.Errorf("empty alert event")
	}

	topic := AlertTopic(c.cfg.AlertTopic, event.Alert.ICAO)
	if err := c.PublishJSON(topic, event); err != nil {
		return fmt.Errorf("failed to publish alert for %s: %w", event.Alert.ICAO, err)
	}

	c.log.Debug("Alert %s published to %s", event.Alert.ID, topic)
	return nil
}

// SubscribeRegisterRequests calls handle with the ICAO of every register
// request received. Requests with a malformed ICAO are dropped. handle runs
// on its own goroutine so a slow reconcile never holds paho's router.
func (c *Client) SubscribeRegisterRequests(valid func(string) bool, handle func(icao string)) error {
	return c.Subscribe(RegisterRequestTopic, func(topic string, payload []byte) error {
		icao, ok := icaoFromRequestTopic(topic)
		if !ok || !valid(icao) {
			return fmt.Errorf("invalid register request topic %q", topic)
		}
		c.log.Info("Register requested over MQTT for %s", icao)
		go handle(icao)
		return nil
	})
}

func icaoFromRequestTopic(topic string) (string, bool) {
	parts := splitTopic(topic)
	if len(parts) != 4 || parts[3] != "register" {
		return "", false
	}
	return strings.ToUpper(parts[2]), true
}
