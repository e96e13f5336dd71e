// internal/mqtt/health.go

package mqtt

import "context"

type HealthStatus struct {
	Connected     bool   `json:"connected"`
	Broker        string `json:"broker"`
	Subscriptions int    `json:"subscriptions"`
}

func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := &HealthStatus{
		Connected:     c.connected && c.client.IsConnected(),
		Broker:        c.cfg.Broker,
		Subscriptions: len(c.handlers),
	}

	return status, nil
}
