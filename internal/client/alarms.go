package client

import (
	"context"
	"fmt"
)

// alarmsStatus is the wire body for GET/PUT /alarms/status
type alarmsStatus struct {
	AlarmsEnabled bool `json:"alarms_enabled"`
}

// AlarmsEnabled reports whether the global alarm system is active
func (c *Client) AlarmsEnabled(ctx context.Context) (bool, error) {
	url := c.sess.BaseURL() + "/alarms/status"

	var status alarmsStatus
	if err := c.getJSON(ctx, url, &status); err != nil {
		return false, fmt.Errorf("alarms status fetch failed: %w", err)
	}
	return status.AlarmsEnabled, nil
}

// SetAlarmsEnabled toggles the global alarm system
func (c *Client) SetAlarmsEnabled(ctx context.Context, enabled bool) error {
	url := c.sess.BaseURL() + "/alarms/status"
	if err := c.putJSON(ctx, url, alarmsStatus{AlarmsEnabled: enabled}); err != nil {
		return fmt.Errorf("alarms status update failed: %w", err)
	}
	return nil
}
