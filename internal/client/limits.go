package client

import (
	"context"
	"fmt"

	"aqualink/internal/catalog"
)

// limitsPayload is the wire body for PUT /limits
type limitsPayload struct {
	Limits map[string]float64 `json:"limits"`
}

// UpdateLimitByID updates the alarm threshold of a single KPI. The
// internal id is converted to the wire tag at this boundary.
func (c *Client) UpdateLimitByID(ctx context.Context, id string, value float64) error {
	tag := catalog.IDToTag(id)
	return c.UpdateLimitsByTag(ctx, map[string]float64{tag: value})
}

// UpdateLimitsByTag updates multiple thresholds at once, keyed by wire tag
func (c *Client) UpdateLimitsByTag(ctx context.Context, limits map[string]float64) error {
	if len(limits) == 0 {
		return fmt.Errorf("no limits to update")
	}
	url := c.sess.BaseURL() + "/limits"
	if err := c.putJSON(ctx, url, limitsPayload{Limits: limits}); err != nil {
		return fmt.Errorf("limits update failed: %w", err)
	}
	return nil
}
