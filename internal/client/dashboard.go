package client

import (
	"context"
	"fmt"

	"aqualink/internal/models"
)

// GetDashboard fetches the full catalog payload: every station with its
// KPI list and latest values. Polled by the orchestrator; each snapshot
// replaces the previous one wholesale.
func (c *Client) GetDashboard(ctx context.Context) (*models.Dashboard, error) {
	url := c.sess.BaseURL() + "/dashboard"

	var dash models.Dashboard
	if err := c.getJSON(ctx, url, &dash); err != nil {
		return nil, fmt.Errorf("dashboard fetch failed: %w", err)
	}
	return &dash, nil
}
