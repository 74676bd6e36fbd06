package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"aqualink/internal/models"
)

// GetSeries fetches historical points for a list of wire tags over the
// last minutes. The backend may omit tags with no data in the window.
// Callers must not pass an empty tag list; the series fetcher guards
// that case before reaching the network.
func (c *Client) GetSeries(ctx context.Context, tags []string, minutes int) (models.SeriesMap, error) {
	if len(tags) == 0 {
		return nil, fmt.Errorf("series fetch requires at least one tag")
	}
	if minutes <= 0 {
		return nil, fmt.Errorf("series window must be positive, got %d", minutes)
	}

	params := url.Values{}
	params.Set("tags", strings.Join(tags, ","))
	params.Set("minutes", strconv.Itoa(minutes))
	u := c.sess.BaseURL() + "/measurements/series?" + params.Encode()

	var series models.SeriesMap
	if err := c.getJSON(ctx, u, &series); err != nil {
		return nil, fmt.Errorf("series fetch failed: %w", err)
	}
	return series, nil
}
