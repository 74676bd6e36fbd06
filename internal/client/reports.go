package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"aqualink/internal/catalog"
)

// ExcelRange downloads the Excel report for the given KPI ids over a
// date range, returning the raw file bytes. Generation happens on the
// backend; the agent just requests and relays the blob. An empty id
// list asks for all tags.
func (c *Client) ExcelRange(ctx context.Context, ids []string, start, end time.Time) ([]byte, error) {
	params := url.Values{}
	params.Set("start", start.Format(time.RFC3339))
	params.Set("end", end.Format(time.RFC3339))
	if len(ids) > 0 {
		tags := make([]string, len(ids))
		for i, id := range ids {
			tags[i] = catalog.IDToTag(id)
		}
		params.Set("tags", strings.Join(tags, ","))
	}

	u := c.sess.BaseURL() + "/reports/excel-range?" + params.Encode()
	blob, err := c.getWithRetry(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("report download failed: %w", err)
	}
	return blob, nil
}
