package client

import (
	"context"
	"strconv"

	"github.com/mkuran/gatewarden/internal/api"
	"github.com/mkuran/gatewarden/internal/core"
)

// Events retrieves the latest decision events from the harness, limited
// to the specified number. The harness only serves events when it runs
// with the memory audit recorder.
func (c *Client) Events(ctx context.Context, limit int) ([]core.Event, string, error) {
	url := c.url(api.EventsRoute)
	if limit > 0 {
		url += "?limit=" + strconv.Itoa(limit)
	}
	var events []core.Event
	correlation, err := c.get(ctx, url, &events)
	return events, correlation, err
}
