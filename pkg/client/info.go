package client

import (
	"context"

	"github.com/mkuran/gatewarden/internal/api"
	"github.com/mkuran/gatewarden/internal/buildinfo"
)

func (c *Client) Info(ctx context.Context) (*buildinfo.Info, string, error) {
	var info buildinfo.Info
	correlation, err := c.get(ctx, c.url(api.AboutRoute), &info)
	if err != nil {
		return nil, correlation, err
	}
	return &info, correlation, nil
}
