package client

import (
	"context"

	"github.com/aws/aws-lambda-go/events"

	"github.com/mkuran/gatewarden/internal/api"
	"github.com/mkuran/gatewarden/internal/trust"
)

// Authorize sends one authorizer request to the harness and returns the
// rendered decision plus the response correlation ID.
func (c *Client) Authorize(
	ctx context.Context,
	request events.APIGatewayCustomAuthorizerRequestTypeRequest,
) (*events.APIGatewayCustomAuthorizerResponse, string, error) {
	var decision events.APIGatewayCustomAuthorizerResponse
	correlation, err := c.post(ctx, c.url(api.AuthorizeRoute), request, &decision)
	if err != nil {
		return nil, correlation, err
	}
	return &decision, correlation, nil
}

// Keys lists the trust anchor's current key set as the harness sees it.
func (c *Client) Keys(ctx context.Context) ([]trust.KeySummary, string, error) {
	var keys []trust.KeySummary
	correlation, err := c.get(ctx, c.url(api.KeysRoute), &keys)
	return keys, correlation, err
}
