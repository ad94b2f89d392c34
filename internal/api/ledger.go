package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/kimhsiao/splitledger/client/internal/errors"
	"github.com/kimhsiao/splitledger/client/internal/models"
)

// IdempotencyHeader carries the queue item id so the server can drop a
// resubmission of an already applied write.
const IdempotencyHeader = "Idempotency-Key"

// AddExpense posts an expense body.
func (c *Client) AddExpense(ctx context.Context, expense interface{}, opts ...RequestOption) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.Do(ctx, http.MethodPost, models.EndpointCreateExpense.Path(), expense, &out, opts...)
	return out, err
}

// AddPayment posts a payment body.
func (c *Client) AddPayment(ctx context.Context, payment interface{}, opts ...RequestOption) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.Do(ctx, http.MethodPost, models.EndpointCreatePayment.Path(), payment, &out, opts...)
	return out, err
}

// Dashboard fetches the balances and recent transactions summary.
func (c *Client) Dashboard(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.Do(ctx, http.MethodGet, "/api/dashboard-data", nil, &out)
	return out, err
}

// Submitter replays queued items against the server.
type Submitter struct {
	client *Client
}

// NewSubmitter creates a Submitter.
func NewSubmitter(client *Client) *Submitter {
	return &Submitter{client: client}
}

// Submit sends item to the endpoint it was queued for. The payload is
// forwarded unchanged.
func (s *Submitter) Submit(ctx context.Context, item models.QueueItem) error {
	key := WithHeader(IdempotencyHeader, item.ID)
	var err error
	switch item.Endpoint {
	case models.EndpointCreateExpense:
		_, err = s.client.AddExpense(ctx, item.Payload, key)
	case models.EndpointCreatePayment:
		_, err = s.client.AddPayment(ctx, item.Payload, key)
	default:
		return errors.Newf(errors.ErrUnknownEndpoint, "no handler for endpoint %q", item.Endpoint)
	}
	return err
}
