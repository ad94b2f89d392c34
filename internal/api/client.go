// Package api is the REST client for the ledger server.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kimhsiao/splitledger/client/internal/crypto"
	"github.com/kimhsiao/splitledger/client/internal/errors"
	"github.com/kimhsiao/splitledger/client/internal/kvstore"
	"github.com/kimhsiao/splitledger/client/internal/logging"
)

// DefaultTimeout bounds a request when the caller's context has no deadline.
const DefaultTimeout = 30 * time.Second

// TokenKey is the store key holding the bearer token.
const TokenKey = "authToken"

// TokenSource supplies and invalidates the bearer token.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
}

// KVTokenSource keeps the token in the key-value store as a JSON string.
// With a sealer the string is encrypted at rest.
type KVTokenSource struct {
	store  kvstore.Store
	sealer *crypto.Sealer
}

// TokenOption configures a KVTokenSource.
type TokenOption func(*KVTokenSource)

// WithSealer encrypts the stored token with sealer.
func WithSealer(sealer *crypto.Sealer) TokenOption {
	return func(s *KVTokenSource) { s.sealer = sealer }
}

// NewKVTokenSource creates a token source over store.
func NewKVTokenSource(store kvstore.Store, opts ...TokenOption) *KVTokenSource {
	s := &KVTokenSource{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Token returns the stored token, or "" when none is stored. A sealed token
// that cannot be opened, for example one written on another machine, is
// treated as absent.
func (s *KVTokenSource) Token(ctx context.Context) (string, error) {
	var token string
	if _, err := kvstore.LoadJSON(ctx, s.store, TokenKey, &token); err != nil {
		return "", err
	}
	if s.sealer == nil || !crypto.IsSealed(token) {
		return token, nil
	}
	plain, err := s.sealer.Open(token)
	if err != nil {
		logging.Warn("Stored auth token could not be decrypted", map[string]interface{}{"error": err.Error()})
		return "", nil
	}
	return plain, nil
}

// SetToken stores token.
func (s *KVTokenSource) SetToken(ctx context.Context, token string) error {
	if s.sealer != nil {
		sealed, err := s.sealer.Seal(token)
		if err != nil {
			return errors.Wrap(errors.ErrStoreWrite, "failed to encrypt auth token", err)
		}
		token = sealed
	}
	return kvstore.SaveJSON(ctx, s.store, TokenKey, token)
}

// Clear removes the stored token.
func (s *KVTokenSource) Clear(ctx context.Context) error {
	return s.store.Delete(ctx, TokenKey)
}

// Config holds client connection settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client sends authenticated JSON requests.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
}

// NewClient creates a Client.
func NewClient(config *Config, tokens TokenSource) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		},
	}
}

// RequestOption adjusts an outgoing request.
type RequestOption func(*http.Request)

// WithHeader sets a request header.
func WithHeader(key, value string) RequestOption {
	return func(r *http.Request) { r.Header.Set(key, value) }
}

// serverError is the error body returned by the server.
type serverError struct {
	Message string `json:"message"`
}

// Do sends body as JSON to path and decodes the response into out.
// A 204 response or an undecodable success body leaves out untouched.
//
// Failures are coded: NETWORK_UNREACHABLE when no response arrived,
// UNAUTHORIZED for 401/403 (the stored token is cleared), and
// SUBMIT_REJECTED for any other non-2xx status.
func (c *Client) Do(ctx context.Context, method, path string, body, out interface{}, opts ...RequestOption) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(errors.ErrInvalid, "failed to encode request body", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(errors.ErrInvalid, "failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			logging.Warn("Failed to read auth token", map[string]interface{}{"error": err.Error()})
		} else if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	for _, opt := range opts {
		opt(req)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(errors.ErrNetwork, "Network request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		if c.tokens != nil {
			if err := c.tokens.Clear(ctx); err != nil {
				logging.Warn("Failed to clear auth token", map[string]interface{}{"error": err.Error()})
			}
		}
		return &errors.AppError{
			Code:       errors.ErrUnauthorized,
			Message:    "Unauthorized or Forbidden",
			StatusCode: resp.StatusCode,
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(errors.ErrNetwork, "failed to read response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Rejected(resp.StatusCode, rejectionMessage(resp, data))
	}

	if resp.StatusCode == http.StatusNoContent || out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		logging.Warn("Could not parse JSON response", map[string]interface{}{"path": path, "error": err.Error()})
	}
	return nil
}

func rejectionMessage(resp *http.Response, data []byte) string {
	var body serverError
	if err := json.Unmarshal(data, &body); err == nil && body.Message != "" {
		return body.Message
	}
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return fmt.Sprintf("request failed with status %d", resp.StatusCode)
}

// IsNetworkError reports whether err means the server was never reached.
func IsNetworkError(err error) bool {
	return errors.Is(err, errors.ErrNetwork) || stderrors.Is(err, context.DeadlineExceeded)
}
