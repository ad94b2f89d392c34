package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kimhsiao/splitledger/client/internal/crypto"
	"github.com/kimhsiao/splitledger/client/internal/errors"
	"github.com/kimhsiao/splitledger/client/internal/kvstore"
	"github.com/kimhsiao/splitledger/client/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *KVTokenSource) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	tokens := NewKVTokenSource(kvstore.NewMemoryStore())
	require.NoError(t, tokens.SetToken(context.Background(), "tok-123"))
	return NewClient(&Config{BaseURL: srv.URL + "/", Timeout: 2 * time.Second}, tokens), tokens
}

func TestDo_sendsJSONWithBearerToken(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/payments", r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"fromUserId":"u1","toUserId":"u2","amount":50,"note":""}`, string(body))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"p-1"}`))
	})

	out, err := client.AddPayment(context.Background(), models.Payment{FromUserID: "u1", ToUserID: "u2", Amount: 50})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"p-1"}`, string(out))
}

func TestDo_noTokenNoHeader(t *testing.T) {
	client, tokens := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	})
	require.NoError(t, tokens.Clear(context.Background()))

	var out map[string]interface{}
	require.NoError(t, client.Do(context.Background(), http.MethodGet, "/api/users", nil, &out))
	assert.Nil(t, out, "204 leaves out untouched")
}

func TestDo_unauthorizedClearsToken(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		client, tokens := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})

		_, err := client.Dashboard(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrUnauthorized))
		assert.True(t, errors.IsRejection(err))

		token, err := tokens.Token(context.Background())
		require.NoError(t, err)
		assert.Empty(t, token, "status %d clears the token", status)
	}
}

func TestDo_rejectionCarriesServerMessage(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"Split amounts must add up to the total"}`))
	})

	_, err := client.AddExpense(context.Background(), json.RawMessage(`{"amount":1}`))
	require.Error(t, err)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errors.ErrRejected, appErr.Code)
	assert.Equal(t, http.StatusBadRequest, appErr.StatusCode)
	assert.Equal(t, "Split amounts must add up to the total", appErr.Message)
	assert.False(t, errors.IsRetryable(err))
}

func TestDo_rejectionFallsBackToStatusText(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`<html>oops</html>`))
	})

	err := client.Do(context.Background(), http.MethodGet, "/api/users", nil, nil)
	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "Internal Server Error", appErr.Message)
}

func TestDo_unparsableSuccessBodyIsNil(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	})

	var out map[string]interface{}
	require.NoError(t, client.Do(context.Background(), http.MethodGet, "/api/users", nil, &out))
	assert.Nil(t, out)
}

func TestDo_networkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	client := NewClient(&Config{BaseURL: url}, nil)

	err := client.Do(context.Background(), http.MethodGet, "/api/users", nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNetwork))
	assert.True(t, errors.IsRetryable(err))
	assert.True(t, IsNetworkError(err))
}

func TestSubmitter_dispatchesByEndpoint(t *testing.T) {
	type hit struct {
		path, key, body string
	}
	var hits []hit
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		hits = append(hits, hit{r.URL.Path, r.Header.Get(IdempotencyHeader), string(body)})
		w.WriteHeader(http.StatusCreated)
	})
	s := NewSubmitter(client)
	ctx := context.Background()

	require.NoError(t, s.Submit(ctx, models.QueueItem{
		ID: "e-1", Endpoint: models.EndpointCreateExpense, Payload: json.RawMessage(`{"amount":100}`),
	}))
	require.NoError(t, s.Submit(ctx, models.QueueItem{
		ID: "p-1", Endpoint: models.EndpointCreatePayment, Payload: json.RawMessage(`{"amount":50}`),
	}))

	require.Len(t, hits, 2)
	assert.Equal(t, hit{"/api/expenses", "e-1", `{"amount":100}`}, hits[0])
	assert.Equal(t, hit{"/api/payments", "p-1", `{"amount":50}`}, hits[1])
}

func TestSubmitter_unknownEndpoint(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	err := NewSubmitter(client).Submit(context.Background(), models.QueueItem{ID: "x", Endpoint: "delete-expense"})
	assert.True(t, errors.Is(err, errors.ErrUnknownEndpoint))
}

func TestKVTokenSource(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	tokens := NewKVTokenSource(store)

	token, err := tokens.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, tokens.SetToken(ctx, "abc"))
	raw, err := store.Get(ctx, TokenKey)
	require.NoError(t, err)
	assert.Equal(t, `"abc"`, string(raw))

	require.NoError(t, tokens.Clear(ctx))
	_, err = store.Get(ctx, TokenKey)
	assert.ErrorIs(t, err, kvstore.ErrNotFound)
}

func TestKVTokenSource_sealed(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	sealer, err := crypto.NewSealer("host-a")
	require.NoError(t, err)
	tokens := NewKVTokenSource(store, WithSealer(sealer))

	require.NoError(t, tokens.SetToken(ctx, "abc"))
	raw, err := store.Get(ctx, TokenKey)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "abc")

	token, err := tokens.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	// A plain token written before sealing was enabled is still readable.
	require.NoError(t, store.Set(ctx, TokenKey, []byte(`"legacy"`)))
	token, err = tokens.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "legacy", token)

	// A token sealed on another machine is treated as absent.
	other, err := crypto.NewSealer("host-b")
	require.NoError(t, err)
	require.NoError(t, NewKVTokenSource(store, WithSealer(other)).SetToken(ctx, "foreign"))
	token, err = tokens.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
}
