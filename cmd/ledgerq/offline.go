package main

import (
	"context"
	"encoding/json"

	"github.com/kimhsiao/splitledger/client/internal/api"
	"github.com/kimhsiao/splitledger/client/internal/errors"
	"github.com/kimhsiao/splitledger/client/internal/ledger"
)

// unreachable fails every call as a network error, so --offline writes go
// straight to the queue.
type unreachable struct{}

func (unreachable) err() error {
	return errors.New(errors.ErrNetwork, "Network request failed (offline mode)")
}

func (u unreachable) AddExpense(context.Context, interface{}, ...api.RequestOption) (json.RawMessage, error) {
	return nil, u.err()
}

func (u unreachable) AddPayment(context.Context, interface{}, ...api.RequestOption) (json.RawMessage, error) {
	return nil, u.err()
}

func (u unreachable) Dashboard(context.Context) (json.RawMessage, error) {
	return nil, u.err()
}

func offlineRemote(client *api.Client, offline bool) ledger.Remote {
	if offline {
		return unreachable{}
	}
	return client
}
