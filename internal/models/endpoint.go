// Package models provides data model definitions for the offline ledger client.
package models

import (
	"encoding/json"
	"fmt"
)

// Endpoint identifies which remote write a queued operation performs.
// The set is closed: every value handled by a submitter must be listed here.
type Endpoint string

const (
	EndpointCreateExpense Endpoint = "create-expense"
	EndpointCreatePayment Endpoint = "create-payment"
)

// Endpoints lists every known endpoint in a stable order.
var Endpoints = []Endpoint{EndpointCreateExpense, EndpointCreatePayment}

// legacyPaths maps REST paths written by older clients to endpoints.
var legacyPaths = map[string]Endpoint{
	"/api/expenses": EndpointCreateExpense,
	"/api/payments": EndpointCreatePayment,
}

// ParseEndpoint resolves a symbolic name or a legacy REST path.
func ParseEndpoint(s string) (Endpoint, error) {
	if e, ok := legacyPaths[s]; ok {
		return e, nil
	}
	e := Endpoint(s)
	if !e.Valid() {
		return "", fmt.Errorf("unknown endpoint %q", s)
	}
	return e, nil
}

// Valid reports whether e is one of the known endpoints.
func (e Endpoint) Valid() bool {
	switch e {
	case EndpointCreateExpense, EndpointCreatePayment:
		return true
	}
	return false
}

// Path returns the REST path the endpoint posts to.
func (e Endpoint) Path() string {
	switch e {
	case EndpointCreateExpense:
		return "/api/expenses"
	case EndpointCreatePayment:
		return "/api/payments"
	}
	return ""
}

// Label is the short human name used in status output.
func (e Endpoint) Label() string {
	switch e {
	case EndpointCreateExpense:
		return "Expense"
	case EndpointCreatePayment:
		return "Payment"
	}
	return string(e)
}

func (e Endpoint) String() string {
	return string(e)
}

// UnmarshalJSON accepts symbolic names and legacy paths. Unrecognized values
// are kept verbatim so a persisted item is never lost on decode; the
// submitter refuses them instead.
func (e *Endpoint) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if parsed, err := ParseEndpoint(s); err == nil {
		*e = parsed
		return nil
	}
	*e = Endpoint(s)
	return nil
}
