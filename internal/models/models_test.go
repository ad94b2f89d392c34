// Package models tests for queue records and ledger payloads.
package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

// TestParseEndpoint verifies symbolic names and legacy paths resolve.
func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		input   string
		want    Endpoint
		wantErr bool
	}{
		{"create-expense", EndpointCreateExpense, false},
		{"create-payment", EndpointCreatePayment, false},
		{"/api/expenses", EndpointCreateExpense, false},
		{"/api/payments", EndpointCreatePayment, false},
		{"/api/dashboard-data", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseEndpoint(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseEndpoint(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseEndpoint(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestEndpoint_Path verifies every known endpoint has a REST path and label.
func TestEndpoint_Path(t *testing.T) {
	for _, e := range Endpoints {
		if e.Path() == "" {
			t.Errorf("%s has no path", e)
		}
		if e.Label() == string(e) {
			t.Errorf("%s has no label", e)
		}
	}
	if Endpoint("bogus").Path() != "" {
		t.Error("unknown endpoint should have no path")
	}
}

// TestQueueItem_decodeLegacy verifies items persisted by older clients decode.
func TestQueueItem_decodeLegacy(t *testing.T) {
	raw := `{"id":"3f2504e0-4f89-41d3-9a0c-0305e82c3301","endpoint":"/api/payments",` +
		`"payload":{"amount":50},"timestamp":"2026-10-19T08:00:00.000Z","status":"pending"}`

	var item QueueItem
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if item.Endpoint != EndpointCreatePayment {
		t.Errorf("Endpoint = %q, want create-payment", item.Endpoint)
	}
	if item.Status != StatusPending {
		t.Errorf("Status = %q, want pending", item.Status)
	}
	if !item.Timestamp.Equal(time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)) {
		t.Errorf("Timestamp = %v", item.Timestamp)
	}
}

// TestQueueItem_unknownEndpointKept verifies an unknown endpoint survives decode.
func TestQueueItem_unknownEndpointKept(t *testing.T) {
	var item QueueItem
	if err := json.Unmarshal([]byte(`{"id":"x","endpoint":"delete-expense","payload":{}}`), &item); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if item.Endpoint != "delete-expense" || item.Endpoint.Valid() {
		t.Errorf("Endpoint = %q, valid=%v", item.Endpoint, item.Endpoint.Valid())
	}
}

// TestNewHistoryEntry verifies history records copy the item and mark success.
func TestNewHistoryEntry(t *testing.T) {
	queued := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	synced := queued.Add(time.Hour)
	item := QueueItem{
		ID:        "id-1",
		Endpoint:  EndpointCreateExpense,
		Payload:   json.RawMessage(`{"amount":100}`),
		Timestamp: queued,
		Status:    StatusPending,
	}

	entry := NewHistoryEntry(item, synced)

	if entry.ID != item.ID || entry.Endpoint != item.Endpoint || string(entry.Payload) != string(item.Payload) {
		t.Errorf("entry fields not copied: %+v", entry)
	}
	if entry.Status != StatusSuccess {
		t.Errorf("Status = %q, want success", entry.Status)
	}
	if !entry.Timestamp.Equal(queued) || !entry.SyncedAt.Equal(synced) {
		t.Errorf("timestamps = %v / %v", entry.Timestamp, entry.SyncedAt)
	}

	data, _ := json.Marshal(entry)
	if !strings.Contains(string(data), `"syncedAt"`) {
		t.Errorf("syncedAt key missing from %s", data)
	}
}

// TestSummary verifies display fields are pulled from payloads.
func TestSummary(t *testing.T) {
	desc, amount := Summary(json.RawMessage(`{"description":"Lunch","amount":120.5}`))
	if desc != "Lunch" || amount != 120.5 {
		t.Errorf("Summary() = %q, %v", desc, amount)
	}

	desc, amount = Summary(json.RawMessage(`not json`))
	if desc != "" || amount != 0 {
		t.Errorf("Summary(invalid) = %q, %v", desc, amount)
	}
}

// TestExpense_Validate covers the entry form rules.
func TestExpense_Validate(t *testing.T) {
	base := func() Expense {
		return Expense{
			Description:  "Dinner",
			Amount:       300,
			PaidByUserID: "u1",
			SplitType:    SplitEqual,
			SplitWith:    []string{"u1", "u2"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(e *Expense)
		wantErr string
	}{
		{"valid equal", func(e *Expense) {}, ""},
		{"zero amount", func(e *Expense) { e.Amount = 0 }, "positive"},
		{"missing payer", func(e *Expense) { e.PaidByUserID = "" }, "paidByUserId"},
		{"empty equal split", func(e *Expense) { e.SplitWith = nil }, "at least one person"},
		{"valid exact", func(e *Expense) {
			e.SplitType = SplitExact
			e.ExactSplits = []ExactSplit{{"u1", 100}, {"u2", 200.005}}
		}, ""},
		{"exact mismatch", func(e *Expense) {
			e.SplitType = SplitExact
			e.ExactSplits = []ExactSplit{{"u1", 100}, {"u2", 150}}
		}, "must match"},
		{"empty exact", func(e *Expense) { e.SplitType = SplitExact }, "share"},
		{"unknown split", func(e *Expense) { e.SplitType = "percent" }, "unknown split"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := base()
			tt.mutate(&e)
			err := e.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

// TestExpense_Normalize verifies description fallback and zero-share pruning.
func TestExpense_Normalize(t *testing.T) {
	e := Expense{
		Category:    "Food",
		SubCategory: "Lunch",
		SplitType:   SplitExact,
		ExactSplits: []ExactSplit{{"u1", 50}, {"u2", 0}},
	}
	e.Normalize()

	if e.Description != "Lunch" {
		t.Errorf("Description = %q, want Lunch", e.Description)
	}
	if len(e.ExactSplits) != 1 || e.ExactSplits[0].UserID != "u1" {
		t.Errorf("ExactSplits = %+v", e.ExactSplits)
	}

	splits := []ExactSplit{{"u1", 0}, {"u2", 100}}
	copied := Expense{SplitType: SplitExact, ExactSplits: splits}
	copied.Normalize()
	if splits[0].UserID != "u1" || splits[1].UserID != "u2" {
		t.Errorf("caller's splits modified: %+v", splits)
	}

	e = Expense{Category: "Hotel"}
	e.Normalize()
	if e.Description != "Hotel" {
		t.Errorf("Description = %q, want Hotel", e.Description)
	}
}

// TestExpense_MarshalJSON verifies the splits wire shape per split type.
func TestExpense_MarshalJSON(t *testing.T) {
	equal := Expense{Amount: 10, PaidByUserID: "u1", SplitType: SplitEqual, SplitWith: []string{"u1", "u2"}}
	data, err := json.Marshal(equal)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(data), `"splits":["u1","u2"]`) {
		t.Errorf("equal splits wrong: %s", data)
	}
	if !strings.Contains(string(data), `"paidByUserId":"u1"`) {
		t.Errorf("paidByUserId missing: %s", data)
	}

	exact := Expense{Amount: 10, SplitType: SplitExact, ExactSplits: []ExactSplit{{"u2", 10}}}
	data, _ = json.Marshal(exact)
	if !strings.Contains(string(data), `"splits":[{"userId":"u2","amount":10}]`) {
		t.Errorf("exact splits wrong: %s", data)
	}

	none := Expense{Amount: 10, SplitType: SplitEqual}
	data, _ = json.Marshal(none)
	if !strings.Contains(string(data), `"splits":[]`) {
		t.Errorf("empty splits wrong: %s", data)
	}
}

// TestPayment_Validate covers the settle-up form rules.
func TestPayment_Validate(t *testing.T) {
	tests := []struct {
		name    string
		payment Payment
		wantErr bool
	}{
		{"valid", Payment{FromUserID: "u1", ToUserID: "u2", Amount: 50}, false},
		{"no recipient", Payment{FromUserID: "u1", Amount: 50}, true},
		{"no sender", Payment{ToUserID: "u2", Amount: 50}, true},
		{"self payment", Payment{FromUserID: "u1", ToUserID: "u1", Amount: 50}, true},
		{"negative", Payment{FromUserID: "u1", ToUserID: "u2", Amount: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.payment.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
