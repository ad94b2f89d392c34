package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// SplitType controls how an expense is divided between users.
type SplitType string

const (
	SplitEqual SplitType = "equal"
	SplitExact SplitType = "exact"
)

// splitTolerance is the allowed difference between an exact split total and
// the expense amount.
const splitTolerance = 0.01

// ExactSplit is one user's share of an exact-split expense.
type ExactSplit struct {
	UserID string  `json:"userId"`
	Amount float64 `json:"amount"`
}

// Expense is the body of a create-expense write.
type Expense struct {
	Description  string
	Amount       float64
	Category     string
	SubCategory  string
	Location     string
	LocationFrom string
	LocationTo   string
	PaidByUserID string
	SplitType    SplitType

	// SplitWith lists the user ids sharing an equal split.
	SplitWith []string
	// ExactSplits lists per-user amounts for an exact split.
	ExactSplits []ExactSplit
}

type expenseJSON struct {
	Description  string          `json:"description"`
	Amount       float64         `json:"amount"`
	Category     string          `json:"category"`
	SubCategory  string          `json:"subCategory"`
	Location     string          `json:"location"`
	LocationFrom string          `json:"locationFrom"`
	LocationTo   string          `json:"locationTo"`
	PaidByUserID string          `json:"paidByUserId"`
	SplitType    SplitType       `json:"splitType"`
	Splits       json.RawMessage `json:"splits"`
}

// Normalize fills the description from the category when it is empty and
// drops zero exact shares.
func (e *Expense) Normalize() {
	if strings.TrimSpace(e.Description) == "" {
		if e.SubCategory != "" {
			e.Description = e.SubCategory
		} else {
			e.Description = e.Category
		}
	}
	if e.SplitType == SplitExact {
		kept := make([]ExactSplit, 0, len(e.ExactSplits))
		for _, s := range e.ExactSplits {
			if s.Amount > 0 {
				kept = append(kept, s)
			}
		}
		e.ExactSplits = kept
	}
}

// Validate checks the expense the same way the entry form does.
func (e *Expense) Validate() error {
	if e.Amount <= 0 || math.IsNaN(e.Amount) || math.IsInf(e.Amount, 0) {
		return fmt.Errorf("amount must be a positive number")
	}
	if strings.TrimSpace(e.PaidByUserID) == "" {
		return fmt.Errorf("paidByUserId is required")
	}
	switch e.SplitType {
	case SplitEqual:
		if len(e.SplitWith) == 0 {
			return fmt.Errorf("please select at least one person to split with")
		}
	case SplitExact:
		if len(e.ExactSplits) == 0 {
			return fmt.Errorf("please enter at least one person's share")
		}
		var total float64
		for _, s := range e.ExactSplits {
			total += s.Amount
		}
		if math.Abs(total-e.Amount) > splitTolerance {
			return fmt.Errorf("split total (%.2f) must match the expense amount (%.2f)", total, e.Amount)
		}
	default:
		return fmt.Errorf("unknown split type %q", e.SplitType)
	}
	return nil
}

// MarshalJSON renders the wire format: splits is a list of user ids for an
// equal split and a list of {userId, amount} for an exact split.
func (e Expense) MarshalJSON() ([]byte, error) {
	var splits interface{} = []string{}
	switch e.SplitType {
	case SplitEqual:
		if e.SplitWith != nil {
			splits = e.SplitWith
		}
	case SplitExact:
		if e.ExactSplits != nil {
			splits = e.ExactSplits
		}
	}
	raw, err := json.Marshal(splits)
	if err != nil {
		return nil, err
	}
	return json.Marshal(expenseJSON{
		Description:  e.Description,
		Amount:       e.Amount,
		Category:     e.Category,
		SubCategory:  e.SubCategory,
		Location:     e.Location,
		LocationFrom: e.LocationFrom,
		LocationTo:   e.LocationTo,
		PaidByUserID: e.PaidByUserID,
		SplitType:    e.SplitType,
		Splits:       raw,
	})
}

// Payment is the body of a create-payment write.
type Payment struct {
	FromUserID string  `json:"fromUserId"`
	ToUserID   string  `json:"toUserId"`
	Amount     float64 `json:"amount"`
	Note       string  `json:"note"`
}

// Validate checks the payment the same way the settle-up form does.
func (p *Payment) Validate() error {
	if strings.TrimSpace(p.ToUserID) == "" {
		return fmt.Errorf("please select who to pay")
	}
	if strings.TrimSpace(p.FromUserID) == "" {
		return fmt.Errorf("fromUserId is required")
	}
	if p.FromUserID == p.ToUserID {
		return fmt.Errorf("cannot record a payment to yourself")
	}
	if p.Amount <= 0 || math.IsNaN(p.Amount) || math.IsInf(p.Amount, 0) {
		return fmt.Errorf("please enter a valid amount")
	}
	return nil
}
