package models

import (
	"fmt"
	"strings"
)

// RecordType tags a tracked entity in the status history.
type RecordType string

// Status is a workflow state shared by all record types.
type Status string

const (
	RecordTypePR          RecordType = "PR"
	RecordTypePayment     RecordType = "Payment"
	RecordTypeDSA         RecordType = "DSA"
	RecordTypeOA          RecordType = "OA"
	RecordTypeLiquidation RecordType = "Liquidation"

	StatusSubmitted Status = "Submitted"
	StatusPending   Status = "Pending"
	StatusInProcess Status = "In Process"
	StatusCompleted Status = "Completed"
	StatusPaid      Status = "Paid"
)

// RecordTypes lists every tracked record type.
var RecordTypes = []RecordType{
	RecordTypePR,
	RecordTypePayment,
	RecordTypeDSA,
	RecordTypeOA,
	RecordTypeLiquidation,
}

var recordTypeAliases = map[string]RecordType{
	"pr":                  RecordTypePR,
	"purchase_request":    RecordTypePR,
	"purchase-request":    RecordTypePR,
	"payment":             RecordTypePayment,
	"dsa":                 RecordTypeDSA,
	"dsa_payment":         RecordTypeDSA,
	"dsa-payment":         RecordTypeDSA,
	"oa":                  RecordTypeOA,
	"advance":             RecordTypeOA,
	"operational_advance": RecordTypeOA,
	"operational-advance": RecordTypeOA,
	"liquidation":         RecordTypeLiquidation,
}

// ParseRecordType accepts the canonical tag or a URL-friendly alias.
func ParseRecordType(s string) (RecordType, error) {
	if rt, ok := recordTypeAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return rt, nil
	}
	return "", fmt.Errorf("unknown record type: %s", s)
}

var statesByType = map[RecordType][]Status{
	RecordTypePR:          {StatusSubmitted, StatusInProcess, StatusCompleted},
	RecordTypePayment:     {StatusPending, StatusInProcess, StatusCompleted},
	RecordTypeDSA:         {StatusPending, StatusInProcess, StatusCompleted, StatusPaid},
	RecordTypeOA:          {StatusPending, StatusInProcess, StatusCompleted, StatusPaid},
	RecordTypeLiquidation: {StatusPending, StatusInProcess, StatusCompleted, StatusPaid},
}

// States returns the ordered workflow states of the record type.
func (t RecordType) States() []Status {
	return statesByType[t]
}

// InitialStatus is the state a freshly created record starts in.
func (t RecordType) InitialStatus() Status {
	if states := statesByType[t]; len(states) > 0 {
		return states[0]
	}
	return ""
}

// Allows reports whether s is one of the record type's states.
func (t RecordType) Allows(s Status) bool {
	return t.rank(s) >= 0
}

// rank is the position of s in the workflow, -1 when unknown.
// Completed and Paid share a rank for liquidations, which may close either way.
func (t RecordType) rank(s Status) int {
	for i, st := range statesByType[t] {
		if st == s {
			if t == RecordTypeLiquidation && s == StatusPaid {
				return i - 1
			}
			return i
		}
	}
	return -1
}

// IsForward reports whether moving from -> to does not go back in the workflow.
func (t RecordType) IsForward(from, to Status) bool {
	return t.rank(to) >= t.rank(from)
}

// IsTerminal reports whether s closes a workflow.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusPaid
}

// ParseStatus validates s against the record type's states.
func ParseStatus(t RecordType, s string) (Status, error) {
	st := Status(strings.TrimSpace(s))
	if !t.Allows(st) {
		return "", fmt.Errorf("%w: %q is not a %s status", ErrInvalidTransition, s, t)
	}
	return st, nil
}
