package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment tracks settlement of a PR line. PRNumber is a display copy.
type Payment struct {
	ID               int64               `json:"id" db:"id"`
	PRID             *int64              `json:"pr_id" db:"pr_id"`
	PRNumber         string              `json:"pr_number" db:"pr_number"`
	Category         string              `json:"category" db:"category"`
	PONumber         string              `json:"po_number,omitempty" db:"po_number"`
	InvoiceNumber    string              `json:"invoice_number,omitempty" db:"invoice_number"`
	WaveReceipt      string              `json:"wave_receipt,omitempty" db:"wave_receipt"`
	WorkConfirmation bool                `json:"work_confirmation" db:"work_confirmation"`
	WorkOrder        bool                `json:"work_order" db:"work_order"`
	WorkOrderNumber  string              `json:"work_order_number,omitempty" db:"work_order_number"`
	ActualUSD        decimal.NullDecimal `json:"actual_usd" db:"actual_usd"`
	ActualPKR        decimal.Decimal     `json:"actual_pkr" db:"actual_pkr"`
	PaymentDate      Date                `json:"payment_date" db:"payment_date"`
	Remarks          string              `json:"remarks,omitempty" db:"remarks"`
	Status           Status              `json:"status" db:"status"`
	CreatedAt        time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at" db:"updated_at"`
}

// PaymentFilter narrows payment listings.
type PaymentFilter struct {
	PRID     int64
	Category string
	Status   Status
}

// PaymentRequest carries the editable payment fields for an upsert by PR.
type PaymentRequest struct {
	PONumber         string              `json:"po_number"`
	InvoiceNumber    string              `json:"invoice_number"`
	WaveReceipt      string              `json:"wave_receipt"`
	WorkConfirmation bool                `json:"work_confirmation"`
	WorkOrder        bool                `json:"work_order"`
	WorkOrderNumber  string              `json:"work_order_number"`
	ActualUSD        decimal.NullDecimal `json:"actual_usd"`
	ActualPKR        decimal.Decimal     `json:"actual_pkr" validate:"nonnegative_decimal"`
	PaymentDate      Date                `json:"payment_date"`
	Remarks          string              `json:"remarks"`
	Status           Status              `json:"status"`
}
