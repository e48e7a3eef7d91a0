package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OperationalAdvance is cash advanced pending later liquidation.
type OperationalAdvance struct {
	ID              int64           `json:"id" db:"id"`
	DateRequest     Date            `json:"date_request" db:"date_request"`
	StaffName       string          `json:"staff_name" db:"staff_name"`
	ProgrammeUnit   string          `json:"programme_unit" db:"programme_unit"`
	SupplierName    string          `json:"supplier_name" db:"supplier_name"`
	Description     string          `json:"description,omitempty" db:"description"`
	InvoiceType     string          `json:"invoice_type" db:"invoice_type"`
	InvoiceNo       string          `json:"invoice_no,omitempty" db:"invoice_no"`
	TotalAmount     decimal.Decimal `json:"total_amount" db:"total_amount"`
	InvoiceCurrency string          `json:"invoice_currency" db:"invoice_currency"`
	PaymentCurrency string          `json:"payment_currency" db:"payment_currency"`
	Location        string          `json:"location" db:"location"`
	Comments        string          `json:"comments,omitempty" db:"comments"`
	Status          Status          `json:"status" db:"status"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// AdvanceSummary is an advance joined with its liquidation, if any.
type AdvanceSummary struct {
	OperationalAdvance
	LiquidationID     *int64              `json:"liquidation_id"`
	LiquidationStatus *Status             `json:"liquidation_status"`
	LiquidationAmount decimal.NullDecimal `json:"liquidation_amount"`
	LiquidationDate   Date                `json:"liquidation_date"`
}

// AdvanceFilter narrows advance listings.
type AdvanceFilter struct {
	StaffName string
	Status    Status
}

// AdvanceRequest creates an operational advance.
type AdvanceRequest struct {
	DateRequest     Date            `json:"date_request" validate:"required"`
	StaffName       string          `json:"staff_name" validate:"required"`
	ProgrammeUnit   string          `json:"programme_unit" validate:"required"`
	SupplierName    string          `json:"supplier_name" validate:"required"`
	Description     string          `json:"description"`
	InvoiceType     string          `json:"invoice_type" validate:"required,oneof=Proforma Final Other"`
	InvoiceNo       string          `json:"invoice_no"`
	TotalAmount     decimal.Decimal `json:"total_amount" validate:"nonnegative_decimal"`
	InvoiceCurrency string          `json:"invoice_currency"`
	PaymentCurrency string          `json:"payment_currency"`
	Location        string          `json:"location"`
	Comments        string          `json:"comments"`
	Status          Status          `json:"status"`
}

// Liquidation closes out an advance. The advance fields are a snapshot
// taken when the liquidation was created, not a live reference.
type Liquidation struct {
	ID                    int64               `json:"id" db:"id"`
	OAID                  *int64              `json:"oa_id" db:"oa_id"`
	DateRequest           Date                `json:"date_request" db:"date_request"`
	StaffName             string              `json:"staff_name" db:"staff_name"`
	ProgrammeUnit         string              `json:"programme_unit" db:"programme_unit"`
	Category              string              `json:"category" db:"category"`
	SupplierName          string              `json:"supplier_name" db:"supplier_name"`
	Description           string              `json:"description,omitempty" db:"description"`
	InvoiceType           string              `json:"invoice_type" db:"invoice_type"`
	InvoiceNo             string              `json:"invoice_no,omitempty" db:"invoice_no"`
	TotalAmount           decimal.Decimal     `json:"total_amount" db:"total_amount"`
	InvoiceCurrency       string              `json:"invoice_currency" db:"invoice_currency"`
	PaymentCurrency       string              `json:"payment_currency" db:"payment_currency"`
	LiquidationIST        string              `json:"liquidation_ist,omitempty" db:"liquidation_ist"`
	LiquidationAmount     decimal.Decimal     `json:"liquidation_amount" db:"liquidation_amount"`
	WbsProjectCode        string              `json:"wbs_project_code,omitempty" db:"wbs_project_code"`
	WbsTaskNumber         string              `json:"wbs_task_number,omitempty" db:"wbs_task_number"`
	UnspentAmount         decimal.Decimal     `json:"unspent_amount" db:"unspent_amount"`
	UnspentDeposited      bool                `json:"unspent_deposited" db:"unspent_deposited"`
	DepositedAmount       decimal.NullDecimal `json:"deposited_amount" db:"deposited_amount"`
	UnspentIST1           string              `json:"unspent_ist1,omitempty" db:"unspent_ist1"`
	UnspentIST2           string              `json:"unspent_ist2,omitempty" db:"unspent_ist2"`
	UnspentWbsProjectCode string              `json:"unspent_wbs_project_code,omitempty" db:"unspent_wbs_project_code"`
	UnspentWbsTaskNumber  string              `json:"unspent_wbs_task_number,omitempty" db:"unspent_wbs_task_number"`
	DocumentsSubmitted    bool                `json:"documents_submitted" db:"documents_submitted"`
	Location              string              `json:"location" db:"location"`
	Comments              string              `json:"comments,omitempty" db:"comments"`
	Status                Status              `json:"status" db:"status"`
	CreatedAt             time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time           `json:"updated_at" db:"updated_at"`
}

// LiquidationRequest creates the liquidation of an advance.
type LiquidationRequest struct {
	DateRequest           Date                `json:"date_request" validate:"required"`
	StaffName             string              `json:"staff_name" validate:"required"`
	LiquidationIST        string              `json:"liquidation_ist"`
	LiquidationAmount     decimal.Decimal     `json:"liquidation_amount" validate:"nonnegative_decimal"`
	WbsProjectCode        string              `json:"wbs_project_code"`
	WbsTaskNumber         string              `json:"wbs_task_number"`
	UnspentAmount         decimal.Decimal     `json:"unspent_amount" validate:"nonnegative_decimal"`
	UnspentDeposited      bool                `json:"unspent_deposited"`
	DepositedAmount       decimal.NullDecimal `json:"deposited_amount"`
	UnspentIST1           string              `json:"unspent_ist1"`
	UnspentIST2           string              `json:"unspent_ist2"`
	UnspentWbsProjectCode string              `json:"unspent_wbs_project_code"`
	UnspentWbsTaskNumber  string              `json:"unspent_wbs_task_number"`
	DocumentsSubmitted    bool                `json:"documents_submitted"`
	Comments              string              `json:"comments"`
	Status                Status              `json:"status"`
}
