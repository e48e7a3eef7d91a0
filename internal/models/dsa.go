package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DsaPayment is a daily subsistence allowance paid to travelling staff or participants.
type DsaPayment struct {
	ID            int64           `json:"id" db:"id"`
	DateRequest   Date            `json:"date_request" db:"date_request"`
	StaffName     string          `json:"staff_name" db:"staff_name"`
	ProgrammeUnit string          `json:"programme_unit" db:"programme_unit"`
	TypeServices  string          `json:"type_services" db:"type_services"`
	DsaType       string          `json:"dsa_type" db:"dsa_type"`
	VendorName    string          `json:"vendor_name" db:"vendor_name"`
	Description   string          `json:"description,omitempty" db:"description"`
	Location      string          `json:"location" db:"location"`
	StartDate     Date            `json:"start_date" db:"start_date"`
	EndDate       Date            `json:"end_date" db:"end_date"`
	Days          decimal.Decimal `json:"days" db:"days"`
	AmountPKR     decimal.Decimal `json:"amount_pkr" db:"amount_pkr"`
	ISTNumber     string          `json:"ist_number,omitempty" db:"ist_number"`
	Comments      string          `json:"comments,omitempty" db:"comments"`
	Status        Status          `json:"status" db:"status"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// DsaFilter narrows DSA listings.
type DsaFilter struct {
	StaffName string
	Status    Status
}

// DsaRequest creates a DSA payment.
type DsaRequest struct {
	DateRequest   Date            `json:"date_request" validate:"required"`
	StaffName     string          `json:"staff_name" validate:"required"`
	ProgrammeUnit string          `json:"programme_unit" validate:"required"`
	TypeServices  string          `json:"type_services" validate:"omitempty,oneof=Goods Services Works"`
	DsaType       string          `json:"dsa_type" validate:"required,oneof='TPC Staff' 'Gop Officials' 'Other Participants'"`
	VendorName    string          `json:"vendor_name" validate:"required"`
	Description   string          `json:"description"`
	Location      string          `json:"location"`
	StartDate     Date            `json:"start_date" validate:"required"`
	EndDate       Date            `json:"end_date" validate:"required"`
	AmountPKR     decimal.Decimal `json:"amount_pkr" validate:"nonnegative_decimal"`
	ISTNumber     string          `json:"ist_number"`
	Comments      string          `json:"comments"`
	Status        Status          `json:"status"`
}
