package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoryRentalVehicle requires a vehicle type on the PR.
const CategoryRentalVehicle = "Rental Vehicle"

// PurchaseRequest is one PR line. Several lines may share a PR number.
type PurchaseRequest struct {
	ID             int64           `json:"id" db:"id"`
	PRNumber       string          `json:"pr_number" db:"pr_number"`
	DateRequest    Date            `json:"date_request" db:"date_request"`
	StaffName      string          `json:"staff_name" db:"staff_name"`
	ProgrammeUnit  string          `json:"programme_unit" db:"programme_unit"`
	TypeServices   string          `json:"type_services" db:"type_services"`
	Category       string          `json:"category" db:"category"`
	Description    string          `json:"description,omitempty" db:"description"`
	TypeVehicle    string          `json:"type_vehicle,omitempty" db:"type_vehicle"`
	TravellerName  string          `json:"traveller_name,omitempty" db:"traveller_name"`
	TravellerPhone string          `json:"traveller_phone,omitempty" db:"traveller_phone"`
	FromDate       Date            `json:"from_date" db:"from_date"`
	ToDate         Date            `json:"to_date" db:"to_date"`
	Days           int             `json:"days" db:"days"`
	Location       string          `json:"location" db:"location"`
	Qty            int             `json:"qty" db:"qty"`
	EstCostPKR     decimal.Decimal `json:"est_cost_pkr" db:"est_cost_pkr"`
	EstCostUSD     decimal.Decimal `json:"est_cost_usd" db:"est_cost_usd"`
	ReminderExpiry bool            `json:"reminder_expiry" db:"reminder_expiry"`
	ReminderDays   *int            `json:"reminder_days,omitempty" db:"reminder_days"`
	Comments       string          `json:"comments,omitempty" db:"comments"`
	Status         Status          `json:"status" db:"status"`
	AssignedTo     string          `json:"assigned_to" db:"assigned_to"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
	Allocations    []WbsAllocation `json:"allocations,omitempty"`
}

// WbsAllocation records which project/task budget line funds a PR.
type WbsAllocation struct {
	ID          int64  `json:"id" db:"id"`
	PRID        int64  `json:"pr_id" db:"pr_id"`
	ProjectName string `json:"project_name" db:"project_name"`
	TaskName    string `json:"task_name" db:"task_name"`
	Percentage  int    `json:"percentage" db:"percentage"`
}

// PRFilter narrows PR listings. Empty fields match everything.
type PRFilter struct {
	PRNumber  string
	Category  string
	StaffName string
	// Owner matches either the creator or the assignee.
	Owner  string
	Status Status
}

// AllocationRequest is one (project, task, percentage) triple of a submission.
type AllocationRequest struct {
	ProjectName string `json:"project_name" validate:"required"`
	TaskName    string `json:"task_name" validate:"required"`
	Percentage  int    `json:"percentage" validate:"min=0,max=100"`
}

// PRLineRequest describes one line of a PR submission.
type PRLineRequest struct {
	FromDate       Date                `json:"from_date" validate:"required"`
	ToDate         Date                `json:"to_date" validate:"required"`
	Location       string              `json:"location" validate:"required"`
	Qty            int                 `json:"qty" validate:"min=1"`
	EstCostPKR     decimal.Decimal     `json:"est_cost_pkr" validate:"positive_decimal"`
	EstCostUSD     decimal.Decimal     `json:"est_cost_usd" validate:"nonnegative_decimal"`
	Comments       string              `json:"comments"`
	ReminderExpiry bool                `json:"reminder_expiry"`
	ReminderDays   *int                `json:"reminder_days" validate:"omitempty,min=1"`
	Allocations    []AllocationRequest `json:"allocations" validate:"omitempty,max=5,dive"`
}

// SubmitPRRequest is a multi-line PR submission.
type SubmitPRRequest struct {
	PRNumber       string              `json:"pr_number" validate:"required"`
	DateRequest    Date                `json:"date_request" validate:"required"`
	StaffName      string              `json:"staff_name" validate:"required"`
	ProgrammeUnit  string              `json:"programme_unit" validate:"required"`
	TypeServices   string              `json:"type_services" validate:"required,oneof=Goods Services Works"`
	Category       string              `json:"category" validate:"required"`
	Description    string              `json:"description"`
	TypeVehicle    string              `json:"type_vehicle"`
	TravellerName  string              `json:"traveller_name"`
	TravellerPhone string              `json:"traveller_phone"`
	AssignedTo     string              `json:"assigned_to" validate:"required"`
	SharedWbs      bool                `json:"shared_wbs"`
	Allocations    []AllocationRequest `json:"allocations" validate:"omitempty,max=5,dive"`
	Lines          []PRLineRequest     `json:"lines" validate:"required,min=1,max=10,dive"`
}

// Reminder classifications.
const (
	ReminderOverdue  = "Overdue"
	ReminderDueToday = "Due Today"
	ReminderUpcoming = "Upcoming"
	ReminderNone     = "—"
)

// PRReminder is a PR with its computed reminder date and classification.
type PRReminder struct {
	PRID           int64  `json:"pr_id"`
	PRNumber       string `json:"pr_number"`
	StaffName      string `json:"staff_name"`
	Category       string `json:"category"`
	FromDate       Date   `json:"from_date"`
	ReminderDays   *int   `json:"reminder_days"`
	ReminderDate   Date   `json:"reminder_date"`
	Classification string `json:"classification"`
}

// StatusSummary counts PRs per status.
type StatusSummary struct {
	Total  int            `json:"total"`
	Counts map[Status]int `json:"counts"`
}
