package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pr-tracker/internal/models"
)

const prColumns = `id, pr_number, date_request, staff_name, programme_unit, type_services, category,
	description, type_vehicle, traveller_name, traveller_phone, from_date, to_date, days, location,
	qty, est_cost_pkr, est_cost_usd, reminder_expiry, reminder_days, comments, status, assigned_to,
	created_at, updated_at`

func scanPurchaseRequest(row rowScanner) (*models.PurchaseRequest, error) {
	var pr models.PurchaseRequest
	var reminderDays sql.NullInt64
	err := row.Scan(
		&pr.ID, &pr.PRNumber, &pr.DateRequest, &pr.StaffName, &pr.ProgrammeUnit, &pr.TypeServices,
		&pr.Category, &pr.Description, &pr.TypeVehicle, &pr.TravellerName, &pr.TravellerPhone,
		&pr.FromDate, &pr.ToDate, &pr.Days, &pr.Location, &pr.Qty, &pr.EstCostPKR, &pr.EstCostUSD,
		&pr.ReminderExpiry, &reminderDays, &pr.Comments, &pr.Status, &pr.AssignedTo,
		&pr.CreatedAt, &pr.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	pr.ReminderDays = intPtr(reminderDays)
	return &pr, nil
}

// CreatePurchaseRequest inserts a PR line and its WBS allocations.
func (r *Repository) CreatePurchaseRequest(ctx context.Context, pr *models.PurchaseRequest) error {
	now := r.now()
	pr.CreatedAt, pr.UpdatedAt = now, now

	query := `
		INSERT INTO purchase_requests (pr_number, date_request, staff_name, programme_unit, type_services,
			category, description, type_vehicle, traveller_name, traveller_phone, from_date, to_date, days,
			location, qty, est_cost_pkr, est_cost_usd, reminder_expiry, reminder_days, comments, status,
			assigned_to, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`

	err := r.q.QueryRowContext(ctx, r.rebind(query),
		pr.PRNumber, pr.DateRequest, pr.StaffName, pr.ProgrammeUnit, pr.TypeServices,
		pr.Category, pr.Description, pr.TypeVehicle, pr.TravellerName, pr.TravellerPhone,
		pr.FromDate, pr.ToDate, pr.Days, pr.Location, pr.Qty, pr.EstCostPKR, pr.EstCostUSD,
		pr.ReminderExpiry, nullInt(pr.ReminderDays), pr.Comments, pr.Status, pr.AssignedTo,
		pr.CreatedAt, pr.UpdatedAt,
	).Scan(&pr.ID)
	if err != nil {
		return fmt.Errorf("failed to insert purchase request: %w", err)
	}

	for i := range pr.Allocations {
		alloc := &pr.Allocations[i]
		alloc.PRID = pr.ID
		err := r.q.QueryRowContext(ctx, r.rebind(`
			INSERT INTO pr_allocations (pr_id, project_name, task_name, percentage)
			VALUES (?, ?, ?, ?) RETURNING id`),
			alloc.PRID, alloc.ProjectName, alloc.TaskName, alloc.Percentage,
		).Scan(&alloc.ID)
		if err != nil {
			return fmt.Errorf("failed to insert allocation: %w", err)
		}
	}

	return nil
}

// GetPurchaseRequest loads a PR line with its allocations.
func (r *Repository) GetPurchaseRequest(ctx context.Context, id int64) (*models.PurchaseRequest, error) {
	row := r.q.QueryRowContext(ctx, r.rebind("SELECT "+prColumns+" FROM purchase_requests WHERE id = ?"), id)
	pr, err := scanPurchaseRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(models.RecordTypePR, id)
	}
	if err != nil {
		return nil, err
	}

	allocs, err := r.ListAllocations(ctx, id)
	if err != nil {
		return nil, err
	}
	pr.Allocations = allocs
	return pr, nil
}

// ListAllocations returns the WBS allocations of a PR line.
func (r *Repository) ListAllocations(ctx context.Context, prID int64) ([]models.WbsAllocation, error) {
	rows, err := r.q.QueryContext(ctx, r.rebind(`
		SELECT id, pr_id, project_name, task_name, percentage
		FROM pr_allocations WHERE pr_id = ? ORDER BY id`), prID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var allocs []models.WbsAllocation
	for rows.Next() {
		var a models.WbsAllocation
		if err := rows.Scan(&a.ID, &a.PRID, &a.ProjectName, &a.TaskName, &a.Percentage); err != nil {
			return nil, err
		}
		allocs = append(allocs, a)
	}
	return allocs, rows.Err()
}

// ListPurchaseRequests returns PR lines matching the filter, newest first.
func (r *Repository) ListPurchaseRequests(ctx context.Context, filter models.PRFilter) ([]*models.PurchaseRequest, error) {
	query := "SELECT " + prColumns + " FROM purchase_requests WHERE 1=1"
	var args []interface{}

	if filter.PRNumber != "" {
		query += " AND pr_number = ?"
		args = append(args, filter.PRNumber)
	}
	if filter.Category != "" {
		query += " AND category = ?"
		args = append(args, filter.Category)
	}
	if filter.StaffName != "" {
		query += " AND staff_name = ?"
		args = append(args, filter.StaffName)
	}
	if filter.Owner != "" {
		query += " AND (staff_name = ? OR assigned_to = ?)"
		args = append(args, filter.Owner, filter.Owner)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}
	query += " ORDER BY id DESC"

	rows, err := r.q.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prs []*models.PurchaseRequest
	for rows.Next() {
		pr, err := scanPurchaseRequest(rows)
		if err != nil {
			return nil, err
		}
		prs = append(prs, pr)
	}
	return prs, rows.Err()
}

// ListReminderCandidates returns PR lines with a reminder enabled.
func (r *Repository) ListReminderCandidates(ctx context.Context) ([]*models.PurchaseRequest, error) {
	rows, err := r.q.QueryContext(ctx, r.rebind(
		"SELECT "+prColumns+" FROM purchase_requests WHERE reminder_expiry = ? ORDER BY from_date, id"), true)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prs []*models.PurchaseRequest
	for rows.Next() {
		pr, err := scanPurchaseRequest(rows)
		if err != nil {
			return nil, err
		}
		prs = append(prs, pr)
	}
	return prs, rows.Err()
}

var distinctColumns = map[string]string{
	"pr_number":  "pr_number",
	"category":   "category",
	"staff_name": "staff_name",
}

// DistinctPRValues returns the distinct non-empty values of a filterable PR column.
func (r *Repository) DistinctPRValues(ctx context.Context, field string) ([]string, error) {
	column, ok := distinctColumns[field]
	if !ok {
		return nil, models.NewValidationError("field", fmt.Sprintf("unsupported filter field %q", field))
	}

	rows, err := r.q.QueryContext(ctx,
		"SELECT DISTINCT "+column+" FROM purchase_requests WHERE "+column+" IS NOT NULL AND "+column+" <> '' ORDER BY "+column)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}
