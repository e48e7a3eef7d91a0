package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pr-tracker/internal/models"
)

const dsaColumns = `id, date_request, staff_name, programme_unit, type_services, dsa_type, vendor_name,
	description, location, start_date, end_date, days, amount_pkr, ist_number, comments, status,
	created_at, updated_at`

func scanDsa(row rowScanner) (*models.DsaPayment, error) {
	var d models.DsaPayment
	err := row.Scan(
		&d.ID, &d.DateRequest, &d.StaffName, &d.ProgrammeUnit, &d.TypeServices, &d.DsaType,
		&d.VendorName, &d.Description, &d.Location, &d.StartDate, &d.EndDate, &d.Days,
		&d.AmountPKR, &d.ISTNumber, &d.Comments, &d.Status, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *Repository) CreateDsaPayment(ctx context.Context, d *models.DsaPayment) error {
	now := r.now()
	d.CreatedAt, d.UpdatedAt = now, now

	err := r.q.QueryRowContext(ctx, r.rebind(`
		INSERT INTO dsa_payments (date_request, staff_name, programme_unit, type_services, dsa_type,
			vendor_name, description, location, start_date, end_date, days, amount_pkr, ist_number,
			comments, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`),
		d.DateRequest, d.StaffName, d.ProgrammeUnit, d.TypeServices, d.DsaType,
		d.VendorName, d.Description, d.Location, d.StartDate, d.EndDate, d.Days, d.AmountPKR, d.ISTNumber,
		d.Comments, d.Status, d.CreatedAt, d.UpdatedAt,
	).Scan(&d.ID)
	if err != nil {
		return fmt.Errorf("failed to insert dsa payment: %w", err)
	}
	return nil
}

func (r *Repository) GetDsaPayment(ctx context.Context, id int64) (*models.DsaPayment, error) {
	row := r.q.QueryRowContext(ctx, r.rebind("SELECT "+dsaColumns+" FROM dsa_payments WHERE id = ?"), id)
	d, err := scanDsa(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(models.RecordTypeDSA, id)
	}
	return d, err
}

func (r *Repository) ListDsaPayments(ctx context.Context, filter models.DsaFilter) ([]*models.DsaPayment, error) {
	query := "SELECT " + dsaColumns + " FROM dsa_payments WHERE 1=1"
	var args []interface{}

	if filter.StaffName != "" {
		query += " AND staff_name = ?"
		args = append(args, filter.StaffName)
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

	var out []*models.DsaPayment
	for rows.Next() {
		d, err := scanDsa(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
