package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"pr-tracker/internal/models"
)

const advanceColumns = `id, date_request, staff_name, programme_unit, supplier_name, description,
	invoice_type, invoice_no, total_amount, invoice_currency, payment_currency, location, comments,
	status, created_at, updated_at`

func scanAdvanceInto(a *models.OperationalAdvance, extra ...interface{}) []interface{} {
	return append([]interface{}{
		&a.ID, &a.DateRequest, &a.StaffName, &a.ProgrammeUnit, &a.SupplierName, &a.Description,
		&a.InvoiceType, &a.InvoiceNo, &a.TotalAmount, &a.InvoiceCurrency, &a.PaymentCurrency,
		&a.Location, &a.Comments, &a.Status, &a.CreatedAt, &a.UpdatedAt,
	}, extra...)
}

func (r *Repository) CreateAdvance(ctx context.Context, a *models.OperationalAdvance) error {
	now := r.now()
	a.CreatedAt, a.UpdatedAt = now, now

	err := r.q.QueryRowContext(ctx, r.rebind(`
		INSERT INTO operational_advances (date_request, staff_name, programme_unit, supplier_name,
			description, invoice_type, invoice_no, total_amount, invoice_currency, payment_currency,
			location, comments, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`),
		a.DateRequest, a.StaffName, a.ProgrammeUnit, a.SupplierName,
		a.Description, a.InvoiceType, a.InvoiceNo, a.TotalAmount, a.InvoiceCurrency, a.PaymentCurrency,
		a.Location, a.Comments, a.Status, a.CreatedAt, a.UpdatedAt,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("failed to insert operational advance: %w", err)
	}
	return nil
}

func (r *Repository) GetAdvance(ctx context.Context, id int64) (*models.OperationalAdvance, error) {
	var a models.OperationalAdvance
	err := r.q.QueryRowContext(ctx,
		r.rebind("SELECT "+advanceColumns+" FROM operational_advances WHERE id = ?"), id,
	).Scan(scanAdvanceInto(&a)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(models.RecordTypeOA, id)
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAdvances returns advances joined with their liquidation, newest first.
func (r *Repository) ListAdvances(ctx context.Context, filter models.AdvanceFilter) ([]*models.AdvanceSummary, error) {
	query := `
		SELECT oa.id, oa.date_request, oa.staff_name, oa.programme_unit, oa.supplier_name, oa.description,
			oa.invoice_type, oa.invoice_no, oa.total_amount, oa.invoice_currency, oa.payment_currency,
			oa.location, oa.comments, oa.status, oa.created_at, oa.updated_at,
			l.id, l.status, l.liquidation_amount, l.date_request
		FROM operational_advances oa
		LEFT JOIN liquidations l ON l.oa_id = oa.id
		WHERE 1=1`
	var args []interface{}

	if filter.StaffName != "" {
		query += " AND oa.staff_name = ?"
		args = append(args, filter.StaffName)
	}
	if filter.Status != "" {
		query += " AND oa.status = ?"
		args = append(args, filter.Status)
	}
	query += " ORDER BY oa.id DESC"

	rows, err := r.q.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.AdvanceSummary
	for rows.Next() {
		var s models.AdvanceSummary
		var liqID sql.NullInt64
		var liqStatus sql.NullString
		var liqAmount decimal.NullDecimal
		if err := rows.Scan(scanAdvanceInto(&s.OperationalAdvance, &liqID, &liqStatus, &liqAmount, &s.LiquidationDate)...); err != nil {
			return nil, err
		}
		s.LiquidationID = int64Ptr(liqID)
		if liqStatus.Valid {
			status := models.Status(liqStatus.String)
			s.LiquidationStatus = &status
		}
		s.LiquidationAmount = liqAmount
		out = append(out, &s)
	}
	return out, rows.Err()
}
