package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pr-tracker/internal/models"
)

const paymentColumns = `id, pr_id, pr_number, category, po_number, invoice_number, wave_receipt,
	work_confirmation, work_order, work_order_number, actual_usd, actual_pkr, payment_date, remarks,
	status, created_at, updated_at`

func scanPayment(row rowScanner) (*models.Payment, error) {
	var p models.Payment
	var prID sql.NullInt64
	err := row.Scan(
		&p.ID, &prID, &p.PRNumber, &p.Category, &p.PONumber, &p.InvoiceNumber, &p.WaveReceipt,
		&p.WorkConfirmation, &p.WorkOrder, &p.WorkOrderNumber, &p.ActualUSD, &p.ActualPKR,
		&p.PaymentDate, &p.Remarks, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.PRID = int64Ptr(prID)
	return &p, nil
}

// UpsertPaymentByParent updates the payment of p.PRID or inserts one when none
// exists. When a payment was updated its prior status is returned.
func (r *Repository) UpsertPaymentByParent(ctx context.Context, p *models.Payment) (created bool, prior models.Status, err error) {
	if p.PRID == nil {
		return false, "", models.NewValidationError("pr_id", "payment must reference a purchase request")
	}

	var existingID int64
	err = r.q.QueryRowContext(ctx,
		r.rebind("SELECT id, status FROM payments WHERE pr_id = ? ORDER BY id LIMIT 1"+r.dialect.LockSuffix()),
		*p.PRID,
	).Scan(&existingID, &prior)

	now := r.now()
	switch {
	case errors.Is(err, sql.ErrNoRows):
		p.CreatedAt, p.UpdatedAt = now, now
		err = r.q.QueryRowContext(ctx, r.rebind(`
			INSERT INTO payments (pr_id, pr_number, category, po_number, invoice_number, wave_receipt,
				work_confirmation, work_order, work_order_number, actual_usd, actual_pkr, payment_date,
				remarks, status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id`),
			*p.PRID, p.PRNumber, p.Category, p.PONumber, p.InvoiceNumber, p.WaveReceipt,
			p.WorkConfirmation, p.WorkOrder, p.WorkOrderNumber, p.ActualUSD, p.ActualPKR, p.PaymentDate,
			p.Remarks, p.Status, p.CreatedAt, p.UpdatedAt,
		).Scan(&p.ID)
		if err != nil {
			return false, "", fmt.Errorf("failed to insert payment: %w", err)
		}
		return true, "", nil
	case err != nil:
		return false, "", err
	}

	p.ID = existingID
	p.UpdatedAt = now
	_, err = r.q.ExecContext(ctx, r.rebind(`
		UPDATE payments SET pr_number = ?, category = ?, po_number = ?, invoice_number = ?, wave_receipt = ?,
			work_confirmation = ?, work_order = ?, work_order_number = ?, actual_usd = ?, actual_pkr = ?,
			payment_date = ?, remarks = ?, status = ?, updated_at = ?
		WHERE id = ?`),
		p.PRNumber, p.Category, p.PONumber, p.InvoiceNumber, p.WaveReceipt,
		p.WorkConfirmation, p.WorkOrder, p.WorkOrderNumber, p.ActualUSD, p.ActualPKR,
		p.PaymentDate, p.Remarks, p.Status, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return false, "", fmt.Errorf("failed to update payment: %w", err)
	}
	return false, prior, nil
}

// GetPayment loads a payment by id.
func (r *Repository) GetPayment(ctx context.Context, id int64) (*models.Payment, error) {
	row := r.q.QueryRowContext(ctx, r.rebind("SELECT "+paymentColumns+" FROM payments WHERE id = ?"), id)
	p, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(models.RecordTypePayment, id)
	}
	return p, err
}

// PaymentParent returns the PR a payment is linked to. ok is false for an unlinked payment.
func (r *Repository) PaymentParent(ctx context.Context, id int64) (prID int64, ok bool, err error) {
	var parent sql.NullInt64
	err = r.q.QueryRowContext(ctx, r.rebind("SELECT pr_id FROM payments WHERE id = ?"), id).Scan(&parent)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, notFound(models.RecordTypePayment, id)
	}
	if err != nil {
		return 0, false, err
	}
	return parent.Int64, parent.Valid, nil
}

// ListPayments returns payments matching the filter, newest first.
func (r *Repository) ListPayments(ctx context.Context, filter models.PaymentFilter) ([]*models.Payment, error) {
	query := "SELECT " + paymentColumns + " FROM payments WHERE 1=1"
	var args []interface{}

	if filter.PRID != 0 {
		query += " AND pr_id = ?"
		args = append(args, filter.PRID)
	}
	if filter.Category != "" {
		query += " AND category = ?"
		args = append(args, filter.Category)
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

	var payments []*models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
