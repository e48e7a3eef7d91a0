package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pr-tracker/internal/models"
)

const liquidationColumns = `id, oa_id, date_request, staff_name, programme_unit, category, supplier_name,
	description, invoice_type, invoice_no, total_amount, invoice_currency, payment_currency,
	liquidation_ist, liquidation_amount, wbs_project_code, wbs_task_number, unspent_amount,
	unspent_deposited, deposited_amount, unspent_ist1, unspent_ist2, unspent_wbs_project_code,
	unspent_wbs_task_number, documents_submitted, location, comments, status, created_at, updated_at`

func scanLiquidation(row rowScanner) (*models.Liquidation, error) {
	var l models.Liquidation
	var oaID sql.NullInt64
	err := row.Scan(
		&l.ID, &oaID, &l.DateRequest, &l.StaffName, &l.ProgrammeUnit, &l.Category, &l.SupplierName,
		&l.Description, &l.InvoiceType, &l.InvoiceNo, &l.TotalAmount, &l.InvoiceCurrency, &l.PaymentCurrency,
		&l.LiquidationIST, &l.LiquidationAmount, &l.WbsProjectCode, &l.WbsTaskNumber, &l.UnspentAmount,
		&l.UnspentDeposited, &l.DepositedAmount, &l.UnspentIST1, &l.UnspentIST2, &l.UnspentWbsProjectCode,
		&l.UnspentWbsTaskNumber, &l.DocumentsSubmitted, &l.Location, &l.Comments, &l.Status,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	l.OAID = int64Ptr(oaID)
	return &l, nil
}

func (r *Repository) CreateLiquidation(ctx context.Context, l *models.Liquidation) error {
	now := r.now()
	l.CreatedAt, l.UpdatedAt = now, now

	err := r.q.QueryRowContext(ctx, r.rebind(`
		INSERT INTO liquidations (oa_id, date_request, staff_name, programme_unit, category, supplier_name,
			description, invoice_type, invoice_no, total_amount, invoice_currency, payment_currency,
			liquidation_ist, liquidation_amount, wbs_project_code, wbs_task_number, unspent_amount,
			unspent_deposited, deposited_amount, unspent_ist1, unspent_ist2, unspent_wbs_project_code,
			unspent_wbs_task_number, documents_submitted, location, comments, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`),
		nullInt64(l.OAID), l.DateRequest, l.StaffName, l.ProgrammeUnit, l.Category, l.SupplierName,
		l.Description, l.InvoiceType, l.InvoiceNo, l.TotalAmount, l.InvoiceCurrency, l.PaymentCurrency,
		l.LiquidationIST, l.LiquidationAmount, l.WbsProjectCode, l.WbsTaskNumber, l.UnspentAmount,
		l.UnspentDeposited, l.DepositedAmount, l.UnspentIST1, l.UnspentIST2, l.UnspentWbsProjectCode,
		l.UnspentWbsTaskNumber, l.DocumentsSubmitted, l.Location, l.Comments, l.Status, l.CreatedAt, l.UpdatedAt,
	).Scan(&l.ID)
	if err != nil {
		return fmt.Errorf("failed to insert liquidation: %w", err)
	}
	return nil
}

func (r *Repository) GetLiquidation(ctx context.Context, id int64) (*models.Liquidation, error) {
	row := r.q.QueryRowContext(ctx, r.rebind("SELECT "+liquidationColumns+" FROM liquidations WHERE id = ?"), id)
	l, err := scanLiquidation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(models.RecordTypeLiquidation, id)
	}
	return l, err
}

// GetLiquidationByAdvance returns the liquidation of an advance, or ErrNotFound.
func (r *Repository) GetLiquidationByAdvance(ctx context.Context, oaID int64) (*models.Liquidation, error) {
	row := r.q.QueryRowContext(ctx, r.rebind("SELECT "+liquidationColumns+" FROM liquidations WHERE oa_id = ?"), oaID)
	l, err := scanLiquidation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: liquidation for advance %d", models.ErrNotFound, oaID)
	}
	return l, err
}

// LiquidationParent returns the advance a liquidation settles. ok is false when unlinked.
func (r *Repository) LiquidationParent(ctx context.Context, id int64) (oaID int64, ok bool, err error) {
	var parent sql.NullInt64
	err = r.q.QueryRowContext(ctx, r.rebind("SELECT oa_id FROM liquidations WHERE id = ?"), id).Scan(&parent)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, notFound(models.RecordTypeLiquidation, id)
	}
	if err != nil {
		return 0, false, err
	}
	return parent.Int64, parent.Valid, nil
}
