package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"pr-tracker/internal/models"
	"pr-tracker/pkg/database"
)

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// Repository is the ledger store for every tracked record type and the
// status history. A Repository returned by InTx is bound to one transaction.
type Repository struct {
	db      *sql.DB
	q       Querier
	dialect database.Dialect
	now     func() time.Time
}

var statusTables = map[models.RecordType]string{
	models.RecordTypePR:          "purchase_requests",
	models.RecordTypePayment:     "payments",
	models.RecordTypeDSA:         "dsa_payments",
	models.RecordTypeOA:          "operational_advances",
	models.RecordTypeLiquidation: "liquidations",
}

func NewRepository(db *database.DB) *Repository {
	return &Repository{
		db:      db.DB,
		q:       db.DB,
		dialect: db.Dialect,
		now:     func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// SetClock overrides the timestamp source.
func (r *Repository) SetClock(now func() time.Time) {
	r.now = now
}

// Now returns the repository's current timestamp.
func (r *Repository) Now() time.Time {
	return r.now()
}

// Migrate creates the tracker tables when missing.
func (r *Repository) Migrate(ctx context.Context) error {
	for _, stmt := range models.SchemaStatements(string(r.dialect)) {
		if _, err := r.q.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// InTx runs fn inside a single transaction. fn's error rolls everything back.
func (r *Repository) InTx(ctx context.Context, fn func(txRepo *Repository) error) error {
	if _, ok := r.q.(*sql.Tx); ok {
		return fn(r)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	txRepo := &Repository{db: r.db, q: tx, dialect: r.dialect, now: r.now}
	if err := fn(txRepo); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *Repository) rebind(query string) string {
	return r.dialect.Rebind(query)
}

func tableFor(rt models.RecordType) (string, error) {
	table, ok := statusTables[rt]
	if !ok {
		return "", fmt.Errorf("unknown record type %q", rt)
	}
	return table, nil
}

func notFound(rt models.RecordType, id int64) error {
	return fmt.Errorf("%w: %s %d", models.ErrNotFound, rt, id)
}

// GetStatus returns the current status of a record.
func (r *Repository) GetStatus(ctx context.Context, rt models.RecordType, id int64) (models.Status, error) {
	table, err := tableFor(rt)
	if err != nil {
		return "", err
	}

	var status models.Status
	err = r.q.QueryRowContext(ctx, r.rebind("SELECT status FROM "+table+" WHERE id = ?"), id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", notFound(rt, id)
	}
	return status, err
}

// UpdateStatus writes the new status and returns the status it replaced.
// The prior status is read under a row lock where the dialect supports one.
func (r *Repository) UpdateStatus(ctx context.Context, rt models.RecordType, id int64, status models.Status) (models.Status, error) {
	table, err := tableFor(rt)
	if err != nil {
		return "", err
	}

	var prior models.Status
	query := "SELECT status FROM " + table + " WHERE id = ?" + r.dialect.LockSuffix()
	err = r.q.QueryRowContext(ctx, r.rebind(query), id).Scan(&prior)
	if errors.Is(err, sql.ErrNoRows) {
		return "", notFound(rt, id)
	}
	if err != nil {
		return "", err
	}

	res, err := r.q.ExecContext(ctx,
		r.rebind("UPDATE "+table+" SET status = ?, updated_at = ? WHERE id = ?"),
		status, r.now(), id)
	if err != nil {
		return "", err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return "", notFound(rt, id)
	}

	return prior, nil
}

// Delete removes a record. Dependent rows go through ON DELETE CASCADE.
func (r *Repository) Delete(ctx context.Context, rt models.RecordType, id int64) error {
	table, err := tableFor(rt)
	if err != nil {
		return err
	}

	res, err := r.q.ExecContext(ctx, r.rebind("DELETE FROM "+table+" WHERE id = ?"), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound(rt, id)
	}
	return nil
}

// CountByStatus counts records of a type per status.
func (r *Repository) CountByStatus(ctx context.Context, rt models.RecordType) (map[models.Status]int, error) {
	table, err := tableFor(rt)
	if err != nil {
		return nil, err
	}

	rows, err := r.q.QueryContext(ctx, "SELECT status, COUNT(*) FROM "+table+" GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.Status]int)
	for rows.Next() {
		var status models.Status
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// RecordID is the history identifier of an internal id.
func RecordID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
