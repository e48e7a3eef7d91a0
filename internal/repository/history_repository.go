package repository

import (
	"context"
	"database/sql"
	"fmt"

	"pr-tracker/internal/models"
)

// AppendHistory inserts one history entry. ChangedAt defaults to now.
func (r *Repository) AppendHistory(ctx context.Context, entry *models.StatusHistoryEntry) error {
	if entry.ChangedAt.IsZero() {
		entry.ChangedAt = r.now()
	}

	var old sql.NullString
	if entry.OldStatus != nil {
		old = sql.NullString{String: string(*entry.OldStatus), Valid: true}
	}

	err := r.q.QueryRowContext(ctx, r.rebind(`
		INSERT INTO status_history (record_type, record_id, old_status, new_status, changed_by, changed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`),
		entry.RecordType, entry.RecordID, old, entry.NewStatus, entry.ChangedBy, entry.ChangedAt,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("failed to append status history: %w", err)
	}
	return nil
}

// ListHistory returns the history of one record in the order it was written.
func (r *Repository) ListHistory(ctx context.Context, rt models.RecordType, recordID string) ([]models.StatusHistoryEntry, error) {
	return r.queryHistory(ctx, `
		SELECT id, record_type, record_id, old_status, new_status, changed_by, changed_at
		FROM status_history
		WHERE record_type = ? AND record_id = ?
		ORDER BY changed_at, id`, rt, recordID)
}

// ListHistoryByTypes returns the merged history of several (type, id) pairs.
func (r *Repository) ListHistoryByTypes(ctx context.Context, keys map[models.RecordType][]string) ([]models.StatusHistoryEntry, error) {
	query := `
		SELECT id, record_type, record_id, old_status, new_status, changed_by, changed_at
		FROM status_history WHERE 1=0`
	var args []interface{}
	for _, rt := range models.RecordTypes {
		for _, id := range keys[rt] {
			query += " OR (record_type = ? AND record_id = ?)"
			args = append(args, rt, id)
		}
	}
	query += " ORDER BY changed_at, id"
	return r.queryHistory(ctx, query, args...)
}

func (r *Repository) queryHistory(ctx context.Context, query string, args ...interface{}) ([]models.StatusHistoryEntry, error) {
	rows, err := r.q.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.StatusHistoryEntry{}
	for rows.Next() {
		var e models.StatusHistoryEntry
		var old sql.NullString
		if err := rows.Scan(&e.ID, &e.RecordType, &e.RecordID, &old, &e.NewStatus, &e.ChangedBy, &e.ChangedAt); err != nil {
			return nil, err
		}
		if old.Valid {
			s := models.Status(old.String)
			e.OldStatus = &s
		}
		e.ChangedAt = e.ChangedAt.UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListAllHistory returns every history entry in write order.
func (r *Repository) ListAllHistory(ctx context.Context) ([]models.StatusHistoryEntry, error) {
	return r.queryHistory(ctx, `
		SELECT id, record_type, record_id, old_status, new_status, changed_by, changed_at
		FROM status_history
		ORDER BY changed_at, id`)
}
