package models

import "time"

// StatusHistoryEntry is one append-only audit record of a status change.
// OldStatus is nil when the record was created.
type StatusHistoryEntry struct {
	ID         int64      `json:"id" db:"id"`
	RecordType RecordType `json:"record_type" db:"record_type"`
	RecordID   string     `json:"record_id" db:"record_id"`
	OldStatus  *Status    `json:"old_status" db:"old_status"`
	NewStatus  Status     `json:"new_status" db:"new_status"`
	ChangedBy  string     `json:"changed_by" db:"changed_by"`
	ChangedAt  time.Time  `json:"changed_at" db:"changed_at"`
}

// StatusChangeRequest asks the engine to move a record to a new status.
type StatusChangeRequest struct {
	Status string `json:"status" binding:"required"`
}

// PRReport gathers a PR line, its payments and its status timeline.
type PRReport struct {
	PurchaseRequest *PurchaseRequest     `json:"purchase_request"`
	Payments        []*Payment           `json:"payments"`
	Timeline        []StatusHistoryEntry `json:"timeline"`
}
