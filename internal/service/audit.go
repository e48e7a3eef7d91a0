package service

import (
	"context"

	"go.uber.org/zap"

	"pr-tracker/internal/models"
	"pr-tracker/internal/repository"
)

// AuditRecorder writes and reads the status history ledger.
type AuditRecorder struct {
	repo   *repository.Repository
	logger *zap.Logger
}

func NewAuditRecorder(repo *repository.Repository, logger *zap.Logger) *AuditRecorder {
	return &AuditRecorder{
		repo:   repo,
		logger: logger,
	}
}

// Record appends exactly one history entry through tx, or the recorder's own
// repository when tx is nil.
func (a *AuditRecorder) Record(ctx context.Context, tx *repository.Repository, rt models.RecordType, recordID int64,
	old *models.Status, status models.Status, actor string) (models.StatusHistoryEntry, error) {
	if tx == nil {
		tx = a.repo
	}

	entry := models.StatusHistoryEntry{
		RecordType: rt,
		RecordID:   repository.RecordID(recordID),
		OldStatus:  old,
		NewStatus:  status,
		ChangedBy:  actor,
	}
	if err := tx.AppendHistory(ctx, &entry); err != nil {
		return models.StatusHistoryEntry{}, err
	}

	a.logger.Debug("status history recorded",
		zap.String("record_type", string(rt)),
		zap.Int64("record_id", recordID),
		zap.String("new_status", string(status)),
		zap.String("changed_by", actor))

	return entry, nil
}

// History returns the entries of one record, oldest first.
func (a *AuditRecorder) History(ctx context.Context, rt models.RecordType, recordID int64) ([]models.StatusHistoryEntry, error) {
	return a.repo.ListHistory(ctx, rt, repository.RecordID(recordID))
}

// Timeline returns every history entry, oldest first.
func (a *AuditRecorder) Timeline(ctx context.Context) ([]models.StatusHistoryEntry, error) {
	return a.repo.ListAllHistory(ctx)
}
