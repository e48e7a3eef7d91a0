package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"pr-tracker/internal/metrics"
	"pr-tracker/internal/models"
	"pr-tracker/internal/repository"
)

// SkippedCascade describes a cascade that found no target record.
type SkippedCascade struct {
	Source   models.RecordType `json:"source"`
	SourceID int64             `json:"source_id"`
	Target   models.RecordType `json:"target"`
	TargetID int64             `json:"target_id,omitempty"`
	Reason   string            `json:"reason"`
}

// Error reports the skip as ErrCascadeTargetMissing.
func (s SkippedCascade) Error() string {
	return fmt.Sprintf("%s: %s %d -> %s (%s)", models.ErrCascadeTargetMissing, s.Source, s.SourceID, s.Target, s.Reason)
}

func (s SkippedCascade) Unwrap() error {
	return models.ErrCascadeTargetMissing
}

// TransitionResult is the outcome of one committed status change.
type TransitionResult struct {
	RecordType models.RecordType           `json:"record_type"`
	RecordID   int64                       `json:"record_id"`
	Entity     interface{}                 `json:"entity"`
	History    []models.StatusHistoryEntry `json:"history"`
	Skipped    []SkippedCascade            `json:"skipped_cascades,omitempty"`

	origins []string
}

func (r *TransitionResult) record(entry models.StatusHistoryEntry, origin string) {
	r.History = append(r.History, entry)
	r.origins = append(r.origins, origin)
}

// Engine applies status changes, their cascades and their history entries.
type Engine struct {
	repo     *repository.Repository
	audit    *AuditRecorder
	cascades *CascadeTable
	metrics  *metrics.Metrics
	logger   *zap.Logger
	strict   bool
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithStrictTransitions rejects backwards status moves.
func WithStrictTransitions(strict bool) EngineOption {
	return func(e *Engine) { e.strict = strict }
}

// WithMetrics attaches prometheus collectors.
func WithMetrics(m *metrics.Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// WithCascadeTable replaces the default cascade rules.
func WithCascadeTable(t *CascadeTable) EngineOption {
	return func(e *Engine) { e.cascades = t }
}

func NewEngine(repo *repository.Repository, logger *zap.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		repo:   repo,
		audit:  NewAuditRecorder(repo, logger),
		logger: logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cascades == nil {
		table, err := NewCascadeTable(DefaultCascadeRules()...)
		if err != nil {
			panic(fmt.Sprintf("default cascade rules: %v", err))
		}
		e.cascades = table
	}
	return e
}

// Audit exposes the engine's history recorder.
func (e *Engine) Audit() *AuditRecorder {
	return e.audit
}

// PlanCascade reports the cascade a status change would trigger without touching the store.
func (e *Engine) PlanCascade(rt models.RecordType, status models.Status) (CascadePlan, bool) {
	return e.cascades.Plan(rt, status)
}

// ApplyStatusChange moves a record to status, logs the change, and applies
// at most one level of cascade, all inside a single transaction.
func (e *Engine) ApplyStatusChange(ctx context.Context, rt models.RecordType, id int64, status models.Status, actor string) (*TransitionResult, error) {
	start := time.Now()
	defer e.metrics.ObserveDuration(string(rt), start)

	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !rt.Allows(status) {
		return nil, fmt.Errorf("%w: %q is not a %s status", models.ErrInvalidTransition, status, rt)
	}

	result := &TransitionResult{RecordType: rt, RecordID: id}
	err := e.repo.InTx(ctx, func(tx *repository.Repository) error {
		prior, err := tx.UpdateStatus(ctx, rt, id, status)
		if err != nil {
			return err
		}
		if err := e.checkOrder(rt, prior, status); err != nil {
			return err
		}

		entry, err := e.audit.Record(ctx, tx, rt, id, &prior, status, actor)
		if err != nil {
			return err
		}
		result.record(entry, metrics.OriginDirect)

		return e.cascade(ctx, tx, rt, id, status, actor, result)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to apply status change: %w", err)
	}

	e.committed(result)
	e.snapshot(ctx, result)

	e.logger.Info("status changed",
		zap.String("record_type", string(rt)),
		zap.Int64("record_id", id),
		zap.String("status", string(status)),
		zap.String("changed_by", actor),
		zap.Int("history_entries", len(result.History)))

	return result, nil
}

func (e *Engine) checkOrder(rt models.RecordType, prior, next models.Status) error {
	if !e.strict || prior == next || rt.IsForward(prior, next) {
		return nil
	}
	return fmt.Errorf("%w: %s cannot move from %s back to %s", models.ErrInvalidTransition, rt, prior, next)
}

// cascade applies the rule triggered by source reaching status. The target's
// own rules are never evaluated.
func (e *Engine) cascade(ctx context.Context, tx *repository.Repository, source models.RecordType, sourceID int64,
	status models.Status, actor string, result *TransitionResult) error {
	plan, ok := e.cascades.Plan(source, status)
	if !ok {
		return nil
	}

	targetID, linked, err := plan.Rule.Resolve(ctx, tx, sourceID)
	if err != nil {
		return fmt.Errorf("resolve cascade target: %w", err)
	}
	if !linked {
		result.Skipped = append(result.Skipped, SkippedCascade{
			Source: source, SourceID: sourceID, Target: plan.Rule.Target, Reason: "no linked record",
		})
		return nil
	}

	prior, err := tx.UpdateStatus(ctx, plan.Rule.Target, targetID, plan.TargetStatus)
	if errors.Is(err, models.ErrNotFound) {
		result.Skipped = append(result.Skipped, SkippedCascade{
			Source: source, SourceID: sourceID, Target: plan.Rule.Target, TargetID: targetID, Reason: "target not found",
		})
		return nil
	}
	if err != nil {
		return err
	}

	entry, err := e.audit.Record(ctx, tx, plan.Rule.Target, targetID, &prior, plan.TargetStatus, actor)
	if err != nil {
		return err
	}
	result.record(entry, metrics.OriginCascade)
	return nil
}

// committed reports metrics and skip warnings once the transaction is durable.
func (e *Engine) committed(result *TransitionResult) {
	for i, entry := range result.History {
		e.metrics.ObserveTransition(string(entry.RecordType), string(entry.NewStatus), result.origins[i])
	}
	for _, skip := range result.Skipped {
		e.metrics.ObserveCascadeSkipped(string(skip.Target))
		e.logger.Warn("cascade target missing",
			zap.String("source", string(skip.Source)),
			zap.Int64("source_id", skip.SourceID),
			zap.String("target", string(skip.Target)),
			zap.String("reason", skip.Reason))
	}
}

// snapshot fills result.Entity after commit. A failed read leaves Entity nil
// because the change itself is already durable.
func (e *Engine) snapshot(ctx context.Context, result *TransitionResult) {
	entity, err := e.Load(ctx, result.RecordType, result.RecordID)
	if err != nil {
		e.logger.Warn("failed to load record after commit",
			zap.String("record_type", string(result.RecordType)),
			zap.Int64("record_id", result.RecordID),
			zap.Error(err))
		return
	}
	result.Entity = entity
}

// Load returns the current snapshot of a record.
func (e *Engine) Load(ctx context.Context, rt models.RecordType, id int64) (interface{}, error) {
	switch rt {
	case models.RecordTypePR:
		return e.repo.GetPurchaseRequest(ctx, id)
	case models.RecordTypePayment:
		return e.repo.GetPayment(ctx, id)
	case models.RecordTypeDSA:
		return e.repo.GetDsaPayment(ctx, id)
	case models.RecordTypeOA:
		return e.repo.GetAdvance(ctx, id)
	case models.RecordTypeLiquidation:
		return e.repo.GetLiquidation(ctx, id)
	default:
		return nil, fmt.Errorf("unknown record type %q", rt)
	}
}

func requireActor(actor string) error {
	if strings.TrimSpace(actor) == "" {
		return models.NewValidationError("actor", "is required")
	}
	return nil
}
