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

const (
	maxAllocations = 5
	fullAllocation = 100
)

// TrackerService implements the record creation flows, listings and reports.
// Status changes go through the Engine.
type TrackerService struct {
	repo   *repository.Repository
	engine *Engine
	logger *zap.Logger
	now    func() time.Time
}

func NewTrackerService(repo *repository.Repository, engine *Engine, logger *zap.Logger) *TrackerService {
	return &TrackerService{
		repo:   repo,
		engine: engine,
		logger: logger,
		now:    time.Now,
	}
}

// Engine returns the status transition engine.
func (s *TrackerService) Engine() *Engine {
	return s.engine
}

// SubmitPurchaseRequest stores every line of a submission as its own PR row
// with status Submitted and one creation history entry, in one transaction.
func (s *TrackerService) SubmitPurchaseRequest(ctx context.Context, req *models.SubmitPRRequest, actor string) ([]*models.PurchaseRequest, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := validateSubmission(req); err != nil {
		return nil, err
	}

	prs := make([]*models.PurchaseRequest, 0, len(req.Lines))
	for _, line := range req.Lines {
		pr := &models.PurchaseRequest{
			PRNumber:       strings.TrimSpace(req.PRNumber),
			DateRequest:    req.DateRequest,
			StaffName:      req.StaffName,
			ProgrammeUnit:  req.ProgrammeUnit,
			TypeServices:   req.TypeServices,
			Category:       req.Category,
			Description:    req.Description,
			TypeVehicle:    req.TypeVehicle,
			TravellerName:  req.TravellerName,
			TravellerPhone: req.TravellerPhone,
			FromDate:       line.FromDate,
			ToDate:         line.ToDate,
			Days:           ComputePrDays(line.FromDate, line.ToDate),
			Location:       line.Location,
			Qty:            line.Qty,
			EstCostPKR:     line.EstCostPKR,
			EstCostUSD:     line.EstCostUSD,
			ReminderExpiry: line.ReminderExpiry,
			Comments:       line.Comments,
			Status:         models.RecordTypePR.InitialStatus(),
			AssignedTo:     strings.TrimSpace(req.AssignedTo),
		}
		if line.ReminderExpiry {
			pr.ReminderDays = line.ReminderDays
		}

		allocs := line.Allocations
		if req.SharedWbs {
			allocs = req.Allocations
		}
		for _, a := range allocs {
			pr.Allocations = append(pr.Allocations, models.WbsAllocation{
				ProjectName: a.ProjectName,
				TaskName:    a.TaskName,
				Percentage:  a.Percentage,
			})
		}
		prs = append(prs, pr)
	}

	result := &TransitionResult{RecordType: models.RecordTypePR}
	err := s.repo.InTx(ctx, func(tx *repository.Repository) error {
		for _, pr := range prs {
			if err := tx.CreatePurchaseRequest(ctx, pr); err != nil {
				return err
			}
			entry, err := s.engine.audit.Record(ctx, tx, models.RecordTypePR, pr.ID, nil, pr.Status, actor)
			if err != nil {
				return err
			}
			result.record(entry, metrics.OriginCreate)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to submit purchase request: %w", err)
	}
	s.engine.committed(result)

	s.logger.Info("purchase request submitted",
		zap.String("pr_number", req.PRNumber),
		zap.Int("lines", len(prs)),
		zap.String("changed_by", actor))

	return prs, nil
}

func validateSubmission(req *models.SubmitPRRequest) error {
	verr := &models.ValidationError{}
	if err := validateStruct(req); err != nil {
		var fieldErrs *models.ValidationError
		if !errors.As(err, &fieldErrs) {
			return err
		}
		verr.Fields = append(verr.Fields, fieldErrs.Fields...)
	}

	if strings.TrimSpace(req.PRNumber) == "" && !hasField(verr, "pr_number") {
		verr.Add("pr_number", "is required")
	}
	if req.Category == models.CategoryRentalVehicle && strings.TrimSpace(req.TypeVehicle) == "" {
		verr.Add("type_vehicle", "is required for "+models.CategoryRentalVehicle)
	}

	if req.SharedWbs {
		checkAllocations(verr, "allocations", req.Allocations)
	}
	for i, line := range req.Lines {
		prefix := fmt.Sprintf("lines[%d]", i)
		if !req.SharedWbs {
			checkAllocations(verr, prefix+".allocations", line.Allocations)
		}
		if line.ReminderExpiry && line.ReminderDays == nil {
			verr.Add(prefix+".reminder_days", "is required when a reminder is set")
		}
	}

	return verr.OrNil()
}

// checkAllocations enforces 1 to 5 WBS entries whose percentages add up to 100.
func checkAllocations(verr *models.ValidationError, field string, allocs []models.AllocationRequest) {
	if len(allocs) == 0 || len(allocs) > maxAllocations {
		verr.Add(field, fmt.Sprintf("must have between 1 and %d entries", maxAllocations))
		return
	}
	total := 0
	for _, a := range allocs {
		total += a.Percentage
	}
	if total != fullAllocation {
		verr.Add(field, fmt.Sprintf("percentages must add up to %d, got %d", fullAllocation, total))
	}
}

func hasField(verr *models.ValidationError, field string) bool {
	for _, f := range verr.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

func (s *TrackerService) GetPurchaseRequest(ctx context.Context, id int64) (*models.PurchaseRequest, error) {
	return s.repo.GetPurchaseRequest(ctx, id)
}

func (s *TrackerService) ListPurchaseRequests(ctx context.Context, filter models.PRFilter) ([]*models.PurchaseRequest, error) {
	return s.repo.ListPurchaseRequests(ctx, filter)
}

// DistinctPRValues lists the values available for a PR filter field.
func (s *TrackerService) DistinctPRValues(ctx context.Context, field string) ([]string, error) {
	return s.repo.DistinctPRValues(ctx, field)
}

// SavePayment creates or updates the payment of a PR. A payment saved as
// Completed completes its PR in the same transaction.
func (s *TrackerService) SavePayment(ctx context.Context, prID int64, req *models.PaymentRequest, actor string) (*TransitionResult, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	status, err := creationStatus(models.RecordTypePayment, req.Status)
	if err != nil {
		return nil, err
	}

	result := &TransitionResult{RecordType: models.RecordTypePayment}
	err = s.repo.InTx(ctx, func(tx *repository.Repository) error {
		pr, err := tx.GetPurchaseRequest(ctx, prID)
		if err != nil {
			return err
		}

		payment := &models.Payment{
			PRID:             &pr.ID,
			PRNumber:         pr.PRNumber,
			Category:         pr.Category,
			PONumber:         req.PONumber,
			InvoiceNumber:    req.InvoiceNumber,
			WaveReceipt:      req.WaveReceipt,
			WorkConfirmation: req.WorkConfirmation,
			WorkOrder:        req.WorkOrder,
			WorkOrderNumber:  req.WorkOrderNumber,
			ActualUSD:        req.ActualUSD,
			ActualPKR:        req.ActualPKR,
			PaymentDate:      req.PaymentDate,
			Remarks:          req.Remarks,
			Status:           status,
		}

		created, prior, err := tx.UpsertPaymentByParent(ctx, payment)
		if err != nil {
			return err
		}
		result.RecordID = payment.ID

		var old *models.Status
		origin := metrics.OriginCreate
		if !created {
			if err := s.engine.checkOrder(models.RecordTypePayment, prior, status); err != nil {
				return err
			}
			old, origin = &prior, metrics.OriginDirect
		}

		entry, err := s.engine.audit.Record(ctx, tx, models.RecordTypePayment, payment.ID, old, status, actor)
		if err != nil {
			return err
		}
		result.record(entry, origin)

		return s.engine.cascade(ctx, tx, models.RecordTypePayment, payment.ID, status, actor, result)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save payment: %w", err)
	}
	s.engine.committed(result)
	s.engine.snapshot(ctx, result)

	s.logger.Info("payment saved",
		zap.Int64("payment_id", result.RecordID),
		zap.Int64("pr_id", prID),
		zap.String("status", string(status)),
		zap.String("changed_by", actor))

	return result, nil
}

func (s *TrackerService) GetPayment(ctx context.Context, id int64) (*models.Payment, error) {
	return s.repo.GetPayment(ctx, id)
}

func (s *TrackerService) ListPayments(ctx context.Context, filter models.PaymentFilter) ([]*models.Payment, error) {
	return s.repo.ListPayments(ctx, filter)
}

// CreateDsaPayment stores a DSA payment with its allowance days computed.
func (s *TrackerService) CreateDsaPayment(ctx context.Context, req *models.DsaRequest, actor string) (*models.DsaPayment, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	status, err := creationStatus(models.RecordTypeDSA, req.Status)
	if err != nil {
		return nil, err
	}

	dsa := &models.DsaPayment{
		DateRequest:   req.DateRequest,
		StaffName:     req.StaffName,
		ProgrammeUnit: req.ProgrammeUnit,
		TypeServices:  req.TypeServices,
		DsaType:       req.DsaType,
		VendorName:    req.VendorName,
		Description:   req.Description,
		Location:      req.Location,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		Days:          ComputeDsaDays(req.StartDate, req.EndDate),
		AmountPKR:     req.AmountPKR,
		ISTNumber:     req.ISTNumber,
		Comments:      req.Comments,
		Status:        status,
	}

	result := &TransitionResult{RecordType: models.RecordTypeDSA}
	err = s.repo.InTx(ctx, func(tx *repository.Repository) error {
		if err := tx.CreateDsaPayment(ctx, dsa); err != nil {
			return err
		}
		entry, err := s.engine.audit.Record(ctx, tx, models.RecordTypeDSA, dsa.ID, nil, status, actor)
		if err != nil {
			return err
		}
		result.record(entry, metrics.OriginCreate)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create dsa payment: %w", err)
	}
	s.engine.committed(result)

	s.logger.Info("dsa payment created",
		zap.Int64("dsa_id", dsa.ID),
		zap.String("days", dsa.Days.String()),
		zap.String("changed_by", actor))

	return dsa, nil
}

func (s *TrackerService) GetDsaPayment(ctx context.Context, id int64) (*models.DsaPayment, error) {
	return s.repo.GetDsaPayment(ctx, id)
}

func (s *TrackerService) ListDsaPayments(ctx context.Context, filter models.DsaFilter) ([]*models.DsaPayment, error) {
	return s.repo.ListDsaPayments(ctx, filter)
}

// CreateAdvance stores an operational advance.
func (s *TrackerService) CreateAdvance(ctx context.Context, req *models.AdvanceRequest, actor string) (*models.OperationalAdvance, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	status, err := creationStatus(models.RecordTypeOA, req.Status)
	if err != nil {
		return nil, err
	}

	oa := &models.OperationalAdvance{
		DateRequest:     req.DateRequest,
		StaffName:       req.StaffName,
		ProgrammeUnit:   req.ProgrammeUnit,
		SupplierName:    req.SupplierName,
		Description:     req.Description,
		InvoiceType:     req.InvoiceType,
		InvoiceNo:       req.InvoiceNo,
		TotalAmount:     req.TotalAmount,
		InvoiceCurrency: req.InvoiceCurrency,
		PaymentCurrency: req.PaymentCurrency,
		Location:        req.Location,
		Comments:        req.Comments,
		Status:          status,
	}

	result := &TransitionResult{RecordType: models.RecordTypeOA}
	err = s.repo.InTx(ctx, func(tx *repository.Repository) error {
		if err := tx.CreateAdvance(ctx, oa); err != nil {
			return err
		}
		entry, err := s.engine.audit.Record(ctx, tx, models.RecordTypeOA, oa.ID, nil, status, actor)
		if err != nil {
			return err
		}
		result.record(entry, metrics.OriginCreate)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create operational advance: %w", err)
	}
	s.engine.committed(result)

	s.logger.Info("operational advance created",
		zap.Int64("oa_id", oa.ID),
		zap.String("changed_by", actor))

	return oa, nil
}

func (s *TrackerService) GetAdvance(ctx context.Context, id int64) (*models.OperationalAdvance, error) {
	return s.repo.GetAdvance(ctx, id)
}

func (s *TrackerService) ListAdvances(ctx context.Context, filter models.AdvanceFilter) ([]*models.AdvanceSummary, error) {
	return s.repo.ListAdvances(ctx, filter)
}

// CreateLiquidation settles an advance. The advance's details are copied onto
// the liquidation, and a Completed or Paid liquidation closes the advance.
func (s *TrackerService) CreateLiquidation(ctx context.Context, oaID int64, req *models.LiquidationRequest, actor string) (*TransitionResult, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	status, err := creationStatus(models.RecordTypeLiquidation, req.Status)
	if err != nil {
		return nil, err
	}

	result := &TransitionResult{RecordType: models.RecordTypeLiquidation}
	err = s.repo.InTx(ctx, func(tx *repository.Repository) error {
		oa, err := tx.GetAdvance(ctx, oaID)
		if err != nil {
			return err
		}

		_, err = tx.GetLiquidationByAdvance(ctx, oaID)
		switch {
		case err == nil:
			return models.NewValidationError("oa_id", fmt.Sprintf("advance %d already has a liquidation", oaID))
		case !errors.Is(err, models.ErrNotFound):
			return err
		}

		comments := req.Comments
		if comments == "" {
			comments = oa.Comments
		}

		liq := &models.Liquidation{
			OAID:                  &oa.ID,
			DateRequest:           req.DateRequest,
			StaffName:             req.StaffName,
			ProgrammeUnit:         oa.ProgrammeUnit,
			Category:              oa.InvoiceType,
			SupplierName:          oa.SupplierName,
			Description:           oa.Description,
			InvoiceType:           oa.InvoiceType,
			InvoiceNo:             oa.InvoiceNo,
			TotalAmount:           oa.TotalAmount,
			InvoiceCurrency:       oa.InvoiceCurrency,
			PaymentCurrency:       oa.PaymentCurrency,
			LiquidationIST:        req.LiquidationIST,
			LiquidationAmount:     req.LiquidationAmount,
			WbsProjectCode:        req.WbsProjectCode,
			WbsTaskNumber:         req.WbsTaskNumber,
			UnspentAmount:         req.UnspentAmount,
			UnspentDeposited:      req.UnspentDeposited,
			UnspentIST1:           req.UnspentIST1,
			UnspentIST2:           req.UnspentIST2,
			UnspentWbsProjectCode: req.UnspentWbsProjectCode,
			UnspentWbsTaskNumber:  req.UnspentWbsTaskNumber,
			DocumentsSubmitted:    req.DocumentsSubmitted,
			Location:              oa.Location,
			Comments:              comments,
			Status:                status,
		}
		if req.UnspentDeposited {
			liq.DepositedAmount = req.DepositedAmount
		}

		if err := tx.CreateLiquidation(ctx, liq); err != nil {
			return err
		}
		result.RecordID = liq.ID

		entry, err := s.engine.audit.Record(ctx, tx, models.RecordTypeLiquidation, liq.ID, nil, status, actor)
		if err != nil {
			return err
		}
		result.record(entry, metrics.OriginCreate)

		return s.engine.cascade(ctx, tx, models.RecordTypeLiquidation, liq.ID, status, actor, result)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create liquidation: %w", err)
	}
	s.engine.committed(result)
	s.engine.snapshot(ctx, result)

	s.logger.Info("liquidation created",
		zap.Int64("liquidation_id", result.RecordID),
		zap.Int64("oa_id", oaID),
		zap.String("status", string(status)),
		zap.String("changed_by", actor))

	return result, nil
}

func (s *TrackerService) GetLiquidation(ctx context.Context, id int64) (*models.Liquidation, error) {
	return s.repo.GetLiquidation(ctx, id)
}

// Delete removes a record and, through foreign keys, its dependents.
// History entries are kept.
func (s *TrackerService) Delete(ctx context.Context, rt models.RecordType, id int64, actor string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, rt, id); err != nil {
		return err
	}
	s.logger.Info("record deleted",
		zap.String("record_type", string(rt)),
		zap.Int64("record_id", id),
		zap.String("deleted_by", actor))
	return nil
}

// DashboardSummary counts PRs per status. Every PR status is present in the result.
func (s *TrackerService) DashboardSummary(ctx context.Context, filter models.PRFilter) (*models.StatusSummary, error) {
	summary := &models.StatusSummary{Counts: make(map[models.Status]int)}
	for _, st := range models.RecordTypePR.States() {
		summary.Counts[st] = 0
	}

	if filter == (models.PRFilter{}) {
		counts, err := s.repo.CountByStatus(ctx, models.RecordTypePR)
		if err != nil {
			return nil, err
		}
		for st, n := range counts {
			summary.Counts[st] += n
			summary.Total += n
		}
		return summary, nil
	}

	prs, err := s.repo.ListPurchaseRequests(ctx, filter)
	if err != nil {
		return nil, err
	}
	for _, pr := range prs {
		summary.Counts[pr.Status]++
		summary.Total++
	}
	return summary, nil
}

// Reminders lists PRs with a reminder set, classified against today.
func (s *TrackerService) Reminders(ctx context.Context) ([]models.PRReminder, error) {
	prs, err := s.repo.ListReminderCandidates(ctx)
	if err != nil {
		return nil, err
	}

	today := models.DateOf(s.now())
	reminders := make([]models.PRReminder, 0, len(prs))
	for _, pr := range prs {
		date, ok := ReminderDate(pr.FromDate, pr.ReminderDays)
		reminders = append(reminders, models.PRReminder{
			PRID:           pr.ID,
			PRNumber:       pr.PRNumber,
			StaffName:      pr.StaffName,
			Category:       pr.Category,
			FromDate:       pr.FromDate,
			ReminderDays:   pr.ReminderDays,
			ReminderDate:   date,
			Classification: ClassifyReminder(date, ok, today),
		})
	}
	return reminders, nil
}

// PurchaseRequestReport gathers a PR line, its payments, and the merged
// status timeline of all of them.
func (s *TrackerService) PurchaseRequestReport(ctx context.Context, prID int64) (*models.PRReport, error) {
	pr, err := s.repo.GetPurchaseRequest(ctx, prID)
	if err != nil {
		return nil, err
	}

	payments, err := s.repo.ListPayments(ctx, models.PaymentFilter{PRID: prID})
	if err != nil {
		return nil, err
	}

	keys := map[models.RecordType][]string{
		models.RecordTypePR: {repository.RecordID(prID)},
	}
	for _, p := range payments {
		keys[models.RecordTypePayment] = append(keys[models.RecordTypePayment], repository.RecordID(p.ID))
	}

	timeline, err := s.repo.ListHistoryByTypes(ctx, keys)
	if err != nil {
		return nil, err
	}

	return &models.PRReport{
		PurchaseRequest: pr,
		Payments:        payments,
		Timeline:        timeline,
	}, nil
}

// History returns the status history of one record, oldest first.
func (s *TrackerService) History(ctx context.Context, rt models.RecordType, id int64) ([]models.StatusHistoryEntry, error) {
	return s.engine.audit.History(ctx, rt, id)
}

// creationStatus defaults an empty status to the type's initial state.
func creationStatus(rt models.RecordType, status models.Status) (models.Status, error) {
	if status == "" {
		return rt.InitialStatus(), nil
	}
	if !rt.Allows(status) {
		return "", fmt.Errorf("%w: %q is not a %s status", models.ErrInvalidTransition, status, rt)
	}
	return status, nil
}
