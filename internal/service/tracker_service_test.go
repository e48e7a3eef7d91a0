package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pr-tracker/internal/models"
)

func validationFields(t *testing.T, err error) []string {
	t.Helper()
	var verr *models.ValidationError
	require.True(t, errors.As(err, &verr), "expected *ValidationError, got %v", err)
	fields := make([]string, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		fields = append(fields, f.Field)
	}
	return fields
}

func TestSubmitPurchaseRequest(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	prs, err := f.svc.SubmitPurchaseRequest(ctx, submitRequest("PR-100", 2), testActor)
	require.NoError(t, err)
	require.Len(t, prs, 2)

	for _, pr := range prs {
		assert.Equal(t, "PR-100", pr.PRNumber)
		assert.Equal(t, models.StatusSubmitted, pr.Status)
		assert.Equal(t, 5, pr.Days)
		require.Len(t, pr.Allocations, 2)
		assert.Equal(t, 60, pr.Allocations[0].Percentage)

		history, err := f.svc.History(ctx, models.RecordTypePR, pr.ID)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Nil(t, history[0].OldStatus)
		assert.Equal(t, models.StatusSubmitted, history[0].NewStatus)
		assert.Equal(t, testActor, history[0].ChangedBy)
	}

	stored, err := f.svc.GetPurchaseRequest(ctx, prs[1].ID)
	require.NoError(t, err)
	assert.Len(t, stored.Allocations, 2)
}

func TestSubmitPurchaseRequest_Validation(t *testing.T) {
	intp := func(n int) *int { return &n }

	tests := []struct {
		name      string
		mutate    func(r *models.SubmitPRRequest)
		wantField string
	}{
		{
			name: "shared allocations not summing to 100",
			mutate: func(r *models.SubmitPRRequest) {
				r.Allocations[1].Percentage = 30
			},
			wantField: "allocations",
		},
		{
			name: "too many allocations",
			mutate: func(r *models.SubmitPRRequest) {
				r.Allocations = []models.AllocationRequest{
					{ProjectName: "a", TaskName: "a", Percentage: 20},
					{ProjectName: "b", TaskName: "b", Percentage: 20},
					{ProjectName: "c", TaskName: "c", Percentage: 20},
					{ProjectName: "d", TaskName: "d", Percentage: 20},
					{ProjectName: "e", TaskName: "e", Percentage: 10},
					{ProjectName: "f", TaskName: "f", Percentage: 10},
				}
			},
			wantField: "allocations",
		},
		{
			name: "per line allocations missing",
			mutate: func(r *models.SubmitPRRequest) {
				r.SharedWbs = false
			},
			wantField: "lines[0].allocations",
		},
		{
			name: "rental vehicle without vehicle type",
			mutate: func(r *models.SubmitPRRequest) {
				r.Category = models.CategoryRentalVehicle
			},
			wantField: "type_vehicle",
		},
		{
			name: "reminder without days",
			mutate: func(r *models.SubmitPRRequest) {
				r.Lines[0].ReminderExpiry = true
			},
			wantField: "lines[0].reminder_days",
		},
		{
			name: "reminder days below one",
			mutate: func(r *models.SubmitPRRequest) {
				r.Lines[0].ReminderExpiry = true
				r.Lines[0].ReminderDays = intp(0)
			},
			wantField: "lines[0].reminder_days",
		},
		{
			name: "zero estimated cost",
			mutate: func(r *models.SubmitPRRequest) {
				r.Lines[0].EstCostPKR = decimal.Zero
			},
			wantField: "lines[0].est_cost_pkr",
		},
		{
			name: "no lines",
			mutate: func(r *models.SubmitPRRequest) {
				r.Lines = nil
			},
			wantField: "lines",
		},
		{
			name: "more than ten lines",
			mutate: func(r *models.SubmitPRRequest) {
				r.Lines = submitRequest("x", 11).Lines
			},
			wantField: "lines",
		},
		{
			name: "unknown type of services",
			mutate: func(r *models.SubmitPRRequest) {
				r.TypeServices = "Consulting"
			},
			wantField: "type_services",
		},
		{
			name: "missing location",
			mutate: func(r *models.SubmitPRRequest) {
				r.Lines[0].Location = ""
			},
			wantField: "lines[0].location",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			req := submitRequest("PR-200", 1)
			tt.mutate(req)

			_, err := f.svc.SubmitPurchaseRequest(context.Background(), req, testActor)
			require.ErrorIs(t, err, models.ErrValidation)
			assert.Contains(t, validationFields(t, err), tt.wantField)

			prs, err := f.svc.ListPurchaseRequests(context.Background(), models.PRFilter{})
			require.NoError(t, err)
			assert.Empty(t, prs)
		})
	}
}

func TestSubmitPurchaseRequest_PerLineAllocations(t *testing.T) {
	f := newFixture(t, nil)
	req := submitRequest("PR-300", 2)
	req.SharedWbs = false
	req.Allocations = nil
	req.Lines[0].Allocations = []models.AllocationRequest{{ProjectName: "P1", TaskName: "T1", Percentage: 100}}
	req.Lines[1].Allocations = []models.AllocationRequest{
		{ProjectName: "P2", TaskName: "T2", Percentage: 50},
		{ProjectName: "P3", TaskName: "T3", Percentage: 50},
	}

	prs, err := f.svc.SubmitPurchaseRequest(context.Background(), req, testActor)
	require.NoError(t, err)
	assert.Len(t, prs[0].Allocations, 1)
	assert.Len(t, prs[1].Allocations, 2)
}

func TestSavePayment(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	pr := f.submitPR(t)

	created, err := f.svc.SavePayment(ctx, pr.ID, &models.PaymentRequest{
		InvoiceNumber: "INV-1",
		ActualPKR:     decimal.NewFromInt(900),
	}, testActor)
	require.NoError(t, err)
	require.Len(t, created.History, 1)
	assert.Nil(t, created.History[0].OldStatus)
	assert.Equal(t, models.StatusPending, created.History[0].NewStatus)

	payment := created.Entity.(*models.Payment)
	assert.Equal(t, pr.PRNumber, payment.PRNumber)
	assert.Equal(t, pr.Category, payment.Category)
	require.NotNil(t, payment.PRID)
	assert.Equal(t, pr.ID, *payment.PRID)

	completed, err := f.svc.SavePayment(ctx, pr.ID, &models.PaymentRequest{
		InvoiceNumber: "INV-1",
		Status:        models.StatusCompleted,
	}, "bob")
	require.NoError(t, err)
	assert.Equal(t, created.RecordID, completed.RecordID, "saving again updates the same payment")
	require.Len(t, completed.History, 2)
	assert.Equal(t, models.StatusPending, *completed.History[0].OldStatus)
	assert.Equal(t, models.RecordTypePR, completed.History[1].RecordType)

	stored, err := f.svc.GetPurchaseRequest(ctx, pr.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, stored.Status)

	payments, err := f.svc.ListPayments(ctx, models.PaymentFilter{PRID: pr.ID})
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}

func TestSavePayment_Errors(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	pr := f.submitPR(t)

	_, err := f.svc.SavePayment(ctx, 999, &models.PaymentRequest{}, testActor)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = f.svc.SavePayment(ctx, pr.ID, &models.PaymentRequest{Status: models.StatusPaid}, testActor)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	_, err = f.svc.SavePayment(ctx, pr.ID, &models.PaymentRequest{ActualPKR: decimal.NewFromInt(-1)}, testActor)
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = f.svc.SavePayment(ctx, pr.ID, &models.PaymentRequest{}, "")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestCreateDsaPayment(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	dsa, err := f.svc.CreateDsaPayment(ctx, &models.DsaRequest{
		DateRequest:   day(time.March, 1),
		StaffName:     testActor,
		ProgrammeUnit: "Health",
		DsaType:       "Gop Officials",
		VendorName:    "Officer Khan",
		StartDate:     day(time.March, 1),
		EndDate:       day(time.March, 6),
		AmountPKR:     decimal.NewFromInt(20000),
	}, testActor)
	require.NoError(t, err)
	assert.Equal(t, "4.3", dsa.Days.String())
	assert.Equal(t, models.StatusPending, dsa.Status)

	history, err := f.svc.History(ctx, models.RecordTypeDSA, dsa.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.RecordTypeDSA, history[0].RecordType)

	_, err = f.svc.CreateDsaPayment(ctx, &models.DsaRequest{
		DateRequest:   day(time.March, 1),
		StaffName:     testActor,
		ProgrammeUnit: "Health",
		DsaType:       "Contractors",
		VendorName:    "x",
		StartDate:     day(time.March, 1),
		EndDate:       day(time.March, 2),
	}, testActor)
	require.ErrorIs(t, err, models.ErrValidation)
	assert.Contains(t, validationFields(t, err), "dsa_type")
}

func TestCreateLiquidation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	oa := f.createAdvance(t)

	result, err := f.svc.CreateLiquidation(ctx, oa.ID, &models.LiquidationRequest{
		DateRequest:       day(time.April, 20),
		StaffName:         testActor,
		LiquidationAmount: decimal.NewFromInt(4200),
		UnspentAmount:     decimal.NewFromInt(800),
		UnspentDeposited:  true,
		DepositedAmount:   decimal.NewNullDecimal(decimal.NewFromInt(800)),
		Status:            models.StatusPaid,
	}, testActor)
	require.NoError(t, err)

	liq := result.Entity.(*models.Liquidation)
	assert.Equal(t, oa.SupplierName, liq.SupplierName)
	assert.Equal(t, oa.InvoiceNo, liq.InvoiceNo)
	assert.Equal(t, oa.InvoiceType, liq.Category)
	assert.Equal(t, oa.Location, liq.Location)
	assert.Equal(t, oa.Comments, liq.Comments)
	assert.True(t, liq.TotalAmount.Equal(oa.TotalAmount))
	assert.True(t, liq.DepositedAmount.Valid)

	require.Len(t, result.History, 2)
	assert.Nil(t, result.History[0].OldStatus)
	assert.Equal(t, models.RecordTypeOA, result.History[1].RecordType)
	assert.Equal(t, models.StatusPaid, result.History[1].NewStatus)

	advances, err := f.svc.ListAdvances(ctx, models.AdvanceFilter{})
	require.NoError(t, err)
	require.Len(t, advances, 1)
	assert.Equal(t, models.StatusPaid, advances[0].Status)
	require.NotNil(t, advances[0].LiquidationID)
	assert.Equal(t, liq.ID, *advances[0].LiquidationID)

	_, err = f.svc.CreateLiquidation(ctx, oa.ID, &models.LiquidationRequest{
		DateRequest: day(time.April, 21),
		StaffName:   testActor,
	}, testActor)
	require.ErrorIs(t, err, models.ErrValidation)
	assert.Contains(t, validationFields(t, err), "oa_id")

	_, err = f.svc.CreateLiquidation(ctx, 999, &models.LiquidationRequest{
		DateRequest: day(time.April, 21),
		StaffName:   testActor,
	}, testActor)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDelete_RemovesDependents(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	pr := f.submitPR(t)

	saved, err := f.svc.SavePayment(ctx, pr.ID, &models.PaymentRequest{}, testActor)
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, models.RecordTypePR, pr.ID, "admin"))

	_, err = f.svc.GetPayment(ctx, saved.RecordID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	history, err := f.svc.History(ctx, models.RecordTypePR, pr.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1, "history outlives the record")

	assert.ErrorIs(t, f.svc.Delete(ctx, models.RecordTypeDSA, 1, "admin"), models.ErrNotFound)
}

func TestDashboardSummary(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.SubmitPurchaseRequest(ctx, submitRequest("PR-1", 2), testActor)
	require.NoError(t, err)
	other := submitRequest("PR-2", 1)
	other.AssignedTo = "carol"
	prs, err := f.svc.SubmitPurchaseRequest(ctx, other, testActor)
	require.NoError(t, err)
	_, err = f.engine.ApplyStatusChange(ctx, models.RecordTypePR, prs[0].ID, models.StatusInProcess, testActor)
	require.NoError(t, err)

	summary, err := f.svc.DashboardSummary(ctx, models.PRFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Counts[models.StatusSubmitted])
	assert.Equal(t, 1, summary.Counts[models.StatusInProcess])
	assert.Equal(t, 0, summary.Counts[models.StatusCompleted])

	filtered, err := f.svc.DashboardSummary(ctx, models.PRFilter{Owner: "carol"})
	require.NoError(t, err)
	assert.Equal(t, 1, filtered.Total)
	assert.Equal(t, 1, filtered.Counts[models.StatusInProcess])
}

func TestReminders(t *testing.T) {
	f := newFixture(t, nil)
	f.svc.now = func() time.Time { return time.Date(2024, time.May, 10, 15, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	three, five := 3, 5
	req := submitRequest("PR-9", 3)
	req.Lines[0].FromDate, req.Lines[0].ToDate = day(time.May, 13), day(time.May, 14)
	req.Lines[0].ReminderExpiry, req.Lines[0].ReminderDays = true, &three
	req.Lines[1].FromDate, req.Lines[1].ToDate = day(time.May, 12), day(time.May, 14)
	req.Lines[1].ReminderExpiry, req.Lines[1].ReminderDays = true, &five

	_, err := f.svc.SubmitPurchaseRequest(ctx, req, testActor)
	require.NoError(t, err)

	reminders, err := f.svc.Reminders(ctx)
	require.NoError(t, err)
	require.Len(t, reminders, 2)

	byDate := map[string]string{}
	for _, r := range reminders {
		byDate[r.ReminderDate.String()] = r.Classification
	}
	assert.Equal(t, models.ReminderDueToday, byDate["2024-05-10"])
	assert.Equal(t, models.ReminderOverdue, byDate["2024-05-07"])
}

func TestPurchaseRequestReport(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	pr := f.submitPR(t)

	_, err := f.svc.SavePayment(ctx, pr.ID, &models.PaymentRequest{Status: models.StatusCompleted}, testActor)
	require.NoError(t, err)

	report, err := f.svc.PurchaseRequestReport(ctx, pr.ID)
	require.NoError(t, err)
	assert.Equal(t, pr.ID, report.PurchaseRequest.ID)
	assert.Len(t, report.Payments, 1)
	require.Len(t, report.Timeline, 3)
	assert.Equal(t, models.RecordTypePR, report.Timeline[0].RecordType)
	assert.Equal(t, models.RecordTypePayment, report.Timeline[1].RecordType)
	assert.Equal(t, models.StatusCompleted, report.Timeline[2].NewStatus)

	_, err = f.svc.PurchaseRequestReport(ctx, 999)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
