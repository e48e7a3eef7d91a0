package service

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pr-tracker/internal/metrics"
	"pr-tracker/internal/models"
	"pr-tracker/internal/repository"
	"pr-tracker/pkg/database"
)

const testActor = "alice"

type fixture struct {
	repo    *repository.Repository
	engine  *Engine
	svc     *TrackerService
	metrics *metrics.Metrics
}

func newFixture(t *testing.T, logger *zap.Logger, opts ...EngineOption) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := database.NewSQLiteDB(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := repository.NewRepository(db)
	require.NoError(t, repo.Migrate(ctx))

	if logger == nil {
		logger = zap.NewNop()
	}
	m := metrics.NewMetrics(prometheus.NewRegistry())
	engine := NewEngine(repo, logger, append([]EngineOption{WithMetrics(m)}, opts...)...)

	return &fixture{
		repo:    repo,
		engine:  engine,
		svc:     NewTrackerService(repo, engine, logger),
		metrics: m,
	}
}

func submitRequest(prNumber string, lines int) *models.SubmitPRRequest {
	req := &models.SubmitPRRequest{
		PRNumber:      prNumber,
		DateRequest:   models.NewDate(2024, time.January, 2),
		StaffName:     testActor,
		ProgrammeUnit: "Health",
		TypeServices:  "Services",
		Category:      "Venue",
		AssignedTo:    "bob",
		SharedWbs:     true,
		Allocations: []models.AllocationRequest{
			{ProjectName: "P1", TaskName: "T1", Percentage: 60},
			{ProjectName: "P2", TaskName: "T2", Percentage: 40},
		},
	}
	for i := 0; i < lines; i++ {
		req.Lines = append(req.Lines, models.PRLineRequest{
			FromDate:   models.NewDate(2024, time.January, 1),
			ToDate:     models.NewDate(2024, time.January, 5),
			Location:   "Islamabad",
			Qty:        1,
			EstCostPKR: decimal.NewFromInt(1000),
		})
	}
	return req
}

func (f *fixture) submitPR(t *testing.T) *models.PurchaseRequest {
	t.Helper()
	prs, err := f.svc.SubmitPurchaseRequest(context.Background(), submitRequest("PR-001", 1), testActor)
	require.NoError(t, err)
	require.Len(t, prs, 1)
	return prs[0]
}

func (f *fixture) createAdvance(t *testing.T) *models.OperationalAdvance {
	t.Helper()
	oa, err := f.svc.CreateAdvance(context.Background(), &models.AdvanceRequest{
		DateRequest:   models.NewDate(2024, time.April, 1),
		StaffName:     testActor,
		ProgrammeUnit: "Admin",
		SupplierName:  "Acme",
		Description:   "Workshop catering",
		InvoiceType:   "Proforma",
		InvoiceNo:     "PF-12",
		TotalAmount:   decimal.NewFromInt(5000),
		Location:      "Lahore",
		Comments:      "advance note",
	}, testActor)
	require.NoError(t, err)
	return oa
}
