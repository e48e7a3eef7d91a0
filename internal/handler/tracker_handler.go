package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pr-tracker/internal/models"
	"pr-tracker/internal/service"
	"pr-tracker/pkg/middleware"
)

// ActorHeader names the user performing a change.
const ActorHeader = "X-Actor"

type TrackerHandler struct {
	service *service.TrackerService
	idem    IdempotencyStore
	idemTTL time.Duration
	logger  *zap.Logger
}

// NewTrackerHandler builds the HTTP handlers. idem may be nil to disable idempotency keys.
func NewTrackerHandler(service *service.TrackerService, idem IdempotencyStore, idemTTL time.Duration, logger *zap.Logger) *TrackerHandler {
	return &TrackerHandler{
		service: service,
		idem:    idem,
		idemTTL: idemTTL,
		logger:  logger,
	}
}

// RegisterRoutes mounts the tracker API on v1.
func (h *TrackerHandler) RegisterRoutes(v1 *gin.RouterGroup) {
	prs := v1.Group("/purchase-requests")
	{
		prs.POST("", h.SubmitPurchaseRequest)
		prs.GET("", h.ListPurchaseRequests)
		prs.GET("/:id", h.GetPurchaseRequest)
		prs.DELETE("/:id", h.deleteRecord(models.RecordTypePR))
		prs.PUT("/:id/payment", h.SavePayment)
	}

	payments := v1.Group("/payments")
	{
		payments.GET("", h.ListPayments)
		payments.GET("/:id", h.GetPayment)
		payments.DELETE("/:id", h.deleteRecord(models.RecordTypePayment))
	}

	dsa := v1.Group("/dsa-payments")
	{
		dsa.POST("", h.CreateDsaPayment)
		dsa.GET("", h.ListDsaPayments)
		dsa.GET("/:id", h.GetDsaPayment)
		dsa.DELETE("/:id", h.deleteRecord(models.RecordTypeDSA))
	}

	advances := v1.Group("/advances")
	{
		advances.POST("", h.CreateAdvance)
		advances.GET("", h.ListAdvances)
		advances.GET("/:id", h.GetAdvance)
		advances.DELETE("/:id", h.deleteRecord(models.RecordTypeOA))
		advances.POST("/:id/liquidation", h.CreateLiquidation)
	}

	v1.GET("/liquidations/:id", h.GetLiquidation)

	records := v1.Group("/records/:type/:id")
	{
		records.PUT("/status", h.ApplyStatusChange)
		records.GET("/history", h.GetHistory)
	}

	calc := v1.Group("/calc")
	{
		calc.GET("/dsa-days", h.ComputeDsaDays)
		calc.GET("/pr-days", h.ComputePrDays)
	}

	v1.GET("/filters/purchase-requests/:field", h.PRFilterValues)
	v1.GET("/dashboard/summary", h.DashboardSummary)
	v1.GET("/reminders", h.Reminders)
	v1.GET("/reports/purchase-requests/:id", h.PurchaseRequestReport)
}

func (h *TrackerHandler) SubmitPurchaseRequest(c *gin.Context) {
	key, replayed := h.replay(c)
	if replayed {
		return
	}

	var req models.SubmitPRRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	prs, err := h.service.SubmitPurchaseRequest(c.Request.Context(), &req, actor(c))
	if err != nil {
		h.writeError(c, "failed to submit purchase request", err)
		return
	}

	h.respond(c, key, http.StatusCreated, gin.H{"purchase_requests": prs})
}

func (h *TrackerHandler) ListPurchaseRequests(c *gin.Context) {
	filter := models.PRFilter{
		PRNumber:  c.Query("pr_number"),
		Category:  c.Query("category"),
		StaffName: c.Query("staff"),
		Owner:     c.Query("owner"),
		Status:    models.Status(c.Query("status")),
	}

	prs, err := h.service.ListPurchaseRequests(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, "failed to list purchase requests", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"purchase_requests": nonNil(prs), "count": len(prs)})
}

func (h *TrackerHandler) GetPurchaseRequest(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	pr, err := h.service.GetPurchaseRequest(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, "failed to get purchase request", err)
		return
	}

	c.JSON(http.StatusOK, pr)
}

func (h *TrackerHandler) PRFilterValues(c *gin.Context) {
	values, err := h.service.DistinctPRValues(c.Request.Context(), c.Param("field"))
	if err != nil {
		h.writeError(c, "failed to list filter values", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"field": c.Param("field"), "values": values})
}

func (h *TrackerHandler) SavePayment(c *gin.Context) {
	prID, ok := pathID(c)
	if !ok {
		return
	}
	key, replayed := h.replay(c)
	if replayed {
		return
	}

	var req models.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.SavePayment(c.Request.Context(), prID, &req, actor(c))
	if err != nil {
		h.writeError(c, "failed to save payment", err)
		return
	}

	h.respond(c, key, http.StatusOK, result)
}

func (h *TrackerHandler) ListPayments(c *gin.Context) {
	filter := models.PaymentFilter{
		Category: c.Query("category"),
		Status:   models.Status(c.Query("status")),
	}
	if raw := c.Query("pr_id"); raw != "" {
		prID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pr_id"})
			return
		}
		filter.PRID = prID
	}

	payments, err := h.service.ListPayments(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, "failed to list payments", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payments": nonNil(payments), "count": len(payments)})
}

func (h *TrackerHandler) GetPayment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	payment, err := h.service.GetPayment(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, "failed to get payment", err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

func (h *TrackerHandler) CreateDsaPayment(c *gin.Context) {
	key, replayed := h.replay(c)
	if replayed {
		return
	}

	var req models.DsaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dsa, err := h.service.CreateDsaPayment(c.Request.Context(), &req, actor(c))
	if err != nil {
		h.writeError(c, "failed to create dsa payment", err)
		return
	}

	h.respond(c, key, http.StatusCreated, dsa)
}

func (h *TrackerHandler) ListDsaPayments(c *gin.Context) {
	filter := models.DsaFilter{
		StaffName: c.Query("staff"),
		Status:    models.Status(c.Query("status")),
	}

	payments, err := h.service.ListDsaPayments(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, "failed to list dsa payments", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"dsa_payments": nonNil(payments), "count": len(payments)})
}

func (h *TrackerHandler) GetDsaPayment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	dsa, err := h.service.GetDsaPayment(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, "failed to get dsa payment", err)
		return
	}

	c.JSON(http.StatusOK, dsa)
}

func (h *TrackerHandler) CreateAdvance(c *gin.Context) {
	key, replayed := h.replay(c)
	if replayed {
		return
	}

	var req models.AdvanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	oa, err := h.service.CreateAdvance(c.Request.Context(), &req, actor(c))
	if err != nil {
		h.writeError(c, "failed to create operational advance", err)
		return
	}

	h.respond(c, key, http.StatusCreated, oa)
}

func (h *TrackerHandler) ListAdvances(c *gin.Context) {
	filter := models.AdvanceFilter{
		StaffName: c.Query("staff"),
		Status:    models.Status(c.Query("status")),
	}

	advances, err := h.service.ListAdvances(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, "failed to list operational advances", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"advances": nonNil(advances), "count": len(advances)})
}

func (h *TrackerHandler) GetAdvance(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	oa, err := h.service.GetAdvance(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, "failed to get operational advance", err)
		return
	}

	c.JSON(http.StatusOK, oa)
}

func (h *TrackerHandler) CreateLiquidation(c *gin.Context) {
	oaID, ok := pathID(c)
	if !ok {
		return
	}
	key, replayed := h.replay(c)
	if replayed {
		return
	}

	var req models.LiquidationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.CreateLiquidation(c.Request.Context(), oaID, &req, actor(c))
	if err != nil {
		h.writeError(c, "failed to create liquidation", err)
		return
	}

	h.respond(c, key, http.StatusCreated, result)
}

func (h *TrackerHandler) GetLiquidation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	liq, err := h.service.GetLiquidation(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, "failed to get liquidation", err)
		return
	}

	c.JSON(http.StatusOK, liq)
}

func (h *TrackerHandler) deleteRecord(rt models.RecordType) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}

		if err := h.service.Delete(c.Request.Context(), rt, id, actor(c)); err != nil {
			h.writeError(c, "failed to delete record", err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}

func (h *TrackerHandler) ApplyStatusChange(c *gin.Context) {
	rt, id, ok := recordRef(c)
	if !ok {
		return
	}

	var req models.StatusChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status, err := models.ParseStatus(rt, req.Status)
	if err != nil {
		h.writeError(c, "invalid status", err)
		return
	}

	result, err := h.service.Engine().ApplyStatusChange(c.Request.Context(), rt, id, status, actor(c))
	if err != nil {
		h.writeError(c, "failed to apply status change", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *TrackerHandler) GetHistory(c *gin.Context) {
	rt, id, ok := recordRef(c)
	if !ok {
		return
	}

	history, err := h.service.History(c.Request.Context(), rt, id)
	if err != nil {
		h.writeError(c, "failed to get history", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"record_type": rt, "record_id": id, "history": history})
}

func (h *TrackerHandler) ComputeDsaDays(c *gin.Context) {
	start, end, ok := dateRange(c, "start", "end")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"start": start, "end": end, "days": service.ComputeDsaDays(start, end)})
}

func (h *TrackerHandler) ComputePrDays(c *gin.Context) {
	from, to, ok := dateRange(c, "from", "to")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"from": from, "to": to, "days": service.ComputePrDays(from, to)})
}

func (h *TrackerHandler) DashboardSummary(c *gin.Context) {
	filter := models.PRFilter{
		PRNumber:  c.Query("pr_number"),
		Category:  c.Query("category"),
		StaffName: c.Query("staff"),
		Owner:     c.Query("owner"),
	}

	summary, err := h.service.DashboardSummary(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, "failed to build dashboard summary", err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *TrackerHandler) Reminders(c *gin.Context) {
	reminders, err := h.service.Reminders(c.Request.Context())
	if err != nil {
		h.writeError(c, "failed to list reminders", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reminders": reminders, "count": len(reminders)})
}

func (h *TrackerHandler) PurchaseRequestReport(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	report, err := h.service.PurchaseRequestReport(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, "failed to build purchase request report", err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// writeError maps the error taxonomy onto HTTP status codes.
func (h *TrackerHandler) writeError(c *gin.Context, msg string, err error) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": verr.Fields})
	case errors.Is(err, models.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.logger.Error(msg,
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func actor(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(ActorHeader))
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func recordRef(c *gin.Context) (models.RecordType, int64, bool) {
	rt, err := models.ParseRecordType(c.Param("type"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", 0, false
	}
	id, ok := pathID(c)
	return rt, id, ok
}

func dateRange(c *gin.Context, fromParam, toParam string) (models.Date, models.Date, bool) {
	from, err := models.ParseDate(c.Query(fromParam))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fromParam + ": " + err.Error()})
		return models.Date{}, models.Date{}, false
	}
	to, err := models.ParseDate(c.Query(toParam))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": toParam + ": " + err.Error()})
		return models.Date{}, models.Date{}, false
	}
	return from, to, true
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
