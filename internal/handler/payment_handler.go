package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-fee-api/internal/models"
	"github.com/noah-isme/school-fee-api/internal/service"
	appErrors "github.com/noah-isme/school-fee-api/pkg/errors"
	"github.com/noah-isme/school-fee-api/pkg/response"
)

type paymentService interface {
	Add(ctx context.Context, session models.Session, req service.CreatePaymentRequest) (*models.Payment, error)
	AddBatch(ctx context.Context, session models.Session, req service.BatchPaymentRequest) (*service.BatchPaymentResult, error)
	Update(ctx context.Context, id string, req service.UpdatePaymentRequest) (*models.Payment, error)
	Get(ctx context.Context, id string) (*models.Payment, bool)
	List(ctx context.Context, query models.PaymentQuery) []models.Payment
	ListByStudent(ctx context.Context, studentID string) []models.Payment
	Delete(ctx context.Context, id string) error
	NewReceiptNumber(now time.Time) string
}

type paymentRecorder interface {
	RecordPayment(method, status string)
}

// PaymentHandler exposes payment endpoints.
type PaymentHandler struct {
	payments paymentService
	recorder paymentRecorder
	now      func() time.Time
}

// NewPaymentHandler constructs PaymentHandler. recorder may be nil.
func NewPaymentHandler(payments paymentService, recorder paymentRecorder) *PaymentHandler {
	return &PaymentHandler{payments: payments, recorder: recorder, now: time.Now}
}

// List godoc
// @Summary List payments
// @Description Newest payment date first. from and to are inclusive calendar days.
// @Tags Payments
// @Produce json
// @Security BearerAuth
// @Param student_id query string false "Filter by student"
// @Param status query string false "paid, pending or overdue"
// @Param search query string false "Search by student name, receipt number or fee name"
// @Param from query string false "First day (YYYY-MM-DD)"
// @Param to query string false "Last day (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /payments [get]
func (h *PaymentHandler) List(c *gin.Context) {
	var query models.PaymentQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	var err error
	if query.From, err = queryDate(c, "from", false); err != nil {
		response.Error(c, err)
		return
	}
	if query.To, err = queryDate(c, "to", true); err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, h.payments.List(c.Request.Context(), query))
}

// ListByStudent godoc
// @Summary List a student's payments
// @Tags Payments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/payments [get]
func (h *PaymentHandler) ListByStudent(c *gin.Context) {
	response.List(c, h.payments.ListByStudent(c.Request.Context(), c.Param("id")))
}

// Get godoc
// @Summary Get payment
// @Tags Payments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Payment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /payments/{id} [get]
func (h *PaymentHandler) Get(c *gin.Context) {
	payment, ok := h.payments.Get(c.Request.Context(), c.Param("id"))
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "Payment not found"))
		return
	}
	response.JSON(c, http.StatusOK, payment)
}

// ReceiptNumber godoc
// @Summary Suggest a receipt number
// @Tags Payments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /payments/receipt-number [get]
func (h *PaymentHandler) ReceiptNumber(c *gin.Context) {
	response.JSON(c, http.StatusOK, gin.H{"receipt_number": h.payments.NewReceiptNumber(h.now())})
}

// Create godoc
// @Summary Record payment
// @Description Student and fee names are copied onto the payment at creation
// @Tags Payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreatePaymentRequest true "Payment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /payments [post]
func (h *PaymentHandler) Create(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CreatePaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	payment, err := h.payments.Add(c.Request.Context(), session, req)
	if err != nil {
		renderError(c, err)
		return
	}
	h.record(*payment)
	response.Created(c, payment)
}

// CreateBatch godoc
// @Summary Record several fees in one payment
// @Description Writes one payment per item. A failure part way deletes the payments already written and reports them in meta.
// @Tags Payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.BatchPaymentRequest true "Batch payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 500 {object} response.Envelope
// @Router /payments/batch [post]
func (h *PaymentHandler) CreateBatch(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.BatchPaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.payments.AddBatch(c.Request.Context(), session, req)
	if err != nil {
		renderError(c, err)
		return
	}
	for _, p := range result.Payments {
		h.record(p)
	}
	response.Created(c, result)
}

// Update godoc
// @Summary Update payment
// @Tags Payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Payment ID"
// @Param payload body service.UpdatePaymentRequest true "Payment payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /payments/{id} [put]
func (h *PaymentHandler) Update(c *gin.Context) {
	var req service.UpdatePaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	payment, err := h.payments.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		renderError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payment)
}

// Delete godoc
// @Summary Delete payment
// @Tags Payments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Payment ID"
// @Param confirm query bool true "Must be true"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Failure 428 {object} response.Envelope
// @Router /payments/{id} [delete]
func (h *PaymentHandler) Delete(c *gin.Context) {
	if err := h.payments.Delete(c.Request.Context(), c.Param("id")); err != nil {
		renderError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *PaymentHandler) record(p models.Payment) {
	if h.recorder != nil {
		h.recorder.RecordPayment(string(p.PaymentMethod), string(p.Status))
	}
}
