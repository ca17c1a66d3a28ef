package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-fee-api/internal/models"
	"github.com/noah-isme/school-fee-api/internal/service"
	appErrors "github.com/noah-isme/school-fee-api/pkg/errors"
	"github.com/noah-isme/school-fee-api/pkg/response"
)

type reportService interface {
	Summary(ctx context.Context, filter models.ReportFilter) (*models.ReportSummary, error)
	Dashboard(ctx context.Context) (*models.Dashboard, error)
	ExportCSV(ctx context.Context, filter models.ReportFilter) (*service.ReportFile, error)
}

// ReportHandler serves the dashboard, report summaries and CSV exports.
type ReportHandler struct {
	reports reportService
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(reports reportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Dashboard godoc
// @Summary Dashboard overview
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *ReportHandler) Dashboard(c *gin.Context) {
	dashboard, err := h.reports.Dashboard(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dashboard)
}

// Summary godoc
// @Summary Payment report summary
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param start query string true "First day (YYYY-MM-DD)"
// @Param end query string true "Last day, inclusive (YYYY-MM-DD)"
// @Param class query string false "Only students of this class"
// @Param status query string false "paid, pending or overdue"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /reports/summary [get]
func (h *ReportHandler) Summary(c *gin.Context) {
	filter, ok := bindReportFilter(c)
	if !ok {
		return
	}
	summary, err := h.reports.Summary(c.Request.Context(), filter)
	if err != nil {
		renderError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary)
}

// Export godoc
// @Summary Export payments as CSV
// @Tags Reports
// @Produce text/csv
// @Security BearerAuth
// @Param start query string true "First day (YYYY-MM-DD)"
// @Param end query string true "Last day, inclusive (YYYY-MM-DD)"
// @Param class query string false "Only students of this class"
// @Param status query string false "paid, pending or overdue"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/export.csv [get]
func (h *ReportHandler) Export(c *gin.Context) {
	filter, ok := bindReportFilter(c)
	if !ok {
		return
	}
	file, err := h.reports.ExportCSV(c.Request.Context(), filter)
	if err != nil {
		renderError(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

func bindReportFilter(c *gin.Context) (models.ReportFilter, bool) {
	var filter models.ReportFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "start and end must be formatted as YYYY-MM-DD"))
		return filter, false
	}
	return filter, true
}
