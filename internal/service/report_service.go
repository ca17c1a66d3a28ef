package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/school-fee-api/internal/models"
	appErrors "github.com/noah-isme/school-fee-api/pkg/errors"
	"github.com/noah-isme/school-fee-api/pkg/export"
)

const (
	reportCachePattern = "reports:*"
	reportDateLayout   = "2006-01-02"
)

// Column order of the payment CSV export.
var reportCSVHeaders = []string{"Receipt No", "Student Name", "Roll Number", "Fee Type", "Amount", "Date", "Method", "Status"}

type paymentLister interface {
	List(ctx context.Context, query models.PaymentQuery) []models.Payment
}

type studentLister interface {
	List(ctx context.Context, query models.StudentQuery) []models.Student
}

type feeStructureLister interface {
	List(ctx context.Context, query models.FeeStructureQuery) []models.FeeStructure
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ReportServiceConfig tunes report behaviour.
type ReportServiceConfig struct {
	CacheTTL            time.Duration
	RecentPaymentsLimit int
}

// ReportFile is a rendered export ready for download.
type ReportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ReportService aggregates payments into summaries, the dashboard and CSV exports.
type ReportService struct {
	payments paymentLister
	students studentLister
	fees     feeStructureLister
	csv      csvRenderer
	cache    *CacheService
	logger   *zap.Logger
	cfg      ReportServiceConfig
	now      func() time.Time
}

// NewReportService constructs a ReportService.
func NewReportService(payments paymentLister, students studentLister, fees feeStructureLister, csv csvRenderer, cache *CacheService, logger *zap.Logger, cfg ReportServiceConfig) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if cfg.RecentPaymentsLimit <= 0 {
		cfg.RecentPaymentsLimit = 5
	}
	return &ReportService{payments: payments, students: students, fees: fees, csv: csv, cache: cache, logger: logger, cfg: cfg, now: time.Now}
}

// Invalidate drops every cached report. It is registered as the write hook of
// the student, fee structure and payment services.
func (s *ReportService) Invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, reportCachePattern); err != nil {
		s.logger.Warn("failed to invalidate report cache", zap.Error(err))
	}
}

// Summary aggregates the payments selected by filter.
func (s *ReportService) Summary(ctx context.Context, filter models.ReportFilter) (*models.ReportSummary, error) {
	if err := checkRange(filter); err != nil {
		return nil, err
	}
	key := fmt.Sprintf("reports:summary:%s:%s:%s:%s", filter.Start.Format(reportDateLayout), filter.End.Format(reportDateLayout), filter.Class, filter.Status)

	var cached models.ReportSummary
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	students := s.students.List(ctx, models.StudentQuery{})
	payments := s.filteredPayments(ctx, filter, students)
	summary := summarise(payments, students)
	summary.Start = filter.Start
	summary.End = models.EndOfDay(filter.End)
	summary.GeneratedAt = s.now().UTC()

	_ = s.cache.Set(ctx, key, summary, s.cfg.CacheTTL)
	return summary, nil
}

// Dashboard returns headline totals and the most recent payments.
func (s *ReportService) Dashboard(ctx context.Context) (*models.Dashboard, error) {
	const key = "reports:dashboard"
	var cached models.Dashboard
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	students := s.students.List(ctx, models.StudentQuery{})
	fees := s.fees.List(ctx, models.FeeStructureQuery{})
	payments := s.payments.List(ctx, models.PaymentQuery{})

	dashboard := &models.Dashboard{
		TotalStudents:      len(students),
		TotalFeeStructures: len(fees),
		TotalCollected:     decimal.Zero,
	}
	for _, p := range payments {
		switch p.Status {
		case models.PaymentPaid:
			dashboard.TotalCollected = dashboard.TotalCollected.Add(p.Amount)
		case models.PaymentPending:
			dashboard.PendingPayments++
		}
	}
	limit := s.cfg.RecentPaymentsLimit
	if len(payments) < limit {
		limit = len(payments)
	}
	dashboard.RecentPayments = append([]models.Payment{}, payments[:limit]...)

	_ = s.cache.Set(ctx, key, dashboard, s.cfg.CacheTTL)
	return dashboard, nil
}

// ExportCSV renders the payments selected by filter as a CSV attachment.
func (s *ReportService) ExportCSV(ctx context.Context, filter models.ReportFilter) (*ReportFile, error) {
	if err := checkRange(filter); err != nil {
		return nil, err
	}
	var students []models.Student
	if filter.Class != "" {
		students = s.students.List(ctx, models.StudentQuery{Class: filter.Class})
	}
	payments := s.filteredPayments(ctx, filter, students)
	if len(payments) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "No data to export")
	}

	rows := make([][]string, 0, len(payments))
	for _, p := range payments {
		rows = append(rows, []string{
			p.ReceiptNumber,
			p.StudentName,
			p.RollNumber,
			p.FeeName,
			p.Amount.String(),
			p.PaymentDate.Format(reportDateLayout),
			string(p.PaymentMethod),
			string(p.Status),
		})
	}
	body, err := s.csv.Render(export.Dataset{Headers: reportCSVHeaders, Rows: rows})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}
	return &ReportFile{
		Filename:    fmt.Sprintf("fee-report-%s-to-%s.csv", filter.Start.Format(reportDateLayout), filter.End.Format(reportDateLayout)),
		ContentType: "text/csv; charset=utf-8",
		Body:        body,
	}, nil
}

// filteredPayments loads payments in the filter's range. When a class is
// given only payments of students in students with that class are kept.
func (s *ReportService) filteredPayments(ctx context.Context, filter models.ReportFilter, students []models.Student) []models.Payment {
	start := filter.Start
	end := models.EndOfDay(filter.End)
	payments := s.payments.List(ctx, models.PaymentQuery{Status: filter.Status, From: &start, To: &end})
	if filter.Class == "" {
		return payments
	}
	inClass := make(map[string]struct{})
	for _, st := range students {
		if st.Class == filter.Class {
			inClass[st.ID] = struct{}{}
		}
	}
	filtered := make([]models.Payment, 0, len(payments))
	for _, p := range payments {
		if _, ok := inClass[p.StudentID]; ok {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

func summarise(payments []models.Payment, students []models.Student) *models.ReportSummary {
	classOf := make(map[string]string, len(students))
	for _, st := range students {
		classOf[st.ID] = st.Class
	}
	summary := &models.ReportSummary{
		TotalCollected:      decimal.Zero,
		PendingAmount:       decimal.Zero,
		OverdueAmount:       decimal.Zero,
		AveragePayment:      decimal.Zero,
		PaymentCount:        len(payments),
		CollectionByClass:   map[string]decimal.Decimal{},
		CollectionByMethod:  map[string]decimal.Decimal{},
		CollectionByFeeType: map[string]decimal.Decimal{},
	}
	uniqueStudents := make(map[string]struct{})
	paidCount := 0
	for _, p := range payments {
		uniqueStudents[p.StudentID] = struct{}{}
		switch p.Status {
		case models.PaymentPending:
			summary.PendingAmount = summary.PendingAmount.Add(p.Amount)
			continue
		case models.PaymentOverdue:
			summary.OverdueAmount = summary.OverdueAmount.Add(p.Amount)
			continue
		case models.PaymentPaid:
		default:
			continue
		}
		paidCount++
		summary.TotalCollected = summary.TotalCollected.Add(p.Amount)
		if class, ok := classOf[p.StudentID]; ok {
			summary.CollectionByClass[class] = summary.CollectionByClass[class].Add(p.Amount)
		}
		method := string(p.PaymentMethod)
		summary.CollectionByMethod[method] = summary.CollectionByMethod[method].Add(p.Amount)
		summary.CollectionByFeeType[p.FeeName] = summary.CollectionByFeeType[p.FeeName].Add(p.Amount)
	}
	summary.UniqueStudents = len(uniqueStudents)
	if paidCount > 0 {
		summary.AveragePayment = summary.TotalCollected.DivRound(decimal.NewFromInt(int64(paidCount)), 2)
	}
	return summary
}

func checkRange(filter models.ReportFilter) error {
	if filter.Start.IsZero() || filter.End.IsZero() {
		return newValidationError("start", "Start and end dates are required")
	}
	if filter.End.Before(filter.Start) {
		return newValidationError("end", "End date must not be before start date")
	}
	return nil
}
