package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-fee-api/internal/models"
	"github.com/noah-isme/school-fee-api/internal/service"
	appErrors "github.com/noah-isme/school-fee-api/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type responseEnvelope struct {
	Data  interface{}            `json:"data"`
	Error *appErrors.Error       `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

type fakeTokens struct{}

// Accepts the literal tokens "admin" and "staff".
func (fakeTokens) ValidateToken(ctx context.Context, token string) (*models.JWTClaims, error) {
	switch token {
	case "admin":
		return &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}, nil
	case "staff":
		return &models.JWTClaims{UserID: "staff-1", Role: models.RoleStaff}, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

type fakeAuth struct {
	signInErr error
	signedOut *models.JWTClaims
}

func (f *fakeAuth) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	return &models.AuthResponse{AccessToken: "t", User: models.UserInfo{Email: req.Email}}, nil
}

func (f *fakeAuth) SignIn(ctx context.Context, req models.SignInRequest) (*models.AuthResponse, error) {
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	return &models.AuthResponse{AccessToken: "t", User: models.UserInfo{Email: req.Email}}, nil
}

func (f *fakeAuth) SignOut(ctx context.Context, claims *models.JWTClaims) error {
	f.signedOut = claims
	return nil
}

func (f *fakeAuth) Me(ctx context.Context, userID string) (*models.UserInfo, error) {
	return &models.UserInfo{ID: userID}, nil
}

type fakeStudents struct {
	items     []models.Student
	addErr    error
	deleteErr error
	lastQuery models.StudentQuery
	deleted   []string
}

func (f *fakeStudents) Add(ctx context.Context, req service.CreateStudentRequest) (*models.Student, error) {
	if f.addErr != nil {
		return nil, f.addErr
	}
	return &models.Student{ID: "s1", Name: req.Name}, nil
}

func (f *fakeStudents) Update(ctx context.Context, id string, req service.UpdateStudentRequest) (*models.Student, error) {
	return &models.Student{ID: id}, nil
}

func (f *fakeStudents) Get(ctx context.Context, id string) (*models.Student, bool) {
	for _, s := range f.items {
		if s.ID == id {
			return &s, true
		}
	}
	return nil, false
}

func (f *fakeStudents) List(ctx context.Context, query models.StudentQuery) []models.Student {
	f.lastQuery = query
	return f.items
}

func (f *fakeStudents) Delete(ctx context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeFees struct{}

func (fakeFees) Add(ctx context.Context, req service.CreateFeeStructureRequest) (*models.FeeStructure, error) {
	return &models.FeeStructure{ID: "f1", Name: req.Name}, nil
}

func (fakeFees) Update(ctx context.Context, id string, req service.UpdateFeeStructureRequest) (*models.FeeStructure, error) {
	return &models.FeeStructure{ID: id}, nil
}

func (fakeFees) Get(ctx context.Context, id string) (*models.FeeStructure, bool) {
	return nil, false
}

func (fakeFees) List(ctx context.Context, query models.FeeStructureQuery) []models.FeeStructure {
	return nil
}

func (fakeFees) Delete(ctx context.Context, id string) error {
	return appErrors.Clone(appErrors.ErrConflict, "Cannot delete fee structure that has payments")
}

type fakePayments struct {
	lastQuery   models.PaymentQuery
	lastSession models.Session
	batchErr    error
}

func (f *fakePayments) Add(ctx context.Context, session models.Session, req service.CreatePaymentRequest) (*models.Payment, error) {
	f.lastSession = session
	return &models.Payment{ID: "p1", StudentID: req.StudentID, PaymentMethod: req.PaymentMethod, Status: req.Status, CreatedBy: session.UserID}, nil
}

func (f *fakePayments) AddBatch(ctx context.Context, session models.Session, req service.BatchPaymentRequest) (*service.BatchPaymentResult, error) {
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	return &service.BatchPaymentResult{}, nil
}

func (f *fakePayments) Update(ctx context.Context, id string, req service.UpdatePaymentRequest) (*models.Payment, error) {
	return &models.Payment{ID: id}, nil
}

func (f *fakePayments) Get(ctx context.Context, id string) (*models.Payment, bool) {
	return nil, false
}

func (f *fakePayments) List(ctx context.Context, query models.PaymentQuery) []models.Payment {
	f.lastQuery = query
	return []models.Payment{{ID: "p1"}}
}

func (f *fakePayments) ListByStudent(ctx context.Context, studentID string) []models.Payment {
	return []models.Payment{{ID: "p1", StudentID: studentID}}
}

func (f *fakePayments) Delete(ctx context.Context, id string) error {
	return nil
}

func (f *fakePayments) NewReceiptNumber(now time.Time) string {
	return "R" + now.Format("20060102") + "-0001"
}

type countingRecorder struct{ calls []string }

func (r *countingRecorder) RecordPayment(method, status string) {
	r.calls = append(r.calls, method+"/"+status)
}

type fakeReports struct {
	lastFilter models.ReportFilter
	exportErr  error
}

func (f *fakeReports) Summary(ctx context.Context, filter models.ReportFilter) (*models.ReportSummary, error) {
	f.lastFilter = filter
	return &models.ReportSummary{PaymentCount: 3}, nil
}

func (f *fakeReports) Dashboard(ctx context.Context) (*models.Dashboard, error) {
	return &models.Dashboard{TotalStudents: 2, RecentPayments: []models.Payment{}}, nil
}

func (f *fakeReports) ExportCSV(ctx context.Context, filter models.ReportFilter) (*service.ReportFile, error) {
	if f.exportErr != nil {
		return nil, f.exportErr
	}
	return &service.ReportFile{Filename: "fee-report.csv", ContentType: "text/csv; charset=utf-8", Body: []byte("Receipt No\n")}, nil
}

type testAPI struct {
	router   *gin.Engine
	auth     *fakeAuth
	students *fakeStudents
	payments *fakePayments
	reports  *fakeReports
	recorder *countingRecorder
}

func newTestAPI() *testAPI {
	api := &testAPI{
		auth:     &fakeAuth{},
		students: &fakeStudents{items: []models.Student{{ID: "s1", Name: "Ana"}}},
		payments: &fakePayments{},
		reports:  &fakeReports{},
		recorder: &countingRecorder{},
	}
	payments := NewPaymentHandler(api.payments, api.recorder)
	payments.now = func() time.Time { return time.Date(2024, time.August, 1, 0, 0, 0, 0, time.UTC) }
	api.router = gin.New()
	RegisterRoutes(api.router.Group("/api/v1"), Handlers{
		Auth:          NewAuthHandler(api.auth),
		Students:      NewStudentHandler(api.students),
		FeeStructures: NewFeeStructureHandler(fakeFees{}),
		Payments:      payments,
		Reports:       NewReportHandler(api.reports),
	}, fakeTokens{}, nil)
	return api
}
