package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/school-fee-api/internal/models"
	"github.com/noah-isme/school-fee-api/internal/repository"
	appErrors "github.com/noah-isme/school-fee-api/pkg/errors"
)

type paymentRepository interface {
	List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, error)
	FindByID(ctx context.Context, id string) (*models.Payment, error)
	Create(ctx context.Context, payment *models.Payment) error
	Update(ctx context.Context, payment *models.Payment) error
	Delete(ctx context.Context, id string) error
}

type studentLookup interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type feeStructureLookup interface {
	FindByID(ctx context.Context, id string) (*models.FeeStructure, error)
}

// CreatePaymentRequest holds payload for recording a single payment.
type CreatePaymentRequest struct {
	StudentID      string               `json:"student_id"`
	FeeStructureID string               `json:"fee_structure_id"`
	Amount         decimal.Decimal      `json:"amount" swaggertype:"number"`
	PaymentDate    time.Time            `json:"payment_date"`
	PaymentMethod  models.PaymentMethod `json:"payment_method"`
	ReceiptNumber  string               `json:"receipt_number"`
	Status         models.PaymentStatus `json:"status"`
}

// BatchPaymentItem is one fee line of a multi-fee payment.
type BatchPaymentItem struct {
	FeeStructureID string `json:"fee_structure_id"`
	// Amount defaults to the fee structure amount when zero.
	Amount decimal.Decimal `json:"amount" swaggertype:"number"`
}

// BatchPaymentRequest records one payment per fee item for a single student
// under a shared receipt number.
type BatchPaymentRequest struct {
	StudentID     string               `json:"student_id"`
	PaymentDate   time.Time            `json:"payment_date"`
	PaymentMethod models.PaymentMethod `json:"payment_method"`
	ReceiptNumber string               `json:"receipt_number"`
	Status        models.PaymentStatus `json:"status"`
	Items         []BatchPaymentItem   `json:"items"`
}

// BatchPaymentResult summarises a committed batch.
type BatchPaymentResult struct {
	Payments []models.Payment `json:"payments"`
	Total    decimal.Decimal  `json:"total"`
}

// UpdatePaymentRequest lists the payment fields that may change. Changing
// the student or fee structure does not refresh the copied names.
type UpdatePaymentRequest struct {
	StudentID      *string               `json:"student_id"`
	FeeStructureID *string               `json:"fee_structure_id"`
	Amount         *decimal.Decimal      `json:"amount" swaggertype:"number"`
	PaymentDate    *time.Time            `json:"payment_date"`
	PaymentMethod  *models.PaymentMethod `json:"payment_method"`
	ReceiptNumber  *string               `json:"receipt_number"`
	Status         *models.PaymentStatus `json:"status"`
}

func (r UpdatePaymentRequest) apply(p *models.Payment) {
	setIfPresent(&p.StudentID, r.StudentID)
	setIfPresent(&p.FeeStructureID, r.FeeStructureID)
	setIfPresent(&p.Amount, r.Amount)
	setIfPresent(&p.PaymentDate, r.PaymentDate)
	setIfPresent(&p.PaymentMethod, r.PaymentMethod)
	setIfPresent(&p.ReceiptNumber, r.ReceiptNumber)
	setIfPresent(&p.Status, r.Status)
}

// BatchError reports a batch that failed part way. Payments created before the
// failing item are deleted again; RolledBack lists those, Committed lists any
// that could not be deleted and therefore remain stored.
type BatchError struct {
	FailedIndex int
	RolledBack  []string
	Committed   []string
	Err         error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("payment item %d failed (rolled back %d, left committed %d): %v", e.FailedIndex+1, len(e.RolledBack), len(e.Committed), e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// PaymentService handles payment use-cases.
type PaymentService struct {
	repo      paymentRepository
	students  studentLookup
	fees      feeStructureLookup
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
	digits    func() int
	onChange  func(ctx context.Context)
}

// NewPaymentService constructs the payment service.
func NewPaymentService(repo paymentRepository, students studentLookup, fees feeStructureLookup, validate *validator.Validate, logger *zap.Logger) *PaymentService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{
		repo:      repo,
		students:  students,
		fees:      fees,
		validator: validate,
		logger:    logger,
		now:       time.Now,
		digits:    func() int { return rand.Intn(10000) },
	}
}

// OnChange registers a hook invoked after every successful write.
func (s *PaymentService) OnChange(fn func(ctx context.Context)) {
	s.onChange = fn
}

// NewReceiptNumber suggests a receipt number of the form R<YYYYMMDD>-<NNNN>.
// Receipt numbers are operator editable and not required to be unique.
func (s *PaymentService) NewReceiptNumber(now time.Time) string {
	return fmt.Sprintf("R%s-%04d", now.Format("20060102"), s.digits())
}

// Add records a payment, copying the student and fee names onto it.
func (s *PaymentService) Add(ctx context.Context, session models.Session, req CreatePaymentRequest) (*models.Payment, error) {
	now := s.now().UTC()
	payment := &models.Payment{
		StudentID:      req.StudentID,
		FeeStructureID: req.FeeStructureID,
		Amount:         req.Amount,
		PaymentDate:    req.PaymentDate,
		PaymentMethod:  req.PaymentMethod,
		ReceiptNumber:  req.ReceiptNumber,
		Status:         req.Status,
		CreatedBy:      session.UserID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := validateStruct(s.validator, payment); err != nil {
		return nil, err
	}
	student, err := s.loadStudent(ctx, payment.StudentID)
	if err != nil {
		return nil, err
	}
	fee, err := s.loadFeeStructure(ctx, payment.FeeStructureID)
	if err != nil {
		return nil, err
	}
	payment.StudentName = student.Name
	payment.RollNumber = student.RollNumber
	payment.FeeName = fee.Name

	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create payment")
	}
	s.changed(ctx)
	return payment, nil
}

// AddBatch records one payment per item. Every item is validated and every
// reference resolved before the first write. Items are then written in order;
// if one fails, the payments already written are deleted in reverse order and
// a *BatchError is returned.
func (s *PaymentService) AddBatch(ctx context.Context, session models.Session, req BatchPaymentRequest) (*BatchPaymentResult, error) {
	if len(req.Items) == 0 {
		return nil, newValidationError("items", "Please add at least one fee item")
	}
	if strings.TrimSpace(req.ReceiptNumber) == "" {
		return nil, newValidationError("receipt_number", fieldMessages["Payment.ReceiptNumber"])
	}
	seen := make(map[string]struct{}, len(req.Items))
	for _, item := range req.Items {
		if strings.TrimSpace(item.FeeStructureID) == "" {
			continue
		}
		if _, dup := seen[item.FeeStructureID]; dup {
			return nil, newValidationError("items", "This fee type is already added to the payment")
		}
		seen[item.FeeStructureID] = struct{}{}
	}

	now := s.now().UTC()
	pending := make([]*models.Payment, 0, len(req.Items))
	for i, item := range req.Items {
		payment := &models.Payment{
			StudentID:      req.StudentID,
			FeeStructureID: item.FeeStructureID,
			Amount:         item.Amount,
			PaymentDate:    req.PaymentDate,
			PaymentMethod:  req.PaymentMethod,
			ReceiptNumber:  fmt.Sprintf("%s-%d", req.ReceiptNumber, i+1),
			Status:         req.Status,
			CreatedBy:      session.UserID,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if payment.Amount.IsZero() && strings.TrimSpace(item.FeeStructureID) != "" {
			fee, err := s.loadFeeStructure(ctx, item.FeeStructureID)
			if err != nil {
				return nil, err
			}
			payment.Amount = fee.Amount
		}
		if err := validateStruct(s.validator, payment); err != nil {
			return nil, err
		}
		pending = append(pending, payment)
	}

	student, err := s.loadStudent(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}
	total := decimal.Zero
	for _, payment := range pending {
		fee, err := s.loadFeeStructure(ctx, payment.FeeStructureID)
		if err != nil {
			return nil, err
		}
		payment.StudentName = student.Name
		payment.RollNumber = student.RollNumber
		payment.FeeName = fee.Name
		total = total.Add(payment.Amount)
	}

	created := make([]models.Payment, 0, len(pending))
	for i, payment := range pending {
		if err := s.repo.Create(ctx, payment); err != nil {
			batchErr := &BatchError{
				FailedIndex: i,
				Err:         appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payments"),
			}
			s.compensate(ctx, created, batchErr)
			if len(batchErr.RolledBack) > 0 || len(batchErr.Committed) > 0 {
				s.changed(ctx)
			}
			return nil, batchErr
		}
		created = append(created, *payment)
	}
	s.changed(ctx)
	return &BatchPaymentResult{Payments: created, Total: total}, nil
}

func (s *PaymentService) compensate(ctx context.Context, created []models.Payment, batchErr *BatchError) {
	for i := len(created) - 1; i >= 0; i-- {
		id := created[i].ID
		if err := s.repo.Delete(ctx, id); err != nil {
			s.logger.Error("failed to roll back payment", zap.String("payment_id", id), zap.Error(err))
			batchErr.Committed = append(batchErr.Committed, id)
			continue
		}
		batchErr.RolledBack = append(batchErr.RolledBack, id)
	}
	s.logger.Warn("payment batch rolled back",
		zap.Int("failed_index", batchErr.FailedIndex),
		zap.Strings("rolled_back", batchErr.RolledBack),
		zap.Strings("committed", batchErr.Committed),
	)
}

// Update merges req into the stored payment. New student or fee structure ids
// must exist, but the names copied at creation are kept as they are.
func (s *PaymentService) Update(ctx context.Context, id string, req UpdatePaymentRequest) (*models.Payment, error) {
	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Payment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}
	studentChanged := req.StudentID != nil && *req.StudentID != payment.StudentID
	feeChanged := req.FeeStructureID != nil && *req.FeeStructureID != payment.FeeStructureID
	req.apply(payment)
	if err := validateStruct(s.validator, payment); err != nil {
		return nil, err
	}
	if studentChanged {
		if _, err := s.loadStudent(ctx, payment.StudentID); err != nil {
			return nil, err
		}
	}
	if feeChanged {
		if _, err := s.loadFeeStructure(ctx, payment.FeeStructureID); err != nil {
			return nil, err
		}
	}
	payment.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, payment); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Payment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update payment")
	}
	s.changed(ctx)
	return payment, nil
}

// Get returns the payment and true, or false when it cannot be found.
func (s *PaymentService) Get(ctx context.Context, id string) (*models.Payment, bool) {
	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Error("failed to load payment", zap.String("payment_id", id), zap.Error(err))
		}
		return nil, false
	}
	return payment, true
}

// List returns payments matching query, newest payment date first. A store
// failure yields an empty list.
func (s *PaymentService) List(ctx context.Context, query models.PaymentQuery) []models.Payment {
	payments, err := s.repo.List(ctx, models.PaymentFilter{
		StudentID: query.StudentID,
		Status:    query.Status,
		From:      query.From,
		To:        query.To,
	})
	if err != nil {
		s.logger.Error("failed to list payments", zap.Error(err))
		return []models.Payment{}
	}
	if term := strings.ToLower(strings.TrimSpace(query.Search)); term != "" {
		filtered := payments[:0]
		for _, p := range payments {
			if containsFold(term, p.StudentName, p.ReceiptNumber, p.FeeName) {
				filtered = append(filtered, p)
			}
		}
		payments = filtered
	}
	sortPayments(payments)
	if payments == nil {
		payments = []models.Payment{}
	}
	return payments
}

// ListByStudent returns the payments of one student, newest first.
func (s *PaymentService) ListByStudent(ctx context.Context, studentID string) []models.Payment {
	return s.List(ctx, models.PaymentQuery{StudentID: studentID})
}

// ListByDateRange returns payments with start <= paymentDate <= end, newest first.
func (s *PaymentService) ListByDateRange(ctx context.Context, start, end time.Time) []models.Payment {
	return s.List(ctx, models.PaymentQuery{From: &start, To: &end})
}

// Delete removes a payment.
func (s *PaymentService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return appErrors.Clone(appErrors.ErrNotFound, "Payment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return appErrors.Clone(appErrors.ErrNotFound, "Payment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete payment")
	}
	s.changed(ctx)
	return nil
}

func (s *PaymentService) loadStudent(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

func (s *PaymentService) loadFeeStructure(ctx context.Context, id string) (*models.FeeStructure, error) {
	fee, err := s.fees.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Fee structure not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fee structure")
	}
	return fee, nil
}

func (s *PaymentService) changed(ctx context.Context) {
	if s.onChange != nil {
		s.onChange(ctx)
	}
}

func sortPayments(payments []models.Payment) {
	sort.SliceStable(payments, func(i, j int) bool {
		if !payments[i].PaymentDate.Equal(payments[j].PaymentDate) {
			return payments[i].PaymentDate.After(payments[j].PaymentDate)
		}
		return payments[i].CreatedAt.After(payments[j].CreatedAt)
	})
}
