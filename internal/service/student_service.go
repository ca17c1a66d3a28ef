package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-fee-api/internal/models"
	"github.com/noah-isme/school-fee-api/internal/repository"
	appErrors "github.com/noah-isme/school-fee-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
}

type paymentReferenceChecker interface {
	ExistsByStudent(ctx context.Context, studentID string) (bool, error)
	ExistsByFeeStructure(ctx context.Context, feeStructureID string) (bool, error)
}

// CreateStudentRequest holds payload for creating students.
type CreateStudentRequest struct {
	Name          string    `json:"name"`
	RollNumber    string    `json:"roll_number"`
	Class         string    `json:"class"`
	Section       string    `json:"section"`
	ParentName    string    `json:"parent_name"`
	ContactNumber string    `json:"contact_number"`
	Email         *string   `json:"email"`
	Address       string    `json:"address"`
	AdmissionDate time.Time `json:"admission_date"`
}

// UpdateStudentRequest lists the student fields that may change. Nil fields
// are left untouched.
type UpdateStudentRequest struct {
	Name          *string    `json:"name"`
	RollNumber    *string    `json:"roll_number"`
	Class         *string    `json:"class"`
	Section       *string    `json:"section"`
	ParentName    *string    `json:"parent_name"`
	ContactNumber *string    `json:"contact_number"`
	Email         *string    `json:"email"`
	Address       *string    `json:"address"`
	AdmissionDate *time.Time `json:"admission_date"`
}

func (r UpdateStudentRequest) apply(s *models.Student) {
	setIfPresent(&s.Name, r.Name)
	setIfPresent(&s.RollNumber, r.RollNumber)
	setIfPresent(&s.Class, r.Class)
	setIfPresent(&s.Section, r.Section)
	setIfPresent(&s.ParentName, r.ParentName)
	setIfPresent(&s.ContactNumber, r.ContactNumber)
	setIfPresent(&s.Address, r.Address)
	setIfPresent(&s.AdmissionDate, r.AdmissionDate)
	if r.Email != nil {
		if strings.TrimSpace(*r.Email) == "" {
			s.Email = nil
		} else {
			email := *r.Email
			s.Email = &email
		}
	}
}

func setIfPresent[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// StudentService handles student use-cases.
type StudentService struct {
	repo      studentRepository
	payments  paymentReferenceChecker
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
	onChange  func(ctx context.Context)
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, payments paymentReferenceChecker, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, payments: payments, validator: validate, logger: logger, now: time.Now}
}

// OnChange registers a hook invoked after every successful write.
func (s *StudentService) OnChange(fn func(ctx context.Context)) {
	s.onChange = fn
}

// Add validates and stores a new student.
func (s *StudentService) Add(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	now := s.now().UTC()
	student := &models.Student{
		Name:          req.Name,
		RollNumber:    req.RollNumber,
		Class:         req.Class,
		Section:       req.Section,
		ParentName:    req.ParentName,
		ContactNumber: req.ContactNumber,
		Email:         req.Email,
		Address:       req.Address,
		AdmissionDate: req.AdmissionDate,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := validateStruct(s.validator, student); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	s.changed(ctx)
	return student, nil
}

// Update merges req into the stored student and re-validates the result.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	req.apply(student)
	if err := validateStruct(s.validator, student); err != nil {
		return nil, err
	}
	student.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, student); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	s.changed(ctx)
	return student, nil
}

// Get returns the student and true, or false when it does not exist or the
// store cannot be read.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, bool) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Error("failed to load student", zap.String("student_id", id), zap.Error(err))
		}
		return nil, false
	}
	return student, true
}

// List returns students ordered by name. A store failure yields an empty list.
func (s *StudentService) List(ctx context.Context, query models.StudentQuery) []models.Student {
	students, err := s.repo.List(ctx, models.StudentFilter{Class: query.Class})
	if err != nil {
		s.logger.Error("failed to list students", zap.Error(err))
		return []models.Student{}
	}
	if term := strings.ToLower(strings.TrimSpace(query.Search)); term != "" {
		filtered := students[:0]
		for _, st := range students {
			if containsFold(term, st.Name, st.RollNumber, st.Class) {
				filtered = append(filtered, st)
			}
		}
		students = filtered
	}
	sort.SliceStable(students, func(i, j int) bool { return students[i].Name < students[j].Name })
	if students == nil {
		students = []models.Student{}
	}
	return students
}

// ListByClass returns the students of one class ordered by name.
func (s *StudentService) ListByClass(ctx context.Context, class string) []models.Student {
	return s.List(ctx, models.StudentQuery{Class: class})
}

// Delete removes a student that no payment references.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return appErrors.Clone(appErrors.ErrNotFound, "Student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	referenced, err := s.payments.ExistsByStudent(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check student payments")
	}
	if referenced {
		return appErrors.Clone(appErrors.ErrConflict, "Cannot delete student with payment records")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return appErrors.Clone(appErrors.ErrNotFound, "Student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	s.changed(ctx)
	return nil
}

func (s *StudentService) changed(ctx context.Context) {
	if s.onChange != nil {
		s.onChange(ctx)
	}
}

func containsFold(term string, values ...string) bool {
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), term) {
			return true
		}
	}
	return false
}
