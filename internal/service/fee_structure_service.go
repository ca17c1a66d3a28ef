package service

import (
	"context"
	"errors"
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

type feeStructureRepository interface {
	List(ctx context.Context) ([]models.FeeStructure, error)
	FindByID(ctx context.Context, id string) (*models.FeeStructure, error)
	Create(ctx context.Context, fee *models.FeeStructure) error
	Update(ctx context.Context, fee *models.FeeStructure) error
	Delete(ctx context.Context, id string) error
}

// CreateFeeStructureRequest holds payload for creating fee structures.
type CreateFeeStructureRequest struct {
	Name        string              `json:"name"`
	Amount      decimal.Decimal     `json:"amount" swaggertype:"number"`
	Frequency   models.FeeFrequency `json:"frequency"`
	Class       *string             `json:"class"`
	Description *string             `json:"description"`
}

// UpdateFeeStructureRequest lists the fee structure fields that may change.
type UpdateFeeStructureRequest struct {
	Name        *string              `json:"name"`
	Amount      *decimal.Decimal     `json:"amount" swaggertype:"number"`
	Frequency   *models.FeeFrequency `json:"frequency"`
	Class       *string              `json:"class"`
	Description *string              `json:"description"`
}

func (r UpdateFeeStructureRequest) apply(f *models.FeeStructure) {
	setIfPresent(&f.Name, r.Name)
	setIfPresent(&f.Amount, r.Amount)
	setIfPresent(&f.Frequency, r.Frequency)
	if r.Class != nil {
		f.Class = optionalString(*r.Class)
	}
	if r.Description != nil {
		f.Description = optionalString(*r.Description)
	}
}

func optionalString(v string) *string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return &v
}

// FeeStructureService handles fee structure use-cases.
type FeeStructureService struct {
	repo      feeStructureRepository
	payments  paymentReferenceChecker
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
	onChange  func(ctx context.Context)
}

// NewFeeStructureService constructs the fee structure service.
func NewFeeStructureService(repo feeStructureRepository, payments paymentReferenceChecker, validate *validator.Validate, logger *zap.Logger) *FeeStructureService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeeStructureService{repo: repo, payments: payments, validator: validate, logger: logger, now: time.Now}
}

// OnChange registers a hook invoked after every successful write.
func (s *FeeStructureService) OnChange(fn func(ctx context.Context)) {
	s.onChange = fn
}

// Add validates and stores a new fee structure.
func (s *FeeStructureService) Add(ctx context.Context, req CreateFeeStructureRequest) (*models.FeeStructure, error) {
	now := s.now().UTC()
	fee := &models.FeeStructure{
		Name:      req.Name,
		Amount:    req.Amount,
		Frequency: req.Frequency,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Class != nil {
		fee.Class = optionalString(*req.Class)
	}
	if req.Description != nil {
		fee.Description = optionalString(*req.Description)
	}
	if err := validateStruct(s.validator, fee); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, fee); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create fee structure")
	}
	s.changed(ctx)
	return fee, nil
}

// Update merges req into the stored fee structure and re-validates it.
func (s *FeeStructureService) Update(ctx context.Context, id string, req UpdateFeeStructureRequest) (*models.FeeStructure, error) {
	fee, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Fee structure not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fee structure")
	}
	req.apply(fee)
	if err := validateStruct(s.validator, fee); err != nil {
		return nil, err
	}
	fee.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, fee); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Fee structure not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update fee structure")
	}
	s.changed(ctx)
	return fee, nil
}

// Get returns the fee structure and true, or false when it cannot be found.
func (s *FeeStructureService) Get(ctx context.Context, id string) (*models.FeeStructure, bool) {
	fee, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Error("failed to load fee structure", zap.String("fee_structure_id", id), zap.Error(err))
		}
		return nil, false
	}
	return fee, true
}

// List returns fee structures ordered by name. A class filter keeps the
// structures scoped to that class plus the unscoped ones.
func (s *FeeStructureService) List(ctx context.Context, query models.FeeStructureQuery) []models.FeeStructure {
	fees, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list fee structures", zap.Error(err))
		return []models.FeeStructure{}
	}
	term := strings.ToLower(strings.TrimSpace(query.Search))
	result := make([]models.FeeStructure, 0, len(fees))
	for _, fee := range fees {
		if query.Class != "" && fee.Class != nil && *fee.Class != query.Class {
			continue
		}
		if term != "" && !containsFold(term, fee.Name, string(fee.Frequency)) {
			continue
		}
		result = append(result, fee)
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Delete removes a fee structure that no payment references.
func (s *FeeStructureService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return appErrors.Clone(appErrors.ErrNotFound, "Fee structure not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fee structure")
	}
	referenced, err := s.payments.ExistsByFeeStructure(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check fee structure payments")
	}
	if referenced {
		return appErrors.Clone(appErrors.ErrConflict, "Cannot delete fee structure that has payments")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return appErrors.Clone(appErrors.ErrNotFound, "Fee structure not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete fee structure")
	}
	s.changed(ctx)
	return nil
}

func (s *FeeStructureService) changed(ctx context.Context) {
	if s.onChange != nil {
		s.onChange(ctx)
	}
}
