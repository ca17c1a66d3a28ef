package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-fee-api/internal/models"
)

const feeStructureColumns = `id, name, amount, frequency, class, description, created_at, updated_at`

// FeeStructureRepository manages persistence for fee structures.
type FeeStructureRepository struct {
	Instrumentation
	db *sqlx.DB
}

// NewFeeStructureRepository constructs a FeeStructureRepository.
func NewFeeStructureRepository(db *sqlx.DB) *FeeStructureRepository {
	return &FeeStructureRepository{db: db}
}

// List returns every fee structure ordered by name.
func (r *FeeStructureRepository) List(ctx context.Context) ([]models.FeeStructure, error) {
	defer r.Observe("fee_structures.list", time.Now())

	var fees []models.FeeStructure
	if err := r.db.SelectContext(ctx, &fees, "SELECT "+feeStructureColumns+" FROM fee_structures ORDER BY name ASC"); err != nil {
		return nil, fmt.Errorf("list fee structures: %w", err)
	}
	return fees, nil
}

// FindByID fetches a fee structure by ID.
func (r *FeeStructureRepository) FindByID(ctx context.Context, id string) (*models.FeeStructure, error) {
	defer r.Observe("fee_structures.find", time.Now())

	var fee models.FeeStructure
	if err := r.db.GetContext(ctx, &fee, "SELECT "+feeStructureColumns+" FROM fee_structures WHERE id = $1", id); err != nil {
		return nil, notFound(err)
	}
	return &fee, nil
}

// Create inserts a new fee structure.
func (r *FeeStructureRepository) Create(ctx context.Context, fee *models.FeeStructure) error {
	defer r.Observe("fee_structures.create", time.Now())

	if fee.ID == "" {
		fee.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if fee.CreatedAt.IsZero() {
		fee.CreatedAt = now
	}
	if fee.UpdatedAt.IsZero() {
		fee.UpdatedAt = now
	}
	const query = `INSERT INTO fee_structures (` + feeStructureColumns + `)
        VALUES (:id, :name, :amount, :frequency, :class, :description, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, fee); err != nil {
		return fmt.Errorf("create fee structure: %w", err)
	}
	return nil
}

// Update overwrites the mutable columns of a fee structure.
func (r *FeeStructureRepository) Update(ctx context.Context, fee *models.FeeStructure) error {
	defer r.Observe("fee_structures.update", time.Now())

	const query = `UPDATE fee_structures SET name = :name, amount = :amount, frequency = :frequency, class = :class,
        description = :description, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, fee)
	if err != nil {
		return fmt.Errorf("update fee structure: %w", err)
	}
	return requireAffected(res)
}

// Delete removes a fee structure.
func (r *FeeStructureRepository) Delete(ctx context.Context, id string) error {
	defer r.Observe("fee_structures.delete", time.Now())

	res, err := r.db.ExecContext(ctx, `DELETE FROM fee_structures WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete fee structure: %w", err)
	}
	return requireAffected(res)
}
