package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-fee-api/internal/models"
)

const paymentColumns = `id, student_id, student_name, roll_number, fee_structure_id, fee_name, amount, payment_date, payment_method,
        receipt_number, status, created_by, created_at, updated_at`

// PaymentRepository manages persistence for payments.
type PaymentRepository struct {
	Instrumentation
	db *sqlx.DB
}

// NewPaymentRepository constructs a PaymentRepository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// List returns payments matching filter, newest payment date first.
func (r *PaymentRepository) List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, error) {
	defer r.Observe("payments.list", time.Now())

	var conditions []string
	var args []interface{}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.FeeStructureID != "" {
		conditions = append(conditions, fmt.Sprintf("fee_structure_id = $%d", len(args)+1))
		args = append(args, filter.FeeStructureID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("payment_date >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("payment_date <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}

	query := "SELECT " + paymentColumns + " FROM payments"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY payment_date DESC, created_at DESC"

	var payments []models.Payment
	if err := r.db.SelectContext(ctx, &payments, query, args...); err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}

// FindByID fetches a payment by ID.
func (r *PaymentRepository) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	defer r.Observe("payments.find", time.Now())

	var payment models.Payment
	if err := r.db.GetContext(ctx, &payment, "SELECT "+paymentColumns+" FROM payments WHERE id = $1", id); err != nil {
		return nil, notFound(err)
	}
	return &payment, nil
}

// Create inserts a new payment.
func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	defer r.Observe("payments.create", time.Now())

	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = now
	}
	if payment.UpdatedAt.IsZero() {
		payment.UpdatedAt = now
	}
	const query = `INSERT INTO payments (` + paymentColumns + `)
        VALUES (:id, :student_id, :student_name, :roll_number, :fee_structure_id, :fee_name, :amount, :payment_date, :payment_method,
        :receipt_number, :status, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, payment); err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

// Update overwrites the mutable columns of a payment. Denormalized names are
// written back exactly as supplied.
func (r *PaymentRepository) Update(ctx context.Context, payment *models.Payment) error {
	defer r.Observe("payments.update", time.Now())

	const query = `UPDATE payments SET student_id = :student_id, student_name = :student_name, roll_number = :roll_number,
        fee_structure_id = :fee_structure_id, fee_name = :fee_name, amount = :amount, payment_date = :payment_date,
        payment_method = :payment_method, receipt_number = :receipt_number, status = :status, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, payment)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	return requireAffected(res)
}

// Delete removes a payment.
func (r *PaymentRepository) Delete(ctx context.Context, id string) error {
	defer r.Observe("payments.delete", time.Now())

	res, err := r.db.ExecContext(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}
	return requireAffected(res)
}

// ExistsByStudent reports whether any payment references the student.
func (r *PaymentRepository) ExistsByStudent(ctx context.Context, studentID string) (bool, error) {
	defer r.Observe("payments.exists_by_student", time.Now())
	return r.exists(ctx, "student_id", studentID)
}

// ExistsByFeeStructure reports whether any payment references the fee structure.
func (r *PaymentRepository) ExistsByFeeStructure(ctx context.Context, feeStructureID string) (bool, error) {
	defer r.Observe("payments.exists_by_fee_structure", time.Now())
	return r.exists(ctx, "fee_structure_id", feeStructureID)
}

func (r *PaymentRepository) exists(ctx context.Context, column, value string) (bool, error) {
	query := fmt.Sprintf("SELECT 1 FROM payments WHERE %s = $1 LIMIT 1", column)
	var found int
	if err := r.db.GetContext(ctx, &found, query, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check payments by %s: %w", column, err)
	}
	return true, nil
}
