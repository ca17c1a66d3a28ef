package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-fee-api/internal/models"
)

const studentColumns = `id, name, roll_number, class, section, parent_name, contact_number, email, address, admission_date, created_at, updated_at`

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	Instrumentation
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students ordered by name, optionally restricted to one class.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	defer r.Observe("students.list", time.Now())

	query := "SELECT " + studentColumns + " FROM students"
	var args []interface{}
	if filter.Class != "" {
		query += " WHERE class = $1"
		args = append(args, filter.Class)
	}
	query += " ORDER BY name ASC"

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// FindByID fetches a student by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	defer r.Observe("students.find", time.Now())

	query := "SELECT " + studentColumns + " FROM students WHERE id = $1"
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, notFound(err)
	}
	return &student, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	defer r.Observe("students.create", time.Now())

	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	if student.UpdatedAt.IsZero() {
		student.UpdatedAt = now
	}
	const query = `INSERT INTO students (` + studentColumns + `)
        VALUES (:id, :name, :roll_number, :class, :section, :parent_name, :contact_number, :email, :address, :admission_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update overwrites the mutable columns of an existing student.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	defer r.Observe("students.update", time.Now())

	const query = `UPDATE students SET name = :name, roll_number = :roll_number, class = :class, section = :section, parent_name = :parent_name,
        contact_number = :contact_number, email = :email, address = :address, admission_date = :admission_date, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, student)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return requireAffected(res)
}

// Delete removes a student.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	defer r.Observe("students.delete", time.Now())

	res, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return requireAffected(res)
}
