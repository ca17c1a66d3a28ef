package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/noah-isme/school-fee-api/internal/models"
	"github.com/noah-isme/school-fee-api/internal/repository"
)

var errStoreDown = errors.New("store unavailable")

type memStudents struct {
	mu      sync.Mutex
	items   map[string]models.Student
	seq     int
	listErr error
}

func newMemStudents() *memStudents {
	return &memStudents{items: map[string]models.Student{}}
}

func (m *memStudents) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []models.Student
	for _, st := range m.items {
		if filter.Class != "" && st.Class != filter.Class {
			continue
		}
		out = append(out, st)
	}
	return out, nil
}

func (m *memStudents) FindByID(ctx context.Context, id string) (*models.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &st, nil
}

func (m *memStudents) Create(ctx context.Context, student *models.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	student.ID = fmt.Sprintf("stu-%d", m.seq)
	m.items[student.ID] = *student
	return nil
}

func (m *memStudents) Update(ctx context.Context, student *models.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[student.ID]; !ok {
		return repository.ErrNotFound
	}
	m.items[student.ID] = *student
	return nil
}

func (m *memStudents) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

type memFees struct {
	mu    sync.Mutex
	items map[string]models.FeeStructure
	seq   int
}

func newMemFees() *memFees {
	return &memFees{items: map[string]models.FeeStructure{}}
}

func (m *memFees) List(ctx context.Context) ([]models.FeeStructure, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.FeeStructure
	for _, f := range m.items {
		out = append(out, f)
	}
	return out, nil
}

func (m *memFees) FindByID(ctx context.Context, id string) (*models.FeeStructure, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &f, nil
}

func (m *memFees) Create(ctx context.Context, fee *models.FeeStructure) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	fee.ID = fmt.Sprintf("fee-%d", m.seq)
	m.items[fee.ID] = *fee
	return nil
}

func (m *memFees) Update(ctx context.Context, fee *models.FeeStructure) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[fee.ID]; !ok {
		return repository.ErrNotFound
	}
	m.items[fee.ID] = *fee
	return nil
}

func (m *memFees) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

type memPayments struct {
	mu    sync.Mutex
	items map[string]models.Payment
	seq   int
	// failCreateAt fails the n-th Create call (1-based) when positive.
	failCreateAt int
	creates      int
	failDelete   map[string]bool
	deleted      []string
}

func newMemPayments() *memPayments {
	return &memPayments{items: map[string]models.Payment{}, failDelete: map[string]bool{}}
}

func (m *memPayments) List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Payment
	for _, p := range m.items {
		if filter.StudentID != "" && p.StudentID != filter.StudentID {
			continue
		}
		if filter.FeeStructureID != "" && p.FeeStructureID != filter.FeeStructureID {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.From != nil && p.PaymentDate.Before(*filter.From) {
			continue
		}
		if filter.To != nil && p.PaymentDate.After(*filter.To) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *memPayments) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (m *memPayments) Create(ctx context.Context, payment *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	if m.failCreateAt > 0 && m.creates == m.failCreateAt {
		return errStoreDown
	}
	m.seq++
	payment.ID = fmt.Sprintf("pay-%d", m.seq)
	m.items[payment.ID] = *payment
	return nil
}

func (m *memPayments) Update(ctx context.Context, payment *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[payment.ID]; !ok {
		return repository.ErrNotFound
	}
	m.items[payment.ID] = *payment
	return nil
}

func (m *memPayments) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDelete[id] {
		return errStoreDown
	}
	if _, ok := m.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.items, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *memPayments) ExistsByStudent(ctx context.Context, studentID string) (bool, error) {
	return m.exists(func(p models.Payment) bool { return p.StudentID == studentID }), nil
}

func (m *memPayments) ExistsByFeeStructure(ctx context.Context, feeStructureID string) (bool, error) {
	return m.exists(func(p models.Payment) bool { return p.FeeStructureID == feeStructureID }), nil
}

func (m *memPayments) exists(match func(models.Payment) bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.items {
		if match(p) {
			return true
		}
	}
	return false
}

func (m *memPayments) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// feeSystem wires the three domain services over shared in-memory stores.
type feeSystem struct {
	studentStore *memStudents
	feeStore     *memFees
	paymentStore *memPayments
	students     *StudentService
	fees         *FeeStructureService
	payments     *PaymentService
}

func newFeeSystem() *feeSystem {
	sys := &feeSystem{
		studentStore: newMemStudents(),
		feeStore:     newMemFees(),
		paymentStore: newMemPayments(),
	}
	validate := NewValidator()
	sys.students = NewStudentService(sys.studentStore, sys.paymentStore, validate, nil)
	sys.fees = NewFeeStructureService(sys.feeStore, sys.paymentStore, validate, nil)
	sys.payments = NewPaymentService(sys.paymentStore, sys.studentStore, sys.feeStore, validate, nil)
	return sys
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func validStudentRequest(name, roll, class string) CreateStudentRequest {
	return CreateStudentRequest{
		Name:          name,
		RollNumber:    roll,
		Class:         class,
		Section:       "A",
		ParentName:    "Parent of " + name,
		ContactNumber: "0812000000",
		Address:       "Jl. Merdeka 1",
		AdmissionDate: date(2024, time.July, 15),
	}
}
