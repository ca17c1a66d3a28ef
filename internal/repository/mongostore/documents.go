package mongostore

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/noah-isme/school-fee-api/internal/models"
	"github.com/noah-isme/school-fee-api/internal/repository"
)

type studentDocument struct {
	ID            string    `bson:"_id"`
	Name          string    `bson:"name"`
	RollNumber    string    `bson:"rollNumber"`
	Class         string    `bson:"class"`
	Section       string    `bson:"section"`
	ParentName    string    `bson:"parentName"`
	ContactNumber string    `bson:"contactNumber"`
	Email         *string   `bson:"email,omitempty"`
	Address       string    `bson:"address"`
	AdmissionDate time.Time `bson:"admissionDate"`
	CreatedAt     time.Time `bson:"createdAt"`
	UpdatedAt     time.Time `bson:"updatedAt"`
}

func newStudentDocument(s *models.Student) studentDocument {
	return studentDocument{
		ID:            s.ID,
		Name:          s.Name,
		RollNumber:    s.RollNumber,
		Class:         s.Class,
		Section:       s.Section,
		ParentName:    s.ParentName,
		ContactNumber: s.ContactNumber,
		Email:         s.Email,
		Address:       s.Address,
		AdmissionDate: s.AdmissionDate,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

func (d studentDocument) model() models.Student {
	return models.Student{
		ID:            d.ID,
		Name:          d.Name,
		RollNumber:    d.RollNumber,
		Class:         d.Class,
		Section:       d.Section,
		ParentName:    d.ParentName,
		ContactNumber: d.ContactNumber,
		Email:         d.Email,
		Address:       d.Address,
		AdmissionDate: d.AdmissionDate,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

type feeStructureDocument struct {
	ID          string               `bson:"_id"`
	Name        string               `bson:"name"`
	Amount      primitive.Decimal128 `bson:"amount"`
	Frequency   string               `bson:"frequency"`
	Class       *string              `bson:"class,omitempty"`
	Description *string              `bson:"description,omitempty"`
	CreatedAt   time.Time            `bson:"createdAt"`
	UpdatedAt   time.Time            `bson:"updatedAt"`
}

func newFeeStructureDocument(f *models.FeeStructure) (feeStructureDocument, error) {
	amount, err := toDecimal128(f.Amount)
	if err != nil {
		return feeStructureDocument{}, err
	}
	return feeStructureDocument{
		ID:          f.ID,
		Name:        f.Name,
		Amount:      amount,
		Frequency:   string(f.Frequency),
		Class:       f.Class,
		Description: f.Description,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}, nil
}

func (d feeStructureDocument) model() (models.FeeStructure, error) {
	amount, err := fromDecimal128(d.Amount)
	if err != nil {
		return models.FeeStructure{}, err
	}
	return models.FeeStructure{
		ID:          d.ID,
		Name:        d.Name,
		Amount:      amount,
		Frequency:   models.FeeFrequency(d.Frequency),
		Class:       d.Class,
		Description: d.Description,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}, nil
}

type paymentDocument struct {
	ID             string               `bson:"_id"`
	StudentID      string               `bson:"studentId"`
	StudentName    string               `bson:"studentName"`
	RollNumber     string               `bson:"rollNumber"`
	FeeStructureID string               `bson:"feeStructureId"`
	FeeName        string               `bson:"feeName"`
	Amount         primitive.Decimal128 `bson:"amount"`
	PaymentDate    time.Time            `bson:"paymentDate"`
	PaymentMethod  string               `bson:"paymentMethod"`
	ReceiptNumber  string               `bson:"receiptNumber"`
	Status         string               `bson:"status"`
	CreatedBy      string               `bson:"createdBy"`
	CreatedAt      time.Time            `bson:"createdAt"`
	UpdatedAt      time.Time            `bson:"updatedAt"`
}

func newPaymentDocument(p *models.Payment) (paymentDocument, error) {
	amount, err := toDecimal128(p.Amount)
	if err != nil {
		return paymentDocument{}, err
	}
	return paymentDocument{
		ID:             p.ID,
		StudentID:      p.StudentID,
		StudentName:    p.StudentName,
		RollNumber:     p.RollNumber,
		FeeStructureID: p.FeeStructureID,
		FeeName:        p.FeeName,
		Amount:         amount,
		PaymentDate:    p.PaymentDate,
		PaymentMethod:  string(p.PaymentMethod),
		ReceiptNumber:  p.ReceiptNumber,
		Status:         string(p.Status),
		CreatedBy:      p.CreatedBy,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}, nil
}

func (d paymentDocument) model() (models.Payment, error) {
	amount, err := fromDecimal128(d.Amount)
	if err != nil {
		return models.Payment{}, err
	}
	return models.Payment{
		ID:             d.ID,
		StudentID:      d.StudentID,
		StudentName:    d.StudentName,
		RollNumber:     d.RollNumber,
		FeeStructureID: d.FeeStructureID,
		FeeName:        d.FeeName,
		Amount:         amount,
		PaymentDate:    d.PaymentDate,
		PaymentMethod:  models.PaymentMethod(d.PaymentMethod),
		ReceiptNumber:  d.ReceiptNumber,
		Status:         models.PaymentStatus(d.Status),
		CreatedBy:      d.CreatedBy,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}, nil
}

type userDocument struct {
	ID           string     `bson:"_id"`
	Email        string     `bson:"email"`
	PasswordHash string     `bson:"passwordHash"`
	DisplayName  string     `bson:"displayName"`
	Role         string     `bson:"role"`
	Active       bool       `bson:"active"`
	LastLogin    *time.Time `bson:"lastLogin,omitempty"`
	CreatedAt    time.Time  `bson:"createdAt"`
	UpdatedAt    time.Time  `bson:"updatedAt"`
}

func newUserDocument(u *models.User) userDocument {
	return userDocument{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		DisplayName:  u.DisplayName,
		Role:         string(u.Role),
		Active:       u.Active,
		LastLogin:    u.LastLogin,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (d userDocument) model() models.User {
	return models.User{
		ID:           d.ID,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		DisplayName:  d.DisplayName,
		Role:         models.UserRole(d.Role),
		Active:       d.Active,
		LastLogin:    d.LastLogin,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("encode amount %s: %w", d.String(), err)
	}
	return v, nil
}

func fromDecimal128(v primitive.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("decode amount %s: %w", v.String(), err)
	}
	return d, nil
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repository.ErrNotFound
	}
	return err
}

func stamp(id *string, createdAt, updatedAt *time.Time, newID func() string) {
	if *id == "" {
		*id = newID()
	}
	now := time.Now().UTC()
	if createdAt.IsZero() {
		*createdAt = now
	}
	if updatedAt.IsZero() {
		*updatedAt = now
	}
}
