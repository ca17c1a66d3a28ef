package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/noah-isme/school-fee-api/internal/models"
	"github.com/noah-isme/school-fee-api/internal/repository"
	"github.com/noah-isme/school-fee-api/pkg/database"
)

// PaymentStore manages the payments collection.
type PaymentStore struct {
	repository.Instrumentation
	coll *mongo.Collection
}

// NewPaymentStore constructs a PaymentStore on db.
func NewPaymentStore(db *mongo.Database) *PaymentStore {
	return &PaymentStore{coll: db.Collection(database.CollectionPayments)}
}

func paymentQuery(filter models.PaymentFilter) bson.M {
	query := bson.M{}
	if filter.StudentID != "" {
		query["studentId"] = filter.StudentID
	}
	if filter.FeeStructureID != "" {
		query["feeStructureId"] = filter.FeeStructureID
	}
	if filter.Status != "" {
		query["status"] = string(filter.Status)
	}
	if filter.From != nil || filter.To != nil {
		dateRange := bson.M{}
		if filter.From != nil {
			dateRange["$gte"] = *filter.From
		}
		if filter.To != nil {
			dateRange["$lte"] = *filter.To
		}
		query["paymentDate"] = dateRange
	}
	return query
}

// List returns payments matching filter, newest payment date first.
func (s *PaymentStore) List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, error) {
	defer s.Observe("payments.list", time.Now())

	opts := options.Find().SetSort(bson.D{{Key: "paymentDate", Value: -1}, {Key: "createdAt", Value: -1}})
	cur, err := s.coll.Find(ctx, paymentQuery(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	var docs []paymentDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode payments: %w", err)
	}
	payments := make([]models.Payment, 0, len(docs))
	for _, doc := range docs {
		payment, err := doc.model()
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, nil
}

// FindByID fetches a payment by ID.
func (s *PaymentStore) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	defer s.Observe("payments.find", time.Now())

	var doc paymentDocument
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	payment, err := doc.model()
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// Create inserts a new payment document.
func (s *PaymentStore) Create(ctx context.Context, payment *models.Payment) error {
	defer s.Observe("payments.create", time.Now())

	stamp(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt, uuid.NewString)
	doc, err := newPaymentDocument(payment)
	if err != nil {
		return err
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

// Update replaces the stored payment with payment.
func (s *PaymentStore) Update(ctx context.Context, payment *models.Payment) error {
	defer s.Observe("payments.update", time.Now())

	doc, err := newPaymentDocument(payment)
	if err != nil {
		return err
	}
	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": payment.ID}, doc)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes a payment document.
func (s *PaymentStore) Delete(ctx context.Context, id string) error {
	defer s.Observe("payments.delete", time.Now())

	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ExistsByStudent reports whether any payment references the student.
func (s *PaymentStore) ExistsByStudent(ctx context.Context, studentID string) (bool, error) {
	defer s.Observe("payments.exists_by_student", time.Now())
	return s.exists(ctx, "studentId", studentID)
}

// ExistsByFeeStructure reports whether any payment references the fee structure.
func (s *PaymentStore) ExistsByFeeStructure(ctx context.Context, feeStructureID string) (bool, error) {
	defer s.Observe("payments.exists_by_fee_structure", time.Now())
	return s.exists(ctx, "feeStructureId", feeStructureID)
}

func (s *PaymentStore) exists(ctx context.Context, field, value string) (bool, error) {
	opts := options.FindOne().SetProjection(bson.M{"_id": 1})
	err := s.coll.FindOne(ctx, bson.M{field: value}, opts).Err()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, fmt.Errorf("check payments by %s: %w", field, err)
	}
	return true, nil
}
