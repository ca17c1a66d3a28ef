package mongostore

import (
	"context"
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

// FeeStructureStore manages the feeStructures collection.
type FeeStructureStore struct {
	repository.Instrumentation
	coll *mongo.Collection
}

// NewFeeStructureStore constructs a FeeStructureStore on db.
func NewFeeStructureStore(db *mongo.Database) *FeeStructureStore {
	return &FeeStructureStore{coll: db.Collection(database.CollectionFeeStructures)}
}

// List returns every fee structure ordered by name.
func (s *FeeStructureStore) List(ctx context.Context) ([]models.FeeStructure, error) {
	defer s.Observe("fee_structures.list", time.Now())

	cur, err := s.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list fee structures: %w", err)
	}
	var docs []feeStructureDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode fee structures: %w", err)
	}
	fees := make([]models.FeeStructure, 0, len(docs))
	for _, doc := range docs {
		fee, err := doc.model()
		if err != nil {
			return nil, err
		}
		fees = append(fees, fee)
	}
	return fees, nil
}

// FindByID fetches a fee structure by ID.
func (s *FeeStructureStore) FindByID(ctx context.Context, id string) (*models.FeeStructure, error) {
	defer s.Observe("fee_structures.find", time.Now())

	var doc feeStructureDocument
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	fee, err := doc.model()
	if err != nil {
		return nil, err
	}
	return &fee, nil
}

// Create inserts a new fee structure document.
func (s *FeeStructureStore) Create(ctx context.Context, fee *models.FeeStructure) error {
	defer s.Observe("fee_structures.create", time.Now())

	stamp(&fee.ID, &fee.CreatedAt, &fee.UpdatedAt, uuid.NewString)
	doc, err := newFeeStructureDocument(fee)
	if err != nil {
		return err
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("create fee structure: %w", err)
	}
	return nil
}

// Update replaces the stored fee structure with fee.
func (s *FeeStructureStore) Update(ctx context.Context, fee *models.FeeStructure) error {
	defer s.Observe("fee_structures.update", time.Now())

	doc, err := newFeeStructureDocument(fee)
	if err != nil {
		return err
	}
	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": fee.ID}, doc)
	if err != nil {
		return fmt.Errorf("update fee structure: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes a fee structure document.
func (s *FeeStructureStore) Delete(ctx context.Context, id string) error {
	defer s.Observe("fee_structures.delete", time.Now())

	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete fee structure: %w", err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}
