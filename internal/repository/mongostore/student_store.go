// Package mongostore persists the fee-management records in MongoDB. Each
// store mirrors the method set of its PostgreSQL counterpart in the parent
// repository package so the services accept either backend.
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

// StudentStore manages the students collection.
type StudentStore struct {
	repository.Instrumentation
	coll *mongo.Collection
}

// NewStudentStore constructs a StudentStore on db.
func NewStudentStore(db *mongo.Database) *StudentStore {
	return &StudentStore{coll: db.Collection(database.CollectionStudents)}
}

// List returns students ordered by name, optionally restricted to one class.
func (s *StudentStore) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	defer s.Observe("students.list", time.Now())

	query := bson.M{}
	if filter.Class != "" {
		query["class"] = filter.Class
	}
	cur, err := s.coll.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	var docs []studentDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode students: %w", err)
	}
	students := make([]models.Student, 0, len(docs))
	for _, doc := range docs {
		students = append(students, doc.model())
	}
	return students, nil
}

// FindByID fetches a student by ID.
func (s *StudentStore) FindByID(ctx context.Context, id string) (*models.Student, error) {
	defer s.Observe("students.find", time.Now())

	var doc studentDocument
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	student := doc.model()
	return &student, nil
}

// Create inserts a new student document.
func (s *StudentStore) Create(ctx context.Context, student *models.Student) error {
	defer s.Observe("students.create", time.Now())

	stamp(&student.ID, &student.CreatedAt, &student.UpdatedAt, uuid.NewString)
	if _, err := s.coll.InsertOne(ctx, newStudentDocument(student)); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update replaces the stored student with student.
func (s *StudentStore) Update(ctx context.Context, student *models.Student) error {
	defer s.Observe("students.update", time.Now())

	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": student.ID}, newStudentDocument(student))
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes a student document.
func (s *StudentStore) Delete(ctx context.Context, id string) error {
	defer s.Observe("students.delete", time.Now())

	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}
