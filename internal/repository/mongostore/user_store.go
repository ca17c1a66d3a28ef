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

// UserStore manages the users collection.
type UserStore struct {
	repository.Instrumentation
	coll *mongo.Collection
}

// NewUserStore constructs a UserStore on db.
func NewUserStore(db *mongo.Database) *UserStore {
	return &UserStore{coll: db.Collection(database.CollectionUsers)}
}

// FindByEmail returns a user by email address.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	defer s.Observe("users.find_by_email", time.Now())
	return s.findOne(ctx, bson.M{"email": email})
}

// FindByID returns a user by identifier.
func (s *UserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	defer s.Observe("users.find", time.Now())
	return s.findOne(ctx, bson.M{"_id": id})
}

// HasAdmin reports whether at least one ADMIN account exists.
func (s *UserStore) HasAdmin(ctx context.Context) (bool, error) {
	defer s.Observe("users.has_admin", time.Now())

	opts := options.FindOne().SetProjection(bson.M{"_id": 1})
	err := s.coll.FindOne(ctx, bson.M{"role": string(models.RoleAdmin)}, opts).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check admin: %w", err)
	}
	return true, nil
}

func (s *UserStore) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc userDocument
	if err := s.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	user := doc.model()
	return &user, nil
}

// Create inserts a new user document. The unique email index turns a second
// registration for the same address into ErrDuplicate.
func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	defer s.Observe("users.create", time.Now())

	stamp(&user.ID, &user.CreatedAt, &user.UpdatedAt, uuid.NewString)
	if _, err := s.coll.InsertOne(ctx, newUserDocument(user)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// UpdateLastLogin records a successful sign-in.
func (s *UserStore) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	defer s.Observe("users.update_last_login", time.Now())

	update := bson.M{"$set": bson.M{"lastLogin": ts, "updatedAt": ts}}
	if _, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, update); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}
