package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/noah-isme/school-fee-api/internal/handler"
	"github.com/noah-isme/school-fee-api/internal/models"
	"github.com/noah-isme/school-fee-api/internal/repository"
	"github.com/noah-isme/school-fee-api/internal/repository/mongostore"
	"github.com/noah-isme/school-fee-api/pkg/config"
	"github.com/noah-isme/school-fee-api/pkg/database"
)

type studentStore interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
}

type feeStructureStore interface {
	List(ctx context.Context) ([]models.FeeStructure, error)
	FindByID(ctx context.Context, id string) (*models.FeeStructure, error)
	Create(ctx context.Context, fee *models.FeeStructure) error
	Update(ctx context.Context, fee *models.FeeStructure) error
	Delete(ctx context.Context, id string) error
}

type paymentStore interface {
	List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, error)
	FindByID(ctx context.Context, id string) (*models.Payment, error)
	Create(ctx context.Context, payment *models.Payment) error
	Update(ctx context.Context, payment *models.Payment) error
	Delete(ctx context.Context, id string) error
	ExistsByStudent(ctx context.Context, studentID string) (bool, error)
	ExistsByFeeStructure(ctx context.Context, feeStructureID string) (bool, error)
}

type userStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
	HasAdmin(ctx context.Context) (bool, error)
}

// stores holds the record stores for the configured STORE_DRIVER.
type stores struct {
	students studentStore
	fees     feeStructureStore
	payments paymentStore
	users    userStore
	ping     handler.ReadinessCheck
	close    func(ctx context.Context) error
}

func openStores(ctx context.Context, cfg *config.Config, observer repository.QueryObserver) (*stores, error) {
	switch cfg.StoreDriver {
	case config.StoreMongo:
		client, db, err := database.NewMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		if err := database.EnsureMongoIndexes(ctx, db); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		return mongoStores(client, db, observer), nil
	case config.StorePostgres:
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := database.EnsurePostgresSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		return postgresStores(db, observer), nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}

func postgresStores(db *sqlx.DB, observer repository.QueryObserver) *stores {
	students := repository.NewStudentRepository(db)
	fees := repository.NewFeeStructureRepository(db)
	payments := repository.NewPaymentRepository(db)
	users := repository.NewUserRepository(db)
	students.Instrument(observer)
	fees.Instrument(observer)
	payments.Instrument(observer)
	users.Instrument(observer)

	return &stores{
		students: students,
		fees:     fees,
		payments: payments,
		users:    users,
		ping:     db.PingContext,
		close:    func(context.Context) error { return db.Close() },
	}
}

func mongoStores(client *mongo.Client, db *mongo.Database, observer repository.QueryObserver) *stores {
	students := mongostore.NewStudentStore(db)
	fees := mongostore.NewFeeStructureStore(db)
	payments := mongostore.NewPaymentStore(db)
	users := mongostore.NewUserStore(db)
	students.Instrument(observer)
	fees.Instrument(observer)
	payments.Instrument(observer)
	users.Instrument(observer)

	return &stores{
		students: students,
		fees:     fees,
		payments: payments,
		users:    users,
		ping: func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		},
		close: client.Disconnect,
	}
}
