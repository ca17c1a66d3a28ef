package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-fee-api/internal/models"
)

var feeRowColumns = []string{"id", "name", "amount", "frequency", "class", "description", "created_at", "updated_at"}

func TestFeeStructureRepositoryList(t *testing.T) {
	db, mock, cleanup := newDBMock(t)
	defer cleanup()
	repo := NewFeeStructureRepository(db)

	now := time.Now()
	mock.ExpectQuery(`SELECT (.+) FROM fee_structures ORDER BY name ASC`).
		WillReturnRows(sqlmock.NewRows(feeRowColumns).
			AddRow("f-1", "Library", "120.50", "annually", nil, nil, now, now).
			AddRow("f-2", "Tuition", "500", "monthly", "5", "Grade five tuition", now, now))

	fees, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, fees, 2)
	assert.True(t, decimal.RequireFromString("120.50").Equal(fees[0].Amount))
	assert.Equal(t, models.FrequencyMonthly, fees[1].Frequency)
	require.NotNil(t, fees[1].Class)
	assert.Equal(t, "5", *fees[1].Class)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeStructureRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newDBMock(t)
	defer cleanup()
	repo := NewFeeStructureRepository(db)

	mock.ExpectExec("INSERT INTO fee_structures").
		WithArgs(sqlmock.AnyArg(), "Tuition", sqlmock.AnyArg(), models.FrequencyMonthly, nil, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	fee := &models.FeeStructure{Name: "Tuition", Amount: decimal.NewFromInt(500), Frequency: models.FrequencyMonthly}
	require.NoError(t, repo.Create(context.Background(), fee))
	assert.NotEmpty(t, fee.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeStructureRepositoryCreatePropagatesError(t *testing.T) {
	db, mock, cleanup := newDBMock(t)
	defer cleanup()
	repo := NewFeeStructureRepository(db)

	mock.ExpectExec("INSERT INTO fee_structures").WillReturnError(errors.New("connection reset"))

	err := repo.Create(context.Background(), &models.FeeStructure{Name: "Tuition", Amount: decimal.NewFromInt(1), Frequency: models.FrequencyMonthly})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create fee structure")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeStructureRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newDBMock(t)
	defer cleanup()
	repo := NewFeeStructureRepository(db)

	now := time.Now()
	mock.ExpectQuery(`SELECT (.+) FROM fee_structures WHERE id = \$1`).
		WithArgs("f-1").
		WillReturnRows(sqlmock.NewRows(feeRowColumns).AddRow("f-1", "Tuition", "500", "monthly", nil, nil, now, now))

	fee, err := repo.FindByID(context.Background(), "f-1")
	require.NoError(t, err)
	assert.Equal(t, "Tuition", fee.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}
