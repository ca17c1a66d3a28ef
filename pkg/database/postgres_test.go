package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-fee-api/pkg/config"
)

func TestPostgresDSN(t *testing.T) {
	dsn := PostgresDSN(config.DatabaseConfig{Host: "db", Port: 5432, User: "fee", Password: "secret", Name: "school_fee", SSLMode: "disable"})
	assert.Equal(t, "host=db port=5432 user=fee password=secret dbname=school_fee sslmode=disable", dsn)
}

func TestEnsurePostgresSchema(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer raw.Close()
	db := sqlx.NewDb(raw, "sqlmock")

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS students").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, EnsurePostgresSchema(context.Background(), db))

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS students").WillReturnError(errors.New("permission denied"))
	err = EnsurePostgresSchema(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apply postgres schema")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSchemaCoversStoreTables(t *testing.T) {
	for _, table := range []string{"students", "fee_structures", "payments", "users"} {
		assert.Contains(t, postgresSchema, "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
}
