package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/school-fee-api/pkg/errors"
)

type cachedSummary struct {
	Count int `json:"count"`
}

func TestCacheRepositoryGetHit(t *testing.T) {
	client, mock := redismock.NewClientMock()
	repo := NewCacheRepository(client, nil)

	mock.ExpectGet("reports:summary:x").SetVal(`{"count":3}`)

	var dest cachedSummary
	require.NoError(t, repo.Get(context.Background(), "reports:summary:x", &dest))
	assert.Equal(t, 3, dest.Count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheRepositoryGetMiss(t *testing.T) {
	client, mock := redismock.NewClientMock()
	repo := NewCacheRepository(client, nil)

	mock.ExpectGet("reports:summary:x").RedisNil()

	var dest cachedSummary
	err := repo.Get(context.Background(), "reports:summary:x", &dest)
	assert.ErrorIs(t, err, appErrors.ErrCacheMiss)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheRepositoryGetError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	repo := NewCacheRepository(client, nil)

	mock.ExpectGet("reports:summary:x").SetErr(errors.New("connection refused"))

	var dest cachedSummary
	err := repo.Get(context.Background(), "reports:summary:x", &dest)
	require.Error(t, err)
	assert.False(t, errors.Is(err, appErrors.ErrCacheMiss))
}

func TestCacheRepositorySet(t *testing.T) {
	client, mock := redismock.NewClientMock()
	repo := NewCacheRepository(client, nil)

	mock.ExpectSet("reports:summary:x", []byte(`{"count":1}`), time.Minute).SetVal("OK")

	require.NoError(t, repo.Set(context.Background(), "reports:summary:x", cachedSummary{Count: 1}, time.Minute))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheRepositoryDeleteByPattern(t *testing.T) {
	client, mock := redismock.NewClientMock()
	repo := NewCacheRepository(client, nil)

	mock.ExpectScan(0, "reports:*", 100).SetVal([]string{"reports:a", "reports:b"}, 7)
	mock.ExpectDel("reports:a", "reports:b").SetVal(2)
	mock.ExpectScan(7, "reports:*", 100).SetVal([]string{}, 0)

	require.NoError(t, repo.DeleteByPattern(context.Background(), "reports:*"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheRepositoryNilClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	var dest cachedSummary
	assert.ErrorIs(t, repo.Get(context.Background(), "k", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(context.Background(), "k", dest, time.Minute))
	assert.NoError(t, repo.DeleteByPattern(context.Background(), "k*"))
}
