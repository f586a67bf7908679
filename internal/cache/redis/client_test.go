package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_GetDataset(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := Wrap(db)
	ctx := context.Background()

	t.Run("hit returns body", func(t *testing.T) {
		mock.ExpectGet("dataset:abc").SetVal("gender,q1\nMale,4\n")

		body, found, err := c.GetDataset(ctx, "abc")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "gender,q1\nMale,4\n", string(body))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("miss is not an error", func(t *testing.T) {
		mock.ExpectGet("dataset:missing").RedisNil()

		body, found, err := c.GetDataset(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, body)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("backend error surfaces", func(t *testing.T) {
		mock.ExpectGet("dataset:broken").SetErr(errors.New("connection refused"))

		_, _, err := c.GetDataset(ctx, "broken")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to get dataset cache")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestClient_SetDataset(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := Wrap(db)

	body := []byte("gender\nFemale\n")
	mock.ExpectSet("dataset:abc", body, 10*time.Minute).SetVal("OK")

	require.NoError(t, c.SetDataset(context.Background(), "abc", body, 10*time.Minute))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClient_InvalidateDatasets(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := Wrap(db)

	mock.ExpectScan(0, "dataset:*", 0).SetVal([]string{"dataset:a", "dataset:b"}, 0)
	mock.ExpectDel("dataset:a", "dataset:b").SetVal(2)

	n, err := c.InvalidateDatasets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClient_InvalidateDatasetsEmpty(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := Wrap(db)

	mock.ExpectScan(0, "dataset:*", 0).SetVal([]string{}, 0)

	n, err := c.InvalidateDatasets(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
