package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func setupTestMongo(t *testing.T) *MongoRepository {
	t.Helper()
	ctx := context.Background()

	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := client.Disconnect(context.Background()); err != nil {
			t.Logf("failed to disconnect: %s", err)
		}
	})

	repo := NewMongoRepository(client.Database("testdb"))
	require.NoError(t, repo.CreateIndexes(ctx))
	return repo
}

func TestMongoRepository_LoadMissing(t *testing.T) {
	sut := setupTestMongo(t)

	_, err := sut.Load(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestMongoRepository_SaveAndLoad(t *testing.T) {
	sut := setupTestMongo(t)
	ctx := context.Background()

	require.NoError(t, sut.Save(ctx, testCart("s1")))

	got, err := sut.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.SessionID)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, "p1", got.Lines[0].ProductID)
	assert.Equal(t, 2, got.Lines[0].Quantity)
	assert.True(t, got.Lines[0].UnitPrice.Equal(decimal.RequireFromString("1500.00")))
}

func TestMongoRepository_SaveUpserts(t *testing.T) {
	sut := setupTestMongo(t)
	ctx := context.Background()

	cart := testCart("s1")
	require.NoError(t, sut.Save(ctx, cart))

	cart.Lines[0].Quantity = 9
	require.NoError(t, sut.Save(ctx, cart))

	got, err := sut.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 9, got.Lines[0].Quantity)
}

func TestMongoRepository_Delete(t *testing.T) {
	sut := setupTestMongo(t)
	ctx := context.Background()

	require.NoError(t, sut.Save(ctx, testCart("s1")))
	require.NoError(t, sut.Delete(ctx, "s1"))

	_, err := sut.Load(ctx, "s1")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestMongoRepository_SessionsAreIsolated(t *testing.T) {
	sut := setupTestMongo(t)
	ctx := context.Background()

	require.NoError(t, sut.Save(ctx, testCart("s1")))

	_, err := sut.Load(ctx, "s2")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestMongoRepository_ContextCancellation(t *testing.T) {
	sut := setupTestMongo(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(10 * time.Millisecond)

	_, err := sut.Load(ctx, "s1")
	assert.Error(t, err)
}
