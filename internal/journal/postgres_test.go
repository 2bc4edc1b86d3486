package journal

import (
	"context"
	"testing"
	"time"

	"github.com/GATEWAY0710/gatewaystore-pos/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestJournal(t *testing.T) *PostgresJournal {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	creds := &Credentials{
		Host:              host,
		Port:              port.Int(),
		User:              "testuser",
		Password:          "testpass",
		DBName:            "testdb",
		MigrationsDirPath: "../../migrations",
	}

	sut, err := NewPostgresJournal(creds)
	require.NoError(t, err)
	t.Cleanup(func() { sut.Close() })

	require.NoError(t, sut.RunMigrations(creds))
	return sut
}

func testEntry(attemptID string, status domain.CheckoutStatus, recordedAt time.Time) Entry {
	return Entry{
		AttemptID:  attemptID,
		SessionID:  "s1",
		Reference:  "ref-1",
		Status:     status,
		Amount:     decimal.RequireFromString("3500.00"),
		Detail:     "",
		RecordedAt: recordedAt,
	}
}

func TestRecentAttempts_Empty(t *testing.T) {
	sut := setupTestJournal(t)

	entries, err := sut.RecentAttempts(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRecordTransition_RoundTrip(t *testing.T) {
	sut := setupTestJournal(t)
	ctx := context.Background()

	recorded := time.Now().UTC().Truncate(time.Millisecond)
	attemptID := uuid.New().String()
	e := testEntry(attemptID, domain.CheckoutStatusSubmitting, recorded)
	e.Detail = "first attempt"
	require.NoError(t, sut.RecordTransition(ctx, e))

	entries, err := sut.RecentAttempts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	got := entries[0]
	assert.Equal(t, attemptID, got.AttemptID)
	assert.Equal(t, "s1", got.SessionID)
	assert.Equal(t, "ref-1", got.Reference)
	assert.Equal(t, domain.CheckoutStatusSubmitting, got.Status)
	assert.Equal(t, "first attempt", got.Detail)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("3500.00")))
	assert.True(t, got.RecordedAt.Equal(recorded))
}

func TestRecentAttempts_NewestFirstWithLimit(t *testing.T) {
	sut := setupTestJournal(t)
	ctx := context.Background()

	base := time.Now().UTC()
	first := uuid.New().String()
	second := uuid.New().String()
	third := uuid.New().String()
	require.NoError(t, sut.RecordTransition(ctx, testEntry(first, domain.CheckoutStatusSubmitting, base)))
	require.NoError(t, sut.RecordTransition(ctx, testEntry(second, domain.CheckoutStatusAwaitingVerification, base.Add(time.Second))))
	require.NoError(t, sut.RecordTransition(ctx, testEntry(third, domain.CheckoutStatusVerified, base.Add(2*time.Second))))

	entries, err := sut.RecentAttempts(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, third, entries[0].AttemptID)
	assert.Equal(t, second, entries[1].AttemptID)
}

func TestRecordTransition_ContextCancellation(t *testing.T) {
	sut := setupTestJournal(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := sut.RecordTransition(ctx, testEntry(uuid.New().String(), domain.CheckoutStatusSubmitting, time.Now()))
	assert.Error(t, err)
}
