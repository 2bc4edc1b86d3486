package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/GATEWAY0710/gatewaystore-pos/internal/domain"
	"github.com/GATEWAY0710/gatewaystore-pos/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSnapshotRepo struct {
	m     sync.RWMutex
	carts map[string]*domain.Cart
	err   error
}

func newMockSnapshotRepo() *mockSnapshotRepo {
	return &mockSnapshotRepo{carts: make(map[string]*domain.Cart)}
}

func (m *mockSnapshotRepo) Load(_ context.Context, sessionID string) (*domain.Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	cart, ok := m.carts[sessionID]
	if !ok {
		return nil, repository.ErrSnapshotNotFound
	}
	return cart.Clone(), nil
}

func (m *mockSnapshotRepo) Save(_ context.Context, cart *domain.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	m.carts[cart.SessionID] = cart.Clone()
	return nil
}

func (m *mockSnapshotRepo) Delete(_ context.Context, sessionID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.carts, sessionID)
	return nil
}

func (m *mockSnapshotRepo) stored(sessionID string) *domain.Cart {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.carts[sessionID]
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestAdd_Success(t *testing.T) {
	repo := newMockSnapshotRepo()
	sut := NewCartStore(context.Background(), "s1", repo)

	err := sut.Add(context.Background(), "p1", "Rice", price("1500.00"), 2, 10)
	require.NoError(t, err)

	lines := sut.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "p1", lines[0].ProductID)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.Equal(t, 10, lines[0].MaxQuantity)

	// snapshot was persisted
	assert.NotNil(t, repo.stored("s1"))
}

func TestAdd_InvalidQuantity(t *testing.T) {
	repo := newMockSnapshotRepo()
	sut := NewCartStore(context.Background(), "s1", repo)

	err := sut.Add(context.Background(), "p1", "Rice", price("1500.00"), 0, 10)
	require.ErrorIs(t, err, ErrInvalidQuantity)

	err = sut.Add(context.Background(), "p1", "Rice", price("1500.00"), -3, 10)
	require.ErrorIs(t, err, ErrInvalidQuantity)

	assert.Empty(t, sut.Lines())
	assert.Nil(t, repo.stored("s1"))
}

func TestAdd_ExceedsStock_CartUnchanged(t *testing.T) {
	repo := newMockSnapshotRepo()
	sut := NewCartStore(context.Background(), "s1", repo)

	err := sut.Add(context.Background(), "p1", "Rice", price("1500.00"), 5, 3)
	require.ErrorIs(t, err, ErrStockExceeded)
	assert.Empty(t, sut.Lines())
}

func TestAdd_MergesQuantities(t *testing.T) {
	repo := newMockSnapshotRepo()
	sut := NewCartStore(context.Background(), "s1", repo)

	require.NoError(t, sut.Add(context.Background(), "p1", "Rice", price("1500.00"), 2, 5))
	require.NoError(t, sut.Add(context.Background(), "p1", "Rice", price("1500.00"), 2, 5))

	lines := sut.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 4, lines[0].Quantity)
}

func TestAdd_MergeExceedsStock(t *testing.T) {
	repo := newMockSnapshotRepo()
	sut := NewCartStore(context.Background(), "s1", repo)

	require.NoError(t, sut.Add(context.Background(), "p1", "Rice", price("1500.00"), 2, 3))
	err := sut.Add(context.Background(), "p1", "Rice", price("1500.00"), 2, 3)
	require.ErrorIs(t, err, ErrStockExceeded)

	// the failed add left the first one intact
	lines := sut.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)
}

func TestAdd_DefaultsName(t *testing.T) {
	repo := newMockSnapshotRepo()
	sut := NewCartStore(context.Background(), "s1", repo)

	require.NoError(t, sut.Add(context.Background(), "p1", "", price("100"), 1, 0))
	assert.Equal(t, domain.DefaultLineName, sut.Lines()[0].Name)
}

func TestUpdateQuantity_RemovesAtZeroOrBelow(t *testing.T) {
	repo := newMockSnapshotRepo()
	sut := NewCartStore(context.Background(), "s1", repo)

	require.NoError(t, sut.Add(context.Background(), "p1", "Rice", price("1500.00"), 3, 0))

	err := sut.UpdateQuantity(context.Background(), "p1", -100)
	require.NoError(t, err)
	assert.Empty(t, sut.Lines())
}

func TestUpdateQuantity_AppliesDelta(t *testing.T) {
	repo := newMockSnapshotRepo()
	sut := NewCartStore(context.Background(), "s1", repo)

	require.NoError(t, sut.Add(context.Background(), "p1", "Rice", price("1500.00"), 3, 0))
	require.NoError(t, sut.UpdateQuantity(context.Background(), "p1", 2))
	assert.Equal(t, 5, sut.Lines()[0].Quantity)
}

func TestUpdateQuantity_LineNotFound(t *testing.T) {
	repo := newMockSnapshotRepo()
	sut := NewCartStore(context.Background(), "s1", repo)

	err := sut.UpdateQuantity(context.Background(), "missing", 1)
	require.ErrorIs(t, err, ErrLineNotFound)
}

func TestStep_DecrementFloorsAtOne(t *testing.T) {
	repo := newMockSnapshotRepo()
	sut := NewCartStore(context.Background(), "s1", repo)

	require.NoError(t, sut.Add(context.Background(), "p1", "Rice", price("1500.00"), 1, 0))

	// decrement below one is a no-op, not a removal
	require.NoError(t, sut.Step(context.Background(), "p1", -1))
	require.Len(t, sut.Lines(), 1)
	assert.Equal(t, 1, sut.Lines()[0].Quantity)
}

func TestStep_IncrementRespectsMax(t *testing.T) {
	repo := newMockSnapshotRepo()
	sut := NewCartStore(context.Background(), "s1", repo)

	require.NoError(t, sut.Add(context.Background(), "p1", "Rice", price("1500.00"), 3, 3))
	err := sut.Step(context.Background(), "p1", 1)
	require.ErrorIs(t, err, ErrStockExceeded)
	assert.Equal(t, 3, sut.Lines()[0].Quantity)
}

func TestRemove_DeletesOnlyThatLine(t *testing.T) {
	repo := newMockSnapshotRepo()
	sut := NewCartStore(context.Background(), "s1", repo)

	require.NoError(t, sut.Add(context.Background(), "p1", "Rice", price("1500.00"), 2, 0))
	require.NoError(t, sut.Add(context.Background(), "p2", "Beans", price("900.00"), 1, 0))

	require.NoError(t, sut.Remove(context.Background(), "p1"))

	lines := sut.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "p2", lines[0].ProductID)
}

func TestClear_RemovesCartAndSnapshot(t *testing.T) {
	repo := newMockSnapshotRepo()
	sut := NewCartStore(context.Background(), "s1", repo)

	require.NoError(t, sut.Add(context.Background(), "p1", "Rice", price("1500.00"), 2, 0))
	require.NotNil(t, repo.stored("s1"))

	sut.Clear(context.Background())
	assert.Empty(t, sut.Lines())
	assert.Nil(t, repo.stored("s1"))

	// a fresh store load afterward yields an empty cart
	fresh := NewCartStore(context.Background(), "s1", repo)
	assert.Empty(t, fresh.Lines())
}

func TestHydration_FromPersistedSnapshot(t *testing.T) {
	repo := newMockSnapshotRepo()
	first := NewCartStore(context.Background(), "s1", repo)
	require.NoError(t, first.Add(context.Background(), "p1", "Rice", price("1500.00"), 2, 0))

	second := NewCartStore(context.Background(), "s1", repo)
	lines := second.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "p1", lines[0].ProductID)
	assert.Equal(t, 2, lines[0].Quantity)
}

func TestTotals_MatchesLineArithmetic(t *testing.T) {
	repo := newMockSnapshotRepo()
	sut := NewCartStore(context.Background(), "s1", repo)

	require.NoError(t, sut.Add(context.Background(), "p1", "Rice", price("1500.00"), 2, 0))
	require.NoError(t, sut.Add(context.Background(), "p2", "Beans", price("900.50"), 3, 0))

	totals := sut.Totals()
	assert.Equal(t, 5, totals.ItemCount)
	assert.True(t, totals.Subtotal.Equal(price("5701.50")), "subtotal = %s", totals.Subtotal)
	assert.True(t, totals.Tax.Equal(price("570.15")), "tax = %s", totals.Tax)
	assert.True(t, totals.Total.Equal(price("6271.65")), "total = %s", totals.Total)
}

func TestTotals_SubtotalInvariantOverMutationSequences(t *testing.T) {
	repo := newMockSnapshotRepo()
	sut := NewCartStore(context.Background(), "s1", repo)
	ctx := context.Background()

	require.NoError(t, sut.Add(ctx, "p1", "Rice", price("1500.00"), 2, 10))
	require.NoError(t, sut.Add(ctx, "p2", "Beans", price("900.00"), 1, 10))
	require.NoError(t, sut.UpdateQuantity(ctx, "p1", 3))
	require.NoError(t, sut.Step(ctx, "p2", 1))
	require.NoError(t, sut.Remove(ctx, "p2"))
	_ = sut.Add(ctx, "p1", "Rice", price("1500.00"), 100, 10) // rejected, no mutation
	require.NoError(t, sut.UpdateQuantity(ctx, "p1", -2))

	expected := decimal.Zero
	for _, l := range sut.Lines() {
		expected = expected.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	assert.True(t, sut.Totals().Subtotal.Equal(expected))
}

func TestSubscribe_NotifiedAfterEachCommit(t *testing.T) {
	repo := newMockSnapshotRepo()
	sut := NewCartStore(context.Background(), "s1", repo)

	var notified int
	var lastTotals domain.Totals
	sut.Subscribe(func(_ []domain.Line, totals domain.Totals) {
		notified++
		lastTotals = totals
	})

	require.NoError(t, sut.Add(context.Background(), "p1", "Rice", price("1500.00"), 2, 0))
	require.NoError(t, sut.UpdateQuantity(context.Background(), "p1", 1))

	// a rejected mutation must not notify
	require.Error(t, sut.Add(context.Background(), "p1", "Rice", price("1500.00"), 0, 0))

	assert.Equal(t, 2, notified)
	assert.Equal(t, 3, lastTotals.ItemCount)
}

func TestCommit_PersistFailureKeepsMemoryState(t *testing.T) {
	repo := newMockSnapshotRepo()
	sut := NewCartStore(context.Background(), "s1", repo)

	repo.m.Lock()
	repo.err = fmt.Errorf("storage down")
	repo.m.Unlock()

	// the mutation still commits; persistence is a mirror, not the truth
	require.NoError(t, sut.Add(context.Background(), "p1", "Rice", price("1500.00"), 2, 0))
	assert.Len(t, sut.Lines(), 1)
}
