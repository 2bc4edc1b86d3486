package service

import (
	"context"
	"log"
	"time"

	"github.com/GATEWAY0710/gatewaystore-pos/internal/domain"
	"github.com/GATEWAY0710/gatewaystore-pos/internal/repository"
	"github.com/shopspring/decimal"
)

// ChangeListener is notified after every committed cart mutation. The page
// render of the observed system is exactly this: a deterministic projection
// of store state, driven by the store, never a second source of truth.
type ChangeListener func(lines []domain.Line, totals domain.Totals)

// CartStore owns one session's cart. All methods must be called on the
// session loop; the store itself does no locking. Mutations are atomic:
// a validation failure leaves the cart exactly as it was.
type CartStore struct {
	cart      *domain.Cart
	repo      repository.SnapshotRepository
	listeners []ChangeListener
}

// NewCartStore creates an empty cart for the session, or hydrates it from a
// persisted snapshot when one exists.
func NewCartStore(ctx context.Context, sessionID string, repo repository.SnapshotRepository) *CartStore {
	now := time.Now()
	cart := &domain.Cart{
		SessionID: sessionID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	stored, err := repo.Load(ctx, sessionID)
	if err == nil {
		cart = stored
	} else if err != repository.ErrSnapshotNotFound {
		log.Printf("snapshot load error for session %s: %v", sessionID, err)
	}

	return &CartStore{cart: cart, repo: repo}
}

// Subscribe registers a listener for committed mutations.
func (s *CartStore) Subscribe(l ChangeListener) {
	s.listeners = append(s.listeners, l)
}

// Add merges requestedQty of a product into the cart. maxQty of 0 means no
// stock bound; otherwise current quantity plus requestedQty may not exceed it.
func (s *CartStore) Add(ctx context.Context, productID, name string, unitPrice decimal.Decimal, requestedQty, maxQty int) error {
	if productID == "" {
		return ErrInvalidProduct
	}
	if requestedQty <= 0 {
		return ErrInvalidQuantity
	}
	if unitPrice.IsNegative() {
		return ErrInvalidPrice
	}
	if name == "" {
		name = domain.DefaultLineName
	}

	if line := s.cart.Find(productID); line != nil {
		newQty := line.Quantity + requestedQty
		if maxQty > 0 && newQty > maxQty {
			return ErrStockExceeded
		}
		line.Quantity = newQty
		line.Name = name
		line.UnitPrice = unitPrice
		if maxQty > 0 {
			line.MaxQuantity = maxQty
		}
	} else {
		if maxQty > 0 && requestedQty > maxQty {
			return ErrStockExceeded
		}
		s.cart.Lines = append(s.cart.Lines, domain.Line{
			ProductID:   productID,
			Name:        name,
			UnitPrice:   unitPrice,
			Quantity:    requestedQty,
			MaxQuantity: maxQty,
			AddedAt:     time.Now(),
		})
	}

	s.commit(ctx)
	return nil
}

// UpdateQuantity applies delta to a line's quantity. A resulting quantity of
// zero or less removes the line; a line never survives with a non-positive
// quantity.
func (s *CartStore) UpdateQuantity(ctx context.Context, productID string, delta int) error {
	line := s.cart.Find(productID)
	if line == nil {
		return ErrLineNotFound
	}

	newQty := line.Quantity + delta
	if newQty <= 0 {
		s.removeLine(productID)
		s.commit(ctx)
		return nil
	}
	if line.MaxQuantity > 0 && newQty > line.MaxQuantity {
		return ErrStockExceeded
	}

	line.Quantity = newQty
	s.commit(ctx)
	return nil
}

// Step is the per-line increment/decrement control: a decrement below one is
// a no-op floor, not a removal. Removal goes through Remove only.
func (s *CartStore) Step(ctx context.Context, productID string, delta int) error {
	line := s.cart.Find(productID)
	if line == nil {
		return ErrLineNotFound
	}

	newQty := line.Quantity + delta
	if newQty < 1 {
		return nil
	}
	if line.MaxQuantity > 0 && newQty > line.MaxQuantity {
		return ErrStockExceeded
	}

	line.Quantity = newQty
	s.commit(ctx)
	return nil
}

// Remove deletes the line unconditionally.
func (s *CartStore) Remove(ctx context.Context, productID string) error {
	if s.cart.Find(productID) == nil {
		return ErrLineNotFound
	}
	s.removeLine(productID)
	s.commit(ctx)
	return nil
}

// Clear empties the cart and removes the persisted snapshot.
func (s *CartStore) Clear(ctx context.Context) {
	s.cart.Lines = nil
	s.cart.UpdatedAt = time.Now()

	if err := s.repo.Delete(ctx, s.cart.SessionID); err != nil {
		log.Printf("snapshot delete error for session %s: %v", s.cart.SessionID, err)
	}
	s.notify()
}

// Lines returns a copy of the cart lines in insertion order.
func (s *CartStore) Lines() []domain.Line {
	out := make([]domain.Line, len(s.cart.Lines))
	copy(out, s.cart.Lines)
	return out
}

// Totals is a pure derived read reflecting the latest committed mutation.
func (s *CartStore) Totals() domain.Totals {
	return s.cart.Totals()
}

// Snapshot deep-copies the cart, pinning it for an in-flight checkout.
func (s *CartStore) Snapshot() *domain.Cart {
	return s.cart.Clone()
}

// Restore replaces the cart contents from a snapshot. The rollback clear
// policy uses it to put the pinned lines back after a verification failure.
func (s *CartStore) Restore(ctx context.Context, snapshot *domain.Cart) {
	s.cart = snapshot.Clone()
	s.commit(ctx)
}

func (s *CartStore) removeLine(productID string) {
	for i, l := range s.cart.Lines {
		if l.ProductID == productID {
			s.cart.Lines = append(s.cart.Lines[:i], s.cart.Lines[i+1:]...)
			return
		}
	}
}

// commit persists the snapshot and notifies listeners. Persistence failures
// are logged, not surfaced: the in-memory cart already holds the committed
// state and remains authoritative.
func (s *CartStore) commit(ctx context.Context) {
	s.cart.UpdatedAt = time.Now()

	if err := s.repo.Save(ctx, s.cart); err != nil {
		log.Printf("snapshot save error for session %s: %v", s.cart.SessionID, err)
	}
	s.notify()
}

func (s *CartStore) notify() {
	totals := s.cart.Totals()
	for _, l := range s.listeners {
		l(s.Lines(), totals)
	}
}
