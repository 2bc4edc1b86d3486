package repository

import (
	"context"
	"errors"

	"github.com/GATEWAY0710/gatewaystore-pos/internal/domain"
)

// SnapshotRepository mirrors a session's cart to a persisted key-value
// store so the cart survives process restarts. The in-memory cart stays
// the source of truth; the snapshot is a serialized copy, never shared.
type SnapshotRepository interface {
	Load(ctx context.Context, sessionID string) (*domain.Cart, error)
	Save(ctx context.Context, cart *domain.Cart) error
	Delete(ctx context.Context, sessionID string) error
}

var ErrSnapshotNotFound = errors.New("cart snapshot not found")
