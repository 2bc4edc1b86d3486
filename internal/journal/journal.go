// Package journal records checkout attempt transitions. The admin report
// dashboard reads this; the orchestrator only ever appends.
package journal

import (
	"context"
	"time"

	"github.com/GATEWAY0710/gatewaystore-pos/internal/domain"
	"github.com/shopspring/decimal"
)

// Entry is one recorded transition of a checkout attempt.
type Entry struct {
	AttemptID  string                `json:"attempt_id"`
	SessionID  string                `json:"session_id"`
	Reference  string                `json:"reference,omitempty"`
	Status     domain.CheckoutStatus `json:"status"`
	Amount     decimal.Decimal       `json:"amount"`
	Detail     string                `json:"detail,omitempty"`
	RecordedAt time.Time             `json:"recorded_at"`
}

type Journal interface {
	RecordTransition(ctx context.Context, e Entry) error
	RecentAttempts(ctx context.Context, limit int) ([]Entry, error)
}

// Noop is used when no database is configured; the orchestrator does not
// care whether a journal is present.
type Noop struct{}

func (Noop) RecordTransition(context.Context, Entry) error { return nil }

func (Noop) RecentAttempts(context.Context, int) ([]Entry, error) { return nil, nil }
