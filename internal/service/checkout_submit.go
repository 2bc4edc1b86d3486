package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/GATEWAY0710/gatewaystore-pos/internal/auth"
	"github.com/GATEWAY0710/gatewaystore-pos/internal/domain"
	"github.com/GATEWAY0710/gatewaystore-pos/internal/journal"
	"github.com/GATEWAY0710/gatewaystore-pos/internal/upstream"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Begin runs the Submitting phase: snapshot the cart, fan requests out,
// wait for the whole group, then decide. The caller's request is the one
// logical operation that suspends; cart mutations posted to the loop while
// requests are in flight do not touch the pinned snapshot.
func (o *CheckoutOrchestrator) Begin(ctx context.Context) (*domain.CheckoutResult, error) {
	var (
		snapshot  *domain.Cart
		token     string
		attemptID string
		beginErr  error
	)

	err := o.loop.Do(ctx, func() {
		if o.status.InFlight() || o.status == domain.CheckoutStatusVerified {
			beginErr = ErrAttemptInFlight
			return
		}
		if o.store.Totals().ItemCount == 0 {
			beginErr = ErrEmptyCart
			return
		}

		tok, err := o.creds.AccessToken(ctx)
		if err != nil {
			if errors.Is(err, auth.ErrNoCredential) {
				// no request is sent; the caller redirects to login
				beginErr = ErrNotAuthenticated
				return
			}
			beginErr = err
			return
		}

		if !domain.CanTransitionTo(o.status, domain.CheckoutStatusSubmitting) {
			beginErr = ErrIllegalTransition
			return
		}

		attemptID = uuid.New().String()
		token = tok
		snapshot = o.store.Snapshot()

		o.status = domain.CheckoutStatusSubmitting
		o.failedFrom = ""
		o.failure = ""
		o.token = token
		o.presubmitted = snapshot
		o.record(ctx, attemptID, "", domain.CheckoutStatusSubmitting, snapshot.Totals().Total, "")
	})
	if err != nil {
		return nil, err
	}
	if beginErr != nil {
		return nil, beginErr
	}

	// network phase, off the loop
	responses, submitErr := o.submit(ctx, token, snapshot)

	var result *domain.CheckoutResult
	err = o.loop.Do(ctx, func() {
		if submitErr != nil {
			o.status = domain.CheckoutStatusFailed
			o.failedFrom = domain.CheckoutStatusSubmitting
			o.failure = submitErr.Error()
			o.record(ctx, attemptID, "", domain.CheckoutStatusFailed, snapshot.Totals().Total, o.failure)
			return
		}

		res := buildResult(attemptID, responses)
		o.result = res
		o.status = domain.CheckoutStatusAwaitingVerification

		switch o.cfg.Policy {
		case ClearAfterSubmit:
			// Observed parity mode: the cart is gone before verification
			// has spoken, and a verification failure cannot restore it.
			o.store.Clear(ctx)
			o.presubmitted = nil
		case ClearRollback:
			// Cleared just as eagerly, but the pinned snapshot is kept so
			// a verification failure can put the lines back.
			o.store.Clear(ctx)
		}

		ref := ""
		if len(res.References) > 0 {
			ref = res.References[0]
		}
		o.record(ctx, attemptID, ref, domain.CheckoutStatusAwaitingVerification, res.GrandTotal, "")
		result = res.Clone()
	})
	if err != nil {
		return nil, err
	}
	if submitErr != nil {
		return nil, submitErr
	}
	return result, nil
}

// submit issues the sale creation call(s) for the pinned snapshot. In
// per-line mode every request is issued concurrently and the group is fully
// collected before any outcome is inspected; the first failure in line order
// decides, and results of already-succeeded requests are discarded.
func (o *CheckoutOrchestrator) submit(ctx context.Context, token string, snapshot *domain.Cart) ([]*upstream.CreateSaleResponse, error) {
	if o.cfg.Mode == SubmitPerLine {
		return o.submitPerLine(ctx, token, snapshot)
	}

	items := make([]domain.SaleItem, 0, len(snapshot.Lines))
	for _, l := range snapshot.Lines {
		items = append(items, domain.SaleItem{ProductID: l.ProductID, Quantity: l.Quantity})
	}

	resp, err := o.sales.CreateSale(ctx, token, items)
	if err != nil {
		return nil, err
	}
	return []*upstream.CreateSaleResponse{resp}, nil
}

func (o *CheckoutOrchestrator) submitPerLine(ctx context.Context, token string, snapshot *domain.Cart) ([]*upstream.CreateSaleResponse, error) {
	n := len(snapshot.Lines)
	responses := make([]*upstream.CreateSaleResponse, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i, l := range snapshot.Lines {
		wg.Add(1)
		go func(i int, item domain.SaleItem) {
			defer wg.Done()
			responses[i], errs[i] = o.sales.CreateSale(ctx, token, []domain.SaleItem{item})
		}(i, domain.SaleItem{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	wg.Wait()

	// fan-in join: the group is fully collected, then inspected in order
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return responses, nil
}

func buildResult(attemptID string, responses []*upstream.CreateSaleResponse) *domain.CheckoutResult {
	result := &domain.CheckoutResult{
		AttemptID:   attemptID,
		GrandTotal:  decimal.Zero,
		SubmittedAt: time.Now(),
	}

	seen := make(map[string]bool)
	for _, r := range responses {
		if r.Reference != "" && !seen[r.Reference] {
			seen[r.Reference] = true
			result.References = append(result.References, r.Reference)
		}
		result.Sales = append(result.Sales, domain.SaleResult{
			SaleID:      r.SaleID,
			ProductID:   r.ProductID,
			Quantity:    r.Quantity,
			Reference:   r.Reference,
			TotalAmount: r.EffectiveAmount(),
		})
		result.GrandTotal = result.GrandTotal.Add(r.EffectiveAmount())
	}
	return result
}

func (o *CheckoutOrchestrator) record(ctx context.Context, attemptID, reference string, status domain.CheckoutStatus, amount decimal.Decimal, detail string) {
	err := o.journal.RecordTransition(ctx, journal.Entry{
		AttemptID:  attemptID,
		SessionID:  o.sessionID,
		Reference:  reference,
		Status:     status,
		Amount:     amount,
		Detail:     detail,
		RecordedAt: time.Now(),
	})
	if err != nil {
		log.Printf("journal record error for session %s: %v", o.sessionID, err)
	}
}
