package service

import (
	"context"
	"log"
	"time"

	"github.com/GATEWAY0710/gatewaystore-pos/internal/domain"
	"github.com/GATEWAY0710/gatewaystore-pos/internal/events"
)

// Verify runs the AwaitingVerification phase for the recorded reference(s).
// A verification failure re-enables the action so it can be retried; the
// create-sale step is never retried. After Verified the call is a no-op
// until the scheduled reset returns the session to idle.
func (o *CheckoutOrchestrator) Verify(ctx context.Context) (*domain.CheckoutResult, error) {
	var (
		refs      []string
		token     string
		result    *domain.CheckoutResult
		verifyErr error
		already   bool
	)

	err := o.loop.Do(ctx, func() {
		if o.status == domain.CheckoutStatusVerified {
			// control stays disabled; nothing to do
			result = o.result.Clone()
			already = true
			return
		}
		if !o.verifiable() {
			verifyErr = ErrNoAttempt
			return
		}
		if o.verifyBusy {
			verifyErr = ErrAttemptInFlight
			return
		}

		if o.status != domain.CheckoutStatusAwaitingVerification {
			if !domain.CanTransitionTo(o.status, domain.CheckoutStatusAwaitingVerification) {
				verifyErr = ErrIllegalTransition
				return
			}
			o.status = domain.CheckoutStatusAwaitingVerification
		}
		o.verifyBusy = true
		refs = append(refs, o.result.References...)
		token = o.token
	})
	if err != nil {
		return nil, err
	}
	if already {
		return result, nil
	}
	if verifyErr != nil {
		return nil, verifyErr
	}

	// network phase, off the loop; references are checked one by one and
	// the first rejection decides
	var failed error
	for _, ref := range refs {
		if _, err := o.sales.VerifyPayment(ctx, token, ref); err != nil {
			failed = err
			break
		}
	}

	err = o.loop.Do(ctx, func() {
		o.verifyBusy = false

		if failed != nil {
			o.status = domain.CheckoutStatusFailed
			o.failedFrom = domain.CheckoutStatusAwaitingVerification
			o.failure = failed.Error()

			// rollback policy: put the pinned lines back, exactly once
			if o.cfg.Policy == ClearRollback && o.presubmitted != nil {
				o.store.Restore(ctx, o.presubmitted)
				o.presubmitted = nil
			}

			o.record(ctx, o.result.AttemptID, firstRef(refs), domain.CheckoutStatusFailed, o.result.GrandTotal, o.failure)
			return
		}

		now := time.Now()
		o.status = domain.CheckoutStatusVerified
		o.failure = ""
		o.result.VerifiedAt = &now

		if o.cfg.Policy == ClearAfterVerified || o.cfg.Policy == ClearRollback {
			o.store.Clear(ctx)
			o.presubmitted = nil
		}

		o.record(ctx, o.result.AttemptID, firstRef(refs), domain.CheckoutStatusVerified, o.result.GrandTotal, "")
		o.publish(ctx, now)

		// the landing-page redirect of the checkout page: linger, then idle
		o.loop.Schedule(o.cfg.ResetDelay, func() {
			if o.status == domain.CheckoutStatusVerified {
				o.reset()
			}
		})
		result = o.result.Clone()
	})
	if err != nil {
		return nil, err
	}
	if failed != nil {
		return nil, failed
	}
	return result, nil
}

// verifiable reports whether the verify action is currently enabled: an
// attempt is awaiting verification, or the previous verification failed and
// may be retried.
func (o *CheckoutOrchestrator) verifiable() bool {
	if o.result == nil {
		return false
	}
	if o.status == domain.CheckoutStatusAwaitingVerification {
		return true
	}
	return o.status == domain.CheckoutStatusFailed && o.failedFrom == domain.CheckoutStatusAwaitingVerification
}

func (o *CheckoutOrchestrator) publish(ctx context.Context, verifiedAt time.Time) {
	ev := events.SaleVerified{
		AttemptID:  o.result.AttemptID,
		SessionID:  o.sessionID,
		References: o.result.References,
		Items:      o.result.Sales,
		Amount:     o.result.GrandTotal,
		VerifiedAt: verifiedAt,
	}
	if err := o.events.PublishSaleVerified(ctx, ev); err != nil {
		log.Printf("sale event publish error for session %s: %v", o.sessionID, err)
	}
}

func firstRef(refs []string) string {
	if len(refs) == 0 {
		return ""
	}
	return refs[0]
}
