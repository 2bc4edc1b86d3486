package service

import (
	"context"
	"time"

	"github.com/GATEWAY0710/gatewaystore-pos/internal/domain"
	"github.com/GATEWAY0710/gatewaystore-pos/internal/events"
	"github.com/GATEWAY0710/gatewaystore-pos/internal/journal"
	"github.com/GATEWAY0710/gatewaystore-pos/internal/session"
	"github.com/GATEWAY0710/gatewaystore-pos/internal/upstream"
)

// SalesAPI is the remote checkout surface the orchestrator drives.
type SalesAPI interface {
	CreateSale(ctx context.Context, token string, items []domain.SaleItem) (*upstream.CreateSaleResponse, error)
	VerifyPayment(ctx context.Context, token, reference string) (*upstream.VerifyResponse, error)
}

// CredentialSource resolves the session's bearer token. A missing token
// must surface auth.ErrNoCredential.
type CredentialSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// ClearPolicy decides when a successful submission empties the cart.
type ClearPolicy string

const (
	// ClearAfterVerified keeps the cart until verification succeeds, so a
	// verification failure cannot lose the cart. The default.
	ClearAfterVerified ClearPolicy = "after_verified"

	// ClearAfterSubmit reproduces the observed behavior: the cart is
	// cleared as soon as sale creation succeeds, before verification.
	ClearAfterSubmit ClearPolicy = "after_submit"

	// ClearRollback clears at submit like ClearAfterSubmit, but a
	// verification failure restores the cart from the pinned snapshot.
	ClearRollback ClearPolicy = "rollback"
)

// SubmitMode selects the sale request shape.
type SubmitMode string

const (
	// SubmitBatched sends one request carrying all lines. Canonical.
	SubmitBatched SubmitMode = "batched"

	// SubmitPerLine fans out one request per cart line, concurrently,
	// and waits for the whole group before inspecting any outcome.
	SubmitPerLine SubmitMode = "per_line"
)

// DefaultResetDelay is how long a verified checkout lingers before the
// session returns to idle, mirroring the redirect delay of the checkout page.
const DefaultResetDelay = 2 * time.Second

// CheckoutConfig carries the orchestrator knobs set from the environment.
type CheckoutConfig struct {
	Policy     ClearPolicy
	Mode       SubmitMode
	ResetDelay time.Duration
}

func (c CheckoutConfig) withDefaults() CheckoutConfig {
	if c.Policy == "" {
		c.Policy = ClearAfterVerified
	}
	if c.Mode == "" {
		c.Mode = SubmitBatched
	}
	if c.ResetDelay == 0 {
		c.ResetDelay = DefaultResetDelay
	}
	return c
}

// CheckoutOrchestrator runs the two-phase checkout for one session. All
// state lives behind the session loop; network calls happen off the loop and
// their completions are posted back as tasks, so exactly one attempt can be
// in flight and no transition interleaves with a cart mutation.
type CheckoutOrchestrator struct {
	sessionID string
	loop      *session.Loop
	store     *CartStore
	sales     SalesAPI
	creds     CredentialSource
	journal   journal.Journal
	events    events.Publisher
	cfg       CheckoutConfig

	// guarded by the session loop
	status       domain.CheckoutStatus
	failedFrom   domain.CheckoutStatus
	verifyBusy   bool
	token        string
	result       *domain.CheckoutResult
	failure      string
	presubmitted *domain.Cart
}

func NewCheckoutOrchestrator(
	sessionID string,
	loop *session.Loop,
	store *CartStore,
	sales SalesAPI,
	creds CredentialSource,
	jnl journal.Journal,
	pub events.Publisher,
	cfg CheckoutConfig,
) *CheckoutOrchestrator {
	if jnl == nil {
		jnl = journal.Noop{}
	}
	if pub == nil {
		pub = events.Noop{}
	}
	return &CheckoutOrchestrator{
		sessionID: sessionID,
		loop:      loop,
		store:     store,
		sales:     sales,
		creds:     creds,
		journal:   jnl,
		events:    pub,
		cfg:       cfg.withDefaults(),
		status:    domain.CheckoutStatusIdle,
	}
}

// State is a consistent read of the orchestrator, taken on the loop.
type State struct {
	Status  domain.CheckoutStatus  `json:"status"`
	Failure string                 `json:"failure,omitempty"`
	Result  *domain.CheckoutResult `json:"result,omitempty"`
}

func (o *CheckoutOrchestrator) State(ctx context.Context) (State, error) {
	var st State
	err := o.loop.Do(ctx, func() {
		st.Status = o.status
		st.Failure = o.failure
		st.Result = o.result.Clone()
	})
	return st, err
}

// Reset returns a terminal orchestrator to idle so a new attempt can start.
func (o *CheckoutOrchestrator) Reset(ctx context.Context) error {
	return o.loop.Do(ctx, func() {
		o.reset()
	})
}

func (o *CheckoutOrchestrator) reset() {
	o.status = domain.CheckoutStatusIdle
	o.failedFrom = ""
	o.token = ""
	o.result = nil
	o.failure = ""
	o.presubmitted = nil
}
