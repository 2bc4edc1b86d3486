package service

import (
	"context"
	"sync"
	"time"

	"github.com/GATEWAY0710/gatewaystore-pos/internal/auth"
	"github.com/GATEWAY0710/gatewaystore-pos/internal/events"
	"github.com/GATEWAY0710/gatewaystore-pos/internal/journal"
	"github.com/GATEWAY0710/gatewaystore-pos/internal/repository"
	"github.com/GATEWAY0710/gatewaystore-pos/internal/session"
)

const (
	// SessionIdleTTL is how long an untouched session keeps its loop alive.
	// The persisted snapshot survives; only the in-memory actor is reaped.
	SessionIdleTTL = time.Hour

	// janitorInterval is how often the reaper runs
	janitorInterval = 5 * time.Minute
)

// CredentialStore is the persisted credential surface the manager binds to
// each session.
type CredentialStore interface {
	Get(ctx context.Context, sessionID string) (*auth.Credentials, error)
}

// Session bundles the per-session actors: one loop, one cart, one
// checkout orchestrator.
type Session struct {
	ID       string
	Loop     *session.Loop
	Cart     *CartStore
	Checkout *CheckoutOrchestrator

	lastSeen time.Time
}

// SessionManager owns the live sessions and builds them on first use,
// hydrating the cart from its persisted snapshot.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	repo    repository.SnapshotRepository
	sales   SalesAPI
	creds   CredentialStore
	journal journal.Journal
	events  events.Publisher
	cfg     CheckoutConfig

	stopJanitor chan struct{}
	wg          sync.WaitGroup
}

func NewSessionManager(
	repo repository.SnapshotRepository,
	sales SalesAPI,
	creds CredentialStore,
	jnl journal.Journal,
	pub events.Publisher,
	cfg CheckoutConfig,
) *SessionManager {
	m := &SessionManager{
		sessions:    make(map[string]*Session),
		repo:        repo,
		sales:       sales,
		creds:       creds,
		journal:     jnl,
		events:      pub,
		cfg:         cfg,
		stopJanitor: make(chan struct{}),
	}

	m.wg.Add(1)
	go m.janitorLoop()

	return m
}

// Get returns the live session for id, creating and hydrating it if needed.
func (m *SessionManager) Get(ctx context.Context, id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[id]; ok {
		s.lastSeen = time.Now()
		return s
	}

	loop := session.NewLoop()
	store := NewCartStore(ctx, id, m.repo)
	orch := NewCheckoutOrchestrator(
		id, loop, store, m.sales, sessionCredentials{store: m.creds, sessionID: id},
		m.journal, m.events, m.cfg,
	)

	s := &Session{
		ID:       id,
		Loop:     loop,
		Cart:     store,
		Checkout: orch,
		lastSeen: time.Now(),
	}
	m.sessions[id] = s
	return s
}

func (m *SessionManager) janitorLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.reapIdle()
		case <-m.stopJanitor:
			return
		}
	}
}

func (m *SessionManager) reapIdle() {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-SessionIdleTTL)
	for id, s := range m.sessions {
		if s.lastSeen.Before(cutoff) {
			s.Loop.Close()
			delete(m.sessions, id)
		}
	}
}

// Close stops the janitor and shuts down every live session loop.
func (m *SessionManager) Close() {
	close(m.stopJanitor)
	m.wg.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		s.Loop.Close()
		delete(m.sessions, id)
	}
}

// sessionCredentials narrows the credential store to one session's token.
type sessionCredentials struct {
	store     CredentialStore
	sessionID string
}

func (s sessionCredentials) AccessToken(ctx context.Context) (string, error) {
	c, err := s.store.Get(ctx, s.sessionID)
	if err != nil {
		return "", err
	}
	return c.AccessToken, nil
}
