package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"ticket-wallet/internal/services/catalog"
	"ticket-wallet/internal/services/notify"
	"ticket-wallet/internal/status"
	"ticket-wallet/models"
)

// Session is one buyer's checkout for one event.
type Session struct {
	ID           string        `json:"id"`
	EventID      string        `json:"event_id"`
	Identity     string        `json:"identity"`
	CreatedAt    time.Time     `json:"created_at"`
	Orchestrator *Orchestrator `json:"-"`
}

// Manager owns the live checkout sessions. Sessions expire after a TTL or
// when the cache is full; an evicted session is closed so its late
// results are ignored.
type Manager struct {
	catalog   catalog.Catalog
	deps      Dependencies
	publisher notify.Publisher
	log       *slog.Logger

	mu       sync.Mutex
	sessions *expirable.LRU[string, *Session]
	// open maps "<event>|<identity>" to the session id for that pair.
	open sync.Map
}

func NewManager(cat catalog.Catalog, deps Dependencies, publisher notify.Publisher, size int, ttl time.Duration) *Manager {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if publisher == nil {
		publisher = notify.Noop{Log: logger}
	}

	m := &Manager{
		catalog:   cat,
		deps:      deps,
		publisher: publisher,
		log:       logger,
	}
	m.sessions = expirable.NewLRU[string, *Session](size, m.evicted, ttl)
	return m
}

func sessionKey(eventID, identity string) string {
	return eventID + "|" + identity
}

// Begin starts a purchase of eventID for the current identity. A second
// call for the same event and identity reuses the open session, so the
// newer attempt supersedes the older one.
func (m *Manager) Begin(ctx context.Context, eventID string) (*Session, error) {
	event, err := m.catalog.Lookup(ctx, eventID)
	if err != nil {
		return nil, err
	}

	identity, err := m.deps.Signer.Identity()
	if err != nil {
		return nil, err
	}

	s := m.session(event, identity)

	if s.Orchestrator.State().Step == StepError {
		err = s.Orchestrator.Retry(ctx)
	} else {
		err = s.Orchestrator.Start(ctx)
	}
	return s, err
}

func (m *Manager) session(event models.Event, identity string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := sessionKey(event.ID, identity)
	if id, ok := m.open.Load(key); ok {
		if s, ok := m.sessions.Get(id.(string)); ok && !s.Orchestrator.Closed() {
			return s
		}
	}

	s := &Session{
		ID:        uuid.NewString(),
		EventID:   event.ID,
		Identity:  identity,
		CreatedAt: time.Now(),
	}
	s.Orchestrator = New(event, m.deps, Callbacks{
		OnSuccess: func(t models.SignedTicket) { m.ticketIssued(s, t) },
		OnError:   func(err error) { m.checkoutFailed(s, err) },
	})

	m.open.Store(key, s.ID)
	m.sessions.Add(s.ID, s)
	m.log.Info("Checkout session created", "checkout_id", s.ID, "event_id", event.ID)
	return s
}

func (m *Manager) Get(id string) (*Session, error) {
	s, ok := m.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", status.ErrCheckoutNotFound, id)
	}
	return s, nil
}

func (m *Manager) Retry(ctx context.Context, id string) (*Session, error) {
	s, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	return s, s.Orchestrator.Retry(ctx)
}

func (m *Manager) Cancel(id string) (*Session, error) {
	s, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	return s, s.Orchestrator.Cancel()
}

func (m *Manager) Len() int {
	return m.sessions.Len()
}

// Close closes every session.
func (m *Manager) Close() {
	m.sessions.Purge()
}

func (m *Manager) evicted(id string, s *Session) {
	s.Orchestrator.Close()
	m.open.CompareAndDelete(sessionKey(s.EventID, s.Identity), id)
	m.log.Debug("Checkout session closed", "checkout_id", id)
}

func (m *Manager) ticketIssued(s *Session, t models.SignedTicket) {
	err := m.publisher.Publish(s.Identity, notify.Message{
		Type:       notify.TypeTicketIssued,
		CheckoutID: s.ID,
		EventID:    s.EventID,
		TicketID:   t.Payload.TicketID,
		Timestamp:  time.Now(),
	})
	if err != nil {
		m.log.Error("Failed to publish ticket notification", "checkout_id", s.ID, "error", err)
	}
}

func (m *Manager) checkoutFailed(s *Session, cause error) {
	err := m.publisher.Publish(s.Identity, notify.Message{
		Type:       notify.TypeCheckoutFailed,
		CheckoutID: s.ID,
		EventID:    s.EventID,
		Error:      s.Orchestrator.State().Message,
		Timestamp:  time.Now(),
	})
	if err != nil {
		m.log.Error("Failed to publish checkout failure", "checkout_id", s.ID, "cause", cause, "error", err)
	}
}
