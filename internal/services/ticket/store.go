package ticket

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ticket-wallet/internal/services/storage"
	"ticket-wallet/internal/status"
	"ticket-wallet/models"
	"ticket-wallet/monitoring"
)

// StorageKey namespaces the persisted ticket list by application and device.
func StorageKey(appName, deviceID string) string {
	return fmt.Sprintf("%s-tickets:%s", appName, deviceID)
}

// Store is the single writer of the device's signed tickets. Every
// mutation is persisted before it returns.
type Store struct {
	storage storage.Storage
	key     string
	now     func() time.Time
	log     *slog.Logger
	monitor *monitoring.Monitor

	mu      sync.RWMutex
	tickets []models.SignedTicket
}

type StoreOption func(*Store)

func WithStoreClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

func WithStoreLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.log = l }
}

func WithStoreMonitor(m *monitoring.Monitor) StoreOption {
	return func(s *Store) { s.monitor = m }
}

func NewStore(st storage.Storage, key string, opts ...StoreOption) *Store {
	s := &Store{
		storage: st,
		key:     key,
		now:     time.Now,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadResult reports how the store was populated. Degraded means the
// persisted data could not be read and the store started empty.
type LoadResult struct {
	Count    int
	Degraded bool
	Err      error
}

// Load replaces the in-memory collection with the persisted one. It never
// fails: unreadable data leaves an empty store and a degraded result.
func (s *Store) Load(ctx context.Context) LoadResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, found, err := s.storage.Read(ctx, s.key)
	if err != nil {
		s.tickets = nil
		s.log.Error("Failed to read persisted tickets, starting empty", "key", s.key, "error", err)
		s.monitor.TrackStoreOperation("load", "degraded")
		return LoadResult{Degraded: true, Err: fmt.Errorf("%w: %v", status.ErrStorageFailure, err)}
	}

	if !found {
		s.tickets = nil
		s.monitor.TrackStoreOperation("load", "empty")
		s.monitor.SetStoredTickets(0)
		return LoadResult{}
	}

	tickets, err := decodeTickets(raw)
	if err != nil {
		s.tickets = nil
		s.log.Error("Persisted tickets are corrupt, starting empty", "key", s.key, "error", err)
		s.monitor.TrackStoreOperation("load", "degraded")
		return LoadResult{Degraded: true, Err: fmt.Errorf("%w: %v", status.ErrStorageFailure, err)}
	}

	s.tickets = tickets
	s.monitor.TrackStoreOperation("load", "success")
	s.monitor.SetStoredTickets(len(tickets))
	return LoadResult{Count: len(tickets)}
}

// Add appends a ticket. Duplicate ticket ids are not rejected here.
func (s *Store) Add(ctx context.Context, t models.SignedTicket) error {
	if t.Payload.TicketID == "" {
		return fmt.Errorf("%w: ticket id is empty", status.ErrInvalidPayload)
	}

	return s.mutate(ctx, "add", func(tickets []models.SignedTicket) ([]models.SignedTicket, bool, error) {
		return append(tickets, cloneTicket(t)), true, nil
	})
}

// GetByTicketID returns the first ticket with the given id.
func (s *Store) GetByTicketID(ticketID string) (models.SignedTicket, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.tickets {
		if t.Payload.TicketID == ticketID {
			return cloneTicket(t), true
		}
	}
	return models.SignedTicket{}, false
}

// GetByEventID returns every ticket for the event in insertion order.
func (s *Store) GetByEventID(eventID string) []models.SignedTicket {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.SignedTicket, 0)
	for _, t := range s.tickets {
		if t.Payload.EventID == eventID {
			result = append(result, cloneTicket(t))
		}
	}
	return result
}

func (s *Store) All() []models.SignedTicket {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return cloneTickets(s.tickets)
}

// Redemption is the outcome of a Redeem call. AlreadyRedeemed is true when
// the ticket had been redeemed before; RedeemedAt then still holds the
// first redemption time.
type Redemption struct {
	Ticket          models.SignedTicket
	AlreadyRedeemed bool
}

// Redeem marks a ticket as used. Unknown ids return status.ErrTicketNotFound.
func (s *Store) Redeem(ctx context.Context, ticketID string) (Redemption, error) {
	return s.redeem(ctx, ticketID, func(models.SignedTicket) bool { return true })
}

// RedeemCode redeems the ticket a scanned code belongs to. The match runs
// against the latest persisted tickets, so tickets written by another
// store on the same key are found. A ticket whose stored signature differs
// from the code's is treated as not found.
func (s *Store) RedeemCode(ctx context.Context, code models.TicketCode) (Redemption, error) {
	return s.redeem(ctx, code.Payload.TicketID, func(t models.SignedTicket) bool {
		return t.Signature == code.Signature
	})
}

func (s *Store) redeem(ctx context.Context, ticketID string, match func(models.SignedTicket) bool) (Redemption, error) {
	var result Redemption

	err := s.mutate(ctx, "redeem", func(tickets []models.SignedTicket) ([]models.SignedTicket, bool, error) {
		for i := range tickets {
			if tickets[i].Payload.TicketID != ticketID || !match(tickets[i]) {
				continue
			}

			if tickets[i].Redeemed {
				result = Redemption{Ticket: cloneTicket(tickets[i]), AlreadyRedeemed: true}
				return tickets, false, nil
			}

			at := s.now().UTC().Truncate(time.Millisecond)
			tickets[i].Redeemed = true
			tickets[i].RedeemedAt = &at
			result = Redemption{Ticket: cloneTicket(tickets[i])}
			return tickets, true, nil
		}
		return nil, false, fmt.Errorf("%w: %s", status.ErrTicketNotFound, ticketID)
	})
	if err != nil {
		return Redemption{}, err
	}

	return result, nil
}

// Clear removes every ticket, for logout and reset flows.
func (s *Store) Clear(ctx context.Context) error {
	return s.mutate(ctx, "clear", func([]models.SignedTicket) ([]models.SignedTicket, bool, error) {
		return []models.SignedTicket{}, true, nil
	})
}

type mutation func(latest []models.SignedTicket) (next []models.SignedTicket, changed bool, err error)

// mutate applies fn to the latest persisted collection and persists the
// result before updating the in-memory copy.
func (s *Store) mutate(ctx context.Context, op string, fn mutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		next     []models.SignedTicket
		applyErr error
	)

	_, err := s.storage.Update(ctx, s.key, func(current string, found bool) (string, error) {
		latest := s.latest(current, found)

		updated, changed, err := fn(latest)
		if err != nil {
			applyErr = err
			return "", err
		}

		next = updated
		if !changed {
			return "", storage.ErrUnchanged
		}
		return encodeTickets(updated)
	})
	if err != nil {
		if applyErr != nil {
			s.monitor.TrackStoreOperation(op, "rejected")
			return applyErr
		}
		s.log.Error("Failed to persist tickets", "operation", op, "key", s.key, "error", err)
		s.monitor.TrackStoreOperation(op, "error")
		return fmt.Errorf("%w: %s: %v", status.ErrStorageFailure, op, err)
	}

	s.tickets = next
	s.monitor.TrackStoreOperation(op, "success")
	s.monitor.SetStoredTickets(len(next))
	return nil
}

// latest decodes the persisted value, falling back to the in-memory copy
// when it cannot be read.
func (s *Store) latest(current string, found bool) []models.SignedTicket {
	if !found {
		return nil
	}

	tickets, err := decodeTickets(current)
	if err != nil {
		s.log.Warn("Persisted tickets are corrupt, merging onto in-memory copy", "key", s.key, "error", err)
		return cloneTickets(s.tickets)
	}
	return tickets
}

func cloneTicket(t models.SignedTicket) models.SignedTicket {
	if t.RedeemedAt != nil {
		at := *t.RedeemedAt
		t.RedeemedAt = &at
	}
	return t
}

func cloneTickets(tickets []models.SignedTicket) []models.SignedTicket {
	result := make([]models.SignedTicket, 0, len(tickets))
	for _, t := range tickets {
		result = append(result, cloneTicket(t))
	}
	return result
}
