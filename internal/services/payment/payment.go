// Package payment collects charges for checkout attempts and reports the
// outcome through one-shot callbacks.
package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"ticket-wallet/internal/status"
	"ticket-wallet/models"
)

const (
	expiredMessage = "Payment timed out"
	failedMessage  = "Payment failed"
)

// Callbacks receive the result of a charge. Exactly one of them fires, at
// most once.
type Callbacks struct {
	OnSuccess func()
	OnError   func(message string)
}

// Provider collects payment for a charge.
type Provider interface {
	Collect(ctx context.Context, charge models.Charge, cb Callbacks) error
}

// Service records pending charges in Redis and resolves them from payment
// notifications or expiry.
type Service struct {
	Redis   *redis.Client
	timeout time.Duration
	now     func() time.Time
	log     *slog.Logger

	mu      sync.Mutex
	pending map[string]*pendingCharge
}

type pendingCharge struct {
	charge models.Charge
	cb     Callbacks
	timer  *time.Timer
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

func NewService(redisClient *redis.Client, timeout time.Duration, opts ...Option) *Service {
	s := &Service{
		Redis:   redisClient,
		timeout: timeout,
		now:     time.Now,
		log:     slog.Default(),
		pending: make(map[string]*pendingCharge),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func paymentKey(id string) string {
	return fmt.Sprintf("payment:%s", id)
}

// Collect records the charge as pending and returns. The callbacks fire
// later, when a notification arrives or the charge expires.
func (s *Service) Collect(ctx context.Context, charge models.Charge, cb Callbacks) error {
	if charge.ID == "" {
		return fmt.Errorf("%w: charge id is empty", status.ErrPaymentFailed)
	}

	now := s.now()
	key := paymentKey(charge.ID)

	err := s.Redis.HSet(ctx, key,
		"payment_id", charge.ID,
		"event_id", charge.EventID,
		"owner", charge.Owner,
		"amount", decimal.New(charge.Amount, -2).StringFixed(2),
		"currency", charge.Currency,
		"merchant_context", charge.MerchantContext,
		"status", models.PaymentStatusPending,
		"created_at", now.Unix(),
	).Err()
	if err != nil {
		return fmt.Errorf("record charge: %w", err)
	}

	if err := s.Redis.Expire(ctx, key, s.timeout).Err(); err != nil {
		return fmt.Errorf("set charge expiry: %w", err)
	}

	pc := &pendingCharge{charge: charge, cb: cb}

	s.mu.Lock()
	s.pending[charge.ID] = pc
	pc.timer = time.AfterFunc(s.timeout, func() { s.expire(charge.ID) })
	s.mu.Unlock()

	s.log.Info("Charge pending", "payment_id", charge.ID, "event_id", charge.EventID, "amount", charge.Amount)
	return nil
}

// Resolve settles a pending charge from a notification. Unknown or already
// settled charges return status.ErrChargeNotFound.
func (s *Service) Resolve(ctx context.Context, n models.PaymentNotification) error {
	pc, ok := s.take(n.PaymentID)
	if !ok {
		return fmt.Errorf("%w: %s", status.ErrChargeNotFound, n.PaymentID)
	}

	succeeded := n.Status == "success" || n.Status == models.PaymentStatusCompleted
	if succeeded {
		s.record(ctx, n.PaymentID, models.PaymentStatusCompleted, n.TransactionID)
		s.log.Info("Payment completed", "payment_id", n.PaymentID, "transaction_id", n.TransactionID)
		if pc.cb.OnSuccess != nil {
			pc.cb.OnSuccess()
		}
		return nil
	}

	message := n.Message
	if message == "" {
		message = failedMessage
	}
	s.record(ctx, n.PaymentID, models.PaymentStatusFailed, message)
	s.log.Info("Payment failed", "payment_id", n.PaymentID, "message", message)
	if pc.cb.OnError != nil {
		pc.cb.OnError(message)
	}
	return nil
}

// Pending reports whether the charge is still waiting for a result.
func (s *Service) Pending(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.pending[id]
	return ok
}

func (s *Service) expire(id string) {
	pc, ok := s.take(id)
	if !ok {
		return
	}

	s.record(context.Background(), id, models.PaymentStatusExpired, expiredMessage)
	s.log.Info("Payment expired", "payment_id", id, "event_id", pc.charge.EventID)
	if pc.cb.OnError != nil {
		pc.cb.OnError(expiredMessage)
	}
}

func (s *Service) take(id string) (*pendingCharge, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pc, ok := s.pending[id]
	if !ok {
		return nil, false
	}
	delete(s.pending, id)
	if pc.timer != nil {
		pc.timer.Stop()
	}
	return pc, true
}

// record writes the final status and renews the key's expiry, since the
// original TTL may already have run out.
func (s *Service) record(ctx context.Context, id, st, detail string) {
	key := paymentKey(id)
	_, err := s.Redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, "status", st, "detail", detail)
		pipe.Expire(ctx, key, s.timeout)
		return nil
	})
	if err != nil {
		s.log.Error("Failed to record payment status", "payment_id", id, "status", st, "error", err)
	}
}

// decodeNotification accepts either a JSON string or an already decoded
// object, since publishers send both.
func decodeNotification(raw any) (models.PaymentNotification, error) {
	var n models.PaymentNotification

	var data []byte
	switch v := raw.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return n, err
		}
		data = encoded
	}

	if err := json.Unmarshal(data, &n); err != nil {
		return n, err
	}
	if n.PaymentID == "" {
		return n, fmt.Errorf("notification has no payment_id")
	}
	return n, nil
}
