package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ticket-wallet/internal/services/notify"
	"ticket-wallet/internal/services/payment"
	"ticket-wallet/internal/services/signing"
	"ticket-wallet/internal/services/storage"
	"ticket-wallet/internal/services/ticket"
	"ticket-wallet/models"
)

const (
	payHold    = ""
	paySucceed = "succeed"
	payFail    = "fail"
)

// fakePayments answers Collect calls from a script, one entry per call.
// Calls beyond the script, or scripted as payHold, keep their callbacks
// for the test to fire.
type fakePayments struct {
	mu         sync.Mutex
	script     []string
	failMsg    string
	collectErr error
	charges    []models.Charge
	callbacks  []payment.Callbacks
}

func (f *fakePayments) Collect(_ context.Context, c models.Charge, cb payment.Callbacks) error {
	f.mu.Lock()
	n := len(f.charges)
	f.charges = append(f.charges, c)
	f.callbacks = append(f.callbacks, cb)
	mode := payHold
	if n < len(f.script) {
		mode = f.script[n]
	}
	f.mu.Unlock()

	if f.collectErr != nil {
		return f.collectErr
	}

	switch mode {
	case paySucceed:
		cb.OnSuccess()
	case payFail:
		cb.OnError(f.failMsg)
	}
	return nil
}

func (f *fakePayments) callback(i int) payment.Callbacks {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.callbacks[i]
}

func (f *fakePayments) chargeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.charges)
}

// fakeSigner signs with a fixed identity. Calls listed in holds block
// until their channel is closed.
type fakeSigner struct {
	identity    string
	identityErr error
	signErr     error
	signAs      string

	mu      sync.Mutex
	calls   int
	holds   map[int]chan struct{}
	started chan int
}

func newFakeSigner(identity string) *fakeSigner {
	return &fakeSigner{
		identity: identity,
		holds:    make(map[int]chan struct{}),
		started:  make(chan int, 16),
	}
}

func (f *fakeSigner) hold(call int) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.holds[call] = ch
	return ch
}

func (f *fakeSigner) Identity() (string, error) {
	if f.identityErr != nil {
		return "", f.identityErr
	}
	return f.identity, nil
}

func (f *fakeSigner) Sign(_ context.Context, message []byte) (signing.Signature, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	gate := f.holds[call]
	f.mu.Unlock()

	f.started <- call
	if gate != nil {
		<-gate
	}

	if f.signErr != nil {
		return signing.Signature{}, f.signErr
	}
	publicKey := f.identity
	if f.signAs != "" {
		publicKey = f.signAs
	}
	return signing.Signature{Bytes: append([]byte("sig:"), message[:8]...), PublicKey: publicKey}, nil
}

func (f *fakeSigner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type failingRecorder struct{}

func (failingRecorder) Add(context.Context, models.SignedTicket) error {
	return errors.New("quota exceeded")
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []notify.Message
	wallets  []string
}

func (p *fakePublisher) Publish(wallet string, msg notify.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.wallets = append(p.wallets, wallet)
	p.messages = append(p.messages, msg)
	return nil
}

func (p *fakePublisher) sent() []notify.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]notify.Message(nil), p.messages...)
}

var testGig = models.Event{ID: "42", Name: "Test Gig", Date: "2025-05-01T20:00:00Z", PriceCents: 1500}

type harness struct {
	orch     *Orchestrator
	payments *fakePayments
	signer   *fakeSigner
	store    *ticket.Store
	results  chan any
}

func newHarness(t *testing.T, script ...string) *harness {
	t.Helper()

	h := &harness{
		payments: &fakePayments{script: script},
		signer:   newFakeSigner("Wallet123"),
		store:    ticket.NewStore(storage.NewMemoryStorage(), "test-tickets:device"),
		results:  make(chan any, 8),
	}
	h.orch = New(testGig, h.deps(), Callbacks{
		OnSuccess: func(t models.SignedTicket) { h.results <- t },
		OnError:   func(err error) { h.results <- err },
	})
	return h
}

func (h *harness) deps() Dependencies {
	return Dependencies{
		Payments:        h.payments,
		Signer:          h.signer,
		Store:           h.store,
		Currency:        "USD",
		MerchantContext: "shreddr",
	}
}

func (h *harness) next(t *testing.T) any {
	t.Helper()
	select {
	case r := <-h.results:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("checkout did not finish")
		return nil
	}
}

func (h *harness) waitSignStarted(t *testing.T) int {
	t.Helper()
	select {
	case call := <-h.signer.started:
		return call
	case <-time.After(2 * time.Second):
		t.Fatal("signing did not start")
		return 0
	}
}
