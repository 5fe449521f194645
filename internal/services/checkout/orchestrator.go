// Package checkout drives one purchase from payment through signing to a
// stored ticket.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"ticket-wallet/internal/services/payment"
	"ticket-wallet/internal/services/signing"
	"ticket-wallet/internal/services/ticket"
	"ticket-wallet/internal/status"
	"ticket-wallet/models"
	"ticket-wallet/monitoring"
)

type Step string

const (
	StepIdle            Step = "idle"
	StepAwaitingPayment Step = "awaiting_payment"
	StepSigning         Step = "signing"
	StepComplete        Step = "complete"
	StepError           Step = "error"
)

const issueFailedMessage = "Ticket could not be issued"

// State is a snapshot of a checkout. Ticket is set when the step is
// complete, and on error when the ticket was signed but not recorded.
type State struct {
	Step       Step                 `json:"step"`
	Attempt    uint64               `json:"attempt"`
	PaymentID  string               `json:"payment_id,omitempty"`
	Ticket     *models.SignedTicket `json:"ticket,omitempty"`
	Err        error                `json:"-"`
	Message    string               `json:"error,omitempty"`
	Retryable  bool                 `json:"retryable,omitempty"`
	Unrecorded bool                 `json:"unrecorded,omitempty"`
}

// Signer is satisfied by *signing.Gateway.
type Signer interface {
	Identity() (string, error)
	Sign(ctx context.Context, message []byte) (signing.Signature, error)
}

// TicketRecorder is satisfied by *ticket.Store.
type TicketRecorder interface {
	Add(ctx context.Context, t models.SignedTicket) error
}

type Dependencies struct {
	Payments        payment.Provider
	Signer          Signer
	Store           TicketRecorder
	Builder         *ticket.Builder
	Assembler       *ticket.Assembler
	Currency        string
	MerchantContext string
	Logger          *slog.Logger
	Monitor         *monitoring.Monitor
}

// Callbacks run outside the orchestrator lock, once per finished attempt.
type Callbacks struct {
	OnSuccess func(models.SignedTicket)
	OnError   func(error)
}

type Orchestrator struct {
	event models.Event
	deps  Dependencies
	cb    Callbacks
	log   *slog.Logger

	mu      sync.Mutex
	state   State
	attempt uint64
	closed  bool
}

func New(event models.Event, deps Dependencies, cb Callbacks) *Orchestrator {
	if deps.Builder == nil {
		deps.Builder = ticket.NewBuilder()
	}
	if deps.Assembler == nil {
		deps.Assembler = ticket.NewAssembler(false)
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		event: event,
		deps:  deps,
		cb:    cb,
		log:   logger.With("event_id", event.ID),
		state: State{Step: StepIdle},
	}
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.state
}

func (o *Orchestrator) Event() models.Event {
	return o.event
}

func (o *Orchestrator) Closed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.closed
}

// Start begins a new attempt and hands over to the payment provider. An
// attempt still waiting for payment is superseded; one that is signing is
// not.
func (o *Orchestrator) Start(ctx context.Context) error {
	identity, err := o.deps.Signer.Identity()
	if err != nil {
		return err
	}
	return o.begin(ctx, identity)
}

func (o *Orchestrator) begin(ctx context.Context, identity string) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return status.ErrCheckoutClosed
	}
	switch o.state.Step {
	case StepSigning:
		o.mu.Unlock()
		return status.ErrSigningInProgress
	case StepError:
		o.mu.Unlock()
		return fmt.Errorf("%w: retry the failed attempt first", status.ErrInvalidTransition)
	}

	o.attempt++
	id := o.attempt
	paymentID := uuid.NewString()
	o.setStateLocked(State{Step: StepAwaitingPayment, Attempt: id, PaymentID: paymentID})
	o.mu.Unlock()

	charge := models.Charge{
		ID:              paymentID,
		EventID:         o.event.ID,
		Owner:           identity,
		Amount:          o.event.PriceCents,
		Currency:        o.deps.Currency,
		MerchantContext: o.deps.MerchantContext,
		Description:     o.event.Name,
		CreatedAt:       time.Now(),
	}

	// Signing outlives the request that started the checkout.
	bg := context.WithoutCancel(ctx)

	err := o.deps.Payments.Collect(ctx, charge, payment.Callbacks{
		OnSuccess: func() { o.paymentSucceeded(bg, id) },
		OnError: func(message string) {
			o.fail(id, &status.PaymentError{Message: message})
		},
	})
	if err != nil {
		o.log.Error("Failed to start payment", "attempt", id, "error", err)
		o.fail(id, err)
		return err
	}

	o.log.Info("Awaiting payment", "attempt", id, "payment_id", charge.ID)
	return nil
}

// Retry moves a failed checkout back to idle and starts a new attempt. If
// the signer is gone the checkout stays in error with the signer's message.
func (o *Orchestrator) Retry(ctx context.Context) error {
	if err := o.retryable(); err != nil {
		return err
	}

	identity, err := o.deps.Signer.Identity()
	if err != nil {
		o.mu.Lock()
		if o.closed || o.state.Step != StepError {
			o.mu.Unlock()
			return err
		}
		o.attempt++
		o.failLocked(o.attempt, err)
		return err
	}

	o.mu.Lock()
	if o.closed || o.state.Step != StepError {
		o.mu.Unlock()
		return o.retryable()
	}
	o.setStateLocked(State{Step: StepIdle, Attempt: o.attempt})
	o.mu.Unlock()

	return o.begin(ctx, identity)
}

func (o *Orchestrator) retryable() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return status.ErrCheckoutClosed
	}
	if o.state.Step != StepError {
		return fmt.Errorf("%w: retry from %s", status.ErrInvalidTransition, o.state.Step)
	}
	return nil
}

// Cancel abandons the current attempt and returns to idle. A pending sign
// request stays with the signer; its result is ignored.
func (o *Orchestrator) Cancel() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return status.ErrCheckoutClosed
	}
	switch o.state.Step {
	case StepAwaitingPayment, StepSigning, StepError:
	default:
		return fmt.Errorf("%w: cancel from %s", status.ErrInvalidTransition, o.state.Step)
	}

	o.attempt++
	o.setStateLocked(State{Step: StepIdle, Attempt: o.attempt})
	o.deps.Monitor.TrackCheckoutOutcome("cancelled")
	return nil
}

// Close tears the checkout down. Results arriving afterwards are dropped.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return
	}
	o.closed = true
	o.attempt++
}

func (o *Orchestrator) paymentSucceeded(ctx context.Context, id uint64) {
	o.mu.Lock()
	if o.staleLocked(id) || o.state.Step != StepAwaitingPayment {
		o.mu.Unlock()
		o.log.Info("Discarding payment result for stale attempt", "attempt", id)
		return
	}
	o.setStateLocked(State{Step: StepSigning, Attempt: id})
	o.mu.Unlock()

	go o.issue(ctx, id)
}

// issue builds, signs, assembles and stores the ticket for attempt id.
func (o *Orchestrator) issue(ctx context.Context, id uint64) {
	identity, err := o.deps.Signer.Identity()
	if err != nil {
		o.fail(id, err)
		return
	}

	payload, err := o.deps.Builder.Build(o.event.ID, o.event.Name, o.event.Date, identity)
	if err != nil {
		o.fail(id, err)
		return
	}

	message, err := ticket.CanonicalBytes(payload)
	if err != nil {
		o.fail(id, err)
		return
	}

	sig, err := o.deps.Signer.Sign(ctx, message)
	if err != nil {
		o.fail(id, err)
		return
	}

	o.mu.Lock()
	if o.staleLocked(id) {
		o.mu.Unlock()
		o.log.Info("Discarding signature for stale attempt", "attempt", id, "ticket_id", payload.TicketID)
		return
	}

	signed, err := o.deps.Assembler.Assemble(payload, sig.Bytes, sig.PublicKey)
	if err != nil {
		o.log.Error("Refusing to assemble ticket", "attempt", id, "error", err)
		o.failLocked(id, err)
		return
	}

	if err := o.deps.Store.Add(ctx, signed); err != nil {
		o.log.Error("Paid ticket was not recorded", "attempt", id, "ticket_id", signed.Payload.TicketID, "error", err)
		o.failLocked(id, &status.TicketNotRecordedError{Ticket: signed, Err: err})
		return
	}

	t := signed
	o.setStateLocked(State{Step: StepComplete, Attempt: id, Ticket: &t})
	o.mu.Unlock()

	o.deps.Monitor.TrackCheckoutOutcome("complete")
	o.log.Info("Ticket issued", "attempt", id, "ticket_id", signed.Payload.TicketID)
	if o.cb.OnSuccess != nil {
		o.cb.OnSuccess(signed)
	}
}

func (o *Orchestrator) fail(id uint64, err error) {
	o.mu.Lock()
	if o.staleLocked(id) {
		o.mu.Unlock()
		o.log.Info("Discarding failure for stale attempt", "attempt", id, "error", err)
		return
	}
	o.failLocked(id, err)
}

// failLocked records err for attempt id and releases o.mu.
func (o *Orchestrator) failLocked(id uint64, err error) {
	st := State{
		Step:      StepError,
		Attempt:   id,
		Err:       err,
		Message:   err.Error(),
		Retryable: true,
	}

	var notRecorded *status.TicketNotRecordedError
	switch {
	case errors.As(err, &notRecorded):
		t := notRecorded.Ticket
		st.Ticket = &t
		st.Unrecorded = true
		st.Retryable = false
	case errors.Is(err, status.ErrAssemblyInvariant):
		st.Err = status.ErrAssemblyInvariant
		st.Message = issueFailedMessage
		st.Retryable = false
	}

	var signErr *status.SigningError
	if errors.As(err, &signErr) {
		st.Retryable = signErr.Retryable()
	}

	o.setStateLocked(st)
	o.mu.Unlock()

	o.deps.Monitor.TrackCheckoutOutcome(outcome(err))
	if o.cb.OnError != nil {
		o.cb.OnError(st.Err)
	}
}

func (o *Orchestrator) staleLocked(id uint64) bool {
	return o.closed || id != o.attempt
}

// setStateLocked keeps the payment id while the attempt stays the same.
func (o *Orchestrator) setStateLocked(st State) {
	if st.PaymentID == "" && st.Attempt == o.state.Attempt {
		st.PaymentID = o.state.PaymentID
	}
	o.state = st
	o.deps.Monitor.TrackCheckoutStep(string(st.Step))
}

func outcome(err error) string {
	switch {
	case errors.Is(err, status.ErrPaymentFailed):
		return "payment_failed"
	case errors.Is(err, status.ErrUserRejected):
		return "user_rejected"
	case errors.Is(err, status.ErrSignerUnavailable):
		return "signer_unavailable"
	case errors.Is(err, status.ErrSignerFailure):
		return "signer_error"
	case errors.Is(err, status.ErrTicketNotRecorded):
		return "not_recorded"
	case errors.Is(err, status.ErrAssemblyInvariant):
		return "assembly_invariant"
	default:
		return "error"
	}
}
