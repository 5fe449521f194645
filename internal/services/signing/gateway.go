// Package signing asks the current identity holder to sign exact byte
// sequences and classifies the ways that can fail.
package signing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"ticket-wallet/internal/status"
	"ticket-wallet/monitoring"
)

// Signer is the identity provider capability: it holds a private key and
// signs on request, possibly after asking the user.
type Signer interface {
	IsAvailable() bool
	PublicIdentity() (string, bool)
	SignMessage(ctx context.Context, message []byte) ([]byte, error)
}

// Signature is a signature together with the identity that produced it.
type Signature struct {
	Bytes     []byte
	PublicKey string
}

type Gateway struct {
	signer  Signer
	log     *slog.Logger
	monitor *monitoring.Monitor
}

func NewGateway(signer Signer, logger *slog.Logger, monitor *monitoring.Monitor) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		signer:  signer,
		log:     logger,
		monitor: monitor,
	}
}

// Identity returns the public identity of the active signer.
func (g *Gateway) Identity() (string, error) {
	if g.signer == nil || !g.signer.IsAvailable() {
		return "", &status.SigningError{Kind: status.SignerUnavailable}
	}

	identity, ok := g.signer.PublicIdentity()
	if !ok || identity == "" {
		return "", &status.SigningError{Kind: status.SignerUnavailable}
	}
	return identity, nil
}

// Sign blocks until the signer answers. Errors are *status.SigningError.
func (g *Gateway) Sign(ctx context.Context, message []byte) (Signature, error) {
	identity, err := g.Identity()
	if err != nil {
		g.monitor.TrackSigning("unavailable", 0)
		return Signature{}, err
	}

	started := time.Now()
	sig, err := g.signer.SignMessage(ctx, message)
	elapsed := time.Since(started)

	if err != nil {
		signErr := classify(err)
		g.monitor.TrackSigning(string(signErr.Kind), elapsed)
		if signErr.Kind == status.SignerError {
			g.log.Error("Signer failed", "identity", identity, "error", err)
		} else {
			g.log.Info("Signing not completed", "identity", identity, "reason", signErr.Kind)
		}
		return Signature{}, signErr
	}

	if len(sig) == 0 {
		g.monitor.TrackSigning(string(status.SignerError), elapsed)
		return Signature{}, &status.SigningError{
			Kind: status.SignerError,
			Err:  errors.New("signer returned an empty signature"),
		}
	}

	g.monitor.TrackSigning("success", elapsed)
	return Signature{Bytes: sig, PublicKey: identity}, nil
}

func classify(err error) *status.SigningError {
	var signErr *status.SigningError
	if errors.As(err, &signErr) {
		return signErr
	}

	switch {
	case errors.Is(err, status.ErrUserRejected):
		return &status.SigningError{Kind: status.UserRejected, Err: err}
	case errors.Is(err, status.ErrSignerUnavailable):
		return &status.SigningError{Kind: status.SignerUnavailable, Err: err}
	default:
		return &status.SigningError{Kind: status.SignerError, Err: err}
	}
}
