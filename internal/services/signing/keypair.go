package signing

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"

	"ticket-wallet/internal/status"
)

// Request describes one signature the user is asked to approve.
type Request struct {
	ID        string    `json:"id"`
	PublicKey string    `json:"public_key"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Approver decides whether a sign request may proceed. Returning an error
// wrapping status.ErrUserRejected declines it.
type Approver interface {
	RequestApproval(ctx context.Context, req Request) error
}

// Keypair is a local ed25519 signer whose identity is the base58 Solana
// address of its public key. A nil approver signs without asking.
type Keypair struct {
	key       solana.PrivateKey
	approver  Approver
	connected atomic.Bool
}

func NewKeypair(key solana.PrivateKey, approver Approver) *Keypair {
	k := &Keypair{key: key, approver: approver}
	k.connected.Store(true)
	return k
}

// KeypairFromBase58 loads a base58 encoded 64 byte private key.
func KeypairFromBase58(encoded string, approver Approver) (*Keypair, error) {
	key, err := solana.PrivateKeyFromBase58(encoded)
	if err != nil {
		return nil, fmt.Errorf("parse signer key: %w", err)
	}
	return NewKeypair(key, approver), nil
}

func GenerateKeypair(approver Approver) (*Keypair, error) {
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate signer key: %w", err)
	}
	return NewKeypair(key, approver), nil
}

func (k *Keypair) Connect()    { k.connected.Store(true) }
func (k *Keypair) Disconnect() { k.connected.Store(false) }

func (k *Keypair) IsAvailable() bool {
	return k.connected.Load() && len(k.key) == 64
}

func (k *Keypair) PublicIdentity() (string, bool) {
	if !k.IsAvailable() {
		return "", false
	}
	return k.key.PublicKey().String(), true
}

func (k *Keypair) SignMessage(ctx context.Context, message []byte) ([]byte, error) {
	identity, ok := k.PublicIdentity()
	if !ok {
		return nil, fmt.Errorf("%w: keypair disconnected", status.ErrSignerUnavailable)
	}

	if k.approver != nil {
		req := Request{
			PublicKey: identity,
			Message:   string(message),
			CreatedAt: time.Now(),
		}
		if err := k.approver.RequestApproval(ctx, req); err != nil {
			return nil, err
		}
		if !k.IsAvailable() {
			return nil, fmt.Errorf("%w: keypair disconnected during approval", status.ErrSignerUnavailable)
		}
	}

	sig, err := k.key.Sign(message)
	if err != nil {
		return nil, err
	}
	return sig[:], nil
}
