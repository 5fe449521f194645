package ticket

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"ticket-wallet/internal/status"
	"ticket-wallet/models"
)

// Verify checks that code.Signature is a valid ed25519 signature by
// code.PublicKey over the canonical bytes of code.Payload, and that the
// signer owns the ticket.
func Verify(code models.TicketCode) error {
	if code.PublicKey != code.Payload.OwnerWallet {
		return fmt.Errorf("%w: signer does not own ticket %s", status.ErrInvalidSignature, code.Payload.TicketID)
	}

	pubKey, err := solana.PublicKeyFromBase58(code.PublicKey)
	if err != nil {
		return fmt.Errorf("%w: public key: %v", status.ErrInvalidTicketCode, err)
	}

	signature, err := solana.SignatureFromBase58(code.Signature)
	if err != nil {
		return fmt.Errorf("%w: signature: %v", status.ErrInvalidTicketCode, err)
	}

	message, err := CanonicalBytes(code.Payload)
	if err != nil {
		return fmt.Errorf("%w: %v", status.ErrInvalidTicketCode, err)
	}

	if !signature.Verify(pubKey, message) {
		return fmt.Errorf("%w: ticket %s", status.ErrInvalidSignature, code.Payload.TicketID)
	}

	return nil
}
