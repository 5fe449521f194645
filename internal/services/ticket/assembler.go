package ticket

import (
	"fmt"

	"github.com/mr-tron/base58"

	"ticket-wallet/internal/status"
	"ticket-wallet/models"
)

// Assembler turns a payload and its signature into a SignedTicket.
// In strict mode an owner/signer mismatch panics instead of returning
// ErrAssemblyInvariant.
type Assembler struct {
	strict bool
}

func NewAssembler(strict bool) *Assembler {
	return &Assembler{strict: strict}
}

func (a *Assembler) Assemble(payload models.TicketPayload, signature []byte, publicKey string) (models.SignedTicket, error) {
	if publicKey != payload.OwnerWallet {
		err := fmt.Errorf("%w: signer %q, owner %q", status.ErrAssemblyInvariant, publicKey, payload.OwnerWallet)
		if a.strict {
			panic(err)
		}
		return models.SignedTicket{}, err
	}

	if len(signature) == 0 {
		return models.SignedTicket{}, fmt.Errorf("%w: empty signature", status.ErrInvalidSignature)
	}

	return models.SignedTicket{
		Payload:   payload,
		Signature: base58.Encode(signature),
		PublicKey: publicKey,
		Redeemed:  false,
	}, nil
}
