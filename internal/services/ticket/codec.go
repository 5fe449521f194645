package ticket

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"ticket-wallet/internal/status"
	"ticket-wallet/models"
)

// CanonicalBytes is the exact byte sequence that gets signed: compact JSON
// in the fixed field order of models.TicketPayload, without HTML escaping.
func CanonicalBytes(p models.TicketPayload) ([]byte, error) {
	return marshalCompact(p)
}

// EncodeCode serializes a ticket code for a QR code or scanner.
func EncodeCode(code models.TicketCode) (string, error) {
	b, err := marshalCompact(code)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeCode parses a scanned ticket code. Unknown fields and trailing data
// are rejected.
func DecodeCode(raw string) (models.TicketCode, error) {
	var code models.TicketCode

	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&code); err != nil {
		return models.TicketCode{}, fmt.Errorf("%w: %v", status.ErrInvalidTicketCode, err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return models.TicketCode{}, fmt.Errorf("%w: trailing data after code", status.ErrInvalidTicketCode)
	}

	p := code.Payload
	if p.TicketID == "" || p.EventID == "" || p.OwnerWallet == "" || code.Signature == "" || code.PublicKey == "" {
		return models.TicketCode{}, fmt.Errorf("%w: missing fields", status.ErrInvalidTicketCode)
	}

	return code, nil
}

func marshalCompact(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func encodeTickets(tickets []models.SignedTicket) (string, error) {
	if tickets == nil {
		tickets = []models.SignedTicket{}
	}
	b, err := marshalCompact(tickets)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeTickets(raw string) ([]models.SignedTicket, error) {
	var tickets []models.SignedTicket
	if err := json.Unmarshal([]byte(raw), &tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}
