package payment

import (
	"context"
	"errors"

	pubnub "github.com/pubnub/go/v7"

	"ticket-wallet/internal/status"
)

// Listen subscribes to the payment notification channel and resolves
// charges until ctx is done.
func (s *Service) Listen(ctx context.Context, pn *pubnub.PubNub, channel string) {
	listener := pubnub.NewListener()
	pn.AddListener(listener)
	pn.Subscribe().
		Channels([]string{channel}).
		Execute()

	defer func() {
		pn.Unsubscribe().Channels([]string{channel}).Execute()
		pn.RemoveListener(listener)
	}()

	for {
		select {
		case st := <-listener.Status:
			switch st.Category {
			case pubnub.PNConnectedCategory:
				s.log.Info("Connected to payment channel", "channel", channel)
			case pubnub.PNReconnectedCategory:
				s.log.Info("Reconnected to payment channel", "channel", channel)
			case pubnub.PNDisconnectedCategory:
				s.log.Warn("Disconnected from payment channel", "channel", channel)
			case pubnub.PNAccessDeniedCategory:
				s.log.Error("Access denied on payment channel", "channel", channel)
			}

		case message := <-listener.Message:
			s.handleMessage(ctx, message.Message)

		case <-ctx.Done():
			s.log.Info("Payment listener stopped", "channel", channel)
			return
		}
	}
}

func (s *Service) handleMessage(ctx context.Context, raw any) {
	n, err := decodeNotification(raw)
	if err != nil {
		s.log.Error("Error parsing payment notification", "error", err)
		return
	}

	if err := s.Resolve(ctx, n); err != nil {
		if errors.Is(err, status.ErrChargeNotFound) {
			s.log.Debug("Ignoring notification for unknown charge", "payment_id", n.PaymentID)
			return
		}
		s.log.Error("Failed to resolve payment", "payment_id", n.PaymentID, "error", err)
	}
}
