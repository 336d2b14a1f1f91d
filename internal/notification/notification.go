package notification

import (
	"context"
	"log/slog"
)

const (
	// KindBookingConfirmed tells a client their booking was confirmed.
	KindBookingConfirmed = "booking_confirmed"
	// KindEscrowReleased tells a stylist they were paid for a booking.
	KindEscrowReleased = "escrow_released"
	// KindRefundIssued tells a client their escrowed funds were returned.
	KindRefundIssued = "refund_issued"
	// KindDisputeResolved tells a party a dispute decision was applied.
	KindDisputeResolved = "dispute_resolved"
	// KindPayoutSettled tells a stylist a payout finished settling.
	KindPayoutSettled = "payout_settled"
)

// Message describes a notification payload.
type Message struct {
	Kind        string
	Destination string
	Body        string
}

// Notifier delivers notifications to downstream systems. Delivery is fire
// and forget; failures never roll back the operation that triggered them.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier is a stub implementation that writes notifications to the
// structured logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier stub.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification", "kind", message.Kind, "destination", message.Destination, "body", message.Body)
	return nil
}
