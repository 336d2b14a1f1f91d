package funding

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Gateway abstracts the external payment processor that moves real money
// in and out of the platform. The production integration is out of scope;
// StaticGateway simulates approvals.
type Gateway interface {
	// AuthorizeTopUp approves pulling funds from the client's instrument.
	AuthorizeTopUp(ctx context.Context, auth TopUpAuthorization) (Decision, error)
	// SettlePayout pushes funds to the stylist's payout destination.
	SettlePayout(ctx context.Context, destination string, amount int64) (Decision, error)
}

// TopUpAuthorization carries the card details for a top-up.
type TopUpAuthorization struct {
	CardNumber string
	Expiry     string
	CVV        string
	Amount     int64
}

// Decision is the gateway's answer.
type Decision struct {
	Approved  bool
	Reference string
}

// StaticGateway approves everything that passes basic validation. Dev and
// test stand-in for a real processor.
type StaticGateway struct{}

// AuthorizeTopUp approves any syntactically valid card.
func (StaticGateway) AuthorizeTopUp(_ context.Context, auth TopUpAuthorization) (Decision, error) {
	if err := validateCardNumber(auth.CardNumber); err != nil {
		return Decision{}, err
	}
	return Decision{Approved: true, Reference: "sim_" + uuid.NewString()}, nil
}

// SettlePayout approves any non-empty destination.
func (StaticGateway) SettlePayout(_ context.Context, destination string, _ int64) (Decision, error) {
	if destination == "" {
		return Decision{}, fmt.Errorf("payout destination is required")
	}
	return Decision{Approved: true, Reference: "sim_" + uuid.NewString()}, nil
}

// validateCardNumber runs a Luhn check over the digits.
func validateCardNumber(number string) error {
	digits := strings.ReplaceAll(number, " ", "")
	if len(digits) < 12 || len(digits) > 19 {
		return fmt.Errorf("invalid card number length")
	}
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if d < 0 || d > 9 {
			return fmt.Errorf("card number must be numeric")
		}
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	if sum%10 != 0 {
		return fmt.Errorf("invalid card number")
	}
	return nil
}
