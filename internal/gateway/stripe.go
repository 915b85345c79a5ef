package gateway

import (
	"context"
	"fmt"
	"strings"

	"findr/internal/config"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/paymentintent"
)

// StripeVerifier verifies payment references against Stripe payment
// intents. The checkout flow stores our metadata (type, user_id,
// contract_id, tokens) on the intent, so verification returns everything
// the reconciler needs.
type StripeVerifier struct{}

// NewStripeVerifier configures the Stripe client from the environment.
func NewStripeVerifier() *StripeVerifier {
	stripe.Key = config.GetEnv("STRIPE_SECRET_KEY", "")
	return &StripeVerifier{}
}

func (v *StripeVerifier) VerifyTransaction(ctx context.Context, reference string) (*VerifiedTransaction, error) {
	pi, err := paymentintent.Get(reference, nil)
	if err != nil {
		if stripeErr, ok := err.(*stripe.Error); ok && stripeErr.Code == stripe.ErrorCodeResourceMissing {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}

	status := StatusFailed
	if pi.Status == stripe.PaymentIntentStatusSucceeded {
		status = StatusSuccess
	}

	// Stripe amounts are in the smallest currency unit.
	amount := decimal.NewFromInt(pi.Amount).Div(decimal.NewFromInt(100))

	return &VerifiedTransaction{
		Reference: reference,
		Status:    status,
		Amount:    amount,
		Currency:  strings.ToUpper(string(pi.Currency)),
		Metadata:  pi.Metadata,
	}, nil
}
