// Package gateway wraps the payment provider. The reconciler consumes it
// through the Verifier interface and never sees provider-specific types.
package gateway

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// Verification statuses reported by the provider.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

var (
	ErrTransactionNotFound = errors.New("gateway transaction not found")
	ErrVerificationFailed  = errors.New("gateway verification failed")
)

// VerifiedTransaction is the provider's answer to "what happened to this
// reference": status, settled amount and the payment metadata the checkout
// flow attached.
type VerifiedTransaction struct {
	Reference string
	Status    string
	Amount    decimal.Decimal
	Currency  string
	Metadata  map[string]string
}

// Verifier resolves an external payment reference to its verified outcome.
type Verifier interface {
	VerifyTransaction(ctx context.Context, reference string) (*VerifiedTransaction, error)
}
