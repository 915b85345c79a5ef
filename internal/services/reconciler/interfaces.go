package reconciler

import (
	"context"

	"findr/internal/repositories"

	"github.com/shopspring/decimal"
)

// Service deduplicates gateway payment events and feeds the confirmed
// facts into the escrow state machine and the token ledger.
type Service interface {
	// Reconcile applies one verified payment event. Replays of an already
	// recorded reference are a success no-op.
	Reconcile(ctx context.Context, event Event) error

	// HandleWebhook parses, authenticates and reconciles an inbound
	// webhook delivery.
	HandleWebhook(ctx context.Context, body []byte, signature string) error

	// VerifyByReference is the client-initiated pull path: it asks the
	// gateway for the reference's outcome and reconciles it.
	VerifyByReference(ctx context.Context, reference string) error
}

// FundingConfirmer is the slice of the escrow state machine the reconciler
// drives. ConfirmFunding participates in the reconciler's transaction.
type FundingConfirmer interface {
	ConfirmFunding(tx repositories.Store, contractID uint, amountPaid decimal.Decimal) error
}
