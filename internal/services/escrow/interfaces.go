package escrow

import (
	"context"

	"findr/internal/models"
	"findr/internal/repositories"

	"github.com/shopspring/decimal"
)

// Service is the escrow state machine. It owns every status mutation of a
// contract after creation and is the only component allowed to move money
// between escrow and balances.
type Service interface {
	// ConfirmFunding applies a verified contract payment and moves the
	// contract from pending to funded. It runs against the caller's store,
	// so the reconciler can wrap it in one transaction with the ledger
	// append. Replays (contract already funded or beyond) are a no-op.
	ConfirmFunding(tx repositories.Store, contractID uint, amountPaid decimal.Decimal) error

	// SubmitWork records the finder's delivery and starts the review window.
	SubmitWork(ctx context.Context, contractID, finderID uint, text string, attachments models.JSON) (*models.OrderSubmission, error)

	// ReviewSubmission applies the client's accept/reject verdict. Accept
	// releases the escrowed funds through ReleaseFunds.
	ReviewSubmission(ctx context.Context, submissionID, clientID uint, decision ReviewDecision, feedback string) error

	// ReleaseFunds is the single release primitive shared by manual accept,
	// auto-release and admin completion. It reports whether this call
	// performed the release; an already-released contract is a no-op success.
	ReleaseFunds(ctx context.Context, contractID uint, note string) (bool, error)

	// CancelContract refunds the client and closes the contract. Admin only.
	CancelContract(ctx context.Context, contractID, adminID uint, reason string) error

	// Withdraw pays out a finder's available balance net of the platform fee.
	Withdraw(ctx context.Context, finderID uint, amount decimal.Decimal) (*WithdrawalReceipt, error)
}

// Notifier delivers best-effort notifications. Failures are logged and
// never roll back the settlement that triggered them.
type Notifier interface {
	Notify(ctx context.Context, event string, recipientID uint, payload map[string]interface{}) error
}
