package escrow

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReviewDecision is the client's verdict on a submission.
type ReviewDecision string

const (
	DecisionAccept ReviewDecision = "accept"
	DecisionReject ReviewDecision = "reject"
)

// Default configuration values
const (
	DefaultReviewWindow = 48 * time.Hour
)

// Config holds the escrow state machine's tunable business constants.
type Config struct {
	// ReviewWindow is how long the client has to review a submission
	// before the scheduler force-releases the funds.
	ReviewWindow time.Duration
	// WithdrawalFeePercent is the platform fee charged when a finder
	// withdraws. Releases are always gross; the fee applies only here.
	WithdrawalFeePercent decimal.Decimal
}

// WithdrawalReceipt reports the split of a completed withdrawal.
type WithdrawalReceipt struct {
	FinderID uint            `json:"finder_id"`
	Gross    decimal.Decimal `json:"gross"`
	Fee      decimal.Decimal `json:"fee"`
	Net      decimal.Decimal `json:"net"`
}
