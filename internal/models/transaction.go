package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ledger transaction types
const (
	TxTypeContractPayment = "contract_payment"
	TxTypeEscrowRelease   = "escrow_release"
	TxTypeEscrowRefund    = "escrow_refund"
	TxTypeFinderTokens    = "findertoken_purchase"
	TxTypeClientTokens    = "clienttoken_purchase"
	TxTypeProposalCharge  = "proposal_charge"
	TxTypeMonthlyGrant    = "monthly_grant"
	TxTypeWithdrawal      = "withdrawal"
	TxTypeWithdrawalFee   = "withdrawal_fee"
)

// LedgerTransaction is an immutable record of one balance-affecting event.
// Reference carries the external gateway reference (tx_ref) when the event
// originated from a payment; the unique index on it is the idempotency
// guard against webhook replays.
type LedgerTransaction struct {
	ID          uint            `gorm:"primarykey"`
	UserID      uint            `gorm:"not null;index"`
	FinderID    *uint           `gorm:"index"`
	ContractID  *uint           `gorm:"index"`
	Type        string          `gorm:"not null;index"`
	Amount      decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	Description string
	Reference   *string `gorm:"uniqueIndex"`
	Metadata    JSON    `gorm:"type:jsonb"`
	CreatedAt   time.Time
}

// NewReference builds a unique reference for ledger rows that originate
// inside the platform rather than from the payment gateway.
func NewReference(kind string) *string {
	ref := fmt.Sprintf("%s_%s", kind, uuid.NewString())
	return &ref
}
