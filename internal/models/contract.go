package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Escrow statuses. A contract only moves forward:
// pending -> funded -> released | cancelled.
const (
	EscrowPending   = "pending"
	EscrowFunded    = "funded"
	EscrowReleased  = "released"
	EscrowCancelled = "cancelled"
)

// Contract represents one hire of a finder by a client. It is a financial
// record: rows are never deleted, and Amount is immutable after creation.
type Contract struct {
	gorm.Model
	ClientID      uint            `gorm:"not null;index"`
	FinderID      uint            `gorm:"not null;index"`
	Title         string          `gorm:"not null"`
	Amount        decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	EscrowStatus  string          `gorm:"not null;default:'pending';index"`
	IsCompleted   bool            `gorm:"default:false"`
	CompletedAt   *time.Time
	HasSubmission bool `gorm:"default:false"`
}
