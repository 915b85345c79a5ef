package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FinderBalance holds a finder's escrow earnings. TotalEarned only ever
// increases; Available increases on release and decreases on withdrawal.
type FinderBalance struct {
	ID          uint            `gorm:"primarykey"`
	FinderID    uint            `gorm:"uniqueIndex;not null"`
	Available   decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0"`
	TotalEarned decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ClientBalance holds platform credit owed to a client, fed by contract
// cancellation refunds and spendable on future contract payments.
type ClientBalance struct {
	ID        uint            `gorm:"primarykey"`
	ClientID  uint            `gorm:"uniqueIndex;not null"`
	Available decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
