package models

import (
	"time"

	"gorm.io/gorm"
)

// Strike statuses.
const (
	StrikeActive  = "active"
	StrikeExpired = "expired"
)

// Strike is one recorded offense against a user. Points is the weight the
// offense contributes toward the ban threshold and is fixed at issue time;
// expiry flips Status but never revises a ban already decided.
type Strike struct {
	gorm.Model
	UserID      uint   `gorm:"not null;index"`
	Level       int    `gorm:"not null"`
	Points      int    `gorm:"not null"`
	OffenseType string `gorm:"not null"`
	Role        string `gorm:"not null"`
	Evidence    string
	IssuedBy    uint      `gorm:"not null"`
	Status      string    `gorm:"not null;default:'active';index"`
	IssuedAt    time.Time `gorm:"not null"`
	ExpiresAt   time.Time `gorm:"not null;index"`
}

// TrainingAssignment is queued for level >= 2 offenses; completion is
// tracked by the marketplace side, the strike engine only creates rows.
type TrainingAssignment struct {
	gorm.Model
	UserID   uint   `gorm:"not null;index"`
	StrikeID uint   `gorm:"not null"`
	Module   string `gorm:"not null"`
	DueAt    time.Time
	Status   string `gorm:"not null;default:'assigned'"`
}
