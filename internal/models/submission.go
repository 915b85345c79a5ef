package models

import (
	"time"

	"gorm.io/gorm"
)

// Submission statuses.
const (
	SubmissionSubmitted = "submitted"
	SubmissionAccepted  = "accepted"
	SubmissionRejected  = "rejected"
)

// OrderSubmission is the finder's delivered work for a contract. A contract
// has at most one row; resubmission after a rejection overwrites it, which
// also recomputes AutoReleaseAt from the new submission time.
type OrderSubmission struct {
	gorm.Model
	ContractID    uint   `gorm:"uniqueIndex;not null"`
	FinderID      uint   `gorm:"not null;index"`
	Text          string `gorm:"not null"`
	Attachments   JSON   `gorm:"type:jsonb"`
	Status        string `gorm:"not null;default:'submitted';index"`
	SubmittedAt   time.Time
	AutoReleaseAt time.Time `gorm:"index"`
	ReviewedAt    *time.Time
	Feedback      string
}
