package models

import (
	"time"

	"gorm.io/gorm"
)

// Restriction types, in escalating order of severity.
const (
	RestrictionLimited   = "limited_features"
	RestrictionSuspended = "suspended"
	RestrictionBanned    = "banned"
)

// UserRestriction is a consequence derived by the strike engine when a
// user's cumulative points cross a threshold. Rows are never created
// directly by callers. A nil EndDate means the restriction is permanent.
type UserRestriction struct {
	gorm.Model
	UserID    uint   `gorm:"not null;index"`
	Type      string `gorm:"not null;index"`
	Reason    string `gorm:"not null"`
	EndDate   *time.Time
	Active    bool `gorm:"default:true;index"`
	CreatedBy uint `gorm:"not null"`
}
