package models

import (
	"time"

	"gorm.io/gorm"
)

// User roles.
const (
	RoleClient = "client"
	RoleFinder = "finder"
	RoleAdmin  = "admin"
)

type User struct {
	gorm.Model
	Email        string `gorm:"uniqueIndex;not null"`
	Password     string `gorm:"not null"`
	Name         string `gorm:"not null"`
	Role         string `gorm:"default:'client'"`
	Status       string `gorm:"default:'active'"`
	Banned       bool   `gorm:"default:false"`
	ClientTokens int    `gorm:"default:0"`
	FinderTokens int    `gorm:"default:0"`
	TokenVersion int    `gorm:"default:1"`
	LastLoginAt  time.Time
}
