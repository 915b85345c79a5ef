package strike

import (
	"time"

	"findr/internal/models"
)

// Default business constants. Durations and the ban threshold are
// configuration, not rules spread through the code.
const (
	DefaultBanThreshold  = 10
	DefaultStrikeTTL     = 90 * 24 * time.Hour
	DefaultSweepInterval = time.Hour
)

// Offense describes one entry of the offense catalog.
type Offense struct {
	Label string
	Level int
}

// offenseKey identifies an offense for a specific role; the same label can
// carry a different weight for clients and finders.
type offenseKey struct {
	OffenseType string
	Role        string
}

// Consequence is what a strike level costs beyond its points.
type Consequence struct {
	Points          int
	RestrictionType string // empty = warning only
	Duration        time.Duration
}

// Config holds the strike engine's tunables: the offense catalog, the
// level consequence table and the ban threshold.
type Config struct {
	BanThreshold int
	StrikeTTL    time.Duration
	Levels       map[int]Consequence
	Catalog      map[offenseKey]Offense
}

// DefaultConfig returns the platform's standard moderation policy.
func DefaultConfig() Config {
	return Config{
		BanThreshold: DefaultBanThreshold,
		StrikeTTL:    DefaultStrikeTTL,
		Levels: map[int]Consequence{
			1: {Points: 1},
			2: {Points: 2, RestrictionType: models.RestrictionLimited, Duration: 3 * 24 * time.Hour},
			3: {Points: 3, RestrictionType: models.RestrictionLimited, Duration: 7 * 24 * time.Hour},
			4: {Points: 4, RestrictionType: models.RestrictionSuspended, Duration: 14 * 24 * time.Hour},
			5: {Points: 5, RestrictionType: models.RestrictionSuspended, Duration: 30 * 24 * time.Hour},
		},
		Catalog: map[offenseKey]Offense{
			{"late_delivery", models.RoleFinder}:        {Label: "Repeated late delivery", Level: 1},
			{"poor_quality", models.RoleFinder}:         {Label: "Substandard delivery", Level: 2},
			{"spam_proposals", models.RoleFinder}:       {Label: "Proposal spam", Level: 2},
			{"misleading_listing", models.RoleClient}:   {Label: "Misleading task listing", Level: 2},
			{"abusive_language", models.RoleFinder}:     {Label: "Abusive communication", Level: 3},
			{"abusive_language", models.RoleClient}:     {Label: "Abusive communication", Level: 3},
			{"fake_task", models.RoleClient}:            {Label: "Fabricated task posting", Level: 3},
			{"off_platform_payment", models.RoleFinder}: {Label: "Off-platform payment solicitation", Level: 4},
			{"off_platform_payment", models.RoleClient}: {Label: "Off-platform payment solicitation", Level: 4},
			{"harassment", models.RoleFinder}:           {Label: "Harassment", Level: 4},
			{"harassment", models.RoleClient}:           {Label: "Harassment", Level: 4},
			{"payment_evasion", models.RoleClient}:      {Label: "Escrow payment evasion", Level: 5},
			{"fraud", models.RoleFinder}:                {Label: "Fraud", Level: 5},
			{"fraud", models.RoleClient}:                {Label: "Fraud", Level: 5},
		},
	}
}

// IssueStrikeInput is one offense report.
type IssueStrikeInput struct {
	UserID      uint   `json:"user_id"`
	OffenseType string `json:"offense_type"`
	Role        string `json:"role"`
	Evidence    string `json:"evidence"`
	IssuedBy    uint   `json:"-"`
}

// StrikeResult reports the outcome of issuing a strike.
type StrikeResult struct {
	Strike      *models.Strike `json:"strike"`
	TotalPoints int            `json:"total_points"`
	Banned      bool           `json:"banned"`
}

// RestrictionSnapshot is the composed view of a user's standing.
type RestrictionSnapshot struct {
	UserID       uint                     `json:"user_id"`
	Restrictions []models.UserRestriction `json:"restrictions"`
	Strikes      []models.Strike          `json:"strikes"`
	TotalPoints  int                      `json:"total_points"`
	CanPost      bool                     `json:"can_post"`
	CanApply     bool                     `json:"can_apply"`
	CanMessage   bool                     `json:"can_message"`
}

// SweepResult counts what one expiry pass aged out.
type SweepResult struct {
	StrikesExpired          int64
	RestrictionsDeactivated int64
}
