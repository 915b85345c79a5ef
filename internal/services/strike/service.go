// Package strike implements the violation-enforcement engine: offenses
// accumulate strike points, points derive restrictions, and crossing the
// ban threshold is an irreversible transition only an administrator can
// undo.
package strike

import (
	"context"
	"fmt"
	"log"
	"time"

	"findr/internal/models"
	"findr/internal/repositories"
)

const snapshotTTL = 5 * time.Minute

// Service is the strike engine. Strikes and restrictions are owned here;
// nothing else creates either.
type Service interface {
	IssueStrike(ctx context.Context, input IssueStrikeInput) (*StrikeResult, error)
	GetUserRestrictions(ctx context.Context, userID uint) (*RestrictionSnapshot, error)
	// ExpireSweep ages out strikes and restrictions whose windows have
	// passed. It never resurrects point totals already counted toward a
	// ban decision.
	ExpireSweep(ctx context.Context) (SweepResult, error)
}

// SnapshotCache caches restriction snapshots; they are read on every
// authenticated request but only change when the engine acts.
type SnapshotCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	RestrictionKey(userID uint) string
	InvalidateRestrictions(ctx context.Context, userID uint) error
}

// Notifier delivers best-effort notifications.
type Notifier interface {
	Notify(ctx context.Context, event string, recipientID uint, payload map[string]interface{}) error
}

type service struct {
	store    repositories.Store
	cache    SnapshotCache
	notifier Notifier
	config   Config
}

// NewService creates a new strike service. Cache is optional.
func NewService(store repositories.Store, cache SnapshotCache, notifier Notifier, config Config) Service {
	if store == nil {
		panic("store is required")
	}
	if notifier == nil {
		panic("notifier is required")
	}
	if config.BanThreshold == 0 {
		config.BanThreshold = DefaultBanThreshold
	}
	if config.StrikeTTL == 0 {
		config.StrikeTTL = DefaultStrikeTTL
	}
	if config.Levels == nil {
		config.Levels = DefaultConfig().Levels
	}
	if config.Catalog == nil {
		config.Catalog = DefaultConfig().Catalog
	}

	return &service{
		store:    store,
		cache:    cache,
		notifier: notifier,
		config:   config,
	}
}

func (s *service) IssueStrike(ctx context.Context, input IssueStrikeInput) (*StrikeResult, error) {
	offense, ok := s.config.Catalog[offenseKey{input.OffenseType, input.Role}]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrInvalidOffense, input.OffenseType, input.Role)
	}
	consequence, ok := s.config.Levels[offense.Level]
	if !ok {
		return nil, fmt.Errorf("%w: level %d", ErrInvalidLevel, offense.Level)
	}

	now := time.Now()
	strike := &models.Strike{
		UserID:      input.UserID,
		Level:       offense.Level,
		Points:      consequence.Points,
		OffenseType: input.OffenseType,
		Role:        input.Role,
		Evidence:    input.Evidence,
		IssuedBy:    input.IssuedBy,
		Status:      models.StrikeActive,
		IssuedAt:    now,
		ExpiresAt:   now.Add(s.config.StrikeTTL),
	}

	var result StrikeResult
	err := s.store.ExecuteInTransaction(func(tx repositories.Store) error {
		current, err := tx.SumActiveStrikePoints(input.UserID)
		if err != nil {
			return err
		}
		newTotal := current + consequence.Points

		if err := tx.CreateStrike(strike); err != nil {
			return err
		}

		// The ban threshold takes precedence over any level handling.
		if newTotal >= s.config.BanThreshold {
			if err := tx.CreateRestriction(&models.UserRestriction{
				UserID:    input.UserID,
				Type:      models.RestrictionBanned,
				Reason:    fmt.Sprintf("%d strike points reached the ban threshold", newTotal),
				EndDate:   nil,
				Active:    true,
				CreatedBy: input.IssuedBy,
			}); err != nil {
				return err
			}
			if err := tx.MarkUserBanned(input.UserID); err != nil {
				return err
			}
			result = StrikeResult{Strike: strike, TotalPoints: newTotal, Banned: true}
			return nil
		}

		if consequence.RestrictionType != "" {
			end := now.Add(consequence.Duration)
			if err := tx.CreateRestriction(&models.UserRestriction{
				UserID:    input.UserID,
				Type:      consequence.RestrictionType,
				Reason:    fmt.Sprintf("level %d offense: %s", offense.Level, offense.Label),
				EndDate:   &end,
				Active:    true,
				CreatedBy: input.IssuedBy,
			}); err != nil {
				return err
			}
		}

		if offense.Level >= 2 {
			if err := tx.CreateTrainingAssignment(&models.TrainingAssignment{
				UserID:   input.UserID,
				StrikeID: strike.ID,
				Module:   "community-standards",
				DueAt:    now.Add(14 * 24 * time.Hour),
			}); err != nil {
				return err
			}
		}

		result = StrikeResult{Strike: strike, TotalPoints: newTotal, Banned: false}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, input.UserID)

	if result.Banned {
		log.Printf("user %d banned at %d strike points", input.UserID, result.TotalPoints)
	}
	event := "strike.issued"
	if result.Banned {
		event = "account.banned"
	}
	if err := s.notifier.Notify(ctx, event, input.UserID, map[string]interface{}{
		"offense": offense.Label,
		"level":   offense.Level,
		"points":  result.TotalPoints,
	}); err != nil {
		log.Printf("notification %s for user %d failed: %v", event, input.UserID, err)
	}

	return &result, nil
}

func (s *service) GetUserRestrictions(ctx context.Context, userID uint) (*RestrictionSnapshot, error) {
	if s.cache != nil {
		var cached RestrictionSnapshot
		if found, err := s.cache.Get(ctx, s.cache.RestrictionKey(userID), &cached); err == nil && found {
			return &cached, nil
		}
	}

	restrictions, err := s.store.GetActiveRestrictions(userID)
	if err != nil {
		return nil, err
	}
	strikes, err := s.store.GetActiveStrikes(userID)
	if err != nil {
		return nil, err
	}
	total, err := s.store.SumActiveStrikePoints(userID)
	if err != nil {
		return nil, err
	}

	snapshot := &RestrictionSnapshot{
		UserID:       userID,
		Restrictions: restrictions,
		Strikes:      strikes,
		TotalPoints:  total,
		CanPost:      true,
		CanApply:     true,
		CanMessage:   true,
	}
	now := time.Now()
	for _, r := range restrictions {
		if r.EndDate != nil && r.EndDate.Before(now) {
			// Expired but not yet swept; treat as inactive.
			continue
		}
		switch r.Type {
		case models.RestrictionSuspended, models.RestrictionBanned:
			snapshot.CanPost = false
			snapshot.CanApply = false
			snapshot.CanMessage = false
		case models.RestrictionLimited:
			snapshot.CanPost = false
			snapshot.CanApply = false
		}
	}

	if s.cache != nil {
		if err := s.cache.SetWithTTL(ctx, s.cache.RestrictionKey(userID), snapshot, snapshotTTL); err != nil {
			log.Printf("failed to cache restriction snapshot for user %d: %v", userID, err)
		}
	}
	return snapshot, nil
}

func (s *service) ExpireSweep(ctx context.Context) (SweepResult, error) {
	now := time.Now()
	var result SweepResult

	expired, err := s.store.ExpireStrikes(now)
	if err != nil {
		return result, err
	}
	result.StrikesExpired = expired

	deactivated, err := s.store.DeactivateExpiredRestrictions(now)
	if err != nil {
		return result, err
	}
	result.RestrictionsDeactivated = deactivated

	if expired > 0 || deactivated > 0 {
		log.Printf("strike sweep: %d strike(s) expired, %d restriction(s) deactivated", expired, deactivated)
	}
	return result, nil
}

func (s *service) invalidate(ctx context.Context, userID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateRestrictions(ctx, userID); err != nil {
		log.Printf("failed to invalidate restriction snapshot for user %d: %v", userID, err)
	}
}
