package repositories

import (
	"fmt"
	"time"

	"findr/internal/models"
)

// StrikeStore covers strikes, restrictions and training assignments, all
// owned by the strike engine.
type StrikeStore interface {
	CreateStrike(strike *models.Strike) error
	GetActiveStrikes(userID uint) ([]models.Strike, error)
	SumActiveStrikePoints(userID uint) (int, error)
	ExpireStrikes(now time.Time) (int64, error)
	CreateRestriction(restriction *models.UserRestriction) error
	GetActiveRestrictions(userID uint) ([]models.UserRestriction, error)
	DeactivateExpiredRestrictions(now time.Time) (int64, error)
	CreateTrainingAssignment(assignment *models.TrainingAssignment) error
}

func (s *store) CreateStrike(strike *models.Strike) error {
	if err := s.db.Create(strike).Error; err != nil {
		return fmt.Errorf("failed to create strike: %w", err)
	}
	return nil
}

func (s *store) GetActiveStrikes(userID uint) ([]models.Strike, error) {
	var strikes []models.Strike
	err := s.db.
		Where("user_id = ? AND status = ?", userID, models.StrikeActive).
		Order("issued_at DESC").
		Find(&strikes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get strikes for user %d: %w", userID, err)
	}
	return strikes, nil
}

func (s *store) SumActiveStrikePoints(userID uint) (int, error) {
	var total int
	err := s.db.Model(&models.Strike{}).
		Where("user_id = ? AND status = ?", userID, models.StrikeActive).
		Select("COALESCE(SUM(points), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum strike points for user %d: %w", userID, err)
	}
	return total, nil
}

func (s *store) ExpireStrikes(now time.Time) (int64, error) {
	result := s.db.Model(&models.Strike{}).
		Where("status = ? AND expires_at <= ?", models.StrikeActive, now).
		Update("status", models.StrikeExpired)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to expire strikes: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *store) CreateRestriction(restriction *models.UserRestriction) error {
	if err := s.db.Create(restriction).Error; err != nil {
		return fmt.Errorf("failed to create restriction: %w", err)
	}
	return nil
}

func (s *store) GetActiveRestrictions(userID uint) ([]models.UserRestriction, error) {
	var restrictions []models.UserRestriction
	err := s.db.
		Where("user_id = ? AND active = ?", userID, true).
		Order("created_at DESC").
		Find(&restrictions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get restrictions for user %d: %w", userID, err)
	}
	return restrictions, nil
}

func (s *store) DeactivateExpiredRestrictions(now time.Time) (int64, error) {
	result := s.db.Model(&models.UserRestriction{}).
		Where("active = ? AND end_date IS NOT NULL AND end_date <= ?", true, now).
		Update("active", false)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to deactivate restrictions: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *store) CreateTrainingAssignment(assignment *models.TrainingAssignment) error {
	if err := s.db.Create(assignment).Error; err != nil {
		return fmt.Errorf("failed to create training assignment: %w", err)
	}
	return nil
}
