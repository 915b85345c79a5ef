package repositories

import (
	"fmt"
	"time"

	"findr/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SubmissionStore covers order submissions, including the due-submission
// scan the auto-release scheduler runs on every tick.
type SubmissionStore interface {
	GetSubmission(id uint) (*models.OrderSubmission, error)
	GetSubmissionByContract(contractID uint) (*models.OrderSubmission, error)
	// UpsertSubmission writes the contract's single submission row,
	// overwriting a previously rejected one.
	UpsertSubmission(sub *models.OrderSubmission) error
	UpdateSubmissionReview(id uint, status, feedback string, reviewedAt time.Time) error
	// FindDueSubmissions returns submitted submissions whose auto-release
	// time has elapsed and whose contract still holds funds in escrow.
	FindDueSubmissions(now time.Time, limit int) ([]models.OrderSubmission, error)
}

func (s *store) GetSubmission(id uint) (*models.OrderSubmission, error) {
	var sub models.OrderSubmission
	if err := s.db.First(&sub, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return &sub, nil
}

func (s *store) GetSubmissionByContract(contractID uint) (*models.OrderSubmission, error) {
	var sub models.OrderSubmission
	if err := s.db.Where("contract_id = ?", contractID).First(&sub).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to get submission for contract %d: %w", contractID, err)
	}
	return &sub, nil
}

func (s *store) UpsertSubmission(sub *models.OrderSubmission) error {
	err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "contract_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"finder_id", "text", "attachments", "status",
			"submitted_at", "auto_release_at", "reviewed_at", "feedback", "updated_at",
		}),
	}).Create(sub).Error
	if err != nil {
		return fmt.Errorf("failed to upsert submission: %w", err)
	}
	return nil
}

func (s *store) UpdateSubmissionReview(id uint, status, feedback string, reviewedAt time.Time) error {
	result := s.db.Model(&models.OrderSubmission{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      status,
			"feedback":    feedback,
			"reviewed_at": reviewedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update submission %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrSubmissionNotFound
	}
	return nil
}

func (s *store) FindDueSubmissions(now time.Time, limit int) ([]models.OrderSubmission, error) {
	var subs []models.OrderSubmission
	err := s.db.
		Joins("JOIN contracts ON contracts.id = order_submissions.contract_id").
		Where("order_submissions.status = ?", models.SubmissionSubmitted).
		Where("order_submissions.auto_release_at <= ?", now).
		Where("contracts.escrow_status = ?", models.EscrowFunded).
		Limit(limit).
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find due submissions: %w", err)
	}
	return subs, nil
}
