package repositories

import (
	"fmt"
	"time"

	"findr/internal/models"

	"gorm.io/gorm"
)

// ContractStore covers contract reads and escrow status transitions.
type ContractStore interface {
	GetContract(id uint) (*models.Contract, error)
	// TransitionEscrow conditionally moves a contract from one escrow status
	// to another. It reports false when the contract was not in the expected
	// prior status, which is how concurrent release attempts detect that the
	// other caller won.
	TransitionEscrow(contractID uint, from, to string, complete bool) (bool, error)
	SetContractSubmitted(contractID uint) error
	// FindStaleCompleted returns funded contracts whose submission was
	// accepted before the cutoff but whose funds were never released. This
	// is the scheduler's safety net.
	FindStaleCompleted(cutoff time.Time, limit int) ([]models.Contract, error)
}

func (s *store) GetContract(id uint) (*models.Contract, error) {
	var contract models.Contract
	if err := s.db.First(&contract, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrContractNotFound
		}
		return nil, fmt.Errorf("failed to get contract: %w", err)
	}
	return &contract, nil
}

func (s *store) TransitionEscrow(contractID uint, from, to string, complete bool) (bool, error) {
	updates := map[string]interface{}{
		"escrow_status": to,
		"updated_at":    time.Now(),
	}
	if complete {
		now := time.Now()
		updates["is_completed"] = true
		updates["completed_at"] = &now
	}

	result := s.db.Model(&models.Contract{}).
		Where("id = ? AND escrow_status = ?", contractID, from).
		Updates(updates)
	if result.Error != nil {
		return false, fmt.Errorf("failed to transition contract %d: %w", contractID, result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (s *store) SetContractSubmitted(contractID uint) error {
	result := s.db.Model(&models.Contract{}).
		Where("id = ?", contractID).
		Update("has_submission", true)
	if result.Error != nil {
		return fmt.Errorf("failed to flag submission on contract %d: %w", contractID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrContractNotFound
	}
	return nil
}

func (s *store) FindStaleCompleted(cutoff time.Time, limit int) ([]models.Contract, error) {
	var contracts []models.Contract
	err := s.db.
		Joins("JOIN order_submissions ON order_submissions.contract_id = contracts.id").
		Where("contracts.escrow_status = ?", models.EscrowFunded).
		Where("order_submissions.status = ?", models.SubmissionAccepted).
		Where("order_submissions.reviewed_at < ?", cutoff).
		Limit(limit).
		Find(&contracts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find stale completed contracts: %w", err)
	}
	return contracts, nil
}
