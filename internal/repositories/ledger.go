package repositories

import (
	"errors"
	"fmt"

	"findr/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerStore covers balances and the append-only transaction log. The
// unique index on ledger references makes AppendTransaction the idempotency
// gate for replayed payment events: a second append with the same reference
// fails with ErrDuplicateReference instead of double-crediting.
type LedgerStore interface {
	AppendTransaction(tx *models.LedgerTransaction) error
	FindTransactionByReference(reference string) (*models.LedgerTransaction, error)
	GetFinderBalance(finderID uint) (*models.FinderBalance, error)
	CreditFinderBalance(finderID uint, amount decimal.Decimal) error
	DebitFinderBalance(finderID uint, amount decimal.Decimal) error
	CreditClientBalance(clientID uint, amount decimal.Decimal) error
	CreditClientTokens(userID uint, tokens int) error
	CreditFinderTokens(userID uint, tokens int) error
}

func (s *store) AppendTransaction(tx *models.LedgerTransaction) error {
	if err := s.db.Create(tx).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateReference
		}
		return fmt.Errorf("failed to append ledger transaction: %w", err)
	}
	return nil
}

func (s *store) FindTransactionByReference(reference string) (*models.LedgerTransaction, error) {
	var tx models.LedgerTransaction
	if err := s.db.Where("reference = ?", reference).First(&tx).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to look up reference %s: %w", reference, err)
	}
	return &tx, nil
}

func (s *store) GetFinderBalance(finderID uint) (*models.FinderBalance, error) {
	var balance models.FinderBalance
	if err := s.db.Where("finder_id = ?", finderID).First(&balance).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrBalanceNotFound
		}
		return nil, fmt.Errorf("failed to get balance for finder %d: %w", finderID, err)
	}
	return &balance, nil
}

// CreditFinderBalance applies the delta in a single statement so the read
// and write cannot interleave with a concurrent credit on the same row.
func (s *store) CreditFinderBalance(finderID uint, amount decimal.Decimal) error {
	err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "finder_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"available":    gorm.Expr("finder_balances.available + ?", amount),
			"total_earned": gorm.Expr("finder_balances.total_earned + ?", amount),
		}),
	}).Create(&models.FinderBalance{
		FinderID:    finderID,
		Available:   amount,
		TotalEarned: amount,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to credit finder %d: %w", finderID, err)
	}
	return nil
}

func (s *store) DebitFinderBalance(finderID uint, amount decimal.Decimal) error {
	result := s.db.Model(&models.FinderBalance{}).
		Where("finder_id = ? AND available >= ?", finderID, amount).
		Update("available", gorm.Expr("available - ?", amount))
	if result.Error != nil {
		return fmt.Errorf("failed to debit finder %d: %w", finderID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrBalanceNotFound
	}
	return nil
}

func (s *store) CreditClientBalance(clientID uint, amount decimal.Decimal) error {
	err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "client_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"available": gorm.Expr("client_balances.available + ?", amount),
		}),
	}).Create(&models.ClientBalance{
		ClientID:  clientID,
		Available: amount,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to credit client %d: %w", clientID, err)
	}
	return nil
}

func (s *store) CreditClientTokens(userID uint, tokens int) error {
	return s.creditTokens(userID, "client_tokens", tokens)
}

func (s *store) CreditFinderTokens(userID uint, tokens int) error {
	return s.creditTokens(userID, "finder_tokens", tokens)
}

func (s *store) creditTokens(userID uint, column string, tokens int) error {
	result := s.db.Model(&models.User{}).
		Where("id = ?", userID).
		Update(column, gorm.Expr(column+" + ?", tokens))
	if result.Error != nil {
		return fmt.Errorf("failed to credit %s for user %d: %w", column, userID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
