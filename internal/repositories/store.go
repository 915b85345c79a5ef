// Package repositories provides the data access layer. It owns all database
// operations; services express every ledger-affecting mutation through a
// single Store transaction so balance updates and their transaction records
// can never interleave with a concurrent mutation on the same account.
package repositories

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrContractNotFound    = errors.New("contract not found")
	ErrSubmissionNotFound  = errors.New("submission not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrBalanceNotFound     = errors.New("balance not found")
	ErrDuplicateReference  = errors.New("ledger reference already recorded")
)

// Store is the persistence collaborator consumed by the escrow, reconciler,
// scheduler and strike services. ExecuteInTransaction yields a Store bound
// to a database transaction; every method called on it commits or rolls
// back as one unit.
type Store interface {
	ContractStore
	SubmissionStore
	LedgerStore
	StrikeStore
	UserStore

	ExecuteInTransaction(fn func(Store) error) error
}

type store struct {
	db *gorm.DB
}

// NewStore creates a Store backed by the given gorm database handle.
func NewStore(db *gorm.DB) Store {
	if db == nil {
		panic("db is required")
	}
	return &store{db: db}
}

func (s *store) ExecuteInTransaction(fn func(Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&store{db: tx})
	})
}
