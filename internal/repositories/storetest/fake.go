// Package storetest provides an in-memory Store for service tests. It
// mirrors the SQL semantics the services rely on: guarded escrow
// transitions, the unique ledger reference index and transaction
// rollback on error.
package storetest

import (
	"maps"
	"slices"
	"time"

	"findr/internal/models"
	"findr/internal/repositories"

	"github.com/shopspring/decimal"
)

type Fake struct {
	Contracts      map[uint]models.Contract
	Submissions    map[uint]models.OrderSubmission
	Ledger         []models.LedgerTransaction
	FinderBalances map[uint]models.FinderBalance
	ClientBalances map[uint]models.ClientBalance
	Strikes        map[uint]models.Strike
	Restrictions   map[uint]models.UserRestriction
	Assignments    map[uint]models.TrainingAssignment
	Users          map[uint]models.User

	// FailOn forces the named method to return the given error.
	FailOn map[string]error

	nextID uint
}

var _ repositories.Store = (*Fake)(nil)

func New() *Fake {
	return &Fake{
		Contracts:      map[uint]models.Contract{},
		Submissions:    map[uint]models.OrderSubmission{},
		FinderBalances: map[uint]models.FinderBalance{},
		ClientBalances: map[uint]models.ClientBalance{},
		Strikes:        map[uint]models.Strike{},
		Restrictions:   map[uint]models.UserRestriction{},
		Assignments:    map[uint]models.TrainingAssignment{},
		Users:          map[uint]models.User{},
		FailOn:         map[string]error{},
	}
}

func (f *Fake) id() uint {
	f.nextID++
	return f.nextID
}

// ExecuteInTransaction snapshots all state and restores it when fn
// errors, matching the rollback behavior of a database transaction.
func (f *Fake) ExecuteInTransaction(fn func(repositories.Store) error) error {
	contracts := maps.Clone(f.Contracts)
	submissions := maps.Clone(f.Submissions)
	ledger := slices.Clone(f.Ledger)
	finderBalances := maps.Clone(f.FinderBalances)
	clientBalances := maps.Clone(f.ClientBalances)
	strikes := maps.Clone(f.Strikes)
	restrictions := maps.Clone(f.Restrictions)
	assignments := maps.Clone(f.Assignments)
	users := maps.Clone(f.Users)
	nextID := f.nextID

	if err := fn(f); err != nil {
		f.Contracts = contracts
		f.Submissions = submissions
		f.Ledger = ledger
		f.FinderBalances = finderBalances
		f.ClientBalances = clientBalances
		f.Strikes = strikes
		f.Restrictions = restrictions
		f.Assignments = assignments
		f.Users = users
		f.nextID = nextID
		return err
	}
	return nil
}

func (f *Fake) GetContract(id uint) (*models.Contract, error) {
	if err := f.FailOn["GetContract"]; err != nil {
		return nil, err
	}
	contract, ok := f.Contracts[id]
	if !ok {
		return nil, repositories.ErrContractNotFound
	}
	return &contract, nil
}

func (f *Fake) TransitionEscrow(contractID uint, from, to string, complete bool) (bool, error) {
	if err := f.FailOn["TransitionEscrow"]; err != nil {
		return false, err
	}
	contract, ok := f.Contracts[contractID]
	if !ok || contract.EscrowStatus != from {
		return false, nil
	}
	contract.EscrowStatus = to
	if complete {
		now := time.Now()
		contract.IsCompleted = true
		contract.CompletedAt = &now
	}
	f.Contracts[contractID] = contract
	return true, nil
}

func (f *Fake) SetContractSubmitted(contractID uint) error {
	if err := f.FailOn["SetContractSubmitted"]; err != nil {
		return err
	}
	contract, ok := f.Contracts[contractID]
	if !ok {
		return repositories.ErrContractNotFound
	}
	contract.HasSubmission = true
	f.Contracts[contractID] = contract
	return nil
}

func (f *Fake) FindStaleCompleted(cutoff time.Time, limit int) ([]models.Contract, error) {
	if err := f.FailOn["FindStaleCompleted"]; err != nil {
		return nil, err
	}
	var out []models.Contract
	for _, sub := range f.Submissions {
		if sub.Status != models.SubmissionAccepted || sub.ReviewedAt == nil || !sub.ReviewedAt.Before(cutoff) {
			continue
		}
		contract, ok := f.Contracts[sub.ContractID]
		if !ok || contract.EscrowStatus != models.EscrowFunded {
			continue
		}
		out = append(out, contract)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *Fake) GetSubmission(id uint) (*models.OrderSubmission, error) {
	if err := f.FailOn["GetSubmission"]; err != nil {
		return nil, err
	}
	sub, ok := f.Submissions[id]
	if !ok {
		return nil, repositories.ErrSubmissionNotFound
	}
	return &sub, nil
}

func (f *Fake) GetSubmissionByContract(contractID uint) (*models.OrderSubmission, error) {
	if err := f.FailOn["GetSubmissionByContract"]; err != nil {
		return nil, err
	}
	for _, sub := range f.Submissions {
		if sub.ContractID == contractID {
			return &sub, nil
		}
	}
	return nil, repositories.ErrSubmissionNotFound
}

func (f *Fake) UpsertSubmission(sub *models.OrderSubmission) error {
	if err := f.FailOn["UpsertSubmission"]; err != nil {
		return err
	}
	for id, existing := range f.Submissions {
		if existing.ContractID == sub.ContractID {
			sub.ID = id
			sub.CreatedAt = existing.CreatedAt
			f.Submissions[id] = *sub
			return nil
		}
	}
	sub.ID = f.id()
	f.Submissions[sub.ID] = *sub
	return nil
}

func (f *Fake) UpdateSubmissionReview(id uint, status, feedback string, reviewedAt time.Time) error {
	if err := f.FailOn["UpdateSubmissionReview"]; err != nil {
		return err
	}
	sub, ok := f.Submissions[id]
	if !ok {
		return repositories.ErrSubmissionNotFound
	}
	sub.Status = status
	sub.Feedback = feedback
	sub.ReviewedAt = &reviewedAt
	f.Submissions[id] = sub
	return nil
}

func (f *Fake) FindDueSubmissions(now time.Time, limit int) ([]models.OrderSubmission, error) {
	if err := f.FailOn["FindDueSubmissions"]; err != nil {
		return nil, err
	}
	var out []models.OrderSubmission
	for _, sub := range f.Submissions {
		if sub.Status != models.SubmissionSubmitted || sub.AutoReleaseAt.After(now) {
			continue
		}
		contract, ok := f.Contracts[sub.ContractID]
		if !ok || contract.EscrowStatus != models.EscrowFunded {
			continue
		}
		out = append(out, sub)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *Fake) AppendTransaction(tx *models.LedgerTransaction) error {
	if err := f.FailOn["AppendTransaction"]; err != nil {
		return err
	}
	if tx.Reference != nil {
		for _, existing := range f.Ledger {
			if existing.Reference != nil && *existing.Reference == *tx.Reference {
				return repositories.ErrDuplicateReference
			}
		}
	}
	tx.ID = f.id()
	tx.CreatedAt = time.Now()
	f.Ledger = append(f.Ledger, *tx)
	return nil
}

func (f *Fake) FindTransactionByReference(reference string) (*models.LedgerTransaction, error) {
	if err := f.FailOn["FindTransactionByReference"]; err != nil {
		return nil, err
	}
	for _, tx := range f.Ledger {
		if tx.Reference != nil && *tx.Reference == reference {
			found := tx
			return &found, nil
		}
	}
	return nil, repositories.ErrTransactionNotFound
}

func (f *Fake) GetFinderBalance(finderID uint) (*models.FinderBalance, error) {
	if err := f.FailOn["GetFinderBalance"]; err != nil {
		return nil, err
	}
	balance, ok := f.FinderBalances[finderID]
	if !ok {
		return nil, repositories.ErrBalanceNotFound
	}
	return &balance, nil
}

func (f *Fake) CreditFinderBalance(finderID uint, amount decimal.Decimal) error {
	if err := f.FailOn["CreditFinderBalance"]; err != nil {
		return err
	}
	balance, ok := f.FinderBalances[finderID]
	if !ok {
		balance = models.FinderBalance{ID: f.id(), FinderID: finderID}
	}
	balance.Available = balance.Available.Add(amount)
	balance.TotalEarned = balance.TotalEarned.Add(amount)
	f.FinderBalances[finderID] = balance
	return nil
}

func (f *Fake) DebitFinderBalance(finderID uint, amount decimal.Decimal) error {
	if err := f.FailOn["DebitFinderBalance"]; err != nil {
		return err
	}
	balance, ok := f.FinderBalances[finderID]
	if !ok || balance.Available.LessThan(amount) {
		return repositories.ErrBalanceNotFound
	}
	balance.Available = balance.Available.Sub(amount)
	f.FinderBalances[finderID] = balance
	return nil
}

func (f *Fake) CreditClientBalance(clientID uint, amount decimal.Decimal) error {
	if err := f.FailOn["CreditClientBalance"]; err != nil {
		return err
	}
	balance, ok := f.ClientBalances[clientID]
	if !ok {
		balance = models.ClientBalance{ID: f.id(), ClientID: clientID}
	}
	balance.Available = balance.Available.Add(amount)
	f.ClientBalances[clientID] = balance
	return nil
}

func (f *Fake) CreditClientTokens(userID uint, tokens int) error {
	if err := f.FailOn["CreditClientTokens"]; err != nil {
		return err
	}
	user, ok := f.Users[userID]
	if !ok {
		return repositories.ErrUserNotFound
	}
	user.ClientTokens += tokens
	f.Users[userID] = user
	return nil
}

func (f *Fake) CreditFinderTokens(userID uint, tokens int) error {
	if err := f.FailOn["CreditFinderTokens"]; err != nil {
		return err
	}
	user, ok := f.Users[userID]
	if !ok {
		return repositories.ErrUserNotFound
	}
	user.FinderTokens += tokens
	f.Users[userID] = user
	return nil
}

func (f *Fake) CreateStrike(strike *models.Strike) error {
	if err := f.FailOn["CreateStrike"]; err != nil {
		return err
	}
	strike.ID = f.id()
	f.Strikes[strike.ID] = *strike
	return nil
}

func (f *Fake) GetActiveStrikes(userID uint) ([]models.Strike, error) {
	if err := f.FailOn["GetActiveStrikes"]; err != nil {
		return nil, err
	}
	var out []models.Strike
	for _, strike := range f.Strikes {
		if strike.UserID == userID && strike.Status == models.StrikeActive {
			out = append(out, strike)
		}
	}
	return out, nil
}

func (f *Fake) SumActiveStrikePoints(userID uint) (int, error) {
	if err := f.FailOn["SumActiveStrikePoints"]; err != nil {
		return 0, err
	}
	total := 0
	for _, strike := range f.Strikes {
		if strike.UserID == userID && strike.Status == models.StrikeActive {
			total += strike.Points
		}
	}
	return total, nil
}

func (f *Fake) ExpireStrikes(now time.Time) (int64, error) {
	if err := f.FailOn["ExpireStrikes"]; err != nil {
		return 0, err
	}
	var count int64
	for id, strike := range f.Strikes {
		if strike.Status == models.StrikeActive && !strike.ExpiresAt.After(now) {
			strike.Status = models.StrikeExpired
			f.Strikes[id] = strike
			count++
		}
	}
	return count, nil
}

func (f *Fake) CreateRestriction(restriction *models.UserRestriction) error {
	if err := f.FailOn["CreateRestriction"]; err != nil {
		return err
	}
	restriction.ID = f.id()
	f.Restrictions[restriction.ID] = *restriction
	return nil
}

func (f *Fake) GetActiveRestrictions(userID uint) ([]models.UserRestriction, error) {
	if err := f.FailOn["GetActiveRestrictions"]; err != nil {
		return nil, err
	}
	var out []models.UserRestriction
	for _, restriction := range f.Restrictions {
		if restriction.UserID == userID && restriction.Active {
			out = append(out, restriction)
		}
	}
	return out, nil
}

func (f *Fake) DeactivateExpiredRestrictions(now time.Time) (int64, error) {
	if err := f.FailOn["DeactivateExpiredRestrictions"]; err != nil {
		return 0, err
	}
	var count int64
	for id, restriction := range f.Restrictions {
		if restriction.Active && restriction.EndDate != nil && !restriction.EndDate.After(now) {
			restriction.Active = false
			f.Restrictions[id] = restriction
			count++
		}
	}
	return count, nil
}

func (f *Fake) CreateTrainingAssignment(assignment *models.TrainingAssignment) error {
	if err := f.FailOn["CreateTrainingAssignment"]; err != nil {
		return err
	}
	assignment.ID = f.id()
	f.Assignments[assignment.ID] = *assignment
	return nil
}

func (f *Fake) GetUser(id uint) (*models.User, error) {
	if err := f.FailOn["GetUser"]; err != nil {
		return nil, err
	}
	user, ok := f.Users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	return &user, nil
}

func (f *Fake) MarkUserBanned(id uint) error {
	if err := f.FailOn["MarkUserBanned"]; err != nil {
		return err
	}
	user, ok := f.Users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	user.Banned = true
	f.Users[id] = user
	return nil
}
