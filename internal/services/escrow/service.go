// Package escrow implements the contract settlement state machine:
// pending -> funded -> released | cancelled. Transitions are applied as
// guarded updates inside a single store transaction, so a user action and
// a scheduler tick racing on the same contract cannot both move money.
package escrow

import (
	"context"
	"fmt"
	"log"
	"time"

	"findr/internal/models"
	"findr/internal/repositories"

	"github.com/shopspring/decimal"
)

type service struct {
	store    repositories.Store
	notifier Notifier
	config   Config
}

// NewService creates a new escrow service
func NewService(store repositories.Store, notifier Notifier, config Config) Service {
	if store == nil {
		panic("store is required")
	}
	if notifier == nil {
		panic("notifier is required")
	}

	if config.ReviewWindow == 0 {
		config.ReviewWindow = DefaultReviewWindow
	}
	if config.WithdrawalFeePercent.IsZero() {
		config.WithdrawalFeePercent = decimal.NewFromFloat(0.05)
	}

	return &service{
		store:    store,
		notifier: notifier,
		config:   config,
	}
}

func (s *service) ConfirmFunding(tx repositories.Store, contractID uint, amountPaid decimal.Decimal) error {
	contract, err := tx.GetContract(contractID)
	if err != nil {
		return err
	}

	// Webhook replay: already funded or beyond is a no-op success.
	if contract.EscrowStatus != models.EscrowPending {
		log.Printf("contract %d already %s, funding confirmation is a no-op", contractID, contract.EscrowStatus)
		return nil
	}

	if !amountPaid.Equal(contract.Amount) {
		return fmt.Errorf("%w: contract %d expects %s, got %s",
			ErrAmountMismatch, contractID, contract.Amount, amountPaid)
	}

	ok, err := tx.TransitionEscrow(contractID, models.EscrowPending, models.EscrowFunded, false)
	if err != nil {
		return err
	}
	if !ok {
		// A concurrent confirmation won the transition; same outcome.
		log.Printf("contract %d funded by a concurrent confirmation", contractID)
	}
	return nil
}

func (s *service) SubmitWork(ctx context.Context, contractID, finderID uint, text string, attachments models.JSON) (*models.OrderSubmission, error) {
	now := time.Now()
	sub := &models.OrderSubmission{
		ContractID:    contractID,
		FinderID:      finderID,
		Text:          text,
		Attachments:   attachments,
		Status:        models.SubmissionSubmitted,
		SubmittedAt:   now,
		AutoReleaseAt: now.Add(s.config.ReviewWindow),
		ReviewedAt:    nil,
		Feedback:      "",
	}

	var clientID uint
	err := s.store.ExecuteInTransaction(func(tx repositories.Store) error {
		contract, err := tx.GetContract(contractID)
		if err != nil {
			return err
		}
		if contract.FinderID != finderID {
			return ErrNotContractFinder
		}
		if contract.EscrowStatus != models.EscrowFunded {
			return fmt.Errorf("%w: contract %d is %s", ErrNotFunded, contractID, contract.EscrowStatus)
		}
		clientID = contract.ClientID

		// Resubmission is only allowed over a rejected submission.
		existing, err := tx.GetSubmissionByContract(contractID)
		if err != nil && err != repositories.ErrSubmissionNotFound {
			return err
		}
		if existing != nil && existing.Status == models.SubmissionSubmitted {
			return ErrSubmissionActive
		}

		if err := tx.UpsertSubmission(sub); err != nil {
			return err
		}
		return tx.SetContractSubmitted(contractID)
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, "submission.received", clientID, map[string]interface{}{
		"contract_id": contractID,
	})
	return sub, nil
}

func (s *service) ReviewSubmission(ctx context.Context, submissionID, clientID uint, decision ReviewDecision, feedback string) error {
	if decision != DecisionAccept && decision != DecisionReject {
		return ErrInvalidDecision
	}

	var contract *models.Contract
	err := s.store.ExecuteInTransaction(func(tx repositories.Store) error {
		sub, err := tx.GetSubmission(submissionID)
		if err != nil {
			return err
		}
		if sub.Status != models.SubmissionSubmitted {
			return fmt.Errorf("%w: submission %d is %s", ErrSubmissionNotOpen, submissionID, sub.Status)
		}

		contract, err = tx.GetContract(sub.ContractID)
		if err != nil {
			return err
		}
		if contract.ClientID != clientID {
			return ErrNotContractClient
		}

		status := models.SubmissionAccepted
		if decision == DecisionReject {
			status = models.SubmissionRejected
		}
		return tx.UpdateSubmissionReview(submissionID, status, feedback, time.Now())
	})
	if err != nil {
		return err
	}

	if decision == DecisionReject {
		s.notify(ctx, "submission.rejected", contract.FinderID, map[string]interface{}{
			"contract_id": contract.ID,
			"feedback":    feedback,
		})
		return nil
	}

	// Accept releases the funds. A crash between the review update and the
	// release is picked up by the scheduler's stale-completed sweep.
	if _, err := s.ReleaseFunds(ctx, contract.ID, "released on client acceptance"); err != nil {
		return err
	}
	return nil
}

func (s *service) ReleaseFunds(ctx context.Context, contractID uint, note string) (bool, error) {
	var released bool
	var finderID uint
	var amount decimal.Decimal

	err := s.store.ExecuteInTransaction(func(tx repositories.Store) error {
		contract, err := tx.GetContract(contractID)
		if err != nil {
			return err
		}
		finderID = contract.FinderID
		amount = contract.Amount

		switch contract.EscrowStatus {
		case models.EscrowReleased:
			// Already released; idempotent no-op.
			return nil
		case models.EscrowFunded:
			// Proceed.
		case models.EscrowCancelled:
			return fmt.Errorf("%w: contract %d", ErrContractCancelled, contractID)
		default:
			return fmt.Errorf("%w: contract %d is %s", ErrNotFunded, contractID, contract.EscrowStatus)
		}

		// The conditional transition, not the read above, is the guard:
		// whichever concurrent caller's update lands first wins, the loser
		// matches zero rows and exits without a second credit.
		ok, err := tx.TransitionEscrow(contractID, models.EscrowFunded, models.EscrowReleased, true)
		if err != nil {
			return err
		}
		if !ok {
			latest, err := tx.GetContract(contractID)
			if err != nil {
				return err
			}
			if latest.EscrowStatus == models.EscrowReleased {
				return nil
			}
			return fmt.Errorf("%w: contract %d is %s", ErrNotFunded, contractID, latest.EscrowStatus)
		}

		if err := tx.CreditFinderBalance(finderID, amount); err != nil {
			return err
		}
		if err := tx.AppendTransaction(&models.LedgerTransaction{
			UserID:      finderID,
			FinderID:    &finderID,
			ContractID:  &contractID,
			Type:        models.TxTypeEscrowRelease,
			Amount:      amount,
			Description: note,
			Reference:   models.NewReference("rel"),
		}); err != nil {
			return err
		}

		released = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if released {
		s.notify(ctx, "escrow.released", finderID, map[string]interface{}{
			"contract_id": contractID,
			"amount":      amount.String(),
		})
	}
	return released, nil
}

func (s *service) CancelContract(ctx context.Context, contractID, adminID uint, reason string) error {
	var clientID uint
	var amount decimal.Decimal

	err := s.store.ExecuteInTransaction(func(tx repositories.Store) error {
		contract, err := tx.GetContract(contractID)
		if err != nil {
			return err
		}
		if contract.IsCompleted {
			return fmt.Errorf("%w: contract %d", ErrContractCompleted, contractID)
		}
		if contract.EscrowStatus != models.EscrowFunded {
			return fmt.Errorf("%w: contract %d is %s", ErrNotFunded, contractID, contract.EscrowStatus)
		}
		clientID = contract.ClientID
		amount = contract.Amount

		ok, err := tx.TransitionEscrow(contractID, models.EscrowFunded, models.EscrowCancelled, true)
		if err != nil {
			return err
		}
		if !ok {
			latest, err := tx.GetContract(contractID)
			if err != nil {
				return err
			}
			return fmt.Errorf("%w: contract %d is %s", ErrNotFunded, contractID, latest.EscrowStatus)
		}

		if err := tx.CreditClientBalance(clientID, amount); err != nil {
			return err
		}
		return tx.AppendTransaction(&models.LedgerTransaction{
			UserID:      clientID,
			ContractID:  &contractID,
			Type:        models.TxTypeEscrowRefund,
			Amount:      amount,
			Description: fmt.Sprintf("admin cancellation by %d: %s", adminID, reason),
			Reference:   models.NewReference("ref"),
		})
	})
	if err != nil {
		return err
	}

	s.notify(ctx, "contract.cancelled", clientID, map[string]interface{}{
		"contract_id": contractID,
		"reason":      reason,
	})
	return nil
}

func (s *service) Withdraw(ctx context.Context, finderID uint, amount decimal.Decimal) (*WithdrawalReceipt, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	fee := amount.Mul(s.config.WithdrawalFeePercent).Round(2)
	net := amount.Sub(fee)

	err := s.store.ExecuteInTransaction(func(tx repositories.Store) error {
		balance, err := tx.GetFinderBalance(finderID)
		if err != nil {
			if err == repositories.ErrBalanceNotFound {
				return ErrInsufficientBalance
			}
			return err
		}
		if balance.Available.LessThan(amount) {
			return ErrInsufficientBalance
		}

		if err := tx.DebitFinderBalance(finderID, amount); err != nil {
			if err == repositories.ErrBalanceNotFound {
				return ErrInsufficientBalance
			}
			return err
		}

		if err := tx.AppendTransaction(&models.LedgerTransaction{
			UserID:      finderID,
			FinderID:    &finderID,
			Type:        models.TxTypeWithdrawal,
			Amount:      net.Neg(),
			Description: "balance withdrawal",
			Reference:   models.NewReference("wdr"),
		}); err != nil {
			return err
		}
		return tx.AppendTransaction(&models.LedgerTransaction{
			UserID:      finderID,
			FinderID:    &finderID,
			Type:        models.TxTypeWithdrawalFee,
			Amount:      fee.Neg(),
			Description: "withdrawal platform fee",
			Reference:   models.NewReference("fee"),
		})
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, "balance.withdrawn", finderID, map[string]interface{}{
		"gross": amount.String(),
		"net":   net.String(),
	})

	return &WithdrawalReceipt{
		FinderID: finderID,
		Gross:    amount,
		Fee:      fee,
		Net:      net,
	}, nil
}

func (s *service) notify(ctx context.Context, event string, recipientID uint, payload map[string]interface{}) {
	if err := s.notifier.Notify(ctx, event, recipientID, payload); err != nil {
		log.Printf("notification %s for user %d failed: %v", event, recipientID, err)
	}
}
