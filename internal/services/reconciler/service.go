// Package reconciler converges the two payment delivery paths, webhook
// push and verification pull, onto one idempotent apply keyed by the
// gateway reference. The idempotency check, the effect and the ledger
// record are written inside a single store transaction, so a crash can
// never leave an applied effect without its record.
package reconciler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"findr/internal/config"
	"findr/internal/gateway"
	"findr/internal/models"
	"findr/internal/repositories"
)

type service struct {
	store         repositories.Store
	escrow        FundingConfirmer
	verifier      gateway.Verifier
	webhookSecret string
}

// NewService creates a new reconciler service
func NewService(store repositories.Store, escrowSvc FundingConfirmer, verifier gateway.Verifier, webhookSecret string) Service {
	if store == nil {
		panic("store is required")
	}
	if escrowSvc == nil {
		panic("escrow service is required")
	}
	if verifier == nil {
		panic("verifier is required")
	}

	return &service{
		store:         store,
		escrow:        escrowSvc,
		verifier:      verifier,
		webhookSecret: webhookSecret,
	}
}

func (s *service) Reconcile(ctx context.Context, event Event) error {
	if event.Status != gateway.StatusSuccess {
		return fmt.Errorf("%w: reference %s reported %s", ErrPaymentNotSuccessful, event.Reference, event.Status)
	}
	if event.Reference == "" {
		return fmt.Errorf("%w: empty reference", ErrInvalidMetadata)
	}
	if err := event.Meta.validate(); err != nil {
		return err
	}

	err := s.store.ExecuteInTransaction(func(tx repositories.Store) error {
		// Fast path for replays; the unique index on reference closes the
		// window between this check and the append below.
		if _, err := tx.FindTransactionByReference(event.Reference); err == nil {
			return errAlreadyApplied
		} else if err != repositories.ErrTransactionNotFound {
			return err
		}

		reference := event.Reference
		ledger := &models.LedgerTransaction{
			UserID:    event.Meta.UserID,
			Amount:    event.Amount,
			Reference: &reference,
		}

		switch event.Meta.Type {
		case PaymentContract:
			if err := s.escrow.ConfirmFunding(tx, event.Meta.ContractID, event.Amount); err != nil {
				return err
			}
			contractID := event.Meta.ContractID
			ledger.ContractID = &contractID
			ledger.Type = models.TxTypeContractPayment
			ledger.Description = fmt.Sprintf("escrow funding for contract %d", contractID)
		case PaymentFinderTokens:
			if err := tx.CreditFinderTokens(event.Meta.UserID, event.Meta.Tokens); err != nil {
				return err
			}
			ledger.Type = models.TxTypeFinderTokens
			ledger.Description = fmt.Sprintf("purchase of %d finder tokens", event.Meta.Tokens)
		case PaymentClientTokens:
			if err := tx.CreditClientTokens(event.Meta.UserID, event.Meta.Tokens); err != nil {
				return err
			}
			ledger.Type = models.TxTypeClientTokens
			ledger.Description = fmt.Sprintf("purchase of %d client tokens", event.Meta.Tokens)
		}

		if err := tx.AppendTransaction(ledger); err != nil {
			if err == repositories.ErrDuplicateReference {
				// A concurrent delivery of the same reference committed
				// first; roll back our effect and report success.
				return errAlreadyApplied
			}
			return err
		}
		return nil
	})

	if errors.Is(err, errAlreadyApplied) {
		log.Printf("payment reference %s already applied, skipping", event.Reference)
		return nil
	}
	return err
}

func (s *service) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if !gateway.VerifyWebhookSignature(body, signature, s.webhookSecret) {
		if config.IsProduction() {
			return ErrInvalidSignature
		}
		// Degraded mode outside production only; never trust unsigned
		// events silently.
		log.Printf("WARNING: webhook signature unverifiable, proceeding in non-production mode")
	}

	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if payload.Data.TxRef == "" {
		return fmt.Errorf("%w: missing tx_ref", ErrMalformedPayload)
	}

	status := payload.Data.Status
	if status != gateway.StatusSuccess {
		log.Printf("webhook for reference %s reported status %s, nothing recorded", payload.Data.TxRef, status)
		return fmt.Errorf("%w: reference %s reported %s", ErrPaymentNotSuccessful, payload.Data.TxRef, status)
	}

	return s.Reconcile(ctx, Event{
		Reference: payload.Data.TxRef,
		Amount:    payload.Data.Amount,
		Status:    status,
		Meta: PaymentMeta{
			Type:       PaymentType(payload.Data.Meta.Type),
			UserID:     payload.Data.Meta.UserID,
			ContractID: payload.Data.Meta.ContractID,
			Tokens:     payload.Data.Meta.Tokens,
		},
	})
}

func (s *service) VerifyByReference(ctx context.Context, reference string) error {
	verified, err := s.verifier.VerifyTransaction(ctx, reference)
	if err != nil {
		return fmt.Errorf("failed to verify reference %s: %w", reference, err)
	}
	if verified.Status != gateway.StatusSuccess {
		return fmt.Errorf("%w: reference %s reported %s", ErrPaymentNotSuccessful, reference, verified.Status)
	}

	meta, err := metaFromStrings(verified.Metadata)
	if err != nil {
		return err
	}

	return s.Reconcile(ctx, Event{
		Reference: verified.Reference,
		Amount:    verified.Amount,
		Status:    verified.Status,
		Meta:      meta,
	})
}
