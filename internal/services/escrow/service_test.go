package escrow

import (
	"context"
	"errors"
	"testing"
	"time"

	"findr/internal/models"
	"findr/internal/repositories/storetest"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	events []string
}

func (n *recordingNotifier) Notify(ctx context.Context, event string, recipientID uint, payload map[string]interface{}) error {
	n.events = append(n.events, event)
	return nil
}

func newFixture() (*storetest.Fake, *recordingNotifier, Service) {
	store := storetest.New()
	notifier := &recordingNotifier{}
	svc := NewService(store, notifier, Config{})
	return store, notifier, svc
}

func seedContract(store *storetest.Fake, id uint, status string, amount string) {
	contract := models.Contract{
		ClientID:     10,
		FinderID:     20,
		Title:        "find a vintage lens",
		Amount:       decimal.RequireFromString(amount),
		EscrowStatus: status,
	}
	contract.ID = id
	store.Contracts[id] = contract
}

func TestConfirmFunding(t *testing.T) {
	t.Run("pending contract becomes funded", func(t *testing.T) {
		store, _, svc := newFixture()
		seedContract(store, 1, models.EscrowPending, "150.00")

		err := svc.ConfirmFunding(store, 1, decimal.RequireFromString("150.00"))
		require.NoError(t, err)
		assert.Equal(t, models.EscrowFunded, store.Contracts[1].EscrowStatus)
	})

	t.Run("amount mismatch is rejected", func(t *testing.T) {
		store, _, svc := newFixture()
		seedContract(store, 1, models.EscrowPending, "150.00")

		err := svc.ConfirmFunding(store, 1, decimal.RequireFromString("149.00"))
		assert.ErrorIs(t, err, ErrAmountMismatch)
		assert.Equal(t, models.EscrowPending, store.Contracts[1].EscrowStatus)
	})

	t.Run("already funded is a no-op success", func(t *testing.T) {
		store, _, svc := newFixture()
		seedContract(store, 1, models.EscrowFunded, "150.00")

		err := svc.ConfirmFunding(store, 1, decimal.RequireFromString("150.00"))
		require.NoError(t, err)
		assert.Equal(t, models.EscrowFunded, store.Contracts[1].EscrowStatus)
	})
}

func TestSubmitWork(t *testing.T) {
	t.Run("submission opens the review window", func(t *testing.T) {
		store, notifier, svc := newFixture()
		seedContract(store, 1, models.EscrowFunded, "150.00")

		before := time.Now()
		sub, err := svc.SubmitWork(context.Background(), 1, 20, "done, photos attached", nil)
		require.NoError(t, err)

		assert.Equal(t, models.SubmissionSubmitted, sub.Status)
		assert.True(t, store.Contracts[1].HasSubmission)
		assert.WithinDuration(t, before.Add(DefaultReviewWindow), sub.AutoReleaseAt, time.Minute)
		assert.Contains(t, notifier.events, "submission.received")
	})

	t.Run("only the contract's finder may submit", func(t *testing.T) {
		store, _, svc := newFixture()
		seedContract(store, 1, models.EscrowFunded, "150.00")

		_, err := svc.SubmitWork(context.Background(), 1, 99, "not mine", nil)
		assert.ErrorIs(t, err, ErrNotContractFinder)
	})

	t.Run("unfunded contract rejects submission", func(t *testing.T) {
		store, _, svc := newFixture()
		seedContract(store, 1, models.EscrowPending, "150.00")

		_, err := svc.SubmitWork(context.Background(), 1, 20, "too early", nil)
		assert.ErrorIs(t, err, ErrNotFunded)
	})

	t.Run("second submission while one is open is rejected", func(t *testing.T) {
		store, _, svc := newFixture()
		seedContract(store, 1, models.EscrowFunded, "150.00")

		_, err := svc.SubmitWork(context.Background(), 1, 20, "first", nil)
		require.NoError(t, err)

		_, err = svc.SubmitWork(context.Background(), 1, 20, "second", nil)
		assert.ErrorIs(t, err, ErrSubmissionActive)
	})

	t.Run("resubmission after rejection restarts the window", func(t *testing.T) {
		store, _, svc := newFixture()
		seedContract(store, 1, models.EscrowFunded, "150.00")

		first, err := svc.SubmitWork(context.Background(), 1, 20, "first attempt", nil)
		require.NoError(t, err)
		require.NoError(t, svc.ReviewSubmission(context.Background(), first.ID, 10, DecisionReject, "wrong model"))

		second, err := svc.SubmitWork(context.Background(), 1, 20, "second attempt", nil)
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, models.SubmissionSubmitted, store.Submissions[second.ID].Status)
		assert.True(t, second.AutoReleaseAt.After(first.AutoReleaseAt) || second.AutoReleaseAt.Equal(first.AutoReleaseAt))
	})
}

func TestReviewSubmission(t *testing.T) {
	submit := func(t *testing.T, svc Service) *models.OrderSubmission {
		t.Helper()
		sub, err := svc.SubmitWork(context.Background(), 1, 20, "work delivered", nil)
		require.NoError(t, err)
		return sub
	}

	t.Run("accept releases the escrow", func(t *testing.T) {
		store, notifier, svc := newFixture()
		seedContract(store, 1, models.EscrowFunded, "150.00")
		sub := submit(t, svc)

		require.NoError(t, svc.ReviewSubmission(context.Background(), sub.ID, 10, DecisionAccept, "great find"))

		assert.Equal(t, models.EscrowReleased, store.Contracts[1].EscrowStatus)
		assert.True(t, store.Contracts[1].IsCompleted)
		assert.True(t, store.FinderBalances[20].Available.Equal(decimal.RequireFromString("150.00")))
		require.Len(t, store.Ledger, 1)
		assert.Equal(t, models.TxTypeEscrowRelease, store.Ledger[0].Type)
		assert.Contains(t, notifier.events, "escrow.released")
	})

	t.Run("reject keeps the funds in escrow", func(t *testing.T) {
		store, notifier, svc := newFixture()
		seedContract(store, 1, models.EscrowFunded, "150.00")
		sub := submit(t, svc)

		require.NoError(t, svc.ReviewSubmission(context.Background(), sub.ID, 10, DecisionReject, "not as described"))

		assert.Equal(t, models.EscrowFunded, store.Contracts[1].EscrowStatus)
		assert.Equal(t, models.SubmissionRejected, store.Submissions[sub.ID].Status)
		assert.Empty(t, store.Ledger)
		assert.Contains(t, notifier.events, "submission.rejected")
	})

	t.Run("only the contract's client may review", func(t *testing.T) {
		store, _, svc := newFixture()
		seedContract(store, 1, models.EscrowFunded, "150.00")
		sub := submit(t, svc)

		err := svc.ReviewSubmission(context.Background(), sub.ID, 99, DecisionAccept, "")
		assert.ErrorIs(t, err, ErrNotContractClient)
	})

	t.Run("reviewing a settled submission fails", func(t *testing.T) {
		store, _, svc := newFixture()
		seedContract(store, 1, models.EscrowFunded, "150.00")
		sub := submit(t, svc)
		require.NoError(t, svc.ReviewSubmission(context.Background(), sub.ID, 10, DecisionAccept, ""))

		err := svc.ReviewSubmission(context.Background(), sub.ID, 10, DecisionReject, "changed my mind")
		assert.ErrorIs(t, err, ErrSubmissionNotOpen)
	})

	t.Run("unknown decision is rejected", func(t *testing.T) {
		store, _, svc := newFixture()
		seedContract(store, 1, models.EscrowFunded, "150.00")
		sub := submit(t, svc)

		err := svc.ReviewSubmission(context.Background(), sub.ID, 10, ReviewDecision("maybe"), "")
		assert.ErrorIs(t, err, ErrInvalidDecision)
	})
}

func TestReleaseFunds(t *testing.T) {
	t.Run("release credits the finder exactly once", func(t *testing.T) {
		store, _, svc := newFixture()
		seedContract(store, 1, models.EscrowFunded, "200.00")

		released, err := svc.ReleaseFunds(context.Background(), 1, "manual")
		require.NoError(t, err)
		assert.True(t, released)

		released, err = svc.ReleaseFunds(context.Background(), 1, "replay")
		require.NoError(t, err)
		assert.False(t, released)

		assert.True(t, store.FinderBalances[20].Available.Equal(decimal.RequireFromString("200.00")))
		assert.Len(t, store.Ledger, 1)
	})

	t.Run("cancelled contract cannot release", func(t *testing.T) {
		store, _, svc := newFixture()
		seedContract(store, 1, models.EscrowCancelled, "200.00")

		_, err := svc.ReleaseFunds(context.Background(), 1, "manual")
		assert.ErrorIs(t, err, ErrContractCancelled)
	})

	t.Run("pending contract cannot release", func(t *testing.T) {
		store, _, svc := newFixture()
		seedContract(store, 1, models.EscrowPending, "200.00")

		_, err := svc.ReleaseFunds(context.Background(), 1, "manual")
		assert.ErrorIs(t, err, ErrNotFunded)
	})

	t.Run("ledger failure rolls back the whole release", func(t *testing.T) {
		store, _, svc := newFixture()
		seedContract(store, 1, models.EscrowFunded, "200.00")
		store.FailOn["AppendTransaction"] = errors.New("disk full")

		_, err := svc.ReleaseFunds(context.Background(), 1, "manual")
		require.Error(t, err)

		assert.Equal(t, models.EscrowFunded, store.Contracts[1].EscrowStatus)
		assert.Empty(t, store.FinderBalances)
		assert.Empty(t, store.Ledger)
	})
}

func TestCancelContract(t *testing.T) {
	t.Run("cancellation refunds the client", func(t *testing.T) {
		store, notifier, svc := newFixture()
		seedContract(store, 1, models.EscrowFunded, "120.00")

		require.NoError(t, svc.CancelContract(context.Background(), 1, 99, "finder unresponsive"))

		assert.Equal(t, models.EscrowCancelled, store.Contracts[1].EscrowStatus)
		assert.True(t, store.ClientBalances[10].Available.Equal(decimal.RequireFromString("120.00")))
		require.Len(t, store.Ledger, 1)
		assert.Equal(t, models.TxTypeEscrowRefund, store.Ledger[0].Type)
		assert.Contains(t, notifier.events, "contract.cancelled")
	})

	t.Run("completed contract cannot be cancelled", func(t *testing.T) {
		store, _, svc := newFixture()
		seedContract(store, 1, models.EscrowReleased, "120.00")
		contract := store.Contracts[1]
		contract.IsCompleted = true
		store.Contracts[1] = contract

		err := svc.CancelContract(context.Background(), 1, 99, "too late")
		assert.ErrorIs(t, err, ErrContractCompleted)
	})
}

func TestWithdraw(t *testing.T) {
	t.Run("withdrawal charges the platform fee", func(t *testing.T) {
		store, _, svc := newFixture()
		store.FinderBalances[20] = models.FinderBalance{
			FinderID:    20,
			Available:   decimal.RequireFromString("100.00"),
			TotalEarned: decimal.RequireFromString("100.00"),
		}

		receipt, err := svc.Withdraw(context.Background(), 20, decimal.RequireFromString("40.00"))
		require.NoError(t, err)

		assert.True(t, receipt.Fee.Equal(decimal.RequireFromString("2.00")), "fee was %s", receipt.Fee)
		assert.True(t, receipt.Net.Equal(decimal.RequireFromString("38.00")), "net was %s", receipt.Net)
		assert.True(t, store.FinderBalances[20].Available.Equal(decimal.RequireFromString("60.00")))

		require.Len(t, store.Ledger, 2)
		assert.Equal(t, models.TxTypeWithdrawal, store.Ledger[0].Type)
		assert.Equal(t, models.TxTypeWithdrawalFee, store.Ledger[1].Type)
	})

	t.Run("insufficient balance", func(t *testing.T) {
		store, _, svc := newFixture()
		store.FinderBalances[20] = models.FinderBalance{
			FinderID:  20,
			Available: decimal.RequireFromString("10.00"),
		}

		_, err := svc.Withdraw(context.Background(), 20, decimal.RequireFromString("40.00"))
		assert.ErrorIs(t, err, ErrInsufficientBalance)
		assert.True(t, store.FinderBalances[20].Available.Equal(decimal.RequireFromString("10.00")))
	})

	t.Run("no balance row at all", func(t *testing.T) {
		_, _, svc := newFixture()

		_, err := svc.Withdraw(context.Background(), 20, decimal.RequireFromString("5.00"))
		assert.ErrorIs(t, err, ErrInsufficientBalance)
	})

	t.Run("non-positive amount", func(t *testing.T) {
		_, _, svc := newFixture()

		_, err := svc.Withdraw(context.Background(), 20, decimal.Zero)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})
}
