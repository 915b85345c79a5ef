package scheduler

import (
	"context"
	"testing"
	"time"

	"findr/internal/models"
	"findr/internal/repositories/storetest"
	"findr/internal/services/escrow"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopNotifier struct{}

func (noopNotifier) Notify(ctx context.Context, event string, recipientID uint, payload map[string]interface{}) error {
	return nil
}

func newFixture() (*storetest.Fake, *AutoRelease) {
	store := storetest.New()
	escrowSvc := escrow.NewService(store, noopNotifier{}, escrow.Config{})
	return store, NewAutoRelease(store, escrowSvc, DefaultGracePeriod)
}

func seedContract(store *storetest.Fake, id uint, status string) {
	contract := models.Contract{
		ClientID:     10,
		FinderID:     20,
		Title:        "track down a spare part",
		Amount:       decimal.RequireFromString("80.00"),
		EscrowStatus: status,
	}
	contract.ID = id
	store.Contracts[id] = contract
}

func seedSubmission(store *storetest.Fake, id, contractID uint, status string, autoReleaseAt time.Time) {
	sub := models.OrderSubmission{
		ContractID:    contractID,
		FinderID:      20,
		Text:          "delivered",
		Status:        status,
		SubmittedAt:   autoReleaseAt.Add(-escrow.DefaultReviewWindow),
		AutoReleaseAt: autoReleaseAt,
	}
	sub.ID = id
	store.Submissions[id] = sub
}

func TestAutoRelease_DueSubmissions(t *testing.T) {
	t.Run("elapsed review window releases the escrow", func(t *testing.T) {
		store, auto := newFixture()
		seedContract(store, 1, models.EscrowFunded)
		seedSubmission(store, 1, 1, models.SubmissionSubmitted, time.Now().Add(-time.Hour))

		released, err := auto.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, released)

		assert.Equal(t, models.EscrowReleased, store.Contracts[1].EscrowStatus)
		assert.Equal(t, models.SubmissionAccepted, store.Submissions[1].Status)
		assert.True(t, store.FinderBalances[20].Available.Equal(decimal.RequireFromString("80.00")))
	})

	t.Run("open review window is left alone", func(t *testing.T) {
		store, auto := newFixture()
		seedContract(store, 1, models.EscrowFunded)
		seedSubmission(store, 1, 1, models.SubmissionSubmitted, time.Now().Add(time.Hour))

		released, err := auto.Run(context.Background())
		require.NoError(t, err)
		assert.Zero(t, released)
		assert.Equal(t, models.EscrowFunded, store.Contracts[1].EscrowStatus)
	})

	t.Run("rejected submission never auto-releases", func(t *testing.T) {
		store, auto := newFixture()
		seedContract(store, 1, models.EscrowFunded)
		seedSubmission(store, 1, 1, models.SubmissionRejected, time.Now().Add(-time.Hour))

		released, err := auto.Run(context.Background())
		require.NoError(t, err)
		assert.Zero(t, released)
		assert.Equal(t, models.EscrowFunded, store.Contracts[1].EscrowStatus)
	})

	t.Run("a second pass is a no-op", func(t *testing.T) {
		store, auto := newFixture()
		seedContract(store, 1, models.EscrowFunded)
		seedSubmission(store, 1, 1, models.SubmissionSubmitted, time.Now().Add(-time.Hour))

		_, err := auto.Run(context.Background())
		require.NoError(t, err)
		released, err := auto.Run(context.Background())
		require.NoError(t, err)

		assert.Zero(t, released)
		assert.Len(t, store.Ledger, 1)
	})
}

func TestAutoRelease_SafetyNet(t *testing.T) {
	t.Run("accepted but unreleased contract past grace is picked up", func(t *testing.T) {
		store, auto := newFixture()
		seedContract(store, 1, models.EscrowFunded)
		seedSubmission(store, 1, 1, models.SubmissionAccepted, time.Now().Add(-100*time.Hour))
		reviewed := time.Now().Add(-80 * time.Hour)
		sub := store.Submissions[1]
		sub.ReviewedAt = &reviewed
		store.Submissions[1] = sub

		released, err := auto.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, released)
		assert.Equal(t, models.EscrowReleased, store.Contracts[1].EscrowStatus)
	})

	t.Run("recently accepted contract is outside the net", func(t *testing.T) {
		store, auto := newFixture()
		seedContract(store, 1, models.EscrowFunded)
		seedSubmission(store, 1, 1, models.SubmissionAccepted, time.Now())
		reviewed := time.Now().Add(-time.Hour)
		sub := store.Submissions[1]
		sub.ReviewedAt = &reviewed
		store.Submissions[1] = sub

		released, err := auto.Run(context.Background())
		require.NoError(t, err)
		assert.Zero(t, released)
		assert.Equal(t, models.EscrowFunded, store.Contracts[1].EscrowStatus)
	})
}

func TestRegistry(t *testing.T) {
	t.Run("run on start executes before the first tick", func(t *testing.T) {
		ran := make(chan struct{})
		registry := NewRegistry()
		registry.Register(NewTask("probe", func(ctx context.Context) error {
			select {
			case ran <- struct{}{}:
			default:
			}
			return nil
		}), time.Hour, true)

		registry.StartAll()
		defer registry.StopAll()

		select {
		case <-ran:
		case <-time.After(2 * time.Second):
			t.Fatal("task did not run on start")
		}
	})

	t.Run("stop waits for runners", func(t *testing.T) {
		registry := NewRegistry()
		registry.Register(NewTask("noop", func(ctx context.Context) error { return nil }), time.Hour, false)

		registry.StartAll()
		done := make(chan struct{})
		go func() {
			registry.StopAll()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("StopAll did not return")
		}
	})

	t.Run("register after start panics", func(t *testing.T) {
		registry := NewRegistry()
		registry.StartAll()
		defer registry.StopAll()

		assert.Panics(t, func() {
			registry.Register(NewTask("late", func(ctx context.Context) error { return nil }), time.Hour, false)
		})
	})
}
