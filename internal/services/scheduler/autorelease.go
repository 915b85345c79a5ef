package scheduler

import (
	"context"
	"log"
	"time"

	"findr/internal/models"
	"findr/internal/repositories"
)

// Default tuning for the auto-release pass.
const (
	DefaultInterval    = time.Hour
	DefaultGracePeriod = 72 * time.Hour
	DefaultBatchSize   = 500
)

// Releaser is the slice of the escrow service the scheduler drives. The
// release primitive's idempotency is what makes overlapping runs safe.
type Releaser interface {
	ReleaseFunds(ctx context.Context, contractID uint, note string) (bool, error)
}

// AutoRelease force-releases escrowed funds for submissions whose review
// window elapsed without client action, plus a safety-net pass for
// accepted-but-unreleased contracts older than the grace period.
type AutoRelease struct {
	store       repositories.Store
	escrow      Releaser
	gracePeriod time.Duration
	batchSize   int
}

func NewAutoRelease(store repositories.Store, escrowSvc Releaser, gracePeriod time.Duration) *AutoRelease {
	if store == nil {
		panic("store is required")
	}
	if escrowSvc == nil {
		panic("escrow service is required")
	}
	if gracePeriod == 0 {
		gracePeriod = DefaultGracePeriod
	}
	return &AutoRelease{
		store:       store,
		escrow:      escrowSvc,
		gracePeriod: gracePeriod,
		batchSize:   DefaultBatchSize,
	}
}

func (s *AutoRelease) Name() string { return "auto_release" }

func (s *AutoRelease) RunOnce(ctx context.Context) error {
	released, err := s.Run(ctx)
	if released > 0 {
		log.Printf("auto-release pass released %d contract(s)", released)
	}
	return err
}

// Run performs one full pass and returns the number of releases performed.
// Each item is processed independently; one failing contract never blocks
// the rest of the batch.
func (s *AutoRelease) Run(ctx context.Context) (int, error) {
	now := time.Now()
	released := 0

	due, err := s.store.FindDueSubmissions(now, s.batchSize)
	if err != nil {
		return 0, err
	}

	for _, sub := range due {
		if err := ctx.Err(); err != nil {
			return released, err
		}
		if s.releaseDue(ctx, sub, now) {
			released++
		}
	}

	// Safety net: accepted submissions whose release never landed (for
	// example a crash between the review update and the release).
	stale, err := s.store.FindStaleCompleted(now.Add(-s.gracePeriod), s.batchSize)
	if err != nil {
		log.Printf("auto-release: stale-completed scan failed: %v", err)
		return released, nil
	}
	for _, contract := range stale {
		if err := ctx.Err(); err != nil {
			return released, err
		}
		ok, err := s.escrow.ReleaseFunds(ctx, contract.ID, "released by settlement safety net")
		if err != nil {
			log.Printf("auto-release: safety-net release of contract %d failed: %v", contract.ID, err)
			continue
		}
		if ok {
			released++
		}
	}

	return released, nil
}

func (s *AutoRelease) releaseDue(ctx context.Context, sub models.OrderSubmission, now time.Time) bool {
	err := s.store.UpdateSubmissionReview(sub.ID,
		models.SubmissionAccepted,
		"auto-accepted: review window elapsed without client action",
		now)
	if err != nil {
		log.Printf("auto-release: failed to accept submission %d: %v", sub.ID, err)
		return false
	}

	ok, err := s.escrow.ReleaseFunds(ctx, sub.ContractID, "auto-released after review window elapsed")
	if err != nil {
		// The accepted submission stays behind; the safety-net pass
		// retries the release on a later tick.
		log.Printf("auto-release: failed to release contract %d: %v", sub.ContractID, err)
		return false
	}
	return ok
}
