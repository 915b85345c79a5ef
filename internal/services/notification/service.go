package notification

import (
	"context"
	"log"
)

// Service is a minimal fire-and-forget notification gateway. Delivery is
// best effort; callers log failures and never roll back settlement.
type Service struct{}

// NewService creates a new notification service.
func NewService() *Service { return &Service{} }

// Notify logs the event for the recipient. The real delivery channel
// (email, push) hangs off this method.
func (s *Service) Notify(ctx context.Context, event string, recipientID uint, payload map[string]interface{}) error {
	log.Printf("notify user %d: %s %v", recipientID, event, payload)
	return nil
}
