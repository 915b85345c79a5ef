package handlers

import (
	"errors"
	"log"

	"findr/internal/services/reconciler"
	"findr/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

type WebhookHandler struct {
	reconcilerService reconciler.Service
}

func NewWebhookHandler(reconcilerSvc reconciler.Service) *WebhookHandler {
	return &WebhookHandler{reconcilerService: reconcilerSvc}
}

// HandlePaymentWebhook receives gateway payment events. The gateway
// retries on non-2xx, so transient failures return 500 and validation
// failures return 400 to stop pointless redelivery.
func (h *WebhookHandler) HandlePaymentWebhook(c *fiber.Ctx) error {
	signature := c.Get("X-Webhook-Signature")

	err := h.reconcilerService.HandleWebhook(c.Context(), c.Body(), signature)
	if err != nil {
		log.Printf("webhook processing failed: %v", err)
		switch {
		case errors.Is(err, reconciler.ErrInvalidSignature):
			return response.Unauthorized(c)
		case errors.Is(err, reconciler.ErrMalformedPayload),
			errors.Is(err, reconciler.ErrInvalidMetadata),
			errors.Is(err, reconciler.ErrPaymentNotSuccessful):
			return response.BadRequest(c, err.Error())
		default:
			return response.ServerError(c, "webhook processing failed")
		}
	}

	return response.Success(c, "Webhook processed", nil)
}

// VerifyPayment is the client-initiated pull path: the frontend hands over
// the reference it got back from checkout and we verify it with the
// gateway before applying it.
func (h *WebhookHandler) VerifyPayment(c *fiber.Ctx) error {
	var input struct {
		Reference string `json:"reference" validate:"required"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}
	if input.Reference == "" {
		return response.ValidationError(c, "Payment reference is required")
	}

	if err := h.reconcilerService.VerifyByReference(c.Context(), input.Reference); err != nil {
		if errors.Is(err, reconciler.ErrPaymentNotSuccessful) {
			return response.BadRequest(c, err.Error())
		}
		log.Printf("payment verification for %s failed: %v", input.Reference, err)
		return response.ServerError(c, "Payment verification failed")
	}

	return response.Success(c, "Payment verified", nil)
}
