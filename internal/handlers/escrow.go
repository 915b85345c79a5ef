package handlers

import (
	"errors"

	"findr/internal/models"
	"findr/internal/services/escrow"
	"findr/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type EscrowHandler struct {
	escrowService escrow.Service
}

func NewEscrowHandler(escrowSvc escrow.Service) *EscrowHandler {
	return &EscrowHandler{escrowService: escrowSvc}
}

// SubmitWork records the finder's delivery for a contract.
func (h *EscrowHandler) SubmitWork(c *fiber.Ctx) error {
	claims := c.Locals("claims").(*models.UserClaims)

	contractID, err := c.ParamsInt("id")
	if err != nil || contractID <= 0 {
		return response.BadRequest(c, "Invalid contract id")
	}

	var input struct {
		Text        string                 `json:"text" validate:"required"`
		Attachments map[string]interface{} `json:"attachments"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}
	if input.Text == "" {
		return response.ValidationError(c, "Submission text is required")
	}

	sub, err := h.escrowService.SubmitWork(
		c.Context(),
		uint(contractID),
		claims.UserID,
		input.Text,
		models.NewJSON(input.Attachments),
	)
	if err != nil {
		return escrowError(c, err)
	}

	return response.Success(c, "Work submitted", sub)
}

// ReviewSubmission applies the client's accept/reject verdict.
func (h *EscrowHandler) ReviewSubmission(c *fiber.Ctx) error {
	claims := c.Locals("claims").(*models.UserClaims)

	submissionID, err := c.ParamsInt("id")
	if err != nil || submissionID <= 0 {
		return response.BadRequest(c, "Invalid submission id")
	}

	var input struct {
		Decision string `json:"decision" validate:"required"`
		Feedback string `json:"feedback"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}

	err = h.escrowService.ReviewSubmission(
		c.Context(),
		uint(submissionID),
		claims.UserID,
		escrow.ReviewDecision(input.Decision),
		input.Feedback,
	)
	if err != nil {
		return escrowError(c, err)
	}

	return response.Success(c, "Review recorded", nil)
}

// Withdraw pays out a finder's available balance.
func (h *EscrowHandler) Withdraw(c *fiber.Ctx) error {
	claims := c.Locals("claims").(*models.UserClaims)

	var input struct {
		Amount decimal.Decimal `json:"amount" validate:"required"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}

	receipt, err := h.escrowService.Withdraw(c.Context(), claims.UserID, input.Amount)
	if err != nil {
		return escrowError(c, err)
	}

	return response.Success(c, "Withdrawal processed", receipt)
}

// escrowError maps service errors to HTTP responses with a clear reason.
func escrowError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, escrow.ErrAmountMismatch),
		errors.Is(err, escrow.ErrInvalidAmount),
		errors.Is(err, escrow.ErrInvalidDecision),
		errors.Is(err, escrow.ErrInsufficientBalance),
		errors.Is(err, escrow.ErrSubmissionActive),
		errors.Is(err, escrow.ErrSubmissionNotOpen),
		errors.Is(err, escrow.ErrNotFunded),
		errors.Is(err, escrow.ErrContractCancelled),
		errors.Is(err, escrow.ErrContractCompleted):
		return response.BadRequest(c, err.Error())
	case errors.Is(err, escrow.ErrNotContractFinder),
		errors.Is(err, escrow.ErrNotContractClient):
		return response.Error(c, fiber.StatusForbidden, err.Error())
	default:
		return response.ServerError(c, "Operation failed")
	}
}
