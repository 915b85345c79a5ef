package handlers

import (
	"findr/internal/models"
	"findr/internal/services/escrow"
	"findr/internal/services/scheduler"
	"findr/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

// AdminHandler exposes the manual operational surface: forcing a single
// contract's release, cancelling a contract and triggering a full
// scheduler pass synchronously.
type AdminHandler struct {
	escrowService escrow.Service
	autoRelease   *scheduler.AutoRelease
}

func NewAdminHandler(escrowSvc escrow.Service, autoRelease *scheduler.AutoRelease) *AdminHandler {
	return &AdminHandler{
		escrowService: escrowSvc,
		autoRelease:   autoRelease,
	}
}

// ForceRelease releases a single contract's escrowed funds.
func (h *AdminHandler) ForceRelease(c *fiber.Ctx) error {
	contractID, err := c.ParamsInt("id")
	if err != nil || contractID <= 0 {
		return response.BadRequest(c, "Invalid contract id")
	}

	released, err := h.escrowService.ReleaseFunds(c.Context(), uint(contractID), "released by administrator")
	if err != nil {
		return escrowError(c, err)
	}

	return response.Success(c, "Release processed", fiber.Map{
		"contract_id": contractID,
		"released":    released,
	})
}

// CancelContract refunds the client and closes the contract.
func (h *AdminHandler) CancelContract(c *fiber.Ctx) error {
	claims := c.Locals("claims").(*models.UserClaims)

	contractID, err := c.ParamsInt("id")
	if err != nil || contractID <= 0 {
		return response.BadRequest(c, "Invalid contract id")
	}

	var input struct {
		Reason string `json:"reason" validate:"required"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}
	if input.Reason == "" {
		return response.ValidationError(c, "Cancellation reason is required")
	}

	if err := h.escrowService.CancelContract(c.Context(), uint(contractID), claims.UserID, input.Reason); err != nil {
		return escrowError(c, err)
	}

	return response.Success(c, "Contract cancelled", nil)
}

// RunScheduler triggers one synchronous auto-release pass.
func (h *AdminHandler) RunScheduler(c *fiber.Ctx) error {
	released, err := h.autoRelease.Run(c.Context())
	if err != nil {
		return response.ServerError(c, "Scheduler pass failed")
	}

	return response.Success(c, "Scheduler pass complete", fiber.Map{
		"released": released,
	})
}
