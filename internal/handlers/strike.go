package handlers

import (
	"errors"

	"findr/internal/models"
	"findr/internal/services/strike"
	"findr/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

type StrikeHandler struct {
	strikeService strike.Service
}

func NewStrikeHandler(strikeSvc strike.Service) *StrikeHandler {
	return &StrikeHandler{strikeService: strikeSvc}
}

// IssueStrike records an offense against a user. Admin only.
func (h *StrikeHandler) IssueStrike(c *fiber.Ctx) error {
	claims := c.Locals("claims").(*models.UserClaims)

	var input strike.IssueStrikeInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}
	if input.UserID == 0 || input.OffenseType == "" || input.Role == "" {
		return response.ValidationError(c, "user_id, offense_type and role are required")
	}
	input.IssuedBy = claims.UserID

	result, err := h.strikeService.IssueStrike(c.Context(), input)
	if err != nil {
		if errors.Is(err, strike.ErrInvalidOffense) {
			return response.BadRequest(c, err.Error())
		}
		return response.ServerError(c, "Failed to issue strike")
	}

	return response.Success(c, "Strike issued", result)
}

// GetUserRestrictions returns the composed restriction snapshot used by
// the marketplace to gate posting, applying and messaging.
func (h *StrikeHandler) GetUserRestrictions(c *fiber.Ctx) error {
	userID, err := c.ParamsInt("id")
	if err != nil || userID <= 0 {
		return response.BadRequest(c, "Invalid user id")
	}

	snapshot, err := h.strikeService.GetUserRestrictions(c.Context(), uint(userID))
	if err != nil {
		return response.ServerError(c, "Failed to load restrictions")
	}

	return response.Success(c, "Restrictions", snapshot)
}
