package routes

import (
	"findr/internal/handlers"
	"findr/internal/middleware"
	"findr/internal/models"
	"findr/internal/repositories"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// SetupRoutes wires every endpoint onto the fiber app. The webhook
// endpoint authenticates by HMAC signature instead of JWT; everything
// else sits behind JWT auth, with the admin surface further gated.
func SetupRoutes(
	app *fiber.App,
	store repositories.Store,
	escrowHandler *handlers.EscrowHandler,
	webhookHandler *handlers.WebhookHandler,
	strikeHandler *handlers.StrikeHandler,
	adminHandler *handlers.AdminHandler,
) {
	auth := middleware.NewAuthMiddleware(store)

	app.Get("/api/health", handlers.HealthCheck)

	// Gateway callbacks carry their own HMAC signature instead of a JWT.
	webhooks := app.Group("/api/webhooks")
	webhooks.Use(limiter.New(limiter.Config{Max: 120}))
	webhooks.Post("/payment", webhookHandler.HandlePaymentWebhook)

	api := app.Group("/api", auth.Handler)

	payments := api.Group("/payments")
	payments.Use(limiter.New(limiter.Config{Max: 30}))
	payments.Post("/verify", webhookHandler.VerifyPayment)

	api.Post("/contracts/:id/submission", escrowHandler.SubmitWork)
	api.Post("/submissions/:id/review", escrowHandler.ReviewSubmission)
	api.Post("/balance/withdraw", escrowHandler.Withdraw)

	api.Get("/users/:id/restrictions", strikeHandler.GetUserRestrictions)

	admin := api.Group("/admin", middleware.AdminOnly)
	admin.Post("/strikes", middleware.RequirePermission(models.PermissionStrikeWrite), strikeHandler.IssueStrike)
	admin.Post("/contracts/:id/release", adminHandler.ForceRelease)
	admin.Post("/contracts/:id/cancel", adminHandler.CancelContract)
	admin.Post("/scheduler/run", adminHandler.RunScheduler)
}
