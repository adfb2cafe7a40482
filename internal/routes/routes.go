package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/bistro/internal/config"
	"github.com/example/bistro/internal/handlers"
	"github.com/example/bistro/internal/middleware"
	"github.com/example/bistro/internal/services"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	telegramService := services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat)
	notificationService := services.NewNotificationService(db)

	issuer := services.NewRewardIssuer(db, services.NewMultiplierResolver(services.NewGormBoostSource(db)))
	orderService := services.NewOrderService(db, issuer, notificationService, telegramService, cfg.DeliveryFee, cfg.Currency)
	reconciler := services.NewReconciler(db, issuer, notificationService, telegramService, services.SignupBonus{
		XP:     cfg.SignupBonusXP,
		Tokens: cfg.SignupBonusTokens,
	})

	orderHandler := handlers.NewOrderHandler(orderService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	adminHandler := handlers.NewAdminHandler(orderService, reconciler)

	auth := middleware.AuthMiddleware(cfg)

	api := app.Group("/api")

	// Checkout accepts guests; a valid token attaches the order to its user.
	api.Post("/orders", middleware.OptionalAuth(cfg), orderHandler.CreateOrder)
	api.Get("/orders", auth, orderHandler.ListOrders)
	api.Get("/orders/:id", auth, orderHandler.GetOrder)

	api.Get("/notifications", auth, notificationHandler.ListNotifications)
	api.Post("/notifications/:id/read", auth, notificationHandler.MarkRead)

	admin := api.Group("/admin", auth, middleware.AdminOnly())
	admin.Get("/orders", adminHandler.ListAllOrders)
	admin.Patch("/orders/:id/status", adminHandler.UpdateOrderStatus)
	admin.Post("/orders/:id/reward", adminHandler.IssueReward)
	admin.Post("/loyalty/reconcile", adminHandler.Reconcile)
}
