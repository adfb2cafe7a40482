// Command reconcile runs one loyalty reconciliation pass and exits.
// Intended for cron and for operators after a reward failure alert.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/example/bistro/internal/config"
	"github.com/example/bistro/internal/database"
	"github.com/example/bistro/internal/logging"
	"github.com/example/bistro/internal/services"
)

func main() {
	cfg := config.Load()
	logging.Setup(cfg, "bistro-reconcile")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.DatabaseURL, cfg.DBLogLevel)
	if err != nil {
		log.Fatal().Err(err).Msg("database: connect failed")
	}

	issuer := services.NewRewardIssuer(db, services.NewMultiplierResolver(services.NewGormBoostSource(db)))
	reconciler := services.NewReconciler(
		db,
		issuer,
		services.NewNotificationService(db),
		services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat),
		services.SignupBonus{XP: cfg.SignupBonusXP, Tokens: cfg.SignupBonusTokens},
	)

	summary, err := reconciler.Run(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("reconciliation: aborted")
	}

	if summary.OrdersFailed > 0 {
		log.Warn().Int("orders_failed", summary.OrdersFailed).Msg("reconciliation: completed with failures")
		os.Exit(2)
	}
}
