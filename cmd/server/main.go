package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"

	"github.com/example/bistro/internal/config"
	"github.com/example/bistro/internal/database"
	"github.com/example/bistro/internal/handlers"
	"github.com/example/bistro/internal/logging"
	"github.com/example/bistro/internal/routes"
)

func main() {
	cfg := config.Load()
	logging.Setup(cfg, "bistro-api")

	db, err := database.Connect(cfg.DatabaseURL, cfg.DBLogLevel)
	if err != nil {
		log.Fatal().Err(err).Msg("database: connect failed")
	}

	app := fiber.New(fiber.Config{
		AppName:      "Bistro Backend",
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: cfg.RequestTimeout,
		ErrorHandler: handlers.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New())

	routes.Register(app, db, cfg)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Info().Msg("server: shutting down")
		if err := app.Shutdown(); err != nil {
			log.Error().Err(err).Msg("server: shutdown failed")
		}
	}()

	log.Info().Str("port", cfg.AppPort).Msg("server: starting")
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.Fatal().Err(err).Msg("fiber.Listen error")
	}
}
