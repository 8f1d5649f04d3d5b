package main

import (
	"context"
	"time"

	"github.com/creditrail/creditrail/internal/api"
	v1 "github.com/creditrail/creditrail/internal/api/v1"
	"github.com/creditrail/creditrail/internal/config"
	"github.com/creditrail/creditrail/internal/integration/stripe"
	"github.com/creditrail/creditrail/internal/logger"
	"github.com/creditrail/creditrail/internal/postgres"
	"github.com/creditrail/creditrail/internal/repository"
	"github.com/creditrail/creditrail/internal/service"
	"github.com/creditrail/creditrail/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	// Local development convenience; missing .env is fine.
	_ = godotenv.Load()

	app := fx.New(
		fx.Provide(
			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// Payment provider gateway
			stripe.NewClient,

			// HTTP handlers
			v1.NewHealthHandler,
			v1.NewWebhookHandler,
			v1.NewAccountHandler,
			api.NewRouter,
		),
		postgres.Module(),
		repository.Module(),
		service.Module(),
		fx.Invoke(startServer),
	)

	app.Run()
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	log *logger.Logger,
) {
	mode := cfg.Deployment.Mode
	if mode == "" {
		mode = types.ModeLocal
	}

	switch mode {
	case types.ModeLocal, types.ModeAPI:
		startAPIServer(lc, r, cfg, log)
	default:
		log.Fatalf("Unknown deployment mode: %s", mode)
	}
}

func startAPIServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting API server", "address", cfg.Server.Address)
			go func() {
				if err := r.Run(cfg.Server.Address); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return nil
		},
	})
}
