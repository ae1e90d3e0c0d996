package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dafibh/fintrack/fintrack-backend/internal/amqp"
	"github.com/dafibh/fintrack/fintrack-backend/internal/app"
	"github.com/dafibh/fintrack/fintrack-backend/internal/config"
	"github.com/dafibh/fintrack/fintrack-backend/internal/event"
	"github.com/dafibh/fintrack/fintrack-backend/internal/handler"
	"github.com/dafibh/fintrack/fintrack-backend/internal/middleware"
	"github.com/dafibh/fintrack/fintrack-backend/internal/websocket"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// @title FinTrack API
// @version 1.0
// @description Income and expense ledger with per-category tax rules.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Initialize zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx := context.Background()

	// Connect to the configured database
	repos, err := app.OpenRepositories(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("provider", cfg.DBProvider).Msg("Failed to open database")
	}
	defer repos.Close()

	objectStore, err := app.OpenObjectStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to object storage")
	}

	// Event fan-out: websocket clients always, the broker when configured
	hub := websocket.NewHub()

	publishers := event.MultiPublisher{hub}
	if cfg.AMQP.URL != "" {
		broker, err := amqp.Dial(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to message broker")
		}
		defer func() {
			if err := broker.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close message broker connection")
			}
		}()
		publishers = append(publishers, broker)
		log.Info().Str("exchange", cfg.AMQP.Exchange).Msg("Publishing events to message broker")
	}

	// Initialize services
	services := app.NewServices(repos, objectStore, publishers)

	// Initialize auth middleware
	var authMiddleware *middleware.AuthMiddleware
	var tokenValidator handler.TokenValidator
	if cfg.AuthEnabled() {
		authMiddleware, err = middleware.NewAuthMiddleware(cfg.Auth0Domain, cfg.Auth0Audience)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create auth middleware")
		}
		tokenValidator = authMiddleware
	} else {
		log.Warn().Msg("AUTH0_DOMAIN not set, API is unauthenticated")
	}

	var rateLimiter *middleware.RateLimiter
	if cfg.RateLimitPerMinute > 0 {
		rateLimiter = middleware.NewRateLimiterWithConfig(cfg.RateLimitPerMinute, cfg.RateLimitBurst)
		defer rateLimiter.Stop()
	}

	// Initialize handlers
	handlers := handler.Handlers{
		Category:    handler.NewCategoryHandler(services.Categories),
		Transaction: handler.NewTransactionHandler(services.Transactions, services.Imports, services.Receipts),
		Report:      handler.NewReportHandler(services.Transactions, services.Reports),
		Dashboard:   handler.NewDashboardHandler(services.Dashboard),
		WebSocket:   handler.NewWebSocketHandler(hub, tokenValidator, cfg.CORSOrigins),
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Request ID middleware
	e.Use(echomiddleware.RequestID())

	// CORS middleware
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Security headers middleware
	e.Use(echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))

	e.Use(zerologMiddleware())
	e.Use(echomiddleware.Recover())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "provider": repos.Provider})
	})

	handler.RegisterRoutes(e, authMiddleware, rateLimiter, handlers)

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Str("provider", cfg.DBProvider).Msg("Starting server")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// zerologMiddleware returns a middleware that logs requests using zerolog
func zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			evt := log.Info()
			if res.Status >= http.StatusInternalServerError {
				evt = log.Error()
			}
			evt.
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", res.Status).
				Dur("latency", time.Since(start)).
				Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Msg("request")

			return nil
		}
	}
}
