package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/costaverde/billing-backend/internal/config"
	"github.com/costaverde/billing-backend/internal/domain"
	"github.com/costaverde/billing-backend/internal/handler"
	"github.com/costaverde/billing-backend/internal/middleware"
	"github.com/costaverde/billing-backend/internal/repository/docstore"
	"github.com/costaverde/billing-backend/internal/repository/storage"
	"github.com/costaverde/billing-backend/internal/service"
	"github.com/costaverde/billing-backend/internal/store"
	"github.com/costaverde/billing-backend/internal/store/postgres"
)

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

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Str("timezone", cfg.Timezone).Msg("Unknown billing timezone")
	}
	clock := store.TZClock{Loc: loc}

	// Connect to database
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	// Verify database connection
	if err := pool.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Connected to database")

	docs, err := postgres.NewDocStore(context.Background(), pool)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize document store")
	}

	// Initialize repositories
	duesRepo := docstore.NewDuesRepository(docs)
	waterRepo := docstore.NewWaterRepository(docs)
	creditRepo := docstore.NewCreditRepository(docs)
	txnRepo := docstore.NewTransactionRepository(docs)
	configRepo := docstore.NewConfigRepository(docs)

	// Receipt storage is optional; without credentials the receipt
	// endpoints report the feature as unavailable.
	var receiptRepo storage.ReceiptRepository
	if cfg.S3.AccessKeyID != "" || cfg.S3.Endpoint != "" {
		s3Repo, err := storage.NewS3ReceiptRepository(context.Background(), cfg.S3)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize receipt storage")
		}
		receiptRepo = s3Repo
		log.Info().Str("bucket", cfg.S3.Bucket).Msg("Receipt storage enabled")
	} else {
		log.Warn().Msg("Receipt storage not configured; receipt endpoints disabled")
	}

	// Initialize services
	duesService := service.NewDuesService(duesRepo, loc)
	waterService := service.NewWaterService(waterRepo, loc)
	creditService := service.NewCreditService(creditRepo, clock)
	configService := service.NewConfigService(configRepo, clock)
	paymentService := service.NewPaymentService(duesService, waterService, creditService, configService,
		duesRepo, creditRepo, txnRepo, clock, loc)
	statementService := service.NewStatementService(duesService, waterService, creditService, configService,
		duesRepo, txnRepo, clock, loc)
	penaltyService := service.NewPenaltyService(waterRepo, waterService, configService, clock)
	receiptService := service.NewReceiptService(receiptRepo)

	// Initialize auth middleware with the roster-backed authorizer
	authorizer := &rosterAuthorizer{configRepo: configRepo}
	authMiddleware, err := middleware.NewAuthMiddleware(cfg.Auth0Domain, cfg.Auth0Audience, authorizer)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create auth middleware")
	}
	rateLimiter := middleware.NewRateLimiter()
	defer rateLimiter.Stop()

	// Initialize handlers
	paymentHandler := handler.NewPaymentHandler(paymentService)
	statementHandler := handler.NewStatementHandler(statementService)
	penaltyHandler := handler.NewPenaltyHandler(penaltyService)
	receiptHandler := handler.NewReceiptHandler(receiptService)

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

	// Security headers middleware (helmet-like)
	e.Use(echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))

	// Request logging middleware with zerolog
	e.Use(zerologMiddleware())

	// Recovery middleware
	e.Use(echomiddleware.Recover())

	// Register API routes
	handler.RegisterRoutes(e, authMiddleware, rateLimiter,
		paymentHandler, statementHandler, penaltyHandler, receiptHandler)

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// rosterAuthorizer adapts ConfigRepository to middleware.ClientAuthorizer
type rosterAuthorizer struct {
	configRepo *docstore.ConfigRepository
}

// Authorize implements middleware.ClientAuthorizer
func (a *rosterAuthorizer) Authorize(ctx context.Context, clientID, subject string) (string, error) {
	roster, err := a.configRepo.GetAccessRoster(ctx, clientID)
	if err != nil {
		return "", err
	}
	role, ok := roster.Users[subject]
	if !ok {
		return "", domain.ErrForbidden
	}
	return role, nil
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

			log.Info().
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
