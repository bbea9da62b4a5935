package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/costaverde/billing-backend/internal/middleware"
)

// RegisterRoutes sets up all API routes. Every client-scoped route runs
// behind JWT authentication, the client access roster check, and the
// per-client rate limiter.
func RegisterRoutes(
	e *echo.Echo,
	authMiddleware *middleware.AuthMiddleware,
	rateLimiter *middleware.RateLimiter,
	paymentHandler *PaymentHandler,
	statementHandler *StatementHandler,
	penaltyHandler *PenaltyHandler,
	receiptHandler *ReceiptHandler,
) {
	// Health check (public)
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	api := e.Group("/api/v1")

	clients := api.Group("/clients/:clientId")
	clients.Use(authMiddleware.Authenticate())
	clients.Use(authMiddleware.RequireClient())
	clients.Use(middleware.RateLimitMiddleware(rateLimiter))

	// Unified payment engine
	clients.POST("/units/:unitId/payments/preview", paymentHandler.Preview)
	clients.POST("/units/:unitId/payments", paymentHandler.Record)

	// Account statements
	clients.GET("/units/:unitId/statement/:fiscalYear", statementHandler.Get)

	// Stored penalty writeback
	clients.POST("/penalties/refresh/:fiscalYear", penaltyHandler.Refresh)

	// Payment receipts
	clients.POST("/transactions/:transactionId/receipt", receiptHandler.Upload)
	clients.GET("/transactions/:transactionId/receipt/:receiptId", receiptHandler.GetURLs)
	clients.DELETE("/transactions/:transactionId/receipt/:receiptId", receiptHandler.Delete)
}
