package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/costaverde/billing-backend/internal/middleware"
	"github.com/costaverde/billing-backend/internal/service"
)

// ReceiptHandler handles payment receipt image endpoints
type ReceiptHandler struct {
	receipts *service.ReceiptService
}

func NewReceiptHandler(receipts *service.ReceiptService) *ReceiptHandler {
	return &ReceiptHandler{receipts: receipts}
}

// Upload handles POST /api/v1/clients/:clientId/transactions/:transactionId/receipt
func (h *ReceiptHandler) Upload(c echo.Context) error {
	clientID := middleware.GetClientID(c)
	transactionID := c.Param("transactionId")

	file, err := c.FormFile("file")
	if err != nil {
		return NewValidationError(c, "Receipt file is required", []ValidationError{
			{Field: "file", Message: "multipart field 'file' is missing"},
		})
	}
	if file.Size > service.MaxReceiptSize {
		return NewValidationError(c, service.ErrReceiptTooLarge.Error(), nil)
	}

	src, err := file.Open()
	if err != nil {
		log.Error().Err(err).Msg("Failed to open uploaded receipt")
		return NewInternalError(c, "Failed to read uploaded file")
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, service.MaxReceiptSize+1))
	if err != nil {
		log.Error().Err(err).Msg("Failed to read uploaded receipt")
		return NewInternalError(c, "Failed to read uploaded file")
	}

	metadata, err := h.receipts.Upload(c.Request().Context(), clientID, transactionID, data, file.Filename)
	if err != nil {
		return h.mapError(c, err, clientID)
	}
	return c.JSON(http.StatusCreated, metadata)
}

// GetURLs handles GET /api/v1/clients/:clientId/transactions/:transactionId/receipt/:receiptId
func (h *ReceiptHandler) GetURLs(c echo.Context) error {
	clientID := middleware.GetClientID(c)
	transactionID := c.Param("transactionId")
	receiptID := c.Param("receiptId")

	urls, err := h.receipts.FetchURLs(c.Request().Context(), clientID, transactionID, receiptID)
	if err != nil {
		return h.mapError(c, err, clientID)
	}
	return c.JSON(http.StatusOK, urls)
}

// Delete handles DELETE /api/v1/clients/:clientId/transactions/:transactionId/receipt/:receiptId
func (h *ReceiptHandler) Delete(c echo.Context) error {
	clientID := middleware.GetClientID(c)
	transactionID := c.Param("transactionId")
	receiptID := c.Param("receiptId")

	if err := h.receipts.Delete(c.Request().Context(), clientID, transactionID, receiptID); err != nil {
		return h.mapError(c, err, clientID)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ReceiptHandler) mapError(c echo.Context, err error, clientID string) error {
	switch {
	case errors.Is(err, service.ErrStorageDisabled):
		return c.JSON(http.StatusServiceUnavailable, ProblemDetails{
			Type:     ErrorTypeInternal,
			Title:    "Receipt Storage Unavailable",
			Status:   http.StatusServiceUnavailable,
			Detail:   "Receipt storage is not configured for this deployment",
			Instance: c.Request().URL.Path,
		})
	case errors.Is(err, service.ErrReceiptTooLarge),
		errors.Is(err, service.ErrInvalidFormat),
		errors.Is(err, service.ErrReceiptTooSmall),
		errors.Is(err, service.ErrInvalidReceiptData):
		return NewValidationError(c, err.Error(), nil)
	default:
		log.Error().Err(err).Str("client_id", clientID).Msg("Receipt operation failed")
		return NewInternalError(c, "Failed to process receipt")
	}
}
