package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/costaverde/billing-backend/internal/domain"
	"github.com/costaverde/billing-backend/internal/middleware"
	"github.com/costaverde/billing-backend/internal/service"
)

// PaymentHandler handles payment preview and recording endpoints
type PaymentHandler struct {
	payments *service.PaymentService
}

func NewPaymentHandler(payments *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// PaymentBody is the wire form of a payment. Amounts arrive as decimal
// peso strings ("914.30") and are converted to centavos at the boundary.
type PaymentBody struct {
	Amount            string  `json:"amount"`
	Date              string  `json:"date,omitempty"` // RFC 3339; defaults to now
	PaymentMethod     string  `json:"paymentMethod,omitempty"`
	Reference         string  `json:"reference,omitempty"`
	Notes             string  `json:"notes,omitempty"`
	AccountID         string  `json:"accountId,omitempty"`
	AccountType       string  `json:"accountType,omitempty"`
	ExpectedAllocated *string `json:"expectedAllocated,omitempty"`
}

func (b *PaymentBody) toRequest(unitID, userID string) (service.PaymentRequest, []ValidationError) {
	var verrs []ValidationError
	req := service.PaymentRequest{
		UnitID:      unitID,
		Method:      b.PaymentMethod,
		Reference:   b.Reference,
		Notes:       b.Notes,
		AccountID:   b.AccountID,
		AccountType: b.AccountType,
		UserID:      userID,
	}
	if unitID == "" {
		verrs = append(verrs, ValidationError{Field: "unitId", Message: "unit ID is required"})
	}
	amount, err := domain.ParsePesos(b.Amount)
	if err != nil {
		verrs = append(verrs, ValidationError{Field: "amount", Message: "invalid amount"})
	}
	req.Amount = amount
	if b.Date != "" {
		date, err := time.Parse(time.RFC3339, b.Date)
		if err != nil {
			verrs = append(verrs, ValidationError{Field: "date", Message: "invalid date format, expected RFC 3339"})
		}
		req.Date = date
	}
	if b.ExpectedAllocated != nil {
		expected, err := domain.ParsePesos(*b.ExpectedAllocated)
		if err != nil {
			verrs = append(verrs, ValidationError{Field: "expectedAllocated", Message: "invalid expected allocation"})
		}
		req.ExpectedAllocated = &expected
	}
	return req, verrs
}

// Preview handles POST /api/v1/clients/:clientId/units/:unitId/payments/preview
func (h *PaymentHandler) Preview(c echo.Context) error {
	clientID := middleware.GetClientID(c)

	var body PaymentBody
	if err := c.Bind(&body); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	req, verrs := body.toRequest(c.Param("unitId"), middleware.GetSubject(c))
	if len(verrs) > 0 {
		return NewValidationError(c, "Invalid payment", verrs)
	}

	preview, err := h.payments.Preview(c.Request().Context(), clientID, req)
	if err != nil {
		return h.mapError(c, err, clientID)
	}
	return c.JSON(http.StatusOK, preview)
}

// Record handles POST /api/v1/clients/:clientId/units/:unitId/payments
func (h *PaymentHandler) Record(c echo.Context) error {
	clientID := middleware.GetClientID(c)

	var body PaymentBody
	if err := c.Bind(&body); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	req, verrs := body.toRequest(c.Param("unitId"), middleware.GetSubject(c))
	if req.ExpectedAllocated == nil {
		verrs = append(verrs, ValidationError{Field: "expectedAllocated", Message: "the previewed allocation total is required"})
	}
	if len(verrs) > 0 {
		return NewValidationError(c, "Invalid payment", verrs)
	}

	result, err := h.payments.Record(c.Request().Context(), clientID, req)
	if err != nil {
		return h.mapError(c, err, clientID)
	}
	return c.JSON(http.StatusCreated, result)
}

// mapError translates payment engine errors into problem responses.
func (h *PaymentHandler) mapError(c echo.Context, err error, clientID string) error {
	var stale *domain.StaleStateError
	var mismatch *domain.AllocationMismatchError
	switch {
	case errors.As(err, &stale):
		return NewConflictError(c, stale.Error())
	case errors.As(err, &mismatch):
		log.Error().Err(err).Str("client_id", clientID).Msg("Payment allocation mismatch")
		return NewInternalError(c, "Payment allocations are inconsistent")
	case errors.Is(err, domain.ErrConfigMissing):
		return NewNotFoundError(c, "Billing configuration not found for this client")
	case errors.Is(err, domain.ErrBillNotFound):
		return NewNotFoundError(c, "A billed document referenced by this payment no longer exists")
	case errors.Is(err, domain.ErrInvalidInput):
		return NewValidationError(c, err.Error(), nil)
	default:
		log.Error().Err(err).Str("client_id", clientID).Msg("Payment processing failed")
		return NewInternalError(c, "Failed to process payment")
	}
}
