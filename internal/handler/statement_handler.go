package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/costaverde/billing-backend/internal/domain"
	"github.com/costaverde/billing-backend/internal/middleware"
	"github.com/costaverde/billing-backend/internal/service"
)

// StatementHandler serves per-unit account statements
type StatementHandler struct {
	statements *service.StatementService
}

func NewStatementHandler(statements *service.StatementService) *StatementHandler {
	return &StatementHandler{statements: statements}
}

// Get handles GET /api/v1/clients/:clientId/units/:unitId/statement/:fiscalYear
func (h *StatementHandler) Get(c echo.Context) error {
	clientID := middleware.GetClientID(c)
	unitID := c.Param("unitId")
	if unitID == "" {
		return NewValidationError(c, "Invalid unit", []ValidationError{
			{Field: "unitId", Message: "unit ID is required"},
		})
	}
	fiscalYear, err := strconv.Atoi(c.Param("fiscalYear"))
	if err != nil || fiscalYear < 2000 || fiscalYear > 2200 {
		return NewValidationError(c, "Invalid fiscal year", []ValidationError{
			{Field: "fiscalYear", Message: "fiscal year must be a four-digit year"},
		})
	}

	// Future lines are excluded by default; excludeFutureBills=false
	// keeps the full year on the statement.
	includeFuture := c.QueryParam("excludeFutureBills") == "false"

	statement, err := h.statements.Compose(c.Request().Context(), clientID, unitID, fiscalYear, includeFuture)
	if err != nil {
		if errors.Is(err, domain.ErrConfigMissing) {
			return NewNotFoundError(c, "Billing configuration not found for this client")
		}
		log.Error().Err(err).
			Str("client_id", clientID).
			Str("unit_id", unitID).
			Int("fiscal_year", fiscalYear).
			Msg("Statement composition failed")
		return NewInternalError(c, "Failed to compose statement")
	}
	return c.JSON(http.StatusOK, statement)
}
