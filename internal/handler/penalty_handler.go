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

// PenaltyHandler triggers the stored-penalty refresh pass
type PenaltyHandler struct {
	penalties *service.PenaltyService
}

func NewPenaltyHandler(penalties *service.PenaltyService) *PenaltyHandler {
	return &PenaltyHandler{penalties: penalties}
}

// Refresh handles POST /api/v1/clients/:clientId/penalties/refresh/:fiscalYear
func (h *PenaltyHandler) Refresh(c echo.Context) error {
	clientID := middleware.GetClientID(c)
	fiscalYear, err := strconv.Atoi(c.Param("fiscalYear"))
	if err != nil || fiscalYear < 2000 || fiscalYear > 2200 {
		return NewValidationError(c, "Invalid fiscal year", []ValidationError{
			{Field: "fiscalYear", Message: "fiscal year must be a four-digit year"},
		})
	}

	report, err := h.penalties.RefreshYear(c.Request().Context(), clientID, fiscalYear)
	if err != nil {
		if errors.Is(err, domain.ErrConfigMissing) {
			return NewNotFoundError(c, "Billing configuration not found for this client")
		}
		log.Error().Err(err).
			Str("client_id", clientID).
			Int("fiscal_year", fiscalYear).
			Msg("Penalty refresh failed")
		return NewInternalError(c, "Failed to refresh penalties")
	}
	return c.JSON(http.StatusOK, report)
}
