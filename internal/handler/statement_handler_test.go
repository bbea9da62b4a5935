package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/costaverde/billing-backend/internal/domain"
	"github.com/costaverde/billing-backend/internal/testutil"
)

func TestStatementHandler_Get(t *testing.T) {
	e := newEnv(t, testutil.Date(2025, 9, 15))
	e.f.SeedDues(t, "A-101", 2026, 100000)
	h := NewStatementHandler(e.statements)

	c, rec := newClientContext(http.MethodGet,
		"/api/v1/clients/costa-verde/units/A-101/statement/2026",
		nil, "",
		map[string]string{"clientId": "costa-verde", "unitId": "A-101", "fiscalYear": "2026"})

	require.NoError(t, h.Get(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var st domain.Statement
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, 2026, st.FiscalYear)
	assert.Equal(t, "A-101", st.UnitID)
	// three overdue months, each a charge and a penalty line
	assert.Len(t, st.Lines, 6)
	assert.Equal(t, int64(331013), st.ClosingBalance)
	assert.Empty(t, st.Warnings)
}

func TestStatementHandler_Get_IncludeFuture(t *testing.T) {
	e := newEnv(t, testutil.Date(2025, 9, 15))
	e.f.SeedDues(t, "A-101", 2026, 100000)
	h := NewStatementHandler(e.statements)

	c, rec := newClientContext(http.MethodGet,
		"/api/v1/clients/costa-verde/units/A-101/statement/2026?excludeFutureBills=false",
		nil, "",
		map[string]string{"clientId": "costa-verde", "unitId": "A-101", "fiscalYear": "2026"})

	require.NoError(t, h.Get(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var st domain.Statement
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	// full year: twelve charges plus the three accrued penalties
	assert.Len(t, st.Lines, 15)
	assert.Equal(t, int64(1231013), st.ClosingBalance)
	assert.Empty(t, st.Warnings)
}

func TestStatementHandler_Get_InvalidYear(t *testing.T) {
	e := newEnv(t, testutil.Date(2025, 9, 15))
	h := NewStatementHandler(e.statements)

	c, rec := newClientContext(http.MethodGet,
		"/api/v1/clients/costa-verde/units/A-101/statement/20x6",
		nil, "",
		map[string]string{"clientId": "costa-verde", "unitId": "A-101", "fiscalYear": "20x6"})

	require.NoError(t, h.Get(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
