package handler

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/costaverde/billing-backend/internal/middleware"
	"github.com/costaverde/billing-backend/internal/service"
	"github.com/costaverde/billing-backend/internal/testutil"
)

// env wires the billing services over a memory-backed fixture for
// handler tests.
type env struct {
	f          *testutil.Fixture
	payments   *service.PaymentService
	statements *service.StatementService
	penalties  *service.PenaltyService
}

func newEnv(t *testing.T, now time.Time) *env {
	t.Helper()
	f := testutil.NewFixture(t, "costa-verde")
	clock := testutil.FixedClock{T: now}
	loc := testutil.Cancun

	dues := service.NewDuesService(f.Dues, loc)
	water := service.NewWaterService(f.Water, loc)
	credit := service.NewCreditService(f.Credit, clock)
	config := service.NewConfigService(f.Config, clock)

	return &env{
		f:          f,
		payments:   service.NewPaymentService(dues, water, credit, config, f.Dues, f.Credit, f.Txns, clock, loc),
		statements: service.NewStatementService(dues, water, credit, config, f.Dues, f.Txns, clock, loc),
		penalties:  service.NewPenaltyService(f.Water, water, config, clock),
	}
}

// newClientContext builds an echo context carrying an authenticated,
// client-authorized request, the way the middleware chain would leave it.
func newClientContext(method, target string, body io.Reader, contentType string, params map[string]string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	ctx := context.WithValue(req.Context(), middleware.SubjectKey, "auth0|tester")
	ctx = context.WithValue(ctx, middleware.ClientIDKey, "costa-verde")
	req = req.WithContext(ctx)

	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	names := make([]string, 0, len(params))
	values := make([]string, 0, len(params))
	for name, value := range params {
		names = append(names, name)
		values = append(values, value)
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
	return c, rec
}
