package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/costaverde/billing-backend/internal/domain"
	"github.com/costaverde/billing-backend/internal/testutil"
)

func newStatementService(f *testutil.Fixture, now time.Time) *StatementService {
	clock := testutil.FixedClock{T: now}
	dues := NewDuesService(f.Dues, testutil.Cancun)
	water := NewWaterService(f.Water, testutil.Cancun)
	credit := NewCreditService(f.Credit, clock)
	config := NewConfigService(f.Config, clock)
	return NewStatementService(dues, water, credit, config, f.Dues, f.Txns, clock, testutil.Cancun)
}

func TestStatementService_ChargesAndRunningBalance(t *testing.T) {
	f := testutil.NewFixture(t, "costa-verde")
	f.SeedDues(t, "A-101", 2026, 100000)

	svc := newStatementService(f, testutil.Date(2025, time.September, 15))
	st, err := svc.Compose(context.Background(), f.ClientID, "A-101", 2026, false)
	require.NoError(t, err)

	assert.Equal(t, int64(0), st.OpeningBalance)

	// July through September dues, each with an accrued penalty
	require.Len(t, st.Lines, 6)
	assert.Equal(t, domain.LineCharge, st.Lines[0].Type)
	assert.Equal(t, int64(100000), st.Lines[0].Charge)
	assert.Equal(t, int64(100000), st.Lines[0].Balance)
	assert.Equal(t, domain.LinePenalty, st.Lines[1].Type)

	// charges sort before penalties on the same date, and the running
	// balance accumulates to the closing total
	assert.Equal(t, int64(331013), st.ClosingBalance)
	assert.Empty(t, st.Warnings)
}

func TestStatementService_PaymentsReduceBalance(t *testing.T) {
	f := seedArrears(t)
	now := testutil.Date(2025, time.September, 15)

	pay := newPaymentService(f, now)
	total := int64(115763 + 110250 + 105000 + 55125)
	result, err := pay.Record(context.Background(), f.ClientID, PaymentRequest{
		UnitID:            "A-101",
		Amount:            total,
		Method:            "transfer",
		ExpectedAllocated: &total,
	})
	require.NoError(t, err)

	svc := newStatementService(f, now)
	st, err := svc.Compose(context.Background(), f.ClientID, "A-101", 2026, false)
	require.NoError(t, err)

	assert.Equal(t, int64(0), st.ClosingBalance)
	assert.Empty(t, st.Warnings)

	var paymentLines int
	for _, l := range st.Lines {
		if l.Type == domain.LinePayment {
			paymentLines++
			assert.Equal(t, result.Transaction.ID, l.TransactionRef)
		}
	}
	// one line per bill allocation: 4 base + 4 penalty
	assert.Equal(t, 8, paymentLines)

	assert.Equal(t, int64(300000), st.TotalsByCategory[domain.CategoryHOADues])
	assert.Equal(t, int64(31013), st.TotalsByCategory[domain.CategoryHOAPenalty])
	assert.Equal(t, int64(50000), st.TotalsByCategory[domain.CategoryWater])
	assert.Equal(t, int64(5125), st.TotalsByCategory[domain.CategoryWaterPenalty])
}

func TestStatementService_HOAPreviewWindow(t *testing.T) {
	f := testutil.NewFixture(t, "costa-verde")
	f.SeedDues(t, "A-101", 2026, 100000)

	// September 20: October 1 dues fall inside the 15-day window
	svc := newStatementService(f, testutil.Date(2025, time.September, 20))
	st, err := svc.Compose(context.Background(), f.ClientID, "A-101", 2026, false)
	require.NoError(t, err)

	var octCharge *domain.StatementLine
	for i := range st.Lines {
		if st.Lines[i].Type == domain.LineCharge && st.Lines[i].Date.Month() == time.October {
			octCharge = &st.Lines[i]
		}
	}
	require.NotNil(t, octCharge, "October dues should preview")
	assert.Equal(t, int64(100000), octCharge.Charge)

	// November stays out
	for _, l := range st.Lines {
		assert.NotEqual(t, time.November, l.Date.Month())
	}
}

func TestStatementService_OpeningBalanceFromCredit(t *testing.T) {
	f := testutil.NewFixture(t, "costa-verde")
	f.SeedDues(t, "A-101", 2026, 100000)
	f.SeedCredit(t, "A-101", 20000, testutil.Date(2025, time.June, 1))

	svc := newStatementService(f, testutil.Date(2025, time.July, 15))
	st, err := svc.Compose(context.Background(), f.ClientID, "A-101", 2026, false)
	require.NoError(t, err)

	// credit held for the unit counts against what it owes
	assert.Equal(t, int64(-20000), st.OpeningBalance)
	assert.Equal(t, int64(20000), st.CreditBalance)
}

func TestStatementService_ManualCreditLine(t *testing.T) {
	f := testutil.NewFixture(t, "costa-verde")
	f.SeedDues(t, "A-101", 2026, 100000)

	clock := testutil.FixedClock{T: testutil.Date(2025, time.August, 20)}
	credit := NewCreditService(f.Credit, clock)
	err := credit.Append(context.Background(), f.ClientID, "A-101", domain.CreditEntry{
		Amount: 15000,
		Type:   domain.CreditManualAdjustment,
		Source: domain.CreditSourceManual,
		Note:   "billing correction",
	})
	require.NoError(t, err)

	svc := newStatementService(f, testutil.Date(2025, time.September, 15))
	st, err := svc.Compose(context.Background(), f.ClientID, "A-101", 2026, false)
	require.NoError(t, err)

	var creditLine *domain.StatementLine
	for i := range st.Lines {
		if st.Lines[i].Type == domain.LineCredit {
			creditLine = &st.Lines[i]
		}
	}
	require.NotNil(t, creditLine)
	assert.Equal(t, "billing correction", creditLine.Description)
	assert.Equal(t, int64(15000), creditLine.Payment)
	assert.Equal(t, int64(-15000), creditLine.SignedAmount)
}

func TestStatementService_ReconciliationWarning(t *testing.T) {
	f := testutil.NewFixture(t, "costa-verde")
	f.SeedDues(t, "A-101", 2026, 100000)

	// a ghost payment: the transaction exists but no dues slot was ever
	// updated, so bill-level state disagrees with the line total
	ctx := context.Background()
	ghost := &domain.Transaction{
		ID:       "ghost-1",
		ClientID: f.ClientID,
		UnitID:   "A-101",
		Date:     testutil.Date(2025, time.August, 5),
		Amount:   100000,
		Type:     domain.TransactionTypeIncome,
		Allocations: []domain.Allocation{{
			Type:       domain.AllocHOAMonth,
			TargetID:   "A-101-2026-00",
			Amount:     100000,
			CategoryID: domain.CategoryHOADues,
		}},
	}
	b := f.Store.Batch()
	f.Txns.StageCreate(b, ghost)
	require.NoError(t, b.Commit(ctx))

	svc := newStatementService(f, testutil.Date(2025, time.September, 15))
	st, err := svc.Compose(ctx, f.ClientID, "A-101", 2026, false)
	require.NoError(t, err)
	require.NotEmpty(t, st.Warnings)

	// a large discrepancy is surfaced, never papered over
	assert.Equal(t, int64(231013), st.ClosingBalance)
}

func TestStatementService_RoundingReconciledToBillState(t *testing.T) {
	f := testutil.NewFixture(t, "costa-verde")
	f.SeedDues(t, "A-101", 2026, 100000)

	// a one-centavo ghost: line total drifts below bill-level state by
	// exactly the rounding tolerance
	ctx := context.Background()
	ghost := &domain.Transaction{
		ID:       "ghost-2",
		ClientID: f.ClientID,
		UnitID:   "A-101",
		Date:     testutil.Date(2025, time.August, 5),
		Amount:   1,
		Type:     domain.TransactionTypeIncome,
		Allocations: []domain.Allocation{{
			Type:       domain.AllocHOAMonth,
			TargetID:   "A-101-2026-00",
			Amount:     1,
			CategoryID: domain.CategoryHOADues,
		}},
	}
	b := f.Store.Batch()
	f.Txns.StageCreate(b, ghost)
	require.NoError(t, b.Commit(ctx))

	svc := newStatementService(f, testutil.Date(2025, time.September, 15))
	st, err := svc.Compose(ctx, f.ClientID, "A-101", 2026, false)
	require.NoError(t, err)

	// within tolerance the bill-derived figure is authoritative
	assert.Equal(t, int64(331013), st.ClosingBalance)
	require.Len(t, st.Warnings, 1)
	assert.Contains(t, st.Warnings[0], "rounding")
}
