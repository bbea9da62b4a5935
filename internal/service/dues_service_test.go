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

func TestDuesService_BillsForYear_Monthly(t *testing.T) {
	f := testutil.NewFixture(t, "costa-verde")
	f.SeedDues(t, "A-101", 2026, 100000)

	svc := NewDuesService(f.Dues, testutil.Cancun)
	cfg := loadConfig(t, f)

	bills, err := svc.BillsForYear(context.Background(), f.ClientID, "A-101", 2026, cfg)
	require.NoError(t, err)
	require.Len(t, bills, 12)

	first := bills[0]
	assert.Equal(t, "A-101-2026-00", first.ID)
	assert.Equal(t, domain.ModuleHOA, first.Module)
	assert.Equal(t, int64(100000), first.BaseCharge)
	assert.Equal(t, domain.BillStatusUnpaid, first.Status)
	// July-start year: fiscal month 0 falls due July 1 of the prior
	// calendar year
	assert.Equal(t, time.Date(2025, time.July, 1, 0, 0, 0, 0, testutil.Cancun), first.DueDate)
	assert.Equal(t, time.Date(2026, time.June, 1, 0, 0, 0, 0, testutil.Cancun), bills[11].DueDate)
}

func TestDuesService_BillsForYear_NoDocument(t *testing.T) {
	f := testutil.NewFixture(t, "costa-verde")
	svc := NewDuesService(f.Dues, testutil.Cancun)
	cfg := loadConfig(t, f)

	bills, err := svc.BillsForYear(context.Background(), f.ClientID, "A-101", 2026, cfg)
	require.NoError(t, err)
	assert.Empty(t, bills)
}

func TestDuesService_BillsForYear_PriorYearBacklog(t *testing.T) {
	f := testutil.NewFixture(t, "costa-verde")
	prior := f.SeedDues(t, "A-101", 2025, 100000)
	f.SeedDues(t, "A-101", 2026, 100000)

	// prior year: months 0-9 paid, 10 and 11 unpaid
	for i := 0; i < 10; i++ {
		prior.Payments[i] = domain.DuesSlot{Amount: 100000, BasePaid: 100000, Status: domain.BillStatusPaid}
	}
	prior.RecomputeTotalPaid()
	require.NoError(t, f.Dues.Save(context.Background(), prior))

	svc := NewDuesService(f.Dues, testutil.Cancun)
	cfg := loadConfig(t, f)

	bills, err := svc.BillsForYear(context.Background(), f.ClientID, "A-101", 2026, cfg)
	require.NoError(t, err)
	require.Len(t, bills, 14)
	assert.Equal(t, "A-101-2025-10", bills[0].ID)
	assert.Equal(t, "A-101-2025-11", bills[1].ID)
	assert.Equal(t, "A-101-2026-00", bills[2].ID)
}

func TestDuesService_BillsForYear_BacklogStopsAtPaid(t *testing.T) {
	f := testutil.NewFixture(t, "costa-verde")
	prior := f.SeedDues(t, "A-101", 2025, 100000)
	f.SeedDues(t, "A-101", 2026, 100000)

	// unpaid month 5 behind a paid month 11 must not be dragged in
	for i := 6; i < 12; i++ {
		prior.Payments[i] = domain.DuesSlot{Amount: 100000, BasePaid: 100000, Status: domain.BillStatusPaid}
	}
	prior.RecomputeTotalPaid()
	require.NoError(t, f.Dues.Save(context.Background(), prior))

	svc := NewDuesService(f.Dues, testutil.Cancun)
	cfg := loadConfig(t, f)

	bills, err := svc.BillsForYear(context.Background(), f.ClientID, "A-101", 2026, cfg)
	require.NoError(t, err)
	require.Len(t, bills, 12)
	assert.Equal(t, "A-101-2026-00", bills[0].ID)
}

func TestDuesService_BillsForYear_Quarterly(t *testing.T) {
	f := testutil.NewFixture(t, "costa-verde")
	f.SetQuarterlyDues(t)
	doc := f.SeedDues(t, "A-101", 2026, 100000)
	doc.Payments[0] = domain.DuesSlot{Amount: 50000, BasePaid: 50000}
	require.NoError(t, f.Dues.Save(context.Background(), doc))

	svc := NewDuesService(f.Dues, testutil.Cancun)
	cfg := loadConfig(t, f)

	bills, err := svc.BillsForYear(context.Background(), f.ClientID, "A-101", 2026, cfg)
	require.NoError(t, err)
	require.Len(t, bills, 4)

	q1 := bills[0]
	assert.Equal(t, "A-101-2026-Q1", q1.ID)
	assert.Equal(t, int64(300000), q1.BaseCharge)
	assert.Equal(t, int64(50000), q1.BasePaid)
	assert.Equal(t, domain.BillStatusPartial, q1.Status)
	assert.Equal(t, time.Date(2025, time.July, 1, 0, 0, 0, 0, testutil.Cancun), q1.DueDate)
	assert.Equal(t, time.Date(2026, time.April, 1, 0, 0, 0, 0, testutil.Cancun), bills[3].DueDate)
}

func TestSlotUpdatesForBill_Monthly(t *testing.T) {
	bill := &domain.Bill{MonthIndex: 4, Period: "2026-04"}
	updates := SlotUpdatesForBill(bill, 70000, 5000)
	require.Len(t, updates, 1)
	assert.Equal(t, 4, updates[0].MonthIndex)
	assert.Equal(t, int64(70000), updates[0].BasePaid)
	assert.Equal(t, int64(5000), updates[0].PenaltyPaid)
}

func TestSlotUpdatesForBill_QuarterlySplit(t *testing.T) {
	bill := &domain.Bill{MonthIndex: -1, QuarterIndex: 2, Period: "2026-Q2"}

	// 1000.00 splits 333.34 / 333.33 / 333.33; penalty stays on the
	// first slot
	updates := SlotUpdatesForBill(bill, 100000, 5000)
	require.Len(t, updates, 3)
	assert.Equal(t, 3, updates[0].MonthIndex)
	assert.Equal(t, int64(33334), updates[0].BasePaid)
	assert.Equal(t, int64(5000), updates[0].PenaltyPaid)
	assert.Equal(t, int64(33333), updates[1].BasePaid)
	assert.Equal(t, int64(0), updates[1].PenaltyPaid)
	assert.Equal(t, int64(33333), updates[2].BasePaid)

	var base int64
	for _, u := range updates {
		base += u.BasePaid
	}
	assert.Equal(t, int64(100000), base)
}

func TestDuesService_StageApplyPayment_Accumulates(t *testing.T) {
	f := testutil.NewFixture(t, "costa-verde")
	doc := f.SeedDues(t, "A-101", 2026, 100000)
	doc.Payments[0] = domain.DuesSlot{Amount: 40000, BasePaid: 40000}
	require.NoError(t, f.Dues.Save(context.Background(), doc))

	svc := NewDuesService(f.Dues, testutil.Cancun)
	txn := &domain.Transaction{ID: "txn-1", Date: testutil.Date(2025, time.September, 15)}

	ctx := context.Background()
	doc, err := f.Dues.Get(ctx, f.ClientID, "A-101", 2026)
	require.NoError(t, err)

	b := f.Store.Batch()
	err = svc.StageApplyPayment(b, doc, []DuesSlotUpdate{
		{MonthIndex: 0, BasePaid: 60000, PenaltyPaid: 5000, NoteText: "HOA dues payment 2026-00"},
	}, txn)
	require.NoError(t, err)
	require.NoError(t, b.Commit(ctx))

	saved, err := f.Dues.Get(ctx, f.ClientID, "A-101", 2026)
	require.NoError(t, err)
	slot := saved.Payments[0]
	assert.Equal(t, int64(105000), slot.Amount)
	assert.Equal(t, int64(100000), slot.BasePaid)
	assert.Equal(t, int64(5000), slot.PenaltyPaid)
	assert.Equal(t, domain.BillStatusPaid, slot.Status)
	require.Len(t, slot.Notes, 1)
	assert.Equal(t, "txn-1", slot.Notes[0].TransactionID)
	assert.Equal(t, int64(105000), saved.TotalPaid)
}

func TestDuesService_StageApplyPayment_BadSlotIndex(t *testing.T) {
	f := testutil.NewFixture(t, "costa-verde")
	doc := f.SeedDues(t, "A-101", 2026, 100000)

	svc := NewDuesService(f.Dues, testutil.Cancun)
	b := f.Store.Batch()
	err := svc.StageApplyPayment(b, doc, []DuesSlotUpdate{{MonthIndex: 12, BasePaid: 1}}, &domain.Transaction{ID: "txn-1"})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func loadConfig(t *testing.T, f *testutil.Fixture) *domain.ClientConfig {
	t.Helper()
	cfg, err := f.Config.GetClientConfig(context.Background(), f.ClientID)
	require.NoError(t, err)
	return cfg
}
