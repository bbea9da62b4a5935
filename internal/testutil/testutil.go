package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/costaverde/billing-backend/internal/domain"
	"github.com/costaverde/billing-backend/internal/repository/docstore"
	"github.com/costaverde/billing-backend/internal/store/memory"
)

// FixedClock returns a preset time from Now, for deterministic tests.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T }

// Cancun matches the production billing timezone without depending on
// the host's tzdata.
var Cancun = time.FixedZone("EST", -5*3600)

// Fixture is a memory-backed document store with repositories wired up
// and a July-start fiscal configuration seeded for one client.
type Fixture struct {
	Store    *memory.DocStore
	ClientID string

	Dues   *docstore.DuesRepository
	Water  *docstore.WaterRepository
	Credit *docstore.CreditRepository
	Txns   *docstore.TransactionRepository
	Config *docstore.ConfigRepository
}

// NewFixture seeds a client with monthly dues starting in July, a 5%
// monthly penalty after 10 grace days on both streams.
func NewFixture(t *testing.T, clientID string) *Fixture {
	t.Helper()
	st := memory.NewDocStore()
	f := &Fixture{
		Store:    st,
		ClientID: clientID,
		Dues:     docstore.NewDuesRepository(st),
		Water:    docstore.NewWaterRepository(st),
		Credit:   docstore.NewCreditRepository(st),
		Txns:     docstore.NewTransactionRepository(st),
		Config:   docstore.NewConfigRepository(st),
	}
	ctx := context.Background()
	err := f.Config.SaveHOAConfig(ctx, clientID, domain.HOADuesConfig{
		FiscalYearStartMonth: 7,
		DuesFrequency:        domain.FrequencyMonthly,
		PenaltyConfig: domain.PenaltyConfig{
			Rate:      decimal.NewFromFloat(0.05),
			GraceDays: 10,
		},
	})
	if err != nil {
		t.Fatalf("seed hoa config: %v", err)
	}
	err = f.Config.SaveWaterConfig(ctx, clientID, domain.WaterConfig{
		PenaltyConfig: domain.PenaltyConfig{
			Rate:      decimal.NewFromFloat(0.05),
			GraceDays: 10,
		},
		RatePerM3:     2500,
		MinimumCharge: 10000,
	})
	if err != nil {
		t.Fatalf("seed water config: %v", err)
	}
	return f
}

// SetQuarterlyDues rewrites the HOA config with quarterly frequency.
func (f *Fixture) SetQuarterlyDues(t *testing.T) {
	t.Helper()
	err := f.Config.SaveHOAConfig(context.Background(), f.ClientID, domain.HOADuesConfig{
		FiscalYearStartMonth: 7,
		DuesFrequency:        domain.FrequencyQuarterly,
		PenaltyConfig: domain.PenaltyConfig{
			Rate:      decimal.NewFromFloat(0.05),
			GraceDays: 10,
		},
	})
	if err != nil {
		t.Fatalf("seed quarterly config: %v", err)
	}
}

// SeedDues stores a dues document for the unit and fiscal year.
func (f *Fixture) SeedDues(t *testing.T, unitID string, fiscalYear int, scheduled int64) *domain.DuesDocument {
	t.Helper()
	doc := &domain.DuesDocument{
		ClientID:        f.ClientID,
		UnitID:          unitID,
		FiscalYear:      fiscalYear,
		ScheduledAmount: scheduled,
	}
	if err := f.Dues.Save(context.Background(), doc); err != nil {
		t.Fatalf("seed dues %s/%d: %v", unitID, fiscalYear, err)
	}
	return doc
}

// SeedWaterBill stores (or extends) the water bill document for one
// period, adding the unit with the given charge.
func (f *Fixture) SeedWaterBill(t *testing.T, period, unitID string, charge int64, due time.Time) *domain.WaterBillDocument {
	t.Helper()
	ctx := context.Background()
	doc, err := f.Water.Get(ctx, f.ClientID, period)
	if err != nil {
		doc = &domain.WaterBillDocument{
			ClientID: f.ClientID,
			Period:   period,
			Bills:    domain.WaterBills{Units: make(map[string]*domain.WaterUnitBill)},
		}
	}
	if doc.Bills.Units == nil {
		doc.Bills.Units = make(map[string]*domain.WaterUnitBill)
	}
	unit := &domain.WaterUnitBill{
		CurrentCharge: charge,
		DueDate:       &due,
	}
	unit.RecomputeTotal()
	unit.RecomputeStatus()
	doc.Bills.Units[unitID] = unit
	if err := f.Water.Save(ctx, doc); err != nil {
		t.Fatalf("seed water %s/%s: %v", period, unitID, err)
	}
	return doc
}

// SeedCredit appends a starting-balance ledger entry for the unit.
func (f *Fixture) SeedCredit(t *testing.T, unitID string, amount int64, at time.Time) {
	t.Helper()
	ctx := context.Background()
	doc, err := f.Credit.Get(ctx, f.ClientID)
	if err != nil {
		t.Fatalf("load credit ledger: %v", err)
	}
	unit := doc.EnsureUnit(unitID)
	unit.History = append(unit.History, domain.CreditEntry{
		ID:        "seed-" + unitID,
		Timestamp: at,
		Amount:    amount,
		Type:      domain.CreditStartingBalance,
		Source:    domain.CreditSourceImport,
	})
	unit.LastChange = at
	if err := f.Credit.Save(ctx, doc); err != nil {
		t.Fatalf("seed credit %s: %v", unitID, err)
	}
}

// Date builds a billing-timezone timestamp at noon, clear of any
// midnight boundary.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, Cancun)
}
