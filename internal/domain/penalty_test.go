package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func penaltyCfg(rate string, graceDays int) PenaltyConfig {
	return PenaltyConfig{Rate: decimal.RequireFromString(rate), GraceDays: graceDays}
}

func TestCompoundPenalty(t *testing.T) {
	cfg := penaltyCfg("0.05", 10)

	// one month: 5% of 1000.00
	if got := CompoundPenalty(100000, cfg, 1); got != 5000 {
		t.Errorf("one month = %d, want 5000", got)
	}
	// three months compound on the growing balance:
	// 5000 + 5250 + 5513 (rounded at each step)
	if got := CompoundPenalty(100000, cfg, 3); got != 15763 {
		t.Errorf("three months = %d, want 15763", got)
	}
	if got := CompoundPenalty(100000, cfg, 0); got != 0 {
		t.Errorf("zero months = %d, want 0", got)
	}
}

func TestRecalculatePenalties_GracePeriod(t *testing.T) {
	due := time.Date(2026, 1, 1, 0, 0, 0, 0, cancun)
	cfg := penaltyCfg("0.05", 10)

	bill := &Bill{BaseCharge: 100000, DueDate: due, Status: BillStatusUnpaid}

	// inside grace: no penalty
	res := RecalculatePenalties([]*Bill{bill}, due.AddDate(0, 0, 10), cfg)
	if res.BillsUpdated != 0 || bill.PenaltyAmount != 0 {
		t.Fatalf("penalty accrued inside grace period: %+v", res)
	}

	// one day past grace: one month of penalty
	res = RecalculatePenalties([]*Bill{bill}, due.AddDate(0, 0, 11), cfg)
	if res.BillsUpdated != 1 {
		t.Fatalf("BillsUpdated = %d", res.BillsUpdated)
	}
	if bill.PenaltyAmount != 5000 {
		t.Errorf("PenaltyAmount = %d, want 5000", bill.PenaltyAmount)
	}
	if res.TotalPenaltiesAdded != 5000 {
		t.Errorf("TotalPenaltiesAdded = %d, want 5000", res.TotalPenaltiesAdded)
	}
}

func TestRecalculatePenalties_Compounding(t *testing.T) {
	due := time.Date(2026, 1, 1, 0, 0, 0, 0, cancun)
	cfg := penaltyCfg("0.05", 10)
	bill := &Bill{BaseCharge: 100000, DueDate: due}

	asOf := due.AddDate(0, 2, 15) // two whole months past grace end, third started
	RecalculatePenalties([]*Bill{bill}, asOf, cfg)
	if bill.PenaltyAmount != 15763 {
		t.Errorf("PenaltyAmount = %d, want 15763", bill.PenaltyAmount)
	}
	if bill.Status != BillStatusUnpaid {
		t.Errorf("Status = %s", bill.Status)
	}

	// deterministic: same inputs, same output
	before := bill.PenaltyAmount
	res := RecalculatePenalties([]*Bill{bill}, asOf, cfg)
	if res.BillsUpdated != 0 || bill.PenaltyAmount != before {
		t.Errorf("second run changed output: %+v", res)
	}
}

func TestRecalculatePenalties_SkipsPaidAndPreservesHistory(t *testing.T) {
	due := time.Date(2025, 8, 1, 0, 0, 0, 0, cancun)
	cfg := penaltyCfg("0.05", 10)

	// paid bill keeps its historical, already-settled penalty
	paid := &Bill{BaseCharge: 50000, BasePaid: 50000, PenaltyAmount: 2500, PenaltyPaid: 2500, DueDate: due, Status: BillStatusPaid}
	res := RecalculatePenalties([]*Bill{paid}, due.AddDate(1, 0, 0), cfg)
	if res.BillsUpdated != 0 {
		t.Errorf("paid bill updated")
	}
	if paid.PenaltyAmount != 2500 {
		t.Errorf("historical penalty clobbered: %d", paid.PenaltyAmount)
	}
}

func TestRecalculatePenalties_PartialBase(t *testing.T) {
	due := time.Date(2026, 1, 1, 0, 0, 0, 0, cancun)
	cfg := penaltyCfg("0.05", 10)

	// penalty compounds on the outstanding balance, not the original charge
	bill := &Bill{BaseCharge: 100000, BasePaid: 60000, DueDate: due, Status: BillStatusPartial}
	RecalculatePenalties([]*Bill{bill}, due.AddDate(0, 0, 11), cfg)
	if bill.PenaltyAmount != 2000 { // 5% of 400.00
		t.Errorf("PenaltyAmount = %d, want 2000", bill.PenaltyAmount)
	}
}
