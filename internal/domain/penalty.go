package domain

import "time"

// PenaltyRecalcResult reports one recalculation pass.
type PenaltyRecalcResult struct {
	BillsUpdated        int
	TotalPenaltiesAdded int64
}

// RecalculatePenalties refreshes penaltyAmount on every overdue bill
// as-of the given date, in place. A bill accrues penalty when its grace
// period has lapsed and base principal is still owed. The charge
// compounds monthly on the outstanding balance: one month of penalty the
// moment the grace period ends, another for each whole month after.
//
// Paid bills and bills inside the grace period are left untouched; their
// stored penaltyAmount is historical and already settled by penaltyPaid.
// The pass is deterministic: same bills, date, and config always produce
// the same output.
func RecalculatePenalties(bills []*Bill, asOf time.Time, cfg PenaltyConfig) PenaltyRecalcResult {
	var res PenaltyRecalcResult
	for _, bill := range bills {
		if bill.BaseOwed() <= 0 {
			continue
		}
		graceEnd := bill.DueDate.AddDate(0, 0, cfg.GraceDays)
		if !asOf.After(graceEnd) {
			continue
		}
		months := WholeMonthsBetween(graceEnd, asOf) + 1
		total := CompoundPenalty(bill.BaseOwed(), cfg, months)
		if total != bill.PenaltyAmount {
			res.BillsUpdated++
			res.TotalPenaltiesAdded += total - bill.PenaltyAmount
			bill.PenaltyAmount = total
			bill.RecomputeStatus()
		}
	}
	return res
}

// CompoundPenalty accrues months of penalty on a principal: each month
// charges round(principal * rate) and folds it into the principal before
// the next month.
func CompoundPenalty(principal int64, cfg PenaltyConfig, months int) int64 {
	var total int64
	for i := 0; i < months; i++ {
		p := ApplyRate(principal, cfg.Rate)
		total += p
		principal += p
	}
	return total
}
