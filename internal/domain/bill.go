package domain

import "time"

type BillStatus string

const (
	BillStatusUnpaid  BillStatus = "unpaid"
	BillStatusPartial BillStatus = "partial"
	BillStatusPaid    BillStatus = "paid"
)

type ModuleType string

const (
	ModuleHOA   ModuleType = "hoa"
	ModuleWater ModuleType = "water"
)

// Bill is the common shape both billing streams materialize into: one
// billable period for one unit. HOA bills are derived on demand from the
// dues document and never persisted; water bills mirror stored water
// bill documents.
type Bill struct {
	ID     string
	Period string
	UnitID string
	Module ModuleType

	// MonthIndex is the 0-based fiscal month for monthly HOA bills and
	// water bills; QuarterIndex is 1-based for quarterly HOA bills. The
	// unused one is -1 (0 for QuarterIndex).
	FiscalYear   int
	MonthIndex   int
	QuarterIndex int

	BaseCharge    int64
	BasePaid      int64
	PenaltyAmount int64
	PenaltyPaid   int64
	PaidAmount    int64

	DueDate  time.Time
	Status   BillStatus
	Payments []BillPayment
}

// BillPayment is one payment record appended to a bill.
type BillPayment struct {
	TransactionID  string    `json:"transactionId"`
	Date           time.Time `json:"date"`
	Amount         int64     `json:"amount"`
	BaseChargePaid int64     `json:"baseChargePaid"`
	PenaltyPaid    int64     `json:"penaltyPaid"`
	Method         string    `json:"method"`
	Reference      string    `json:"reference,omitempty"`
}

func (b *Bill) BaseOwed() int64    { return b.BaseCharge - b.BasePaid }
func (b *Bill) PenaltyOwed() int64 { return b.PenaltyAmount - b.PenaltyPaid }
func (b *Bill) TotalOwed() int64   { return b.BaseOwed() + b.PenaltyOwed() }

// RecomputeStatus derives and stores the bill status from its totals.
func (b *Bill) RecomputeStatus() {
	b.Status = ComputeStatus(b.BaseCharge, b.BasePaid, b.PenaltyAmount, b.PenaltyPaid)
}

// ComputeStatus is the single status function: paid iff base and penalty
// are both fully covered, partial iff any positive payment exists,
// unpaid otherwise. Status is always derived, never trusted from storage.
func ComputeStatus(baseCharge, basePaid, penaltyAmount, penaltyPaid int64) BillStatus {
	if basePaid >= baseCharge && penaltyPaid >= penaltyAmount {
		return BillStatusPaid
	}
	if basePaid > 0 || penaltyPaid > 0 {
		return BillStatusPartial
	}
	return BillStatusUnpaid
}
