package domain

import "time"

// WaterBillDocument is the stored water billing record for one (client,
// fiscal period): a mapping of unit IDs to per-unit bills. Water is
// strictly postpaid; bill generation from meter readings happens
// upstream, this engine only selects, penalizes, and pays the bills.
//
// Stored field names (currentCharge, basePaid, penaltyPaid, paidAmount,
// totalAmount, dueDate, status, payments) are observable by downstream
// reporting tools and must not change.
type WaterBillDocument struct {
	ClientID string     `json:"-"`
	Period   string     `json:"period"`
	Bills    WaterBills `json:"bills"`
}

type WaterBills struct {
	Units map[string]*WaterUnitBill `json:"units"`
}

// WaterUnitBill is one unit's bill within a water bill document.
type WaterUnitBill struct {
	CurrentCharge int64 `json:"currentCharge"`
	BasePaid      int64 `json:"basePaid"`
	PenaltyAmount int64 `json:"penaltyAmount"`
	PenaltyPaid   int64 `json:"penaltyPaid"`
	PaidAmount    int64 `json:"paidAmount"`
	TotalAmount   int64 `json:"totalAmount"`

	ConsumptionM3 int64 `json:"consumptionM3,omitempty"`

	DueDate  *time.Time    `json:"dueDate,omitempty"`
	Status   BillStatus    `json:"status,omitempty"`
	Payments []BillPayment `json:"payments,omitempty"`
}

// RecomputeStatus derives the stored status from the bill's totals.
func (w *WaterUnitBill) RecomputeStatus() {
	w.Status = ComputeStatus(w.CurrentCharge, w.BasePaid, w.PenaltyAmount, w.PenaltyPaid)
}

// RecomputeTotal refreshes totalAmount as principal plus accrued penalty.
func (w *WaterUnitBill) RecomputeTotal() {
	w.TotalAmount = w.CurrentCharge + w.PenaltyAmount
}
