package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/costaverde/billing-backend/internal/domain"
	"github.com/costaverde/billing-backend/internal/repository/docstore"
	"github.com/costaverde/billing-backend/internal/store"
)

// DuesService is the HOA dues adapter: it materializes stored dues
// documents into bills on the read path and applies payment results
// back onto per-slot summaries on the write path. Materialized bills
// are never persisted; only the slots are.
type DuesService struct {
	repo *docstore.DuesRepository
	loc  *time.Location
}

func NewDuesService(repo *docstore.DuesRepository, loc *time.Location) *DuesService {
	return &DuesService{repo: repo, loc: loc}
}

// BillsForYear materializes the unit's dues bills for a fiscal year,
// prepending prior-year backlog: when the year's first bill is unpaid,
// the previous year is scanned backwards and successive unpaid bills
// are included, stopping at the first fully paid one. A unit with no
// dues document has no HOA bills.
func (s *DuesService) BillsForYear(ctx context.Context, clientID, unitID string, fiscalYear int, cfg *domain.ClientConfig) ([]*domain.Bill, error) {
	doc, err := s.repo.Get(ctx, clientID, unitID, fiscalYear)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	bills := s.materialize(doc, cfg)
	if len(bills) == 0 || bills[0].Status == domain.BillStatusPaid {
		return bills, nil
	}

	prior, err := s.repo.Get(ctx, clientID, unitID, fiscalYear-1)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return bills, nil
		}
		return nil, err
	}
	priorBills := s.materialize(prior, cfg)

	// scan backwards, collecting the unpaid tail of the prior year
	var backlog []*domain.Bill
	for i := len(priorBills) - 1; i >= 0; i-- {
		if priorBills[i].Status == domain.BillStatusPaid {
			break
		}
		backlog = append([]*domain.Bill{priorBills[i]}, backlog...)
	}
	return append(backlog, bills...), nil
}

func (s *DuesService) materialize(doc *domain.DuesDocument, cfg *domain.ClientConfig) []*domain.Bill {
	if cfg.HOA.DuesFrequency == domain.FrequencyQuarterly {
		return s.materializeQuarterly(doc, cfg)
	}
	return s.materializeMonthly(doc, cfg)
}

func (s *DuesService) materializeMonthly(doc *domain.DuesDocument, cfg *domain.ClientConfig) []*domain.Bill {
	bills := make([]*domain.Bill, 0, 12)
	for i := 0; i < 12; i++ {
		slot := doc.Payments[i]
		period := domain.MonthPeriod(doc.FiscalYear, i)
		bill := &domain.Bill{
			ID:         fmt.Sprintf("%s-%s", doc.UnitID, period),
			Period:     period,
			UnitID:     doc.UnitID,
			Module:     domain.ModuleHOA,
			FiscalYear: doc.FiscalYear,
			MonthIndex: i,
			BaseCharge: doc.ScheduledAmount,
			BasePaid:   slot.BasePaid,
			// the dues document stores no penalty charge of its own;
			// settled penalties are the accrued baseline and open bills
			// get theirs recalculated on top
			PenaltyAmount: slot.PenaltyPaid,
			PenaltyPaid:   slot.PenaltyPaid,
			PaidAmount:    slot.Amount,
			DueDate:       domain.DueDateOfFiscalMonth(doc.FiscalYear, i, cfg.HOA.FiscalYearStartMonth, s.loc),
		}
		bill.RecomputeStatus()
		bills = append(bills, bill)
	}
	return bills
}

func (s *DuesService) materializeQuarterly(doc *domain.DuesDocument, cfg *domain.ClientConfig) []*domain.Bill {
	bills := make([]*domain.Bill, 0, 4)
	for q := 1; q <= 4; q++ {
		var basePaid, penaltyPaid, paidAmount int64
		for i := (q - 1) * 3; i < q*3; i++ {
			basePaid += doc.Payments[i].BasePaid
			penaltyPaid += doc.Payments[i].PenaltyPaid
			paidAmount += doc.Payments[i].Amount
		}
		period := domain.QuarterPeriod(doc.FiscalYear, q)
		bill := &domain.Bill{
			ID:            fmt.Sprintf("%s-%s", doc.UnitID, period),
			Period:        period,
			UnitID:        doc.UnitID,
			Module:        domain.ModuleHOA,
			FiscalYear:    doc.FiscalYear,
			MonthIndex:    -1,
			QuarterIndex:  q,
			BaseCharge:    3 * doc.ScheduledAmount,
			BasePaid:      basePaid,
			PenaltyAmount: penaltyPaid,
			PenaltyPaid:   penaltyPaid,
			PaidAmount:    paidAmount,
			DueDate:       domain.DueDateOfFiscalQuarter(doc.FiscalYear, q, cfg.HOA.FiscalYearStartMonth, s.loc),
		}
		bill.RecomputeStatus()
		bills = append(bills, bill)
	}
	return bills
}

// DuesSlotUpdate is one fiscal month slot's share of a payment.
type DuesSlotUpdate struct {
	MonthIndex  int
	BasePaid    int64
	PenaltyPaid int64
	NoteText    string
}

// SlotUpdatesForBill converts a distribution result on a materialized
// bill into per-slot updates. A quarterly payment splits the base
// equally across the quarter's three slots (centavo remainder on the
// first); the penalty is recorded on the first slot only.
func SlotUpdatesForBill(bill *domain.Bill, basePaid, penaltyPaid int64) []DuesSlotUpdate {
	if bill.QuarterIndex == 0 {
		return []DuesSlotUpdate{{
			MonthIndex:  bill.MonthIndex,
			BasePaid:    basePaid,
			PenaltyPaid: penaltyPaid,
			NoteText:    fmt.Sprintf("HOA dues payment %s", bill.Period),
		}}
	}
	first := (bill.QuarterIndex - 1) * 3
	share := basePaid / 3
	remainder := basePaid - 2*share
	updates := make([]DuesSlotUpdate, 0, 3)
	for i := 0; i < 3; i++ {
		u := DuesSlotUpdate{
			MonthIndex: first + i,
			BasePaid:   share,
			NoteText:   fmt.Sprintf("HOA dues payment %s", bill.Period),
		}
		if i == 0 {
			u.BasePaid = remainder
			u.PenaltyPaid = penaltyPaid
		}
		updates = append(updates, u)
	}
	return updates
}

// StageApplyPayment accumulates slot updates onto the dues document and
// stages the save. Slot fields are only ever added to, never
// overwritten; each touched slot gains a structured note tied to the
// transaction. Saving the document also drops any legacy creditBalance
// mirror fields.
func (s *DuesService) StageApplyPayment(b store.Batch, doc *domain.DuesDocument, updates []DuesSlotUpdate, txn *domain.Transaction) error {
	for _, u := range updates {
		if u.MonthIndex < 0 || u.MonthIndex > 11 {
			return fmt.Errorf("%w: dues slot index %d", domain.ErrInvalidInput, u.MonthIndex)
		}
		slot := &doc.Payments[u.MonthIndex]
		total := u.BasePaid + u.PenaltyPaid
		slot.Amount += total
		slot.BasePaid += u.BasePaid
		slot.PenaltyPaid += u.PenaltyPaid
		slot.Status = domain.ComputeStatus(doc.ScheduledAmount, slot.BasePaid, 0, 0)
		date := txn.Date
		slot.Date = &date
		slot.Notes = append(slot.Notes, domain.SlotNote{
			TransactionID: txn.ID,
			Timestamp:     txn.Date,
			Text:          u.NoteText,
			Amount:        total,
			BasePaid:      u.BasePaid,
			PenaltyPaid:   u.PenaltyPaid,
		})
	}
	doc.RecomputeTotalPaid()
	s.repo.StageSave(b, doc)
	return nil
}
