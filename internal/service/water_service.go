package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/costaverde/billing-backend/internal/domain"
	"github.com/costaverde/billing-backend/internal/repository/docstore"
	"github.com/costaverde/billing-backend/internal/store"
)

// WaterService is the water adapter: it selects a unit's bills from the
// stored per-period documents and applies payment results back onto
// them. Water is strictly postpaid; future bills are still selected
// here and excluded by the payment engine's priority policy.
type WaterService struct {
	repo *docstore.WaterRepository
	loc  *time.Location
}

func NewWaterService(repo *docstore.WaterRepository, loc *time.Location) *WaterService {
	return &WaterService{repo: repo, loc: loc}
}

// UnpaidBills returns every not-fully-paid water bill for the unit. A
// bill without a stored due date falls back to one derived from its
// period; bills where neither resolves are skipped with a warning
// rather than billed on a guessed date.
func (s *WaterService) UnpaidBills(ctx context.Context, clientID, unitID string, cfg *domain.ClientConfig) ([]*domain.Bill, error) {
	all, err := s.AllBills(ctx, clientID, unitID, cfg)
	if err != nil {
		return nil, err
	}
	unpaid := all[:0]
	for _, b := range all {
		if b.Status != domain.BillStatusPaid {
			unpaid = append(unpaid, b)
		}
	}
	return unpaid, nil
}

// AllBills returns the unit's water bills across every stored period,
// ordered by period.
func (s *WaterService) AllBills(ctx context.Context, clientID, unitID string, cfg *domain.ClientConfig) ([]*domain.Bill, error) {
	docs, err := s.repo.List(ctx, clientID)
	if err != nil {
		return nil, err
	}
	var bills []*domain.Bill
	for _, doc := range docs {
		unit := doc.Bills.Units[unitID]
		if unit == nil {
			continue
		}
		bill, err := s.toBill(doc.Period, unitID, unit, cfg)
		if err != nil {
			log.Warn().Err(err).
				Str("client_id", clientID).
				Str("unit_id", unitID).
				Str("period", doc.Period).
				Msg("skipping water bill")
			continue
		}
		bills = append(bills, bill)
	}
	return bills, nil
}

func (s *WaterService) toBill(period, unitID string, unit *domain.WaterUnitBill, cfg *domain.ClientConfig) (*domain.Bill, error) {
	year, index, perErr := ParseWaterPeriod(period)

	var due time.Time
	switch {
	case unit.DueDate != nil:
		due = unit.DueDate.In(s.loc)
	case perErr == nil:
		// postpaid: consumption for a quarter is due when the next
		// quarter begins
		due = domain.DueDateOfFiscalMonth(year, index, cfg.HOA.FiscalYearStartMonth, s.loc).AddDate(0, 3, 0)
	default:
		return nil, fmt.Errorf("%w: period %q", domain.ErrDueDateUnresolvable, period)
	}

	bill := &domain.Bill{
		ID:            fmt.Sprintf("%s-%s", unitID, period),
		Period:        period,
		UnitID:        unitID,
		Module:        domain.ModuleWater,
		FiscalYear:    year,
		MonthIndex:    index,
		QuarterIndex:  0,
		BaseCharge:    unit.CurrentCharge,
		BasePaid:      unit.BasePaid,
		PenaltyAmount: unit.PenaltyAmount,
		PenaltyPaid:   unit.PenaltyPaid,
		PaidAmount:    unit.PaidAmount,
		DueDate:       due,
	}
	if perErr != nil {
		bill.FiscalYear = domain.FiscalYearOf(due, cfg.HOA.FiscalYearStartMonth)
		bill.MonthIndex = -1
	}
	bill.RecomputeStatus()
	return bill, nil
}

// ParseWaterPeriod splits a water fiscal period ("2026-03") into fiscal
// year and fiscal month index.
func ParseWaterPeriod(period string) (year, index int, err error) {
	parts := strings.SplitN(period, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: water period %q", domain.ErrInvalidInput, period)
	}
	year, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: water period %q", domain.ErrInvalidInput, period)
	}
	index, err = strconv.Atoi(parts[1])
	if err != nil || index < 0 || index > 11 {
		return 0, 0, fmt.Errorf("%w: water period %q", domain.ErrInvalidInput, period)
	}
	return year, index, nil
}

// WaterBillUpdate is one bill's share of a payment, plus the penalty
// amount recalculated as-of the payment date so the stored bill matches
// what was previewed.
type WaterBillUpdate struct {
	Period        string
	BasePaid      int64
	PenaltyPaid   int64
	PenaltyAmount int64
}

// StageApplyPayment loads each affected period document, accumulates
// the payment onto the unit's bill, appends the payment record, and
// stages the saves. A missing document or unit bill aborts with
// ErrBillNotFound: at commit time that is an integrity failure.
func (s *WaterService) StageApplyPayment(ctx context.Context, b store.Batch, clientID, unitID string, updates []WaterBillUpdate, txn *domain.Transaction) error {
	for _, u := range updates {
		doc, err := s.repo.Get(ctx, clientID, u.Period)
		if err != nil {
			return err
		}
		unit := doc.Bills.Units[unitID]
		if unit == nil {
			return fmt.Errorf("water bills %s/%s unit %s: %w", clientID, u.Period, unitID, domain.ErrBillNotFound)
		}
		total := u.BasePaid + u.PenaltyPaid
		unit.PaidAmount += total
		unit.BasePaid += u.BasePaid
		unit.PenaltyAmount = u.PenaltyAmount
		unit.PenaltyPaid += u.PenaltyPaid
		unit.Payments = append(unit.Payments, domain.BillPayment{
			TransactionID:  txn.ID,
			Date:           txn.Date,
			Amount:         total,
			BaseChargePaid: u.BasePaid,
			PenaltyPaid:    u.PenaltyPaid,
			Method:         txn.PaymentMethod,
			Reference:      txn.Reference,
		})
		unit.RecomputeTotal()
		unit.RecomputeStatus()
		s.repo.StageSave(b, doc)
	}
	return nil
}

// StagePenaltyRefresh writes recalculated penalty fields for one period
// document's units into the batch. Returns the number of unit bills
// changed.
func (s *WaterService) StagePenaltyRefresh(b store.Batch, doc *domain.WaterBillDocument, cfg *domain.ClientConfig, asOf time.Time) (int, int64) {
	updated := 0
	var added int64
	for unitID, unit := range doc.Bills.Units {
		bill, err := s.toBill(doc.Period, unitID, unit, cfg)
		if err != nil {
			continue
		}
		res := domain.RecalculatePenalties([]*domain.Bill{bill}, asOf, cfg.Water.PenaltyConfig)
		if res.BillsUpdated == 0 {
			continue
		}
		unit.PenaltyAmount = bill.PenaltyAmount
		unit.RecomputeTotal()
		unit.RecomputeStatus()
		updated++
		added += res.TotalPenaltiesAdded
	}
	if updated > 0 {
		s.repo.StageSave(b, doc)
	}
	return updated, added
}
