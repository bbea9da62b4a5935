package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/costaverde/billing-backend/internal/domain"
	"github.com/costaverde/billing-backend/internal/repository/docstore"
	"github.com/costaverde/billing-backend/internal/store"
)

// hoaPreviewWindow is how far past the as-of date upcoming HOA charges
// still appear on a statement, so owners see the next dues line before
// it falls due. Water stays strictly historical.
const hoaPreviewWindow = 15 * 24 * time.Hour

// StatementService composes a unit's chronological fiscal-year
// statement from the adapters, the transaction log, and the credit
// ledger.
type StatementService struct {
	dues   *DuesService
	water  *WaterService
	credit *CreditService
	config *ConfigService

	duesRepo *docstore.DuesRepository
	txnRepo  *docstore.TransactionRepository

	clock store.Clock
	loc   *time.Location
}

func NewStatementService(
	dues *DuesService,
	water *WaterService,
	credit *CreditService,
	config *ConfigService,
	duesRepo *docstore.DuesRepository,
	txnRepo *docstore.TransactionRepository,
	clock store.Clock,
	loc *time.Location,
) *StatementService {
	return &StatementService{
		dues:     dues,
		water:    water,
		credit:   credit,
		config:   config,
		duesRepo: duesRepo,
		txnRepo:  txnRepo,
		clock:    clock,
		loc:      loc,
	}
}

// Compose builds the unit's statement for one fiscal year as of now.
// Lines carry a running balance from the opening balance; unless
// includeFuture is set, future lines are excluded except HOA charges
// inside the preview window. The composed closing balance is
// cross-checked against bill-level state and discrepancies surface as
// warnings, never as errors.
func (s *StatementService) Compose(ctx context.Context, clientID, unitID string, fiscalYear int, includeFuture bool) (*domain.Statement, error) {
	cfg, err := s.config.Get(ctx, clientID)
	if err != nil {
		return nil, err
	}
	asOf := s.clock.Now().In(s.loc)
	fyStart, fyEnd := domain.FiscalYearBounds(fiscalYear, cfg.HOA.FiscalYearStartMonth, s.loc)

	openingCredit, err := s.credit.BalanceAsOf(ctx, clientID, unitID, fyStart)
	if err != nil {
		return nil, err
	}
	st := &domain.Statement{
		ClientID:         clientID,
		UnitID:           unitID,
		FiscalYear:       fiscalYear,
		AsOf:             asOf,
		OpeningBalance:   -openingCredit,
		TotalsByCategory: make(map[string]int64),
	}

	hoaBills, waterBills, err := s.yearBills(ctx, clientID, unitID, fiscalYear, asOf, cfg)
	if err != nil {
		return nil, err
	}

	var lines []domain.StatementLine
	lines = append(lines, s.chargeLines(hoaBills, cfg.HOA.PenaltyConfig)...)
	lines = append(lines, s.chargeLines(waterBills, cfg.Water.PenaltyConfig)...)

	imported, err := s.importedPenaltyLines(ctx, clientID, unitID, fiscalYear)
	if err != nil {
		return nil, err
	}
	lines = append(lines, imported...)

	paymentLines, err := s.paymentLines(ctx, clientID, unitID, fyStart, fyEnd, st.TotalsByCategory)
	if err != nil {
		return nil, err
	}
	lines = append(lines, paymentLines...)

	creditLines, err := s.manualCreditLines(ctx, clientID, unitID, fyStart, fyEnd)
	if err != nil {
		return nil, err
	}
	lines = append(lines, creditLines...)

	if !includeFuture {
		lines = s.excludeFuture(lines, asOf)
	}
	sort.SliceStable(lines, func(i, j int) bool {
		if !lines[i].Date.Equal(lines[j].Date) {
			return lines[i].Date.Before(lines[j].Date)
		}
		return lines[i].Type.Order() < lines[j].Type.Order()
	})

	balance := st.OpeningBalance
	for i := range lines {
		balance += lines[i].SignedAmount
		lines[i].Balance = balance
	}
	st.Lines = lines
	st.ClosingBalance = balance

	st.CreditBalance, err = s.credit.Balance(ctx, clientID, unitID)
	if err != nil {
		return nil, err
	}
	s.reconcile(st, hoaBills, waterBills, asOf, includeFuture)
	return st, nil
}

// yearBills materializes both modules' bills for the fiscal year with
// penalties recalculated as of the statement date.
func (s *StatementService) yearBills(ctx context.Context, clientID, unitID string, fiscalYear int, asOf time.Time, cfg *domain.ClientConfig) ([]*domain.Bill, []*domain.Bill, error) {
	all, err := s.dues.BillsForYear(ctx, clientID, unitID, fiscalYear, cfg)
	if err != nil {
		return nil, nil, err
	}
	var hoa []*domain.Bill
	for _, b := range all {
		if b.FiscalYear == fiscalYear {
			hoa = append(hoa, b)
		}
	}
	domain.RecalculatePenalties(hoa, asOf, cfg.HOA.PenaltyConfig)

	allWater, err := s.water.AllBills(ctx, clientID, unitID, cfg)
	if err != nil {
		return nil, nil, err
	}
	var water []*domain.Bill
	for _, b := range allWater {
		if b.FiscalYear == fiscalYear {
			water = append(water, b)
		}
	}
	domain.RecalculatePenalties(water, asOf, cfg.Water.PenaltyConfig)
	return hoa, water, nil
}

// chargeLines emits a charge line per bill at its due date, plus a
// penalty line at grace end for bills that have accrued one.
func (s *StatementService) chargeLines(bills []*domain.Bill, penalty domain.PenaltyConfig) []domain.StatementLine {
	var lines []domain.StatementLine
	for _, b := range bills {
		category, label := domain.CategoryHOADues, "HOA dues"
		penaltyCategory := domain.CategoryHOAPenalty
		if b.Module == domain.ModuleWater {
			category, label = domain.CategoryWater, "Water consumption"
			penaltyCategory = domain.CategoryWaterPenalty
		}
		lines = append(lines, domain.StatementLine{
			Date:         b.DueDate,
			Type:         domain.LineCharge,
			Category:     category,
			Description:  fmt.Sprintf("%s %s", label, b.Period),
			Charge:       b.BaseCharge,
			SignedAmount: b.BaseCharge,
		})
		if b.PenaltyAmount > 0 {
			lines = append(lines, domain.StatementLine{
				Date:         b.DueDate.AddDate(0, 0, penalty.GraceDays),
				Type:         domain.LinePenalty,
				Category:     penaltyCategory,
				Description:  fmt.Sprintf("Late penalty %s", b.Period),
				Charge:       b.PenaltyAmount,
				SignedAmount: b.PenaltyAmount,
			})
		}
	}
	return lines
}

// importedPenaltyLines surfaces historical penalty charges migrated into
// the dues document.
func (s *StatementService) importedPenaltyLines(ctx context.Context, clientID, unitID string, fiscalYear int) ([]domain.StatementLine, error) {
	doc, err := s.duesRepo.Get(ctx, clientID, unitID, fiscalYear)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if doc.Penalties == nil {
		return nil, nil
	}
	var lines []domain.StatementLine
	for _, p := range doc.Penalties.Entries {
		desc := p.Note
		if desc == "" {
			desc = "Imported penalty"
		}
		lines = append(lines, domain.StatementLine{
			Date:         p.Date.In(s.loc),
			Type:         domain.LinePenalty,
			Category:     domain.CategoryHOAPenalty,
			Description:  desc,
			Charge:       p.Amount,
			SignedAmount: p.Amount,
		})
	}
	return lines, nil
}

// paymentLines splits each transaction in the window into one line per
// bill allocation. Credit allocations are skipped: the cash they
// represent re-enters the statement when the credit funds a bill.
func (s *StatementService) paymentLines(ctx context.Context, clientID, unitID string, from, to time.Time, totals map[string]int64) ([]domain.StatementLine, error) {
	txns, err := s.txnRepo.ListByUnit(ctx, clientID, unitID, from, to)
	if err != nil {
		return nil, err
	}
	var lines []domain.StatementLine
	for _, txn := range txns {
		for i := range txn.Allocations {
			a := &txn.Allocations[i]
			totals[a.CategoryID] += a.Amount
			if a.IsCreditAllocation() {
				continue
			}
			lines = append(lines, domain.StatementLine{
				Date:           txn.Date.In(s.loc),
				Type:           domain.LinePayment,
				Category:       a.CategoryID,
				Description:    fmt.Sprintf("Payment %s", a.TargetName),
				Payment:        a.Amount,
				SignedAmount:   -a.Amount,
				TransactionRef: txn.ID,
			})
		}
	}
	return lines, nil
}

// manualCreditLines shows credit granted outside the payment engine.
// Engine-written entries are deliberately absent; their cash is already
// on the payment lines.
func (s *StatementService) manualCreditLines(ctx context.Context, clientID, unitID string, from, to time.Time) ([]domain.StatementLine, error) {
	entries, err := s.credit.History(ctx, clientID, unitID, from, to)
	if err != nil {
		return nil, err
	}
	var lines []domain.StatementLine
	for _, e := range entries {
		if e.Source == domain.CreditSourceUnifiedPayment || e.Source == domain.CreditSourcePayment {
			continue
		}
		desc := e.Note
		if desc == "" {
			desc = "Credit adjustment"
		}
		line := domain.StatementLine{
			Date:           e.Timestamp.In(s.loc),
			Type:           domain.LineCredit,
			Category:       domain.CategoryCredit,
			Description:    desc,
			SignedAmount:   -e.Amount,
			TransactionRef: e.TransactionID,
		}
		if e.Amount >= 0 {
			line.Payment = e.Amount
		} else {
			line.Charge = -e.Amount
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// excludeFuture drops lines dated after the statement date, keeping HOA
// charges inside the preview window. Payments and credit movements are
// never filtered.
func (s *StatementService) excludeFuture(lines []domain.StatementLine, asOf time.Time) []domain.StatementLine {
	kept := lines[:0]
	horizon := asOf.Add(hoaPreviewWindow)
	for _, l := range lines {
		if l.Date.After(asOf) {
			switch {
			case l.Type == domain.LinePayment || l.Type == domain.LineCredit:
				// keep
			case l.Type == domain.LineCharge && l.Category == domain.CategoryHOADues && !l.Date.After(horizon):
				// upcoming dues inside the preview window
			default:
				continue
			}
		}
		kept = append(kept, l)
	}
	return kept
}

// reconcile cross-checks the line-derived closing balance against
// bill-level outstanding state. A discrepancy of at most one centavo is
// rounding: the bill-and-ledger-derived figure wins the closing balance
// and the substitution is noted. Anything larger is flagged for review
// and the composed balance stands. With future lines included, the
// whole year's bills count as outstanding.
func (s *StatementService) reconcile(st *domain.Statement, hoaBills, waterBills []*domain.Bill, asOf time.Time, includeFuture bool) {
	hoaHorizon := asOf.Add(hoaPreviewWindow)
	waterHorizon := asOf
	if includeFuture {
		far := asOf.AddDate(100, 0, 0)
		hoaHorizon, waterHorizon = far, far
	}
	var outstanding int64
	for _, b := range hoaBills {
		if b.DueDate.After(hoaHorizon) {
			continue
		}
		outstanding += b.TotalOwed()
	}
	for _, b := range waterBills {
		if b.DueDate.After(waterHorizon) {
			continue
		}
		outstanding += b.TotalOwed()
	}
	expected := outstanding - st.CreditBalance

	diff := st.ClosingBalance - expected
	if diff == 0 {
		return
	}
	if diff >= -1 && diff <= 1 {
		st.ClosingBalance = expected
		st.Warnings = append(st.Warnings, fmt.Sprintf(
			"closing balance adjusted by %s to match bill-level state (rounding)", domain.FormatPesos(-diff)))
		return
	}
	st.Warnings = append(st.Warnings, fmt.Sprintf(
		"closing balance %s does not reconcile with bill-level state %s",
		domain.FormatPesos(st.ClosingBalance), domain.FormatPesos(expected)))
}
