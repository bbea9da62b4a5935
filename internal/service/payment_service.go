package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/costaverde/billing-backend/internal/domain"
	"github.com/costaverde/billing-backend/internal/repository/docstore"
	"github.com/costaverde/billing-backend/internal/store"
)

// recordBudget bounds a payment commit end to end. A commit that cannot
// finish inside it aborts with the context error and writes nothing.
const recordBudget = 30 * time.Second

// staleTolerance is the allocation drift, in centavos, a recorded
// payment may differ from its preview before the state is considered
// stale.
const staleTolerance = 1

// Payment priority tiers. Lower is served first; tierDropped bills never
// receive funds.
const (
	tierPastDueHOA   = 1
	tierPastDueWater = 2
	tierCurrentHOA   = 3
	tierCurrentWater = 4
	tierFutureHOA    = 5
	tierDropped      = 99
)

// PaymentService is the unified payment engine: it previews and records
// a single payment across HOA dues, water bills, and the credit ledger.
type PaymentService struct {
	dues   *DuesService
	water  *WaterService
	credit *CreditService
	config *ConfigService

	duesRepo   *docstore.DuesRepository
	creditRepo *docstore.CreditRepository
	txnRepo    *docstore.TransactionRepository

	clock store.Clock
	loc   *time.Location
}

func NewPaymentService(
	dues *DuesService,
	water *WaterService,
	credit *CreditService,
	config *ConfigService,
	duesRepo *docstore.DuesRepository,
	creditRepo *docstore.CreditRepository,
	txnRepo *docstore.TransactionRepository,
	clock store.Clock,
	loc *time.Location,
) *PaymentService {
	return &PaymentService{
		dues:       dues,
		water:      water,
		credit:     credit,
		config:     config,
		duesRepo:   duesRepo,
		creditRepo: creditRepo,
		txnRepo:    txnRepo,
		clock:      clock,
		loc:        loc,
	}
}

// PaymentRequest describes one incoming payment.
type PaymentRequest struct {
	UnitID string    `json:"unitId"`
	Amount int64     `json:"amount"`
	Date   time.Time `json:"date"`

	Method      string `json:"paymentMethod,omitempty"`
	Reference   string `json:"reference,omitempty"`
	Notes       string `json:"notes,omitempty"`
	AccountID   string `json:"accountId,omitempty"`
	AccountType string `json:"accountType,omitempty"`
	UserID      string `json:"userId,omitempty"`

	// ExpectedAllocated is the TotalAllocated the caller saw in their
	// preview. Record requires it and verifies the books have not moved
	// underneath it; a record request without a preview echo is refused.
	ExpectedAllocated *int64 `json:"expectedAllocated,omitempty"`
}

// BillAllocation is one bill's share of the previewed distribution.
type BillAllocation struct {
	BillID  string            `json:"billId"`
	Module  domain.ModuleType `json:"module"`
	Period  string            `json:"period"`
	Tier    int               `json:"tier"`
	DueDate time.Time         `json:"dueDate"`

	BaseApplied    int64 `json:"baseApplied"`
	PenaltyApplied int64 `json:"penaltyApplied"`

	BaseOwed    int64 `json:"baseOwed"`
	PenaltyOwed int64 `json:"penaltyOwed"`

	bill *domain.Bill
}

// HOASummary aggregates the HOA side of a distribution.
type HOASummary struct {
	BaseApplied    int64 `json:"baseApplied"`
	PenaltyApplied int64 `json:"penaltyApplied"`
	MonthsAffected int   `json:"monthsAffected"`
}

// WaterSummary aggregates the water side of a distribution.
type WaterSummary struct {
	BaseApplied    int64 `json:"baseApplied"`
	PenaltyApplied int64 `json:"penaltyApplied"`
	BillsAffected  int   `json:"billsAffected"`
}

// CreditSummary reports the credit movement a payment causes.
type CreditSummary struct {
	StartingBalance int64 `json:"startingBalance"`
	Used            int64 `json:"used"`
	Added           int64 `json:"added"`
	Final           int64 `json:"final"`
}

// AllocationSummary is the crosscheck block: TotalAllocated counts bill
// allocations only, so a re-preview against moved books changes it.
type AllocationSummary struct {
	TotalBills      int   `json:"totalBills"`
	TotalAllocated  int64 `json:"totalAllocated"`
	AllocationCount int   `json:"allocationCount"`
}

// PaymentPreview is the full distribution a payment would cause, without
// writing anything.
type PaymentPreview struct {
	UnitID string    `json:"unitId"`
	Amount int64     `json:"amount"`
	Date   time.Time `json:"date"`

	Bills      []BillAllocation  `json:"bills"`
	HOA        HOASummary        `json:"hoa"`
	Water      WaterSummary      `json:"water"`
	Credit     CreditSummary     `json:"credit"`
	Allocation AllocationSummary `json:"allocation"`
}

// Preview computes the distribution of a payment as of its date: both
// adapters' bills with penalties recalculated, priority tiers assigned,
// and the pooled funds (amount plus the unit's whole credit balance)
// spread penalty-first in tier order. Whatever the bills cannot absorb
// stays as credit; only the net credit movement is reported. A
// zero-amount request previews what the existing credit alone would
// cover, with credit fields zeroed and prepayments stripped from the
// result. Nothing is persisted.
func (s *PaymentService) Preview(ctx context.Context, clientID string, req PaymentRequest) (*PaymentPreview, error) {
	if req.Amount < 0 {
		return nil, fmt.Errorf("%w: negative payment amount", domain.ErrInvalidInput)
	}
	cfg, err := s.config.Get(ctx, clientID)
	if err != nil {
		return nil, err
	}
	asOf := req.Date
	if asOf.IsZero() {
		asOf = s.clock.Now()
	}
	asOf = asOf.In(s.loc)

	balance, err := s.credit.Balance(ctx, clientID, req.UnitID)
	if err != nil {
		return nil, err
	}

	bills, err := s.collectBills(ctx, clientID, req.UnitID, asOf, cfg)
	if err != nil {
		return nil, err
	}

	preview := &PaymentPreview{
		UnitID: req.UnitID,
		Amount: req.Amount,
		Date:   asOf,
		Credit: CreditSummary{StartingBalance: balance},
	}

	// Coverage-only mode: the existing credit plays the payment, and
	// future months never count as coverage.
	coverageOnly := req.Amount == 0
	pool := req.Amount + balance
	if coverageOnly {
		pool = balance
	}
	for i := range bills {
		alloc := &bills[i]
		if alloc.Tier == tierDropped {
			continue
		}
		if coverageOnly && alloc.Tier == tierFutureHOA {
			continue
		}
		if pool > 0 {
			p := min64(pool, alloc.PenaltyOwed)
			alloc.PenaltyApplied = p
			pool -= p
		}
		if pool > 0 {
			b := min64(pool, alloc.BaseOwed)
			alloc.BaseApplied = b
			pool -= b
		}
		if alloc.BaseApplied == 0 && alloc.PenaltyApplied == 0 {
			continue
		}
		applied := alloc.BaseApplied + alloc.PenaltyApplied
		preview.Allocation.TotalBills++
		preview.Allocation.TotalAllocated += applied
		if alloc.Module == domain.ModuleHOA {
			preview.HOA.BaseApplied += alloc.BaseApplied
			preview.HOA.PenaltyApplied += alloc.PenaltyApplied
			preview.HOA.MonthsAffected += monthsSpanned(alloc.bill)
		} else {
			preview.Water.BaseApplied += alloc.BaseApplied
			preview.Water.PenaltyApplied += alloc.PenaltyApplied
			preview.Water.BillsAffected++
		}
	}
	preview.Bills = bills

	if coverageOnly {
		preview.Credit = CreditSummary{}
	} else {
		// Net credit movement: leftover funds against the opening
		// balance. At most one of Used/Added is ever set.
		net := pool - balance
		if net < 0 {
			preview.Credit.Used = -net
		} else {
			preview.Credit.Added = net
		}
		preview.Credit.Final = pool
	}
	preview.Allocation.AllocationCount = len(s.buildAllocations(preview))
	return preview, nil
}

// RecordResult is a committed payment: the immutable transaction plus
// the distribution that produced it.
type RecordResult struct {
	Transaction *domain.Transaction `json:"transaction"`
	Preview     *PaymentPreview     `json:"preview"`
}

// Record commits a payment: it re-previews against current state,
// verifies the caller's preview echo still holds, and writes the
// transaction, dues slots, water bills, and credit entries in one atomic
// batch. The whole operation runs under a hard time budget. Concurrent
// payments against the same unit serialize here: whichever commits
// second sees moved books and fails the stale check.
func (s *PaymentService) Record(ctx context.Context, clientID string, req PaymentRequest) (*RecordResult, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: payment amount must be positive", domain.ErrInvalidInput)
	}
	if req.ExpectedAllocated == nil {
		return nil, fmt.Errorf("%w: record requires the previewed allocation total", domain.ErrInvalidInput)
	}
	ctx, cancel := context.WithTimeout(ctx, recordBudget)
	defer cancel()

	preview, err := s.Preview(ctx, clientID, req)
	if err != nil {
		return nil, err
	}
	diff := preview.Allocation.TotalAllocated - *req.ExpectedAllocated
	if diff < -staleTolerance || diff > staleTolerance {
		return nil, &domain.StaleStateError{
			ExpectedAllocated: *req.ExpectedAllocated,
			CurrentAllocated:  preview.Allocation.TotalAllocated,
		}
	}

	txn := &domain.Transaction{
		ID:            uuid.NewString(),
		ClientID:      clientID,
		UnitID:        req.UnitID,
		Date:          preview.Date,
		Amount:        req.Amount,
		Type:          domain.TransactionTypeIncome,
		PaymentMethod: req.Method,
		Reference:     req.Reference,
		Notes:         req.Notes,
		AccountID:     req.AccountID,
		AccountType:   req.AccountType,
		UserID:        req.UserID,
		Allocations:   s.buildAllocations(preview),
		CreatedAt:     s.clock.Now(),
	}
	switch len(txn.Allocations) {
	case 0:
		return nil, fmt.Errorf("%w: payment allocates to nothing", domain.ErrInvalidInput)
	case 1:
		txn.CategoryID = txn.Allocations[0].CategoryID
	default:
		txn.CategoryID = domain.CategorySplit
	}
	if err := txn.Validate(); err != nil {
		return nil, err
	}

	b := s.creditRepo.NewBatch()
	s.txnRepo.StageCreate(b, txn)
	if err := s.stageHOA(ctx, b, clientID, preview, txn); err != nil {
		return nil, err
	}
	if err := s.stageWater(ctx, b, clientID, preview, txn); err != nil {
		return nil, err
	}
	if err := s.stageCredit(ctx, b, clientID, preview, txn); err != nil {
		return nil, err
	}
	if err := b.Commit(ctx); err != nil {
		return nil, err
	}

	log.Info().
		Str("client_id", clientID).
		Str("unit_id", req.UnitID).
		Str("transaction_id", txn.ID).
		Str("amount", domain.FormatPesos(req.Amount)).
		Str("credit_used", domain.FormatPesos(preview.Credit.Used)).
		Str("credit_added", domain.FormatPesos(preview.Credit.Added)).
		Int("bills", preview.Allocation.TotalBills).
		Msg("payment recorded")
	return &RecordResult{Transaction: txn, Preview: preview}, nil
}

// collectBills gathers both modules' open bills with penalties
// recalculated as of the payment date, assigns tiers, and sorts by
// (tier, due date, period).
func (s *PaymentService) collectBills(ctx context.Context, clientID, unitID string, asOf time.Time, cfg *domain.ClientConfig) ([]BillAllocation, error) {
	fy := domain.FiscalYearOf(asOf, cfg.HOA.FiscalYearStartMonth)
	hoaBills, err := s.dues.BillsForYear(ctx, clientID, unitID, fy, cfg)
	if err != nil {
		return nil, err
	}
	domain.RecalculatePenalties(hoaBills, asOf, cfg.HOA.PenaltyConfig)

	waterBills, err := s.water.UnpaidBills(ctx, clientID, unitID, cfg)
	if err != nil {
		return nil, err
	}
	domain.RecalculatePenalties(waterBills, asOf, cfg.Water.PenaltyConfig)

	monthStart := time.Date(asOf.Year(), asOf.Month(), 1, 0, 0, 0, 0, s.loc)
	nextMonth := monthStart.AddDate(0, 1, 0)

	var allocs []BillAllocation
	add := func(bill *domain.Bill) {
		if bill.TotalOwed() <= 0 {
			return
		}
		allocs = append(allocs, BillAllocation{
			BillID:      bill.ID,
			Module:      bill.Module,
			Period:      fmt.Sprintf("%s:%s", bill.Module, bill.Period),
			Tier:        billTier(bill, monthStart, nextMonth),
			DueDate:     bill.DueDate,
			BaseOwed:    bill.BaseOwed(),
			PenaltyOwed: bill.PenaltyOwed(),
			bill:        bill,
		})
	}
	for _, bill := range hoaBills {
		add(bill)
	}
	for _, bill := range waterBills {
		add(bill)
	}
	sort.SliceStable(allocs, func(i, j int) bool {
		if allocs[i].Tier != allocs[j].Tier {
			return allocs[i].Tier < allocs[j].Tier
		}
		if !allocs[i].DueDate.Equal(allocs[j].DueDate) {
			return allocs[i].DueDate.Before(allocs[j].DueDate)
		}
		return allocs[i].Period < allocs[j].Period
	})
	return allocs, nil
}

// billTier classifies a bill against the month containing the payment
// date. Water is postpaid, so its future bills never receive funds.
func billTier(bill *domain.Bill, monthStart, nextMonth time.Time) int {
	switch {
	case bill.DueDate.Before(monthStart):
		if bill.Module == domain.ModuleHOA {
			return tierPastDueHOA
		}
		return tierPastDueWater
	case bill.DueDate.Before(nextMonth):
		if bill.Module == domain.ModuleHOA {
			return tierCurrentHOA
		}
		return tierCurrentWater
	default:
		if bill.Module == domain.ModuleHOA {
			return tierFutureHOA
		}
		return tierDropped
	}
}

// buildAllocations converts a preview into transaction allocation rows:
// one per applied base charge, one per applied penalty, plus at most one
// credit row for the net movement. Net credit used enters negative so
// the rows sum to the cash amount exactly.
func (s *PaymentService) buildAllocations(p *PaymentPreview) []domain.Allocation {
	var rows []domain.Allocation
	for i := range p.Bills {
		a := &p.Bills[i]
		if a.BaseApplied > 0 {
			typ, cat := domain.AllocHOAMonth, domain.CategoryHOADues
			if a.Module == domain.ModuleWater {
				typ, cat = domain.AllocWaterConsumption, domain.CategoryWater
			}
			rows = append(rows, domain.Allocation{
				Type:       typ,
				TargetID:   a.BillID,
				TargetName: a.Period,
				Amount:     a.BaseApplied,
				CategoryID: cat,
			})
		}
		if a.PenaltyApplied > 0 {
			typ, cat := domain.AllocHOAPenalty, domain.CategoryHOAPenalty
			if a.Module == domain.ModuleWater {
				typ, cat = domain.AllocWaterPenalty, domain.CategoryWaterPenalty
			}
			rows = append(rows, domain.Allocation{
				Type:       typ,
				TargetID:   a.BillID,
				TargetName: a.Period,
				Amount:     a.PenaltyApplied,
				CategoryID: cat,
			})
		}
	}
	if p.Credit.Used > 0 {
		rows = append(rows, domain.Allocation{
			Type:       domain.AllocCreditUsed,
			TargetID:   p.UnitID,
			Amount:     -p.Credit.Used,
			CategoryID: domain.CategoryCredit,
		})
	}
	if p.Credit.Added > 0 {
		rows = append(rows, domain.Allocation{
			Type:       domain.AllocCreditAdded,
			TargetID:   p.UnitID,
			Amount:     p.Credit.Added,
			CategoryID: domain.CategoryCredit,
		})
	}
	return rows
}

// stageHOA groups the HOA side of the distribution by fiscal year and
// stages slot updates onto each year's dues document.
func (s *PaymentService) stageHOA(ctx context.Context, b store.Batch, clientID string, p *PaymentPreview, txn *domain.Transaction) error {
	byYear := make(map[int][]DuesSlotUpdate)
	var years []int
	for i := range p.Bills {
		a := &p.Bills[i]
		if a.Module != domain.ModuleHOA || a.BaseApplied+a.PenaltyApplied == 0 {
			continue
		}
		fy := a.bill.FiscalYear
		if _, ok := byYear[fy]; !ok {
			years = append(years, fy)
		}
		byYear[fy] = append(byYear[fy], SlotUpdatesForBill(a.bill, a.BaseApplied, a.PenaltyApplied)...)
	}
	sort.Ints(years)
	for _, fy := range years {
		doc, err := s.duesRepo.Get(ctx, clientID, p.UnitID, fy)
		if err != nil {
			return err
		}
		if err := s.dues.StageApplyPayment(b, doc, byYear[fy], txn); err != nil {
			return err
		}
	}
	return nil
}

// stageWater stages the water side of the distribution onto each
// affected period document.
func (s *PaymentService) stageWater(ctx context.Context, b store.Batch, clientID string, p *PaymentPreview, txn *domain.Transaction) error {
	var updates []WaterBillUpdate
	for i := range p.Bills {
		a := &p.Bills[i]
		if a.Module != domain.ModuleWater || a.BaseApplied+a.PenaltyApplied == 0 {
			continue
		}
		updates = append(updates, WaterBillUpdate{
			Period:        a.bill.Period,
			BasePaid:      a.BaseApplied,
			PenaltyPaid:   a.PenaltyApplied,
			PenaltyAmount: a.bill.PenaltyAmount,
		})
	}
	if len(updates) == 0 {
		return nil
	}
	return s.water.StageApplyPayment(ctx, b, clientID, p.UnitID, updates, txn)
}

// stageCredit stages the ledger entry for the payment's net credit
// movement, tied to the transaction. A payment appends at most one
// entry: the preview nets usage against overpayment.
func (s *PaymentService) stageCredit(ctx context.Context, b store.Batch, clientID string, p *PaymentPreview, txn *domain.Transaction) error {
	if p.Credit.Used == 0 && p.Credit.Added == 0 {
		return nil
	}
	doc, err := s.creditRepo.Get(ctx, clientID)
	if err != nil {
		return err
	}
	entry := domain.CreditEntry{
		Timestamp:     txn.Date,
		Amount:        -p.Credit.Used,
		Type:          domain.CreditUsed,
		Source:        domain.CreditSourceUnifiedPayment,
		TransactionID: txn.ID,
		Note:          "applied to payment",
	}
	if p.Credit.Added > 0 {
		entry.Amount = p.Credit.Added
		entry.Type = domain.CreditAdded
		entry.Note = "overpayment retained as credit"
	}
	return s.credit.StageAppend(b, doc, p.UnitID, entry)
}

// monthsSpanned counts the fiscal months a single HOA bill covers.
func monthsSpanned(bill *domain.Bill) int {
	if bill.QuarterIndex > 0 {
		return 3
	}
	return 1
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
