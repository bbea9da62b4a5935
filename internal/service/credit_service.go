package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/costaverde/billing-backend/internal/domain"
	"github.com/costaverde/billing-backend/internal/repository/docstore"
	"github.com/costaverde/billing-backend/internal/store"
)

// CreditService owns the per-unit credit ledger. Balances are always
// derived by summing history entries; nothing here reads a stored
// balance field. Entries are never mutated or deleted - corrections are
// new entries with opposite sign and a transaction back-reference.
type CreditService struct {
	repo  *docstore.CreditRepository
	clock store.Clock
}

func NewCreditService(repo *docstore.CreditRepository, clock store.Clock) *CreditService {
	return &CreditService{repo: repo, clock: clock}
}

// Balance returns the unit's current credit in centavos.
func (s *CreditService) Balance(ctx context.Context, clientID, unitID string) (int64, error) {
	doc, err := s.repo.Get(ctx, clientID)
	if err != nil {
		return 0, err
	}
	return doc.Unit(unitID).Balance(), nil
}

// BalanceAsOf returns the unit's credit at time t.
func (s *CreditService) BalanceAsOf(ctx context.Context, clientID, unitID string, t time.Time) (int64, error) {
	doc, err := s.repo.Get(ctx, clientID)
	if err != nil {
		return 0, err
	}
	return doc.Unit(unitID).BalanceAsOf(t), nil
}

// History returns the unit's ledger entries with timestamp in [from, to),
// in stored (chronological) order. Zero bounds are open.
func (s *CreditService) History(ctx context.Context, clientID, unitID string, from, to time.Time) ([]domain.CreditEntry, error) {
	doc, err := s.repo.Get(ctx, clientID)
	if err != nil {
		return nil, err
	}
	unit := doc.Unit(unitID)
	if unit == nil {
		return nil, nil
	}
	var entries []domain.CreditEntry
	for _, e := range unit.History {
		if !from.IsZero() && e.Timestamp.Before(from) {
			continue
		}
		if !to.IsZero() && !e.Timestamp.Before(to) {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// StageAppend appends an entry to the in-memory ledger document and
// stages its save into the batch. Fails with a NegativeBalanceError
// when the cumulative balance would go below zero; the batch is left
// unstaged in that case.
func (s *CreditService) StageAppend(b store.Batch, doc *domain.CreditLedgerDocument, unitID string, entry domain.CreditEntry) error {
	unit := doc.EnsureUnit(unitID)
	if unit.Balance()+entry.Amount < 0 {
		return &domain.NegativeBalanceError{
			UnitID:    unitID,
			Balance:   unit.Balance(),
			Requested: entry.Amount,
		}
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.clock.Now()
	}
	unit.History = append(unit.History, entry)
	unit.LastChange = entry.Timestamp
	s.repo.StageSave(b, doc)
	return nil
}

// Append records a single entry in its own atomic batch. Used for
// manual adjustments; the payment engine stages entries into its own
// commit instead.
func (s *CreditService) Append(ctx context.Context, clientID, unitID string, entry domain.CreditEntry) error {
	doc, err := s.repo.Get(ctx, clientID)
	if err != nil {
		return err
	}
	b := s.repo.NewBatch()
	if err := s.StageAppend(b, doc, unitID, entry); err != nil {
		return err
	}
	return b.Commit(ctx)
}
