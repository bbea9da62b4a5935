package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/costaverde/billing-backend/internal/domain"
	"github.com/costaverde/billing-backend/internal/store"
)

// CreditRepository reads and writes the per-client credit ledger
// document.
type CreditRepository struct {
	store store.Store
}

func NewCreditRepository(s store.Store) *CreditRepository {
	return &CreditRepository{store: s}
}

// Get loads the client's credit ledger. An absent document is a valid
// empty ledger, not an error.
func (r *CreditRepository) Get(ctx context.Context, clientID string) (*domain.CreditLedgerDocument, error) {
	data, err := r.store.GetDoc(ctx, creditLedgerPath(clientID))
	if err != nil {
		if errors.Is(err, store.ErrDocNotFound) {
			return &domain.CreditLedgerDocument{ClientID: clientID}, nil
		}
		return nil, err
	}
	var doc domain.CreditLedgerDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("credit ledger %s: %w", clientID, err)
	}
	doc.ClientID = clientID
	return &doc, nil
}

// NewBatch starts an atomic batch on the underlying store.
func (r *CreditRepository) NewBatch() store.Batch {
	return r.store.Batch()
}

// Save writes the full ledger document.
func (r *CreditRepository) Save(ctx context.Context, doc *domain.CreditLedgerDocument) error {
	return r.store.SetDoc(ctx, creditLedgerPath(doc.ClientID), doc)
}

// StageSave stages the ledger document into an atomic batch.
func (r *CreditRepository) StageSave(b store.Batch, doc *domain.CreditLedgerDocument) {
	b.Set(creditLedgerPath(doc.ClientID), doc)
}
