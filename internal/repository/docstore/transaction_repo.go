package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/costaverde/billing-backend/internal/domain"
	"github.com/costaverde/billing-backend/internal/store"
)

// TransactionRepository reads and stages the immutable transaction
// documents. There is deliberately no update method.
type TransactionRepository struct {
	store store.Store
}

func NewTransactionRepository(s store.Store) *TransactionRepository {
	return &TransactionRepository{store: s}
}

// Get loads one transaction by ID.
func (r *TransactionRepository) Get(ctx context.Context, clientID, txnID string) (*domain.Transaction, error) {
	data, err := r.store.GetDoc(ctx, transactionPath(clientID, txnID))
	if err != nil {
		if errors.Is(err, store.ErrDocNotFound) {
			return nil, fmt.Errorf("transaction %s/%s: %w", clientID, txnID, domain.ErrNotFound)
		}
		return nil, err
	}
	var txn domain.Transaction
	if err := json.Unmarshal(data, &txn); err != nil {
		return nil, fmt.Errorf("transaction %s/%s: %w", clientID, txnID, err)
	}
	txn.ClientID = clientID
	return &txn, nil
}

// ListByUnit returns a unit's transactions with date in [from, to),
// ordered by date. Zero bounds are open.
func (r *TransactionRepository) ListByUnit(ctx context.Context, clientID, unitID string, from, to time.Time) ([]*domain.Transaction, error) {
	raw, err := r.store.ListDocs(ctx, transactionsCollection(clientID))
	if err != nil {
		return nil, err
	}
	var txns []*domain.Transaction
	for _, d := range raw {
		var txn domain.Transaction
		if err := json.Unmarshal(d.Data, &txn); err != nil {
			return nil, fmt.Errorf("transaction %s: %w", d.Path, err)
		}
		if txn.UnitID != unitID {
			continue
		}
		if !from.IsZero() && txn.Date.Before(from) {
			continue
		}
		if !to.IsZero() && !txn.Date.Before(to) {
			continue
		}
		txn.ClientID = clientID
		txns = append(txns, &txn)
	}
	sort.Slice(txns, func(i, j int) bool { return txns[i].Date.Before(txns[j].Date) })
	return txns, nil
}

// StageCreate stages the immutable transaction write into an atomic
// batch.
func (r *TransactionRepository) StageCreate(b store.Batch, txn *domain.Transaction) {
	b.Set(transactionPath(txn.ClientID, txn.ID), txn)
}
