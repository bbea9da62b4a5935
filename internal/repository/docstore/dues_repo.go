package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/costaverde/billing-backend/internal/domain"
	"github.com/costaverde/billing-backend/internal/store"
)

// DuesRepository reads and writes the per-(unit, fiscal year) dues
// documents.
type DuesRepository struct {
	store store.Store
}

func NewDuesRepository(s store.Store) *DuesRepository {
	return &DuesRepository{store: s}
}

// Get loads the dues document for one unit and fiscal year. Returns
// domain.ErrNotFound when no dues were set up for that year.
func (r *DuesRepository) Get(ctx context.Context, clientID, unitID string, fiscalYear int) (*domain.DuesDocument, error) {
	data, err := r.store.GetDoc(ctx, duesPath(clientID, unitID, fiscalYear))
	if err != nil {
		if errors.Is(err, store.ErrDocNotFound) {
			return nil, fmt.Errorf("dues %s/%s/%d: %w", clientID, unitID, fiscalYear, domain.ErrNotFound)
		}
		return nil, err
	}
	var doc domain.DuesDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("dues %s/%s/%d: %w", clientID, unitID, fiscalYear, err)
	}
	doc.ClientID = clientID
	doc.UnitID = unitID
	doc.FiscalYear = fiscalYear
	return &doc, nil
}

// Save writes the full document. Marshalling the struct drops the
// legacy creditBalance mirror fields from older documents.
func (r *DuesRepository) Save(ctx context.Context, doc *domain.DuesDocument) error {
	return r.store.SetDoc(ctx, duesPath(doc.ClientID, doc.UnitID, doc.FiscalYear), doc)
}

// StageSave stages the document into an atomic batch.
func (r *DuesRepository) StageSave(b store.Batch, doc *domain.DuesDocument) {
	b.Set(duesPath(doc.ClientID, doc.UnitID, doc.FiscalYear), doc)
}
