package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/costaverde/billing-backend/internal/domain"
	"github.com/costaverde/billing-backend/internal/store"
)

// WaterRepository reads and writes the per-fiscal-period water bill
// documents.
type WaterRepository struct {
	store store.Store
}

func NewWaterRepository(s store.Store) *WaterRepository {
	return &WaterRepository{store: s}
}

// Get loads one period's water bill document. Returns
// domain.ErrBillNotFound when the document is absent; at commit time
// that is an integrity signal, not a soft miss.
func (r *WaterRepository) Get(ctx context.Context, clientID, period string) (*domain.WaterBillDocument, error) {
	data, err := r.store.GetDoc(ctx, waterBillPath(clientID, period))
	if err != nil {
		if errors.Is(err, store.ErrDocNotFound) {
			return nil, fmt.Errorf("water bills %s/%s: %w", clientID, period, domain.ErrBillNotFound)
		}
		return nil, err
	}
	doc, err := decodeWaterDoc(clientID, period, data)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// List loads every water bill document for a client, ordered by period.
func (r *WaterRepository) List(ctx context.Context, clientID string) ([]*domain.WaterBillDocument, error) {
	raw, err := r.store.ListDocs(ctx, waterBillsCollection(clientID))
	if err != nil {
		return nil, err
	}
	docs := make([]*domain.WaterBillDocument, 0, len(raw))
	for _, d := range raw {
		period := d.Path[strings.LastIndex(d.Path, "/")+1:]
		doc, err := decodeWaterDoc(clientID, period, d.Data)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func decodeWaterDoc(clientID, period string, data []byte) (*domain.WaterBillDocument, error) {
	var doc domain.WaterBillDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("water bills %s/%s: %w", clientID, period, err)
	}
	doc.ClientID = clientID
	doc.Period = period
	return &doc, nil
}

// NewBatch starts an atomic batch on the underlying store.
func (r *WaterRepository) NewBatch() store.Batch {
	return r.store.Batch()
}

// Save writes the full document.
func (r *WaterRepository) Save(ctx context.Context, doc *domain.WaterBillDocument) error {
	return r.store.SetDoc(ctx, waterBillPath(doc.ClientID, doc.Period), doc)
}


// StageSave stages the document into an atomic batch.
func (r *WaterRepository) StageSave(b store.Batch, doc *domain.WaterBillDocument) {
	b.Set(waterBillPath(doc.ClientID, doc.Period), doc)
}
