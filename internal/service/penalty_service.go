package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/costaverde/billing-backend/internal/domain"
	"github.com/costaverde/billing-backend/internal/repository/docstore"
	"github.com/costaverde/billing-backend/internal/store"
)

// PenaltyService runs the scheduled penalty writeback. HOA penalties are
// recomputed live wherever dues bills are materialized and never stored,
// so the refresh pass only touches water bill documents, whose penalty
// fields are persisted per unit.
type PenaltyService struct {
	waterRepo *docstore.WaterRepository
	water     *WaterService
	config    *ConfigService
	clock     store.Clock
}

func NewPenaltyService(waterRepo *docstore.WaterRepository, water *WaterService, config *ConfigService, clock store.Clock) *PenaltyService {
	return &PenaltyService{waterRepo: waterRepo, water: water, config: config, clock: clock}
}

// PenaltyRefreshReport summarizes one refresh pass.
type PenaltyRefreshReport struct {
	FiscalYear          int   `json:"fiscalYear"`
	DocumentsScanned    int   `json:"documentsScanned"`
	BillsUpdated        int   `json:"billsUpdated"`
	TotalPenaltiesAdded int64 `json:"totalPenaltiesAdded"`
}

// RefreshYear recalculates stored water penalties for every period of
// one fiscal year as of now, committing all document writes in a single
// atomic batch. Running it twice in a row is a no-op the second time.
func (s *PenaltyService) RefreshYear(ctx context.Context, clientID string, fiscalYear int) (*PenaltyRefreshReport, error) {
	cfg, err := s.config.Get(ctx, clientID)
	if err != nil {
		return nil, err
	}
	docs, err := s.waterRepo.List(ctx, clientID)
	if err != nil {
		return nil, err
	}

	asOf := s.clock.Now()
	report := &PenaltyRefreshReport{FiscalYear: fiscalYear}
	b := s.waterRepo.NewBatch()
	for _, doc := range docs {
		year, _, err := ParseWaterPeriod(doc.Period)
		if err != nil || year != fiscalYear {
			continue
		}
		report.DocumentsScanned++
		updated, added := s.water.StagePenaltyRefresh(b, doc, cfg, asOf)
		report.BillsUpdated += updated
		report.TotalPenaltiesAdded += added
	}
	if b.Len() == 0 {
		return report, nil
	}
	if err := b.Commit(ctx); err != nil {
		return nil, err
	}
	log.Info().
		Str("client_id", clientID).
		Int("fiscal_year", fiscalYear).
		Int("bills_updated", report.BillsUpdated).
		Str("penalties_added", domain.FormatPesos(report.TotalPenaltiesAdded)).
		Msg("water penalties refreshed")
	return report, nil
}
