package domain

import (
	"encoding/json"
	"time"
)

type DuesFrequency string

const (
	FrequencyMonthly   DuesFrequency = "monthly"
	FrequencyQuarterly DuesFrequency = "quarterly"
)

// DuesDocument is the stored dues record for one (client, unit, fiscal
// year): the scheduled monthly amount plus twelve per-fiscal-month
// payment slots. Bills are materialized from it on demand and never
// persisted; only the slots are.
//
// Older documents mirrored the credit ledger in creditBalance /
// creditBalanceHistory fields. Those are never read and every save drops
// them; the credit ledger is the single source of truth.
type DuesDocument struct {
	ClientID   string `json:"-"`
	UnitID     string `json:"unitId"`
	FiscalYear int    `json:"fiscalYear"`

	ScheduledAmount int64        `json:"scheduledAmount"`
	TotalPaid       int64        `json:"totalPaid"`
	Payments        [12]DuesSlot `json:"payments"`

	// Penalties holds imported penalty charges that predate the engine.
	Penalties *ImportedPenalties `json:"penalties,omitempty"`
}

// DuesSlot is one fiscal month's accumulated payment summary.
type DuesSlot struct {
	Amount      int64      `json:"amount"`
	BasePaid    int64      `json:"basePaid"`
	PenaltyPaid int64      `json:"penaltyPaid"`
	Status      BillStatus `json:"status,omitempty"`
	Date        *time.Time `json:"date,omitempty"`
	Notes       SlotNotes  `json:"notes,omitempty"`
}

// ImportedPenalties carries historical penalty entries migrated from the
// pre-engine spreadsheets.
type ImportedPenalties struct {
	Entries []ImportedPenalty `json:"entries"`
}

type ImportedPenalty struct {
	Date   time.Time `json:"date"`
	Amount int64     `json:"amount"`
	Note   string    `json:"note,omitempty"`
}

// SlotNote is one structured note on a dues slot, written alongside each
// payment application.
type SlotNote struct {
	TransactionID string    `json:"transactionId,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	Text          string    `json:"text"`
	Amount        int64     `json:"amount"`
	BasePaid      int64     `json:"basePaid"`
	PenaltyPaid   int64     `json:"penaltyPaid"`
}

// SlotNotes is an ordered note sequence. Legacy documents stored a bare
// string; it is promoted to a single-entry array on read.
type SlotNotes []SlotNote

func (n *SlotNotes) UnmarshalJSON(data []byte) error {
	var legacy string
	if err := json.Unmarshal(data, &legacy); err == nil {
		if legacy == "" {
			*n = nil
			return nil
		}
		*n = SlotNotes{{Text: legacy}}
		return nil
	}
	var notes []SlotNote
	if err := json.Unmarshal(data, &notes); err != nil {
		return err
	}
	*n = notes
	return nil
}

// RecomputeTotalPaid refreshes the document-level totalPaid sum over all
// slots.
func (d *DuesDocument) RecomputeTotalPaid() {
	var total int64
	for i := range d.Payments {
		total += d.Payments[i].Amount
	}
	d.TotalPaid = total
}
