package domain

import "time"

type CreditEntryType string

const (
	CreditStartingBalance  CreditEntryType = "starting_balance"
	CreditAdded            CreditEntryType = "credit_added"
	CreditUsed             CreditEntryType = "credit_used"
	CreditManualAdjustment CreditEntryType = "manual_adjustment"
)

// Credit entry sources.
const (
	CreditSourcePayment        = "payment"
	CreditSourceUnifiedPayment = "unifiedPayment"
	CreditSourceImport         = "import"
	CreditSourceManual         = "manual"
)

// CreditLedgerDocument is the per-client credit ledger: one append-only
// history per unit. The current balance is always the sum of history
// amounts; any stored balance field is a write-through hint that is
// never read back.
type CreditLedgerDocument struct {
	ClientID string                 `json:"-"`
	Units    map[string]*UnitCredit `json:"units"`
}

// UnitCredit holds one unit's credit history. Entries are never mutated
// or deleted; corrections are new entries with opposite sign and a
// back-reference to the transaction they reverse.
type UnitCredit struct {
	History    []CreditEntry `json:"history"`
	LastChange time.Time     `json:"lastChange"`
}

// CreditEntry is one immutable ledger line. Positive amounts add credit,
// negative amounts consume it.
type CreditEntry struct {
	ID            string          `json:"id"`
	Timestamp     time.Time       `json:"timestamp"`
	Amount        int64           `json:"amount"`
	Type          CreditEntryType `json:"type"`
	Source        string          `json:"source"`
	TransactionID string          `json:"transactionId,omitempty"`
	Note          string          `json:"note,omitempty"`
}

// Balance derives the unit's current credit by summing every history
// entry.
func (u *UnitCredit) Balance() int64 {
	if u == nil {
		return 0
	}
	var sum int64
	for i := range u.History {
		sum += u.History[i].Amount
	}
	return sum
}

// BalanceAsOf derives the credit balance at time t, counting entries
// with timestamp <= t.
func (u *UnitCredit) BalanceAsOf(t time.Time) int64 {
	if u == nil {
		return 0
	}
	var sum int64
	for i := range u.History {
		if !u.History[i].Timestamp.After(t) {
			sum += u.History[i].Amount
		}
	}
	return sum
}

// Unit returns the ledger sub-record for a unit, which may be nil when
// the unit has no history yet.
func (d *CreditLedgerDocument) Unit(unitID string) *UnitCredit {
	if d == nil || d.Units == nil {
		return nil
	}
	return d.Units[unitID]
}

// EnsureUnit returns the unit's sub-record, creating it when absent.
func (d *CreditLedgerDocument) EnsureUnit(unitID string) *UnitCredit {
	if d.Units == nil {
		d.Units = make(map[string]*UnitCredit)
	}
	if d.Units[unitID] == nil {
		d.Units[unitID] = &UnitCredit{}
	}
	return d.Units[unitID]
}
