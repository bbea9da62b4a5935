package domain

import "time"

type StatementLineType string

const (
	LineCharge  StatementLineType = "charge"
	LinePenalty StatementLineType = "penalty"
	LinePayment StatementLineType = "payment"
	LineCredit  StatementLineType = "credit"
)

// sort order on equal dates: charges, then penalties, then payments
func (t StatementLineType) Order() int {
	switch t {
	case LineCharge:
		return 0
	case LinePenalty:
		return 1
	default:
		return 2
	}
}

// StatementLine is one row of a unit's statement: a charge, penalty,
// payment, or manual credit movement with the running balance after it.
type StatementLine struct {
	Date        time.Time         `json:"date"`
	Type        StatementLineType `json:"type"`
	Category    string            `json:"category"`
	Description string            `json:"description"`

	// Charge and Payment are mutually exclusive positive centavo
	// amounts; SignedAmount is what the running balance moves by.
	Charge       int64 `json:"charge,omitempty"`
	Payment      int64 `json:"payment,omitempty"`
	SignedAmount int64 `json:"-"`
	Balance      int64 `json:"balance"`

	TransactionRef string `json:"transactionRef,omitempty"`
}

// Statement is a unit's chronological fiscal-year history. The opening
// balance is the negated credit balance at fiscal year start: credit the
// association holds for the unit counts against what the unit owes.
type Statement struct {
	ClientID   string    `json:"clientId"`
	UnitID     string    `json:"unitId"`
	FiscalYear int       `json:"fiscalYear"`
	AsOf       time.Time `json:"asOf"`

	OpeningBalance int64           `json:"openingBalance"`
	Lines          []StatementLine `json:"lines"`
	ClosingBalance int64           `json:"closingBalance"`

	CreditBalance    int64            `json:"creditBalance"`
	TotalsByCategory map[string]int64 `json:"allocationTotals"`

	// Warnings surface reconciliation discrepancies without aborting
	// composition.
	Warnings []string `json:"warnings,omitempty"`
}
