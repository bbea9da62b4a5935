package domain

import "time"

type TransactionType string

const (
	TransactionTypeIncome   TransactionType = "income"
	TransactionTypeExpense  TransactionType = "expense"
	TransactionTypeTransfer TransactionType = "transfer"
)

// AllocationType discriminates the allocation variants. Code switches on
// this tag, never on category-name substrings.
type AllocationType string

const (
	AllocHOAMonth         AllocationType = "hoa_month"
	AllocHOAPenalty       AllocationType = "hoa_penalty"
	AllocWaterConsumption AllocationType = "water_consumption"
	AllocWaterPenalty     AllocationType = "water_penalty"
	AllocCreditAdded      AllocationType = "credit_added"
	AllocCreditUsed       AllocationType = "credit_used"
)

// CategorySplit is the category marker on transactions that carry more
// than one allocation.
const CategorySplit = "-split-"

// Allocation categories as stored on allocation rows.
const (
	CategoryHOADues      = "hoa-dues"
	CategoryHOAPenalty   = "hoa-penalties"
	CategoryWater        = "water-consumption"
	CategoryWaterPenalty = "water-penalties"
	CategoryCredit       = "account-credit"
)

// Transaction is the immutable record of money received, split across
// bill and credit targets. Once written it is never modified; reversal
// is transaction deletion plus compensating ledger entries, handled
// outside this engine.
type Transaction struct {
	ID         string          `json:"id"`
	ClientID   string          `json:"-"`
	UnitID     string          `json:"unitId"`
	Date       time.Time       `json:"date"`
	Amount     int64           `json:"amount"`
	Type       TransactionType `json:"type"`
	CategoryID string          `json:"categoryId"`

	PaymentMethod string `json:"paymentMethod,omitempty"`
	Reference     string `json:"reference,omitempty"`
	Notes         string `json:"notes,omitempty"`
	AccountID     string `json:"accountId,omitempty"`
	AccountType   string `json:"accountType,omitempty"`
	UserID        string `json:"userId,omitempty"`

	Allocations []Allocation `json:"allocations"`

	CreatedAt time.Time `json:"createdAt"`
}

// Allocation binds one slice of the transaction amount to a target:
// a bill's base charge, a bill's penalty, or a credit movement.
type Allocation struct {
	Type       AllocationType    `json:"type"`
	TargetID   string            `json:"targetId"`
	TargetName string            `json:"targetName,omitempty"`
	Amount     int64             `json:"amount"`
	CategoryID string            `json:"categoryId"`
	Data       map[string]string `json:"data,omitempty"`
}

// AllocationTotal sums allocation amounts. Credit allocations may be
// negative; the sum must equal the transaction amount exactly.
func (t *Transaction) AllocationTotal() int64 {
	var sum int64
	for i := range t.Allocations {
		sum += t.Allocations[i].Amount
	}
	return sum
}

// Validate enforces the centavo-exact allocation crosscheck.
func (t *Transaction) Validate() error {
	if total := t.AllocationTotal(); total != t.Amount {
		return &AllocationMismatchError{TransactionAmount: t.Amount, AllocatedAmount: total}
	}
	return nil
}

// IsWaterAllocation reports whether the allocation targets the water
// stream.
func (a *Allocation) IsWaterAllocation() bool {
	return a.Type == AllocWaterConsumption || a.Type == AllocWaterPenalty
}

// IsCreditAllocation reports whether the allocation is a credit movement.
func (a *Allocation) IsCreditAllocation() bool {
	return a.Type == AllocCreditAdded || a.Type == AllocCreditUsed
}
