package domain

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrNotFound        = errors.New("resource not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrInternalError   = errors.New("internal error")
	ErrConfigMissing   = errors.New("required billing configuration missing")
	ErrNegativeBalance = errors.New("credit balance would go negative")
	ErrBillNotFound    = errors.New("referenced bill document missing")
	ErrStaleState      = errors.New("stale preview state")
	// ErrDueDateUnresolvable marks a bill that carries no due date and no
	// fallback can derive one. The bill is skipped with a warning, never
	// silently billed.
	ErrDueDateUnresolvable = errors.New("bill due date unresolvable")
)

// AllocationMismatchError is raised when a transaction's allocation rows
// do not sum to its amount. The commit is aborted; the engine never
// writes approximate money.
type AllocationMismatchError struct {
	TransactionAmount int64
	AllocatedAmount   int64
}

func (e *AllocationMismatchError) Error() string {
	return fmt.Sprintf("allocation mismatch: transaction amount %s, allocations sum %s",
		FormatPesos(e.TransactionAmount), FormatPesos(e.AllocatedAmount))
}

// StaleStateError is raised when a record request's preview no longer
// matches current state by more than one centavo. The caller re-previews.
type StaleStateError struct {
	ExpectedAllocated int64
	CurrentAllocated  int64
}

func (e *StaleStateError) Error() string {
	return fmt.Sprintf("stale preview: expected allocation %s, current state allocates %s",
		FormatPesos(e.ExpectedAllocated), FormatPesos(e.CurrentAllocated))
}

func (e *StaleStateError) Unwrap() error { return ErrStaleState }

// NegativeBalanceError reports a credit append that would drive a unit's
// balance below zero.
type NegativeBalanceError struct {
	UnitID    string
	Balance   int64
	Requested int64
}

func (e *NegativeBalanceError) Error() string {
	return fmt.Sprintf("unit %s: appending %s to credit balance %s would go negative",
		e.UnitID, FormatPesos(e.Requested), FormatPesos(e.Balance))
}

func (e *NegativeBalanceError) Unwrap() error { return ErrNegativeBalance }
