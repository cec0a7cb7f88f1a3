package calculator

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidExpense is returned for an expense that cannot be split,
	// such as one with no participants.
	ErrInvalidExpense = errors.New("invalid expense")

	// ErrUnknownMember is returned when an expense references a payer or
	// participant that is not a member of the group.
	ErrUnknownMember = errors.New("unknown member")

	// ErrBalanceInconsistency is returned by CheckConservation when the
	// balances do not sum to zero.
	ErrBalanceInconsistency = errors.New("balances do not sum to zero")
)

// InvalidExpenseError describes why a specific expense was rejected.
type InvalidExpenseError struct {
	ExpenseID string
	Reason    string
}

func (e *InvalidExpenseError) Error() string {
	return fmt.Sprintf("%s %q: %s", ErrInvalidExpense, e.ExpenseID, e.Reason)
}

func (e *InvalidExpenseError) Unwrap() error { return ErrInvalidExpense }

// UnknownMemberError names the expense and the member ID it referenced.
type UnknownMemberError struct {
	ExpenseID string
	MemberID  string
}

func (e *UnknownMemberError) Error() string {
	return fmt.Sprintf("%s %q referenced by expense %q", ErrUnknownMember, e.MemberID, e.ExpenseID)
}

func (e *UnknownMemberError) Unwrap() error { return ErrUnknownMember }
