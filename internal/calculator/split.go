package calculator

import "time"

// Member is a group member as seen by the balance engine.
type Member struct {
	ID   string
	Name string
}

// Expense is a single shared expense.
// Participants is an ordered set of member IDs and may include PaidBy.
type Expense struct {
	ID           string
	Description  string
	Amount       float64
	PaidBy       string
	Participants []string
	Date         time.Time
}

// Share is one participant's portion of an expense.
type Share struct {
	MemberID string
	Amount   float64
}

// SplitEqually divides amount evenly across participants, preserving their order.
// Shares are plain float division with no rounding; any cent remainders are
// absorbed by the settlement tolerance.
func SplitEqually(amount float64, participants []string) ([]Share, error) {
	if len(participants) == 0 {
		return nil, &InvalidExpenseError{Reason: "must have at least one participant"}
	}

	perPerson := amount / float64(len(participants))
	shares := make([]Share, len(participants))
	for i, p := range participants {
		shares[i] = Share{MemberID: p, Amount: perPerson}
	}
	return shares, nil
}

// validateExpense checks the expense against the member set before any arithmetic.
func validateExpense(e Expense, members map[string]struct{}) error {
	if len(e.Participants) == 0 {
		return &InvalidExpenseError{ExpenseID: e.ID, Reason: "must have at least one participant"}
	}
	if _, ok := members[e.PaidBy]; !ok {
		return &UnknownMemberError{ExpenseID: e.ID, MemberID: e.PaidBy}
	}
	for _, p := range e.Participants {
		if _, ok := members[p]; !ok {
			return &UnknownMemberError{ExpenseID: e.ID, MemberID: p}
		}
	}
	return nil
}
