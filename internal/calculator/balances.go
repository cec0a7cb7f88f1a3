package calculator

import (
	"fmt"
	"math"
)

// ConservationTolerance bounds float drift when checking that balances sum to zero.
const ConservationTolerance = 1e-6

// Balances maps member ID to net balance.
// Positive = owed money, Negative = owes money.
type Balances map[string]float64

// MemberBalance is the per-member breakdown reported by Summarize.
type MemberBalance struct {
	MemberID   string
	MemberName string
	NetBalance float64 // Positive = owed money, Negative = owes money
	TotalPaid  float64 // Total amount paid across all expenses
	TotalOwed  float64 // Sum of this member's shares
}

// Summary is the full balance view of a group.
type Summary struct {
	Balances    Balances
	Members     []MemberBalance // in member order
	Settlements []Transaction
	TotalSpent  float64
}

// CalculateBalances computes each member's net balance from a list of expenses.
//
// Every member starts at zero, so members without expenses still appear.
// For each expense the payer is credited the full amount and every participant
// (the payer included, when participating) is debited an equal share.
//
// The whole expense list is validated before anything is summed: an expense
// with no participants fails with ErrInvalidExpense and a reference to a
// non-member fails with ErrUnknownMember. No partial map is returned.
func CalculateBalances(expenses []Expense, members []Member) (Balances, error) {
	t, err := tallyExpenses(expenses, members)
	if err != nil {
		return nil, err
	}
	return t.balances, nil
}

// tally holds the running totals for one pass over the expenses.
type tally struct {
	balances Balances
	paid     map[string]float64
	owed     map[string]float64
	total    float64
}

// tallyExpenses validates every expense, then credits payers and debits the
// shares produced by SplitEqually.
func tallyExpenses(expenses []Expense, members []Member) (*tally, error) {
	known := make(map[string]struct{}, len(members))
	for _, m := range members {
		known[m.ID] = struct{}{}
	}
	for _, e := range expenses {
		if err := validateExpense(e, known); err != nil {
			return nil, err
		}
	}

	t := &tally{
		balances: make(Balances, len(members)),
		paid:     make(map[string]float64, len(members)),
		owed:     make(map[string]float64, len(members)),
	}
	for _, m := range members {
		t.balances[m.ID] = 0
	}

	for _, e := range expenses {
		shares, err := SplitEqually(e.Amount, e.Participants)
		if err != nil {
			return nil, fmt.Errorf("failed to split expense %q: %w", e.ID, err)
		}

		t.total += e.Amount
		t.paid[e.PaidBy] += e.Amount
		t.balances[e.PaidBy] += e.Amount
		for _, s := range shares {
			t.owed[s.MemberID] += s.Amount
			t.balances[s.MemberID] -= s.Amount
		}
	}

	return t, nil
}

// CheckConservation reports ErrBalanceInconsistency when balances do not sum
// to zero. The tolerance scales with the magnitude of the balances so large
// groups are not flagged for ordinary float drift.
func CheckConservation(balances Balances) error {
	var sum, magnitude float64
	for _, b := range balances {
		sum += b
		magnitude += math.Abs(b)
	}

	limit := ConservationTolerance * math.Max(1, magnitude)
	if math.Abs(sum) > limit {
		return fmt.Errorf("%w: sum is %g", ErrBalanceInconsistency, sum)
	}
	return nil
}

// Summarize runs the balance calculation and debt simplification together and
// adds per-member paid/owed totals.
func Summarize(expenses []Expense, members []Member) (*Summary, error) {
	t, err := tallyExpenses(expenses, members)
	if err != nil {
		return nil, err
	}

	memberBalances := make([]MemberBalance, len(members))
	for i, m := range members {
		memberBalances[i] = MemberBalance{
			MemberID:   m.ID,
			MemberName: m.Name,
			NetBalance: t.balances[m.ID],
			TotalPaid:  t.paid[m.ID],
			TotalOwed:  t.owed[m.ID],
		}
	}

	return &Summary{
		Balances:    t.balances,
		Members:     memberBalances,
		Settlements: SimplifyDebts(t.balances),
		TotalSpent:  t.total,
	}, nil
}
