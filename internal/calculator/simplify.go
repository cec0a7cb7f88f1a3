package calculator

import "sort"

// Tolerance is the absolute amount below which a balance counts as settled.
// It is a cents-level display threshold for a single currency.
const Tolerance = 0.01

// Transaction is a proposed payment from a debtor to a creditor.
type Transaction struct {
	From   string // Person who owes
	To     string // Person who is owed
	Amount float64
}

type party struct {
	id     string
	amount float64
}

// SimplifyDebts turns net balances into a short list of payments that settles them.
//
// Algorithm (greedy, largest first; not a globally minimal solver):
//   - Drop balances within Tolerance of zero
//   - Creditors (owed money) and debtors (owe money) are each sorted by
//     descending amount, ties broken by member ID
//   - Repeatedly settle min(largest credit, largest debt) and advance past
//     whichever side dropped below Tolerance
//
// The result has at most creditors+debtors-1 entries and never pays oneself.
// If the balances do not sum to zero the unmatched remainder is left unsettled.
func SimplifyDebts(balances Balances) []Transaction {
	var creditors, debtors []party
	for id, b := range balances {
		if b > Tolerance {
			creditors = append(creditors, party{id: id, amount: b})
		} else if b < -Tolerance {
			debtors = append(debtors, party{id: id, amount: -b})
		}
	}

	sortParties(creditors)
	sortParties(debtors)

	transactions := []Transaction{}
	i, j := 0, 0
	for i < len(creditors) && j < len(debtors) {
		creditor := &creditors[i]
		debtor := &debtors[j]

		amount := creditor.amount
		if debtor.amount < amount {
			amount = debtor.amount
		}

		if amount > Tolerance {
			transactions = append(transactions, Transaction{
				From:   debtor.id,
				To:     creditor.id,
				Amount: amount,
			})
		}

		creditor.amount -= amount
		debtor.amount -= amount

		if creditor.amount < Tolerance {
			i++
		}
		if debtor.amount < Tolerance {
			j++
		}
	}

	return transactions
}

func sortParties(ps []party) {
	sort.Slice(ps, func(a, b int) bool {
		if ps[a].amount != ps[b].amount {
			return ps[a].amount > ps[b].amount
		}
		return ps[a].id < ps[b].id
	})
}
