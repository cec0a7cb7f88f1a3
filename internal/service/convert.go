package service

import (
	"github.com/yuv5120/SplitPay/internal/calculator"
	"github.com/yuv5120/SplitPay/internal/models"
	"github.com/yuv5120/SplitPay/internal/money"
	"github.com/yuv5120/SplitPay/pkg/splitpayv1"
)

func toWireGroup(g *models.Group) *splitpayv1.Group {
	members := make([]*splitpayv1.Member, len(g.Members))
	for i, m := range g.Members {
		members[i] = &splitpayv1.Member{ID: m.ID, Name: m.Name}
	}
	expenses := make([]*splitpayv1.Expense, len(g.Expenses))
	for i := range g.Expenses {
		expenses[i] = toWireExpense(&g.Expenses[i])
	}
	return &splitpayv1.Group{
		ID:        g.ID,
		Name:      g.Name,
		Members:   members,
		Expenses:  expenses,
		CreatedAt: g.CreatedAt,
		UpdatedAt: g.UpdatedAt,
	}
}

func toWireExpense(e *models.Expense) *splitpayv1.Expense {
	return &splitpayv1.Expense{
		ID:           e.ID,
		Description:  e.Description,
		Amount:       e.Amount,
		PaidBy:       e.PaidBy,
		Participants: append([]string{}, e.Participants...),
		Date:         e.Date,
	}
}

func fromWireMembers(members []*splitpayv1.Member) []models.Member {
	out := make([]models.Member, 0, len(members))
	for _, m := range members {
		if m == nil {
			continue
		}
		out = append(out, models.Member{ID: m.ID, Name: m.Name})
	}
	return out
}

func fromWireExpense(e *splitpayv1.Expense) models.Expense {
	return models.Expense{
		ID:           e.ID,
		Description:  e.Description,
		Amount:       e.Amount,
		PaidBy:       e.PaidBy,
		Participants: e.Participants,
		Date:         e.Date,
	}
}

// coreInput copies a group snapshot into calculator values.
func coreInput(members []models.Member, expenses []models.Expense) ([]calculator.Member, []calculator.Expense) {
	cm := make([]calculator.Member, len(members))
	for i, m := range members {
		cm[i] = calculator.Member{ID: m.ID, Name: m.Name}
	}
	ce := make([]calculator.Expense, len(expenses))
	for i, e := range expenses {
		ce[i] = calculator.Expense{
			ID:           e.ID,
			Description:  e.Description,
			Amount:       e.Amount,
			PaidBy:       e.PaidBy,
			Participants: append([]string(nil), e.Participants...),
			Date:         e.Date,
		}
	}
	return cm, ce
}

// toBalancesResponse rounds a summary to cents for display.
func toBalancesResponse(summary *calculator.Summary) *splitpayv1.BalancesResponse {
	names := make(map[string]string, len(summary.Members))
	balances := make([]*splitpayv1.MemberBalance, len(summary.Members))
	for i, mb := range summary.Members {
		names[mb.MemberID] = mb.MemberName
		balances[i] = &splitpayv1.MemberBalance{
			MemberID:   mb.MemberID,
			MemberName: mb.MemberName,
			NetBalance: money.Round(mb.NetBalance),
			TotalPaid:  money.Round(mb.TotalPaid),
			TotalOwed:  money.Round(mb.TotalOwed),
		}
	}

	settlements := make([]*splitpayv1.Settlement, len(summary.Settlements))
	for i, tx := range summary.Settlements {
		settlements[i] = &splitpayv1.Settlement{
			From:     tx.From,
			FromName: names[tx.From],
			To:       tx.To,
			ToName:   names[tx.To],
			Amount:   money.Round(tx.Amount),
		}
	}

	return &splitpayv1.BalancesResponse{
		Balances:    balances,
		Settlements: settlements,
		TotalSpent:  money.Round(summary.TotalSpent),
	}
}

// roundedBalances is the {memberId: amount} view used by the REST endpoint.
func roundedBalances(b calculator.Balances) map[string]float64 {
	out := make(map[string]float64, len(b))
	for id, v := range b {
		out[id] = money.Round(v)
	}
	return out
}

func toWireUser(u *models.User) *splitpayv1.User {
	return &splitpayv1.User{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Phone:       u.Phone,
		CreatedAt:   u.CreatedAt,
	}
}
