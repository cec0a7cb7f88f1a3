package service

import (
	"context"
	"testing"
	"time"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/yuv5120/SplitPay/internal/cache"
	"github.com/yuv5120/SplitPay/pkg/splitpayv1"
)

func TestCreateGroup(t *testing.T) {
	env := setupTestServer(t)
	token := env.register(t, "alice@example.com")

	resp, err := env.groups.CreateGroup(context.Background(), authed(token, &splitpayv1.CreateGroupRequest{
		Name:    "  Roommates ",
		Members: []*splitpayv1.Member{{Name: "Alice"}, {Name: "Bob"}, {ID: "c", Name: "Charlie"}},
	}))
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	group := resp.Msg.Group
	if group.ID == "" {
		t.Error("expected non-empty group ID")
	}
	if group.Name != "Roommates" {
		t.Errorf("name: expected 'Roommates', got '%s'", group.Name)
	}
	if len(group.Members) != 3 {
		t.Fatalf("members: expected 3, got %d", len(group.Members))
	}
	if group.Members[0].ID == "" || group.Members[2].ID != "c" {
		t.Errorf("unexpected member IDs: %+v", group.Members)
	}
	if group.CreatedAt == 0 {
		t.Error("expected non-zero CreatedAt")
	}
	if len(group.Expenses) != 0 {
		t.Errorf("expected no expenses, got %d", len(group.Expenses))
	}
}

func TestCreateGroup_Validation(t *testing.T) {
	env := setupTestServer(t)
	token := env.register(t, "alice@example.com")

	tests := []struct {
		name string
		req  *splitpayv1.CreateGroupRequest
	}{
		{
			name: "missing name",
			req:  &splitpayv1.CreateGroupRequest{Members: []*splitpayv1.Member{{Name: "A"}, {Name: "B"}}},
		},
		{
			name: "one member",
			req:  &splitpayv1.CreateGroupRequest{Name: "Solo", Members: []*splitpayv1.Member{{Name: "A"}}},
		},
		{
			name: "blank member name",
			req:  &splitpayv1.CreateGroupRequest{Name: "G", Members: []*splitpayv1.Member{{Name: "A"}, {Name: " "}}},
		},
		{
			name: "duplicate member id",
			req:  &splitpayv1.CreateGroupRequest{Name: "G", Members: []*splitpayv1.Member{{ID: "x", Name: "A"}, {ID: "x", Name: "B"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.groups.CreateGroup(context.Background(), authed(token, tt.req))
			assertCode(t, err, connect.CodeInvalidArgument)
		})
	}
}

func TestGroupService_RequiresAuth(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	_, err := env.groups.CreateGroup(ctx, connect.NewRequest(&splitpayv1.CreateGroupRequest{
		Name:    "G",
		Members: []*splitpayv1.Member{{Name: "A"}, {Name: "B"}},
	}))
	assertCode(t, err, connect.CodeUnauthenticated)

	_, err = env.groups.ListGroups(ctx, connect.NewRequest(&emptypb.Empty{}))
	assertCode(t, err, connect.CodeUnauthenticated)

	_, err = env.groups.GetGroupBalances(ctx, authed("not-a-token", &splitpayv1.GetGroupBalancesRequest{GroupID: "g"}))
	assertCode(t, err, connect.CodeUnauthenticated)

	// Public procedures ignore a token that does not validate.
	if _, err := env.groups.CalculateBalances(ctx, authed("not-a-token", &splitpayv1.CalculateBalancesRequest{})); err != nil {
		t.Errorf("CalculateBalances with bad token failed: %v", err)
	}
}

func TestGetGroup_OwnerOnly(t *testing.T) {
	env := setupTestServer(t)
	owner := env.register(t, "alice@example.com")
	stranger := env.register(t, "mallory@example.com")
	group := env.createTrip(t, owner)

	resp, err := env.groups.GetGroup(context.Background(), authed(owner, &splitpayv1.GetGroupRequest{GroupID: group.ID}))
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	if resp.Msg.Group.Name != "Goa Trip" {
		t.Errorf("name: expected 'Goa Trip', got '%s'", resp.Msg.Group.Name)
	}

	_, err = env.groups.GetGroup(context.Background(), authed(stranger, &splitpayv1.GetGroupRequest{GroupID: group.ID}))
	assertCode(t, err, connect.CodeNotFound)

	_, err = env.groups.GetGroup(context.Background(), authed(owner, &splitpayv1.GetGroupRequest{GroupID: "missing"}))
	assertCode(t, err, connect.CodeNotFound)

	_, err = env.groups.GetGroup(context.Background(), authed(owner, &splitpayv1.GetGroupRequest{}))
	assertCode(t, err, connect.CodeInvalidArgument)
}

func TestListGroups(t *testing.T) {
	env := setupTestServer(t)
	alice := env.register(t, "alice@example.com")
	bob := env.register(t, "bob@example.com")

	env.createTrip(t, alice)
	env.createTrip(t, alice)
	env.createTrip(t, bob)

	resp, err := env.groups.ListGroups(context.Background(), authed(alice, &emptypb.Empty{}))
	if err != nil {
		t.Fatalf("ListGroups failed: %v", err)
	}
	if len(resp.Msg.Groups) != 2 {
		t.Errorf("expected 2 groups, got %d", len(resp.Msg.Groups))
	}
}

func TestUpdateGroup(t *testing.T) {
	env := setupTestServer(t)
	token := env.register(t, "alice@example.com")
	group := env.createTrip(t, token)
	env.addExpense(t, token, group.ID, "alice", 30, "alice", "bob")

	t.Run("rename and add member", func(t *testing.T) {
		resp, err := env.groups.UpdateGroup(context.Background(), authed(token, &splitpayv1.UpdateGroupRequest{
			GroupID: group.ID,
			Name:    "Goa Trip 2024",
			Members: []*splitpayv1.Member{
				{ID: "alice", Name: "Alice"},
				{ID: "bob", Name: "Bobby"},
				{ID: "charlie", Name: "Charlie"},
				{Name: "Diana"},
			},
		}))
		if err != nil {
			t.Fatalf("UpdateGroup failed: %v", err)
		}
		if resp.Msg.Group.Name != "Goa Trip 2024" {
			t.Errorf("name not updated: %s", resp.Msg.Group.Name)
		}
		if len(resp.Msg.Group.Members) != 4 || resp.Msg.Group.Members[3].ID == "" {
			t.Errorf("unexpected members: %+v", resp.Msg.Group.Members)
		}
		if len(resp.Msg.Group.Expenses) != 1 {
			t.Errorf("expected expenses to be kept, got %d", len(resp.Msg.Group.Expenses))
		}
	})

	t.Run("remove unreferenced member", func(t *testing.T) {
		_, err := env.groups.UpdateGroup(context.Background(), authed(token, &splitpayv1.UpdateGroupRequest{
			GroupID: group.ID,
			Name:    "Goa Trip",
			Members: []*splitpayv1.Member{{ID: "alice", Name: "Alice"}, {ID: "bob", Name: "Bob"}},
		}))
		if err != nil {
			t.Fatalf("UpdateGroup failed: %v", err)
		}
	})

	t.Run("cannot remove member with expenses", func(t *testing.T) {
		_, err := env.groups.UpdateGroup(context.Background(), authed(token, &splitpayv1.UpdateGroupRequest{
			GroupID: group.ID,
			Name:    "Goa Trip",
			Members: []*splitpayv1.Member{{ID: "alice", Name: "Alice"}, {ID: "eve", Name: "Eve"}},
		}))
		assertCode(t, err, connect.CodeFailedPrecondition)
	})
}

func TestDeleteGroup(t *testing.T) {
	env := setupTestServer(t)
	token := env.register(t, "alice@example.com")
	stranger := env.register(t, "mallory@example.com")
	group := env.createTrip(t, token)

	_, err := env.groups.DeleteGroup(context.Background(), authed(stranger, &splitpayv1.DeleteGroupRequest{GroupID: group.ID}))
	assertCode(t, err, connect.CodeNotFound)

	if _, err := env.groups.DeleteGroup(context.Background(), authed(token, &splitpayv1.DeleteGroupRequest{GroupID: group.ID})); err != nil {
		t.Fatalf("DeleteGroup failed: %v", err)
	}

	_, err = env.groups.GetGroup(context.Background(), authed(token, &splitpayv1.GetGroupRequest{GroupID: group.ID}))
	assertCode(t, err, connect.CodeNotFound)
}

func TestAddExpense(t *testing.T) {
	env := setupTestServer(t)
	token := env.register(t, "alice@example.com")
	group := env.createTrip(t, token)

	date := time.Date(2024, 2, 14, 20, 0, 0, 0, time.UTC)
	resp, err := env.groups.AddExpense(context.Background(), authed(token, &splitpayv1.AddExpenseRequest{
		GroupID:      group.ID,
		Description:  "Dinner",
		Amount:       90,
		PaidBy:       "alice",
		Participants: []string{"alice", "bob", "charlie"},
		Date:         date,
	}))
	if err != nil {
		t.Fatalf("AddExpense failed: %v", err)
	}
	if resp.Msg.Expense.ID == "" {
		t.Error("expected expense ID to be generated")
	}
	if !resp.Msg.Expense.Date.Equal(date) {
		t.Errorf("date: got %v, want %v", resp.Msg.Expense.Date, date)
	}

	undated := env.addExpense(t, token, group.ID, "bob", 10, "bob")
	if undated.Date.IsZero() {
		t.Error("expected date to default to now")
	}

	got, err := env.groups.GetGroup(context.Background(), authed(token, &splitpayv1.GetGroupRequest{GroupID: group.ID}))
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	if len(got.Msg.Group.Expenses) != 2 || got.Msg.Group.Expenses[0].Description != "Dinner" {
		t.Errorf("unexpected expenses: %+v", got.Msg.Group.Expenses)
	}
}

func TestAddExpense_Validation(t *testing.T) {
	env := setupTestServer(t)
	token := env.register(t, "alice@example.com")
	group := env.createTrip(t, token)

	valid := func() *splitpayv1.AddExpenseRequest {
		return &splitpayv1.AddExpenseRequest{
			GroupID:      group.ID,
			Description:  "Taxi",
			Amount:       20,
			PaidBy:       "alice",
			Participants: []string{"alice", "bob"},
		}
	}

	tests := []struct {
		name   string
		mutate func(*splitpayv1.AddExpenseRequest)
	}{
		{"missing description", func(r *splitpayv1.AddExpenseRequest) { r.Description = "" }},
		{"zero amount", func(r *splitpayv1.AddExpenseRequest) { r.Amount = 0 }},
		{"negative amount", func(r *splitpayv1.AddExpenseRequest) { r.Amount = -5 }},
		{"payer not a member", func(r *splitpayv1.AddExpenseRequest) { r.PaidBy = "zoe" }},
		{"no participants", func(r *splitpayv1.AddExpenseRequest) { r.Participants = nil }},
		{"participant not a member", func(r *splitpayv1.AddExpenseRequest) { r.Participants = []string{"alice", "zoe"} }},
		{"duplicate participant", func(r *splitpayv1.AddExpenseRequest) { r.Participants = []string{"bob", "bob"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(req)
			_, err := env.groups.AddExpense(context.Background(), authed(token, req))
			assertCode(t, err, connect.CodeInvalidArgument)
		})
	}
}

func TestDeleteExpense(t *testing.T) {
	env := setupTestServer(t)
	token := env.register(t, "alice@example.com")
	group := env.createTrip(t, token)
	expense := env.addExpense(t, token, group.ID, "alice", 30, "alice", "bob", "charlie")

	req := &splitpayv1.DeleteExpenseRequest{GroupID: group.ID, ExpenseID: expense.ID}
	if _, err := env.groups.DeleteExpense(context.Background(), authed(token, req)); err != nil {
		t.Fatalf("DeleteExpense failed: %v", err)
	}

	_, err := env.groups.DeleteExpense(context.Background(), authed(token, req))
	assertCode(t, err, connect.CodeNotFound)

	_, err = env.groups.DeleteExpense(context.Background(), authed(token, &splitpayv1.DeleteExpenseRequest{GroupID: group.ID}))
	assertCode(t, err, connect.CodeInvalidArgument)
}

func TestGetGroupBalances(t *testing.T) {
	env := setupTestServer(t)
	token := env.register(t, "alice@example.com")
	group := env.createTrip(t, token)

	env.addExpense(t, token, group.ID, "alice", 90, "alice", "bob", "charlie")
	env.addExpense(t, token, group.ID, "bob", 30, "bob", "charlie")

	resp, err := env.groups.GetGroupBalances(context.Background(), authed(token, &splitpayv1.GetGroupBalancesRequest{GroupID: group.ID}))
	if err != nil {
		t.Fatalf("GetGroupBalances failed: %v", err)
	}

	if resp.Msg.TotalSpent != 120 {
		t.Errorf("TotalSpent = %v, want 120", resp.Msg.TotalSpent)
	}

	want := map[string]float64{"alice": 60, "bob": -15, "charlie": -45}
	if len(resp.Msg.Balances) != 3 {
		t.Fatalf("expected 3 balances, got %d", len(resp.Msg.Balances))
	}
	for _, b := range resp.Msg.Balances {
		if b.NetBalance != want[b.MemberID] {
			t.Errorf("%s: net balance = %v, want %v", b.MemberID, b.NetBalance, want[b.MemberID])
		}
	}

	if len(resp.Msg.Settlements) != 2 {
		t.Fatalf("expected 2 settlements, got %+v", resp.Msg.Settlements)
	}
	first := resp.Msg.Settlements[0]
	if first.From != "charlie" || first.To != "alice" || first.Amount != 45 {
		t.Errorf("first settlement = %+v, want charlie -> alice 45", first)
	}
	if first.FromName != "Charlie" || first.ToName != "Alice" {
		t.Errorf("settlement names = %s -> %s", first.FromName, first.ToName)
	}
}

func TestGetGroupBalances_RoundsToCents(t *testing.T) {
	env := setupTestServer(t)
	token := env.register(t, "alice@example.com")
	group := env.createTrip(t, token)

	env.addExpense(t, token, group.ID, "alice", 100, "alice", "bob", "charlie")

	resp, err := env.groups.GetGroupBalances(context.Background(), authed(token, &splitpayv1.GetGroupBalancesRequest{GroupID: group.ID}))
	if err != nil {
		t.Fatalf("GetGroupBalances failed: %v", err)
	}

	for _, s := range resp.Msg.Settlements {
		if s.Amount != 33.33 {
			t.Errorf("settlement %s -> %s = %v, want 33.33", s.From, s.To, s.Amount)
		}
	}
	want := map[string]float64{"alice": 66.67, "bob": -33.33, "charlie": -33.33}
	for _, b := range resp.Msg.Balances {
		if b.NetBalance != want[b.MemberID] {
			t.Errorf("%s: net balance = %v, want %v", b.MemberID, b.NetBalance, want[b.MemberID])
		}
	}
}

func TestGetGroupBalances_Cache(t *testing.T) {
	env := setupTestServer(t)
	token := env.register(t, "alice@example.com")
	group := env.createTrip(t, token)
	env.addExpense(t, token, group.ID, "alice", 60, "alice", "bob")

	key := cache.BalanceKey(group.ID)
	get := func() *splitpayv1.BalancesResponse {
		t.Helper()
		resp, err := env.groups.GetGroupBalances(context.Background(), authed(token, &splitpayv1.GetGroupBalancesRequest{GroupID: group.ID}))
		if err != nil {
			t.Fatalf("GetGroupBalances failed: %v", err)
		}
		return resp.Msg
	}

	if env.redis.Exists(key) {
		t.Fatal("cache should start empty")
	}

	first := get()
	if !env.redis.Exists(key) {
		t.Fatal("expected balances to be cached")
	}
	if again := get(); again.TotalSpent != first.TotalSpent {
		t.Errorf("cached TotalSpent = %v, want %v", again.TotalSpent, first.TotalSpent)
	}

	// Writes drop the cached entry so the next read sees them.
	env.addExpense(t, token, group.ID, "bob", 40, "alice", "bob")
	if env.redis.Exists(key) {
		t.Fatal("AddExpense should invalidate the cache")
	}
	if after := get(); after.TotalSpent != 100 {
		t.Errorf("TotalSpent after write = %v, want 100", after.TotalSpent)
	}

	// An entry written by a read that raced the invalidation is not served.
	stale, err := env.redis.Get(key)
	if err != nil {
		t.Fatalf("cached entry missing: %v", err)
	}
	env.addExpense(t, token, group.ID, "charlie", 20, "alice", "charlie")
	if err := env.redis.Set(key, stale); err != nil {
		t.Fatalf("failed to restore stale entry: %v", err)
	}
	if fresh := get(); fresh.TotalSpent != 120 {
		t.Errorf("TotalSpent over stale entry = %v, want 120", fresh.TotalSpent)
	}
	if refreshed, _ := env.redis.Get(key); refreshed == stale {
		t.Error("stale entry should be replaced")
	}

	// A Redis outage falls back to computing.
	env.redis.Close()
	if resp := get(); resp.TotalSpent != 120 {
		t.Errorf("TotalSpent without cache = %v, want 120", resp.TotalSpent)
	}
}

func TestCalculateBalances(t *testing.T) {
	env := setupTestServer(t)

	members := []*splitpayv1.Member{{ID: "A", Name: "Alice"}, {ID: "B", Name: "Bob"}}

	t.Run("no auth needed", func(t *testing.T) {
		resp, err := env.groups.CalculateBalances(context.Background(), connect.NewRequest(&splitpayv1.CalculateBalancesRequest{
			Members: members,
			Expenses: []*splitpayv1.Expense{
				{ID: "e1", Description: "Hotel", Amount: 100, PaidBy: "A", Participants: []string{"A", "B"}},
				{ID: "e2", Description: "Food", Amount: 40, PaidBy: "B", Participants: []string{"A", "B"}},
			},
		}))
		if err != nil {
			t.Fatalf("CalculateBalances failed: %v", err)
		}
		if len(resp.Msg.Settlements) != 1 {
			t.Fatalf("expected 1 settlement, got %+v", resp.Msg.Settlements)
		}
		s := resp.Msg.Settlements[0]
		if s.From != "B" || s.To != "A" || s.Amount != 30 {
			t.Errorf("settlement = %+v, want B -> A 30", s)
		}
	})

	t.Run("empty snapshot", func(t *testing.T) {
		resp, err := env.groups.CalculateBalances(context.Background(), connect.NewRequest(&splitpayv1.CalculateBalancesRequest{}))
		if err != nil {
			t.Fatalf("CalculateBalances failed: %v", err)
		}
		if len(resp.Msg.Settlements) != 0 || len(resp.Msg.Balances) != 0 {
			t.Errorf("expected empty result, got %+v", resp.Msg)
		}
	})

	tests := []struct {
		name string
		req  *splitpayv1.CalculateBalancesRequest
	}{
		{
			name: "unknown member",
			req: &splitpayv1.CalculateBalancesRequest{
				Members:  members,
				Expenses: []*splitpayv1.Expense{{Description: "x", Amount: 10, PaidBy: "A", Participants: []string{"Z"}}},
			},
		},
		{
			name: "no participants",
			req: &splitpayv1.CalculateBalancesRequest{
				Members:  members,
				Expenses: []*splitpayv1.Expense{{Description: "x", Amount: 10, PaidBy: "A"}},
			},
		},
		{
			name: "duplicate member",
			req: &splitpayv1.CalculateBalancesRequest{
				Members: []*splitpayv1.Member{{ID: "A", Name: "Alice"}, {ID: "A", Name: "Again"}},
			},
		},
		{
			name: "empty expense entry",
			req: &splitpayv1.CalculateBalancesRequest{
				Members:  members,
				Expenses: []*splitpayv1.Expense{{Description: "x", Amount: 10, PaidBy: "A", Participants: []string{"A"}}, nil},
			},
		},
		{
			name: "member without id",
			req: &splitpayv1.CalculateBalancesRequest{
				Members: []*splitpayv1.Member{{Name: "Alice"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.groups.CalculateBalances(context.Background(), connect.NewRequest(tt.req))
			assertCode(t, err, connect.CodeInvalidArgument)
		})
	}
}
