package models

import (
	"errors"
	"testing"

	"github.com/yuv5120/SplitPay/internal/money"
)

func testGroup() *Group {
	return &Group{
		Name:    "Roommates",
		Members: []Member{{ID: "a", Name: "Alice"}, {ID: "b", Name: "Bob"}, {ID: "c", Name: "Charlie"}},
	}
}

func TestGroupValidate(t *testing.T) {
	tests := []struct {
		name    string
		group   Group
		wantErr error
	}{
		{"valid", *testGroup(), nil},
		{"blank name", Group{Name: "  ", Members: testGroup().Members}, ErrGroupNameRequired},
		{"one member", Group{Name: "Solo", Members: []Member{{ID: "a", Name: "Alice"}}}, ErrTooFewMembers},
		{"unnamed member", Group{Name: "G", Members: []Member{{ID: "a", Name: "Alice"}, {ID: "b"}}}, ErrMemberNameRequired},
		{"duplicate id", Group{Name: "G", Members: []Member{{ID: "a", Name: "Alice"}, {ID: "a", Name: "Al"}}}, ErrDuplicateMember},
		{"ids filled later", Group{Name: "G", Members: []Member{{Name: "Alice"}, {Name: "Bob"}}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.group.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestExpenseValidate(t *testing.T) {
	group := testGroup()
	valid := func() Expense {
		return Expense{Description: "Dinner", Amount: 90, PaidBy: "a", Participants: []string{"a", "b", "c"}}
	}

	tests := []struct {
		name    string
		mutate  func(e *Expense)
		wantErr error
	}{
		{"valid", func(e *Expense) {}, nil},
		{"payer outside participants", func(e *Expense) { e.Participants = []string{"b"} }, nil},
		{"no description", func(e *Expense) { e.Description = "" }, ErrDescriptionRequired},
		{"zero amount", func(e *Expense) { e.Amount = 0 }, money.ErrNonPositiveAmount},
		{"no payer", func(e *Expense) { e.PaidBy = "" }, ErrPayerRequired},
		{"payer not a member", func(e *Expense) { e.PaidBy = "z" }, ErrNotAMember},
		{"no participants", func(e *Expense) { e.Participants = nil }, ErrNoParticipants},
		{"participant not a member", func(e *Expense) { e.Participants = []string{"a", "z"} }, ErrNotAMember},
		{"duplicate participant", func(e *Expense) { e.Participants = []string{"a", "a"} }, ErrDuplicateParticipant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := valid()
			tt.mutate(&e)
			err := e.Validate(group)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestReferencedMembers(t *testing.T) {
	group := testGroup()
	group.Expenses = []Expense{{PaidBy: "a", Participants: []string{"a", "b"}}}

	refs := group.ReferencedMembers()
	if !refs["a"] || !refs["b"] || refs["c"] {
		t.Errorf("ReferencedMembers() = %v", refs)
	}
}
