package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yuv5120/SplitPay/internal/money"
)

// MinGroupMembers is the smallest group that can be created.
const MinGroupMembers = 2

var (
	ErrGroupNameRequired    = errors.New("group name is required")
	ErrTooFewMembers        = fmt.Errorf("at least %d members are required", MinGroupMembers)
	ErrMemberNameRequired   = errors.New("member name is required")
	ErrDuplicateMember      = errors.New("duplicate member id")
	ErrDescriptionRequired  = errors.New("expense description is required")
	ErrPayerRequired        = errors.New("expense payer is required")
	ErrNoParticipants       = errors.New("expense must have at least one participant")
	ErrDuplicateParticipant = errors.New("duplicate participant")
	ErrNotAMember           = errors.New("not a member of the group")
)

// Group is a set of members sharing expenses.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string `json:"id"`

	// Name is the display name of the group (e.g., "Roommates", "Goa Trip").
	Name string `json:"name"`

	// OwnerID is the user who created the group. Only the owner can see it.
	OwnerID string `json:"-"`

	// Members in the order they were added.
	Members []Member `json:"members"`

	// Expenses in the order they were added.
	Expenses []Expense `json:"expenses"`

	// CreatedAt and UpdatedAt are Unix timestamps.
	CreatedAt int64 `json:"createdAt"`
	UpdatedAt int64 `json:"updatedAt"`
}

// Member is a participant in a group.
type Member struct {
	// ID is unique within the group.
	ID string `json:"id"`

	// Name is display only.
	Name string `json:"name"`
}

// Expense is an amount paid by one member and split equally among participants.
type Expense struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`

	// PaidBy is the member ID of the payer.
	PaidBy string `json:"paidBy"`

	// Participants is an ordered set of member IDs. It may include PaidBy.
	Participants []string `json:"participants"`

	Date time.Time `json:"date"`
}

// HasMember reports whether id belongs to a member of the group.
func (g *Group) HasMember(id string) bool {
	for _, m := range g.Members {
		if m.ID == id {
			return true
		}
	}
	return false
}

// ReferencedMembers returns the set of member IDs used by any expense.
func (g *Group) ReferencedMembers() map[string]bool {
	refs := make(map[string]bool)
	for _, e := range g.Expenses {
		refs[e.PaidBy] = true
		for _, p := range e.Participants {
			refs[p] = true
		}
	}
	return refs
}

// ValidateMembers checks a proposed member list: at least MinGroupMembers,
// non-empty names and unique IDs. Empty IDs are allowed and filled in by the store.
func ValidateMembers(members []Member) error {
	if len(members) < MinGroupMembers {
		return ErrTooFewMembers
	}
	seen := make(map[string]bool, len(members))
	for _, m := range members {
		if strings.TrimSpace(m.Name) == "" {
			return ErrMemberNameRequired
		}
		if m.ID == "" {
			continue
		}
		if seen[m.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateMember, m.ID)
		}
		seen[m.ID] = true
	}
	return nil
}

// Validate checks the group name and member list.
func (g *Group) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrGroupNameRequired
	}
	return ValidateMembers(g.Members)
}

// Validate checks the expense shape and that every member reference is in group.
func (e *Expense) Validate(group *Group) error {
	if strings.TrimSpace(e.Description) == "" {
		return ErrDescriptionRequired
	}
	if err := money.Validate(e.Amount); err != nil {
		return err
	}
	if e.PaidBy == "" {
		return ErrPayerRequired
	}
	if !group.HasMember(e.PaidBy) {
		return fmt.Errorf("payer %q: %w", e.PaidBy, ErrNotAMember)
	}
	if len(e.Participants) == 0 {
		return ErrNoParticipants
	}
	seen := make(map[string]bool, len(e.Participants))
	for _, p := range e.Participants {
		if seen[p] {
			return fmt.Errorf("%w: %s", ErrDuplicateParticipant, p)
		}
		seen[p] = true
		if !group.HasMember(p) {
			return fmt.Errorf("participant %q: %w", p, ErrNotAMember)
		}
	}
	return nil
}
