// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/yuv5120/SplitPay/internal/models"
)

// ErrNotFound is wrapped by every store method that cannot find its target.
var ErrNotFound = errors.New("not found")

// ErrEmailTaken is returned when creating a user with an email already in use.
var ErrEmailTaken = errors.New("email already registered")

// ErrMemberInUse is returned by UpdateGroup when a removed member is still
// referenced by an expense.
var ErrMemberInUse = errors.New("member is referenced by an expense")

// ErrNotAMember is returned by AddExpense when the payer or a participant is
// not a current member of the group.
var ErrNotAMember = errors.New("not a member of the group")

// Store defines the interface for group, expense and user storage.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	GroupStore
	UserStore

	// Close releases any resources held by the store.
	Close() error
}

// GroupStore persists groups together with their members and expenses.
type GroupStore interface {
	// CreateGroup persists a new group. ID, member IDs and timestamps are
	// populated by the store when empty.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup returns a consistent snapshot of a group, its members and expenses.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// ListGroupsByOwner returns the owner's groups, newest first.
	ListGroupsByOwner(ctx context.Context, ownerID string) ([]*models.Group, error)

	// UpdateGroup replaces the group's name and member list. Expenses are
	// untouched. Removing a member that an expense still references fails with
	// ErrMemberInUse; the check and the write share one transaction.
	UpdateGroup(ctx context.Context, group *models.Group) error

	// DeleteGroup removes a group and everything in it.
	DeleteGroup(ctx context.Context, groupID string) error

	// AddExpense appends an expense to a group. ID and Date are populated when
	// empty. The payer and participants must be members at commit time, else
	// ErrNotAMember.
	AddExpense(ctx context.Context, groupID string, expense *models.Expense) error

	// DeleteExpense removes one expense from a group.
	DeleteExpense(ctx context.Context, groupID, expenseID string) error
}

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
}
