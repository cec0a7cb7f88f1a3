// Package splitpayv1 defines the splitpay.v1 wire messages and the Connect
// handlers and clients for GroupService and AuthService.
//
// Messages are plain Go structs carried by a JSON codec. JSON field names
// follow the lowerCamelCase convention of protobuf JSON.
package splitpayv1

import "time"

// Member is a group participant.
type Member struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Expense is paid by one member and split equally among participants.
type Expense struct {
	ID           string    `json:"id"`
	Description  string    `json:"description"`
	Amount       float64   `json:"amount"`
	PaidBy       string    `json:"paidBy"`
	Participants []string  `json:"participants"`
	Date         time.Time `json:"date"`
}

// Group is a named set of members with their expenses.
type Group struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Members   []*Member  `json:"members"`
	Expenses  []*Expense `json:"expenses"`
	CreatedAt int64      `json:"createdAt"`
	UpdatedAt int64      `json:"updatedAt"`
}

// MemberBalance is one member's position in a group.
type MemberBalance struct {
	MemberID   string  `json:"memberId"`
	MemberName string  `json:"memberName"`
	NetBalance float64 `json:"netBalance"`
	TotalPaid  float64 `json:"totalPaid"`
	TotalOwed  float64 `json:"totalOwed"`
}

// Settlement is one suggested payment.
type Settlement struct {
	From     string  `json:"from"`
	FromName string  `json:"fromName"`
	To       string  `json:"to"`
	ToName   string  `json:"toName"`
	Amount   float64 `json:"amount"`
}

// User is the public view of an account.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Phone       string `json:"phone,omitempty"`
	CreatedAt   int64  `json:"createdAt"`
}

type CreateGroupRequest struct {
	Name    string    `json:"name"`
	Members []*Member `json:"members"`
}

type CreateGroupResponse struct {
	Group *Group `json:"group"`
}

type GetGroupRequest struct {
	GroupID string `json:"groupId"`
}

type GetGroupResponse struct {
	Group *Group `json:"group"`
}

type ListGroupsResponse struct {
	Groups []*Group `json:"groups"`
}

type UpdateGroupRequest struct {
	GroupID string    `json:"groupId"`
	Name    string    `json:"name"`
	Members []*Member `json:"members"`
}

type UpdateGroupResponse struct {
	Group *Group `json:"group"`
}

type DeleteGroupRequest struct {
	GroupID string `json:"groupId"`
}

// AddExpenseRequest adds an expense. A zero Date means now.
type AddExpenseRequest struct {
	GroupID      string    `json:"groupId"`
	Description  string    `json:"description"`
	Amount       float64   `json:"amount"`
	PaidBy       string    `json:"paidBy"`
	Participants []string  `json:"participants"`
	Date         time.Time `json:"date"`
}

type AddExpenseResponse struct {
	Expense *Expense `json:"expense"`
}

type DeleteExpenseRequest struct {
	GroupID   string `json:"groupId"`
	ExpenseID string `json:"expenseId"`
}

type GetGroupBalancesRequest struct {
	GroupID string `json:"groupId"`
}

// CalculateBalancesRequest carries a full group snapshot. Nothing is stored.
type CalculateBalancesRequest struct {
	Members  []*Member  `json:"members"`
	Expenses []*Expense `json:"expenses"`
}

// BalancesResponse is returned by GetGroupBalances and CalculateBalances.
// Amounts are rounded to cents.
type BalancesResponse struct {
	Balances    []*MemberBalance `json:"balances"`
	Settlements []*Settlement    `json:"settlements"`
	TotalSpent  float64          `json:"totalSpent"`
}

type RegisterRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Password    string `json:"password"`
	Phone       string `json:"phone,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by Register and Login.
type AuthResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

type UpdateProfileRequest struct {
	DisplayName string `json:"displayName"`
	Phone       string `json:"phone"`
}

type UserResponse struct {
	User *User `json:"user"`
}
