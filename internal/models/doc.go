// Package models defines the persisted domain models for SplitPay.
//
// # Models
//
//   - Group: a set of members that share expenses, owned by one user
//   - Member: a participant in a group, identified by an ID unique within the group
//   - Expense: an amount paid by one member and split equally among participants
//   - User: a registered account that owns groups
//
// Balances and settlements are derived on demand by the calculator package and
// are never stored.
//
// # Design Principles
//
// 1. **Snapshots in, results out**: the calculator receives copies of members
// and expenses and never sees these types directly
// 2. **IDs, not pointers**: relationships use ID strings
// 3. **Validate at the boundary**: Validate methods run on request input, before
// anything reaches storage or the calculator
package models
