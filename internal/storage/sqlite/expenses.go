package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yuv5120/SplitPay/internal/models"
	"github.com/yuv5120/SplitPay/internal/storage"
)

// AddExpense appends an expense and its participants to a group.
func (s *SQLiteStore) AddExpense(ctx context.Context, groupID string, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.Date.IsZero() {
		expense.Date = time.Now()
	}
	// Stored with millisecond precision
	expense.Date = time.UnixMilli(expense.Date.UnixMilli()).UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Touch the group first to take the write lock before reading members.
	result, err := tx.ExecContext(ctx, "UPDATE groups SET updated_at = ? WHERE id = ?", time.Now().Unix(), groupID)
	if err != nil {
		return fmt.Errorf("failed to update group timestamp: %w", err)
	}
	if err := requireAffected(result, "group", groupID); err != nil {
		return err
	}

	if err := checkMembership(ctx, tx, groupID, expense); err != nil {
		return err
	}

	var position int
	err = tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(position) + 1, 0) FROM expenses WHERE group_id = ?",
		groupID,
	).Scan(&position)
	if err != nil {
		return fmt.Errorf("failed to get expense position: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO expenses (id, group_id, description, amount, paid_by, date, position)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		expense.ID, groupID, expense.Description, expense.Amount, expense.PaidBy,
		expense.Date.UnixMilli(), position,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	for i, memberID := range expense.Participants {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO expense_participants (expense_id, member_id, position) VALUES (?, ?, ?)",
			expense.ID, memberID, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert participant: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// checkMembership fails with storage.ErrNotAMember unless the payer and every
// participant are current members of the group.
func checkMembership(ctx context.Context, q querier, groupID string, expense *models.Expense) error {
	members, err := loadMembers(ctx, q, groupID)
	if err != nil {
		return err
	}
	group := &models.Group{Members: members}

	if !group.HasMember(expense.PaidBy) {
		return fmt.Errorf("payer %s: %w", expense.PaidBy, storage.ErrNotAMember)
	}
	for _, p := range expense.Participants {
		if !group.HasMember(p) {
			return fmt.Errorf("participant %s: %w", p, storage.ErrNotAMember)
		}
	}
	return nil
}

// DeleteExpense removes an expense from a group.
func (s *SQLiteStore) DeleteExpense(ctx context.Context, groupID, expenseID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		"DELETE FROM expenses WHERE id = ? AND group_id = ?",
		expenseID, groupID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	if err := requireAffected(result, "expense", expenseID); err != nil {
		return err
	}

	if err := touchGroup(ctx, tx, groupID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func touchGroup(ctx context.Context, tx *sql.Tx, groupID string) error {
	_, err := tx.ExecContext(ctx, "UPDATE groups SET updated_at = ? WHERE id = ?", time.Now().Unix(), groupID)
	if err != nil {
		return fmt.Errorf("failed to update group timestamp: %w", err)
	}
	return nil
}

// loadExpenses reads a group's expenses in insertion order. Participants are
// read in a second query so no two result sets are open at once.
func loadExpenses(ctx context.Context, q querier, groupID string) ([]models.Expense, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, description, amount, paid_by, date FROM expenses
		 WHERE group_id = ? ORDER BY position`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get expenses: %w", err)
	}

	expenses := []models.Expense{}
	index := make(map[string]int)
	for rows.Next() {
		var e models.Expense
		var dateMillis int64
		if err := rows.Scan(&e.ID, &e.Description, &e.Amount, &e.PaidBy, &dateMillis); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		e.Date = time.UnixMilli(dateMillis).UTC()
		e.Participants = []string{}
		index[e.ID] = len(expenses)
		expenses = append(expenses, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}
	if len(expenses) == 0 {
		return expenses, nil
	}

	partRows, err := q.QueryContext(ctx,
		`SELECT p.expense_id, p.member_id FROM expense_participants p
		 JOIN expenses e ON e.id = p.expense_id
		 WHERE e.group_id = ? ORDER BY e.position, p.position`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	defer partRows.Close()

	for partRows.Next() {
		var expenseID, memberID string
		if err := partRows.Scan(&expenseID, &memberID); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		if i, ok := index[expenseID]; ok {
			expenses[i].Participants = append(expenses[i].Participants, memberID)
		}
	}
	if err := partRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}

	return expenses, nil
}
