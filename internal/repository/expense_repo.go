package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/expensio/expense-workflow/internal/domain/approval"
	"github.com/expensio/expense-workflow/internal/models"
	"github.com/expensio/expense-workflow/pkg/database"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ExpenseRepository owns expense records and their audit trail. The
// status mutation and its history entries are written in one
// transaction, so a crash can never leave a half-recorded transition.
type ExpenseRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewExpenseRepository creates a new expense repository
func NewExpenseRepository(db *database.DB, logger *zap.Logger) *ExpenseRepository {
	return &ExpenseRepository{db: db, logger: logger}
}

// Create persists a new expense together with its initial history
func (r *ExpenseRepository) Create(ctx context.Context, expense *models.Expense) error {
	return r.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO expenses (
				id, user_id, amount, currency, converted_amount, category,
				description, merchant, expense_date, status, receipt_image,
				approver_id, version, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`

		if _, err := tx.ExecContext(ctx, query,
			expense.ID,
			expense.UserID,
			expense.Amount.String(),
			expense.Currency,
			expense.ConvertedAmount.String(),
			expense.Category,
			expense.Description,
			expense.Merchant,
			expense.ExpenseDate,
			expense.Status,
			nullable(expense.ReceiptImage),
			nullable(expense.ApproverID),
			expense.Version,
			expense.CreatedAt,
			expense.UpdatedAt,
		); err != nil {
			r.logger.Error("Failed to create expense", zap.Error(err))
			return fmt.Errorf("failed to create expense: %w", err)
		}

		return r.insertHistory(ctx, tx, expense.ID, expense.History)
	})
}

// GetByID retrieves an expense with its full history
func (r *ExpenseRepository) GetByID(ctx context.Context, id string) (*models.Expense, error) {
	query := selectExpenses + ` WHERE e.id = ?`

	expense, err := scanExpense(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("expense %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get expense", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	if expense.History, err = r.loadHistory(ctx, id); err != nil {
		return nil, err
	}
	return expense, nil
}

// Update persists a new status/approver for the expense and appends the
// given history entries, all in one transaction. The row is matched on
// its version counter: zero rows touched means a concurrent writer got
// there first, surfaced as ErrConflict.
func (r *ExpenseRepository) Update(ctx context.Context, expense *models.Expense, entries []models.HistoryEntry) error {
	err := r.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		query := `
			UPDATE expenses
			SET status = ?, approver_id = ?, converted_amount = ?, version = version + 1, updated_at = ?
			WHERE id = ? AND version = ?
		`

		result, err := tx.ExecContext(ctx, query,
			expense.Status,
			nullable(expense.ApproverID),
			expense.ConvertedAmount.String(),
			expense.UpdatedAt,
			expense.ID,
			expense.Version,
		)
		if err != nil {
			r.logger.Error("Failed to update expense", zap.String("id", expense.ID), zap.Error(err))
			return fmt.Errorf("failed to update expense: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("expense %s version %d: %w", expense.ID, expense.Version, models.ErrConflict)
		}

		return r.insertHistory(ctx, tx, expense.ID, entries)
	})
	if err != nil {
		return err
	}

	expense.Version++
	expense.History = append(expense.History, entries...)
	return nil
}

// ListByUser retrieves all expenses submitted by a user
func (r *ExpenseRepository) ListByUser(ctx context.Context, userID string) ([]*models.Expense, error) {
	query := selectExpenses + ` WHERE e.user_id = ? ORDER BY e.created_at DESC`
	return r.list(ctx, query, userID)
}

// ListPendingByApprover retrieves expenses awaiting the given approver
// in PENDING status. ESCALATED expenses are deliberately not included.
func (r *ExpenseRepository) ListPendingByApprover(ctx context.Context, approverID string) ([]*models.Expense, error) {
	query := selectExpenses + ` WHERE e.approver_id = ? AND e.status = ? ORDER BY e.created_at DESC`
	return r.list(ctx, query, approverID, approval.StatePending)
}

// ListByCompany retrieves expenses whose owner belongs to the company
func (r *ExpenseRepository) ListByCompany(ctx context.Context, companyID string) ([]*models.Expense, error) {
	query := selectExpenses + `
		JOIN users u ON u.id = e.user_id
		WHERE u.company_id = ?
		ORDER BY e.created_at DESC`
	return r.list(ctx, query, companyID)
}

// ListAll retrieves every expense in the store
func (r *ExpenseRepository) ListAll(ctx context.Context) ([]*models.Expense, error) {
	return r.list(ctx, selectExpenses+` ORDER BY e.created_at DESC`)
}

const selectExpenses = `
	SELECT e.id, e.user_id, e.amount, e.currency, e.converted_amount,
		e.category, e.description, e.merchant, e.expense_date, e.status,
		e.receipt_image, e.approver_id, e.version, e.created_at, e.updated_at
	FROM expenses e`

func scanExpense(row interface{ Scan(...interface{}) error }) (*models.Expense, error) {
	var expense models.Expense
	var amount, convertedAmount string
	var receiptImage, approverID sql.NullString

	if err := row.Scan(
		&expense.ID,
		&expense.UserID,
		&amount,
		&expense.Currency,
		&convertedAmount,
		&expense.Category,
		&expense.Description,
		&expense.Merchant,
		&expense.ExpenseDate,
		&expense.Status,
		&receiptImage,
		&approverID,
		&expense.Version,
		&expense.CreatedAt,
		&expense.UpdatedAt,
	); err != nil {
		return nil, err
	}

	var err error
	if expense.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("invalid stored amount %q: %w", amount, err)
	}
	if expense.ConvertedAmount, err = decimal.NewFromString(convertedAmount); err != nil {
		return nil, fmt.Errorf("invalid stored converted amount %q: %w", convertedAmount, err)
	}
	if receiptImage.Valid {
		expense.ReceiptImage = receiptImage.String
	}
	if approverID.Valid {
		expense.ApproverID = approverID.String
	}
	return &expense, nil
}

func (r *ExpenseRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Expense, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list expenses", zap.Error(err))
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*models.Expense
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, expense)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, expense := range expenses {
		if expense.History, err = r.loadHistory(ctx, expense.ID); err != nil {
			return nil, err
		}
	}
	return expenses, nil
}

func (r *ExpenseRepository) insertHistory(ctx context.Context, tx *sql.Tx, expenseID string, entries []models.HistoryEntry) error {
	query := `
		INSERT INTO expense_history (expense_id, action, actor_name, entry_date, comment)
		VALUES (?, ?, ?, ?, ?)
	`
	for _, entry := range entries {
		if _, err := tx.ExecContext(ctx, query,
			expenseID,
			entry.Action,
			entry.ActorName,
			entry.Date,
			nullable(entry.Comment),
		); err != nil {
			r.logger.Error("Failed to append history", zap.String("expense_id", expenseID), zap.Error(err))
			return fmt.Errorf("failed to append history: %w", err)
		}
	}
	return nil
}

func (r *ExpenseRepository) loadHistory(ctx context.Context, expenseID string) ([]models.HistoryEntry, error) {
	query := `
		SELECT action, actor_name, entry_date, comment
		FROM expense_history
		WHERE expense_id = ?
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	defer rows.Close()

	var entries []models.HistoryEntry
	for rows.Next() {
		var entry models.HistoryEntry
		var comment sql.NullString
		if err := rows.Scan(&entry.Action, &entry.ActorName, &entry.Date, &comment); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		if comment.Valid {
			entry.Comment = comment.String
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
