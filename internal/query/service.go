// Package query exposes the derived read views over the expense store.
// Everything here is a pure filter: no mutation, no side effects, and
// two calls without intervening writes return identical results.
package query

import (
	"context"

	"github.com/expensio/expense-workflow/internal/models"
)

// ExpenseLister is the read surface the store provides
type ExpenseLister interface {
	GetByID(ctx context.Context, id string) (*models.Expense, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Expense, error)
	ListPendingByApprover(ctx context.Context, approverID string) ([]*models.Expense, error)
	ListByCompany(ctx context.Context, companyID string) ([]*models.Expense, error)
	ListAll(ctx context.Context) ([]*models.Expense, error)
}

// Service answers read queries over expenses
type Service struct {
	expenses ExpenseLister
}

// NewService creates a new query service
func NewService(expenses ExpenseLister) *Service {
	return &Service{expenses: expenses}
}

// ExpenseByID returns a single expense with its full audit trail
func (s *Service) ExpenseByID(ctx context.Context, id string) (*models.Expense, error) {
	return s.expenses.GetByID(ctx, id)
}

// ExpensesOfUser returns all expenses submitted by the user
func (s *Service) ExpensesOfUser(ctx context.Context, userID string) ([]*models.Expense, error) {
	return s.expenses.ListByUser(ctx, userID)
}

// PendingApprovalsFor returns expenses awaiting the approver in PENDING
// status. ESCALATED expenses assigned to the same approver are not
// included; the filter matches the reference behavior.
func (s *Service) PendingApprovalsFor(ctx context.Context, approverID string) ([]*models.Expense, error) {
	return s.expenses.ListPendingByApprover(ctx, approverID)
}

// CompanyExpenses returns expenses whose owners belong to the company
func (s *Service) CompanyExpenses(ctx context.Context, companyID string) ([]*models.Expense, error) {
	return s.expenses.ListByCompany(ctx, companyID)
}

// AllExpenses returns every expense. Callers must restrict this to
// admins; the view itself enforces nothing.
func (s *Service) AllExpenses(ctx context.Context) ([]*models.Expense, error) {
	return s.expenses.ListAll(ctx)
}
