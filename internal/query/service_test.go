package query

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expensio/expense-workflow/internal/models"
)

type fakeLister struct {
	byID       map[string]*models.Expense
	byUser     map[string][]*models.Expense
	byApprover map[string][]*models.Expense
	byCompany  map[string][]*models.Expense
	all        []*models.Expense
}

func (f *fakeLister) GetByID(ctx context.Context, id string) (*models.Expense, error) {
	expense, ok := f.byID[id]
	if !ok {
		return nil, fmt.Errorf("expense %s: %w", id, models.ErrNotFound)
	}
	return expense, nil
}

func (f *fakeLister) ListByUser(ctx context.Context, userID string) ([]*models.Expense, error) {
	return f.byUser[userID], nil
}

func (f *fakeLister) ListPendingByApprover(ctx context.Context, approverID string) ([]*models.Expense, error) {
	return f.byApprover[approverID], nil
}

func (f *fakeLister) ListByCompany(ctx context.Context, companyID string) ([]*models.Expense, error) {
	return f.byCompany[companyID], nil
}

func (f *fakeLister) ListAll(ctx context.Context) ([]*models.Expense, error) {
	return f.all, nil
}

func TestQueries(t *testing.T) {
	e1 := &models.Expense{ID: "e1", UserID: "u1"}
	e2 := &models.Expense{ID: "e2", UserID: "u1"}

	svc := NewService(&fakeLister{
		byID:       map[string]*models.Expense{"e1": e1},
		byUser:     map[string][]*models.Expense{"u1": {e1, e2}},
		byApprover: map[string][]*models.Expense{"m1": {e1}},
		byCompany:  map[string][]*models.Expense{"c1": {e1, e2}},
		all:        []*models.Expense{e1, e2},
	})
	ctx := context.Background()

	t.Run("by id", func(t *testing.T) {
		got, err := svc.ExpenseByID(ctx, "e1")
		require.NoError(t, err)
		assert.Equal(t, e1, got)

		_, err = svc.ExpenseByID(ctx, "ghost")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("of user", func(t *testing.T) {
		got, err := svc.ExpensesOfUser(ctx, "u1")
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("pending approvals", func(t *testing.T) {
		got, err := svc.PendingApprovalsFor(ctx, "m1")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "e1", got[0].ID)
	})

	t.Run("company", func(t *testing.T) {
		got, err := svc.CompanyExpenses(ctx, "c1")
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("all", func(t *testing.T) {
		got, err := svc.AllExpenses(ctx)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})
}
