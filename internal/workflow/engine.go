// Package workflow implements the approval routing engine: who gets a
// newly submitted expense, and what a decision on it leads to.
package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/expensio/expense-workflow/internal/currency"
	"github.com/expensio/expense-workflow/internal/domain/approval"
	"github.com/expensio/expense-workflow/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Directory resolves users, managers and company admins
type Directory interface {
	UserByID(ctx context.Context, userID string) (*models.User, error)
	ManagerOf(ctx context.Context, userID string) (string, error)
	AnyAdminOf(ctx context.Context, companyID string) (string, error)
}

// ExpenseStore persists expenses. Update must write the record and the
// new history entries atomically and reject stale versions.
type ExpenseStore interface {
	Create(ctx context.Context, expense *models.Expense) error
	GetByID(ctx context.Context, id string) (*models.Expense, error)
	Update(ctx context.Context, expense *models.Expense, entries []models.HistoryEntry) error
}

// CompanySource resolves company records (for the default currency)
type CompanySource interface {
	GetByID(ctx context.Context, id string) (*models.Company, error)
}

// Engine is the approval state machine. It decides routing; it does not
// check that the actor is the expense's current approver - that policy
// belongs to the caller.
type Engine struct {
	store     ExpenseStore
	directory Directory
	companies CompanySource
	converter currency.Converter
	threshold decimal.Decimal
	locks     *keyedMutex
	logger    *zap.Logger
}

// NewEngine creates a new routing engine. Expenses whose original
// amount is strictly above threshold escalate to an admin when approved
// by anyone who is not one.
func NewEngine(
	store ExpenseStore,
	directory Directory,
	companies CompanySource,
	converter currency.Converter,
	threshold decimal.Decimal,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		store:     store,
		directory: directory,
		companies: companies,
		converter: converter,
		threshold: threshold,
		locks:     newKeyedMutex(),
		logger:    logger,
	}
}

// SubmitInput carries the fields of a new expense claim. ConvertedAmount
// may be supplied by an external conversion; when nil the engine asks
// its converter (pass-through by default).
type SubmitInput struct {
	Amount          decimal.Decimal
	Currency        string
	Category        string
	Description     string
	Merchant        string
	ExpenseDate     string // YYYY-MM-DD
	ReceiptImage    string
	ConvertedAmount *decimal.Decimal
}

// SubmitExpense validates the input, routes the expense to its initial
// approver (the submitter's manager, else any company admin) and
// persists it as PENDING with a SUBMITTED history entry.
func (e *Engine) SubmitExpense(ctx context.Context, input SubmitInput, submitter *models.User) (*models.Expense, error) {
	if err := validateSubmitInput(input); err != nil {
		return nil, err
	}

	company, err := e.companies.GetByID(ctx, submitter.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve submitter company: %w", err)
	}

	converted := input.Amount
	if input.ConvertedAmount != nil {
		converted = *input.ConvertedAmount
	} else if input.Currency != company.Currency {
		converted, err = e.converter.Convert(ctx, input.Amount, input.Currency, company.Currency)
		if err != nil {
			return nil, fmt.Errorf("failed to convert amount: %w", err)
		}
	}

	approverID, err := e.initialApprover(ctx, submitter)
	if err != nil {
		return nil, err
	}
	if approverID == "" {
		// No manager and no admin anywhere in the company: the expense
		// is persisted as PENDING but nobody can decide it.
		e.logger.Warn("Expense has no routable approver",
			zap.String("submitter_id", submitter.ID),
			zap.String("company_id", submitter.CompanyID))
	}

	merchant := strings.TrimSpace(input.Merchant)
	if merchant == "" {
		merchant = "Unknown"
	}

	now := time.Now()
	expense := &models.Expense{
		ID:              uuid.NewString(),
		UserID:          submitter.ID,
		Amount:          input.Amount,
		Currency:        input.Currency,
		ConvertedAmount: converted,
		Category:        input.Category,
		Description:     input.Description,
		Merchant:        merchant,
		ExpenseDate:     input.ExpenseDate,
		Status:          approval.StatePending,
		ReceiptImage:    input.ReceiptImage,
		ApproverID:      approverID,
		Version:         1,
		History: []models.HistoryEntry{{
			Action:    approval.ActionSubmitted,
			ActorName: submitter.Name,
			Date:      now,
			Comment:   "Expense submitted",
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := e.store.Create(ctx, expense); err != nil {
		return nil, err
	}

	e.logger.Info("Expense submitted",
		zap.String("expense_id", expense.ID),
		zap.String("submitter_id", submitter.ID),
		zap.String("approver_id", approverID),
		zap.String("amount", input.Amount.String()))

	return expense, nil
}

// ProcessExpense applies an APPROVE or REJECT decision. The decision
// entry is always appended; rejection is terminal, approval either
// finalizes the expense or escalates it to an admin when the original
// amount exceeds the threshold and the actor is not an admin.
func (e *Engine) ProcessExpense(ctx context.Context, expenseID string, action approval.Action, comment string, actor *models.User) error {
	if !action.IsDecision() {
		return fmt.Errorf("action %q is not a decision: %w", action, models.ErrValidation)
	}

	unlock := e.locks.Lock(expenseID)
	defer unlock()

	expense, err := e.store.GetByID(ctx, expenseID)
	if err != nil {
		return err
	}
	if expense.Status.IsTerminal() {
		return fmt.Errorf("expense %s already %s: %w", expenseID, expense.Status, models.ErrConflict)
	}

	now := time.Now()
	entries := []models.HistoryEntry{{
		Action:    action,
		ActorName: actor.Name,
		Date:      now,
		Comment:   comment,
	}}

	newStatus := approval.StateApproved
	newApprover := ""

	if action == approval.ActionReject {
		newStatus = approval.StateRejected
	} else {
		escalate, err := e.shouldEscalate(expense, actor)
		if err != nil {
			return err
		}
		if escalate {
			adminID, err := e.escalationTarget(ctx, expense)
			if err != nil {
				return err
			}
			if adminID != "" {
				newStatus = approval.StateEscalated
				newApprover = adminID
				entries = append(entries, models.HistoryEntry{
					Action:    approval.ActionEscalated,
					ActorName: models.SystemActor,
					Date:      now,
					Comment:   "High value expense escalated to Admin",
				})
			}
			// No admin to escalate to: fall through to full approval.
		}
	}

	if !approval.CanTransition(expense.Status, newStatus) {
		return fmt.Errorf("no transition from %s to %s: %w", expense.Status, newStatus, models.ErrConflict)
	}

	expense.Status = newStatus
	expense.ApproverID = newApprover
	expense.UpdatedAt = now

	if err := e.store.Update(ctx, expense, entries); err != nil {
		return err
	}

	e.logger.Info("Expense processed",
		zap.String("expense_id", expenseID),
		zap.String("action", action.String()),
		zap.String("actor_id", actor.ID),
		zap.String("status", newStatus.String()))

	return nil
}

// initialApprover picks the submitter's manager, falling back to any
// admin of the company. An empty result means the expense is unroutable.
func (e *Engine) initialApprover(ctx context.Context, submitter *models.User) (string, error) {
	managerID, err := e.directory.ManagerOf(ctx, submitter.ID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve manager: %w", err)
	}
	if managerID != "" {
		return managerID, nil
	}
	adminID, err := e.directory.AnyAdminOf(ctx, submitter.CompanyID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve company admin: %w", err)
	}
	return adminID, nil
}

// shouldEscalate applies the escalation rule. The comparison is strict
// and uses the original amount, not the converted one.
func (e *Engine) shouldEscalate(expense *models.Expense, actor *models.User) (bool, error) {
	if !expense.Amount.GreaterThan(e.threshold) {
		return false, nil
	}
	switch actor.Role {
	case models.RoleAdmin:
		// Admins finalize high-value expenses themselves.
		return false, nil
	case models.RoleManager, models.RoleEmployee:
		return true, nil
	default:
		return false, fmt.Errorf("unknown actor role %q: %w", actor.Role, models.ErrValidation)
	}
}

// escalationTarget resolves an admin of the expense owner's company,
// returning the empty string if the company has none
func (e *Engine) escalationTarget(ctx context.Context, expense *models.Expense) (string, error) {
	owner, err := e.directory.UserByID(ctx, expense.UserID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve expense owner: %w", err)
	}
	adminID, err := e.directory.AnyAdminOf(ctx, owner.CompanyID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve escalation target: %w", err)
	}
	return adminID, nil
}

func validateSubmitInput(input SubmitInput) error {
	switch {
	case !input.Amount.IsPositive():
		return fmt.Errorf("amount must be positive: %w", models.ErrValidation)
	case input.Currency == "":
		return fmt.Errorf("currency is required: %w", models.ErrValidation)
	case input.Category == "":
		return fmt.Errorf("category is required: %w", models.ErrValidation)
	case input.Description == "":
		return fmt.Errorf("description is required: %w", models.ErrValidation)
	case input.ExpenseDate == "":
		return fmt.Errorf("expense date is required: %w", models.ErrValidation)
	}
	if _, err := time.Parse("2006-01-02", input.ExpenseDate); err != nil {
		return fmt.Errorf("expense date must be YYYY-MM-DD: %w", models.ErrValidation)
	}
	return nil
}
