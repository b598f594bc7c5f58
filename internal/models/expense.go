package models

import (
	"time"

	"github.com/expensio/expense-workflow/internal/domain/approval"
	"github.com/shopspring/decimal"
)

// Expense is the central record of the approval workflow.
// ApproverID names the user whose decision is currently awaited; it is
// set while Status is PENDING or ESCALATED and empty once the expense
// reaches APPROVED or REJECTED.
type Expense struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	ConvertedAmount decimal.Decimal `json:"converted_amount"`
	Category        string          `json:"category"`
	Description     string          `json:"description"`
	Merchant        string          `json:"merchant"`
	ExpenseDate     string          `json:"expense_date"` // YYYY-MM-DD
	Status          approval.State  `json:"status"`
	ReceiptImage    string          `json:"receipt_image,omitempty"` // base64, optional
	ApproverID      string          `json:"approver_id,omitempty"`
	Version         int64           `json:"version"`
	History         []HistoryEntry  `json:"history"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// HistoryEntry is one line of an expense's audit trail. Entries are
// append-only and their insertion order is the chronological order.
type HistoryEntry struct {
	Action    approval.Action `json:"action"`
	ActorName string          `json:"actor_name"`
	Date      time.Time       `json:"date"`
	Comment   string          `json:"comment,omitempty"`
}

// SystemActor is the actor name recorded for entries the engine writes
// on its own behalf, such as escalations.
const SystemActor = "System"
