package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/expensio/expense-workflow/internal/directory"
	"github.com/expensio/expense-workflow/internal/domain/approval"
	"github.com/expensio/expense-workflow/internal/export"
	"github.com/expensio/expense-workflow/internal/models"
	"github.com/expensio/expense-workflow/internal/org"
	"github.com/expensio/expense-workflow/internal/query"
	"github.com/expensio/expense-workflow/internal/receipt"
	"github.com/expensio/expense-workflow/internal/workflow"
)

// actorHeader identifies the acting user. Authentication happens
// upstream of this service; the header carries a user id the directory
// can resolve.
const actorHeader = "X-Actor-ID"

// maxReceiptBytes caps uploaded receipt size
const maxReceiptBytes = 10 << 20

// Handlers contains all HTTP request handlers
type Handlers struct {
	org       *org.Service
	engine    *workflow.Engine
	queries   *query.Service
	directory *directory.Service
	scanner   *receipt.Scanner
	exporter  *export.ExcelWriter
	logger    *zap.Logger
}

// NewHandlers creates a new Handlers instance. scanner may be nil when
// no vision credentials are configured; the scan endpoint then responds
// with 503.
func NewHandlers(
	orgService *org.Service,
	engine *workflow.Engine,
	queries *query.Service,
	dir *directory.Service,
	scanner *receipt.Scanner,
	exporter *export.ExcelWriter,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		org:       orgService,
		engine:    engine,
		queries:   queries,
		directory: dir,
		scanner:   scanner,
		exporter:  exporter,
		logger:    logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// RegisterCompanyRequest represents the company registration payload
type RegisterCompanyRequest struct {
	CompanyName string `json:"company_name" binding:"required"`
	Country     string `json:"country" binding:"required"`
	Currency    string `json:"currency" binding:"required"`
	AdminName   string `json:"admin_name" binding:"required"`
	AdminEmail  string `json:"admin_email" binding:"required"`
}

// RegisterCompanyResponse carries the new company and its admin
type RegisterCompanyResponse struct {
	Company *models.Company `json:"company"`
	Admin   *models.User    `json:"admin"`
}

// CreateUserRequest represents the user creation payload
type CreateUserRequest struct {
	Name      string `json:"name" binding:"required"`
	Email     string `json:"email" binding:"required"`
	Role      string `json:"role" binding:"required"`
	ManagerID string `json:"manager_id"`
}

// SubmitExpenseRequest represents the expense submission payload.
// Amounts travel as strings to keep decimal precision.
type SubmitExpenseRequest struct {
	Amount          string `json:"amount" binding:"required"`
	Currency        string `json:"currency" binding:"required"`
	Category        string `json:"category" binding:"required"`
	Description     string `json:"description" binding:"required"`
	Merchant        string `json:"merchant"`
	ExpenseDate     string `json:"expense_date" binding:"required"`
	ReceiptImage    string `json:"receipt_image"`
	ConvertedAmount string `json:"converted_amount"`
}

// DecisionRequest represents an approval decision payload
type DecisionRequest struct {
	Action  string `json:"action" binding:"required"`
	Comment string `json:"comment"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// RegisterCompany handles POST /api/v1/companies
func (h *Handlers) RegisterCompany(c *gin.Context) {
	var req RegisterCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	company, admin, err := h.org.RegisterCompany(c.Request.Context(), org.RegisterCompanyInput{
		CompanyName: req.CompanyName,
		Country:     req.Country,
		Currency:    req.Currency,
		AdminName:   req.AdminName,
		AdminEmail:  req.AdminEmail,
	})
	if err != nil {
		h.fail(c, err, "failed to register company")
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    RegisterCompanyResponse{Company: company, Admin: admin},
	})
}

// CreateUser handles POST /api/v1/users
func (h *Handlers) CreateUser(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	user, err := h.org.CreateUser(c.Request.Context(), actor, org.CreateUserInput{
		Name:      req.Name,
		Email:     req.Email,
		Role:      models.Role(req.Role),
		ManagerID: req.ManagerID,
	})
	if err != nil {
		h.fail(c, err, "failed to create user")
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: user})
}

// ListUsers handles GET /api/v1/users
func (h *Handlers) ListUsers(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	users, err := h.org.ListUsers(c.Request.Context(), actor.CompanyID)
	if err != nil {
		h.fail(c, err, "failed to list users")
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: users})
}

// SubmitExpense handles POST /api/v1/expenses
func (h *Handlers) SubmitExpense(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req SubmitExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		h.badRequest(c, "amount must be a decimal number")
		return
	}

	input := workflow.SubmitInput{
		Amount:       amount,
		Currency:     req.Currency,
		Category:     req.Category,
		Description:  req.Description,
		Merchant:     req.Merchant,
		ExpenseDate:  req.ExpenseDate,
		ReceiptImage: req.ReceiptImage,
	}
	if req.ConvertedAmount != "" {
		converted, err := decimal.NewFromString(req.ConvertedAmount)
		if err != nil {
			h.badRequest(c, "converted_amount must be a decimal number")
			return
		}
		input.ConvertedAmount = &converted
	}

	expense, err := h.engine.SubmitExpense(c.Request.Context(), input, actor)
	if err != nil {
		h.fail(c, err, "failed to submit expense")
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: expense})
}

// GetExpense handles GET /api/v1/expenses/:id
func (h *Handlers) GetExpense(c *gin.Context) {
	expense, err := h.queries.ExpenseByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "failed to get expense")
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: expense})
}

// DecideExpense handles POST /api/v1/expenses/:id/decision
func (h *Handlers) DecideExpense(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	expenseID := c.Param("id")
	err := h.engine.ProcessExpense(c.Request.Context(), expenseID, approval.Action(req.Action), req.Comment, actor)
	if err != nil {
		h.fail(c, err, "failed to process decision")
		return
	}

	expense, err := h.queries.ExpenseByID(c.Request.Context(), expenseID)
	if err != nil {
		h.fail(c, err, "failed to load processed expense")
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: expense})
}

// ListExpenses handles GET /api/v1/expenses. Exactly one of user_id,
// approver_id and company_id selects the view; with no filter the
// response is every expense in the store, which only admins may see.
func (h *Handlers) ListExpenses(c *gin.Context) {
	ctx := c.Request.Context()

	userID := c.Query("user_id")
	approverID := c.Query("approver_id")
	companyID := c.Query("company_id")

	var (
		expenses []*models.Expense
		err      error
	)
	switch {
	case userID != "":
		expenses, err = h.queries.ExpensesOfUser(ctx, userID)
	case approverID != "":
		expenses, err = h.queries.PendingApprovalsFor(ctx, approverID)
	case companyID != "":
		expenses, err = h.queries.CompanyExpenses(ctx, companyID)
	default:
		actor, ok := h.actor(c)
		if !ok {
			return
		}
		if actor.Role != models.RoleAdmin {
			h.forbidden(c, "only admins may list all expenses")
			return
		}
		expenses, err = h.queries.AllExpenses(ctx)
	}
	if err != nil {
		h.fail(c, err, "failed to list expenses")
		return
	}

	if expenses == nil {
		expenses = []*models.Expense{}
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: expenses})
}

// ScanReceipt handles POST /api/v1/receipts/scan. The multipart field
// "receipt" carries an image or PDF; the response proposes expense
// fields the client may edit before submitting.
func (h *Handlers) ScanReceipt(c *gin.Context) {
	if h.scanner == nil {
		c.JSON(http.StatusServiceUnavailable, Response{
			Success: false,
			Error:   "receipt scanning is not configured",
		})
		return
	}

	if _, ok := h.actor(c); !ok {
		return
	}

	fileHeader, err := c.FormFile("receipt")
	if err != nil {
		h.badRequest(c, "multipart field 'receipt' is required")
		return
	}
	if fileHeader.Size > maxReceiptBytes {
		h.badRequest(c, "receipt file too large")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.badRequest(c, "failed to open uploaded file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxReceiptBytes))
	if err != nil {
		h.fail(c, err, "failed to read uploaded file")
		return
	}

	result, err := h.scanner.Scan(c.Request.Context(), data, fileHeader.Filename)
	if err != nil {
		h.fail(c, err, "failed to scan receipt")
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// ExportExpenses handles GET /api/v1/expenses/export. Admins download
// an xlsx report of their company's expenses, or of another company via
// the company_id parameter.
func (h *Handlers) ExportExpenses(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	if actor.Role != models.RoleAdmin {
		h.forbidden(c, "only admins may export expenses")
		return
	}

	companyID := actor.CompanyID
	if requested := c.Query("company_id"); requested != "" {
		companyID = requested
	}

	ctx := c.Request.Context()
	expenses, err := h.queries.CompanyExpenses(ctx, companyID)
	if err != nil {
		h.fail(c, err, "failed to load company expenses")
		return
	}

	report, err := h.exporter.WriteReport(expenses, func(userID string) string {
		user, err := h.directory.UserByID(ctx, userID)
		if err != nil {
			return ""
		}
		return user.Name
	})
	if err != nil {
		h.fail(c, err, "failed to build report")
		return
	}

	filename := fmt.Sprintf("expenses-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", report)
}

// actor resolves the acting user from the request header. A missing
// header is a 400, an unresolvable id a 403.
func (h *Handlers) actor(c *gin.Context) (*models.User, bool) {
	actorID := c.GetHeader(actorHeader)
	if actorID == "" {
		h.badRequest(c, fmt.Sprintf("%s header is required", actorHeader))
		return nil, false
	}

	user, err := h.directory.UserByID(c.Request.Context(), actorID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			h.forbidden(c, "unknown actor")
			return nil, false
		}
		h.fail(c, err, "failed to resolve actor")
		return nil, false
	}
	return user, true
}

// fail maps domain errors to HTTP status codes
func (h *Handlers) fail(c *gin.Context, err error, msg string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrConflict):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		h.logger.Error(msg, zap.Error(err), zap.String("path", c.Request.URL.Path))
		c.JSON(status, Response{Success: false, Error: msg})
		return
	}
	c.JSON(status, Response{Success: false, Error: err.Error()})
}

func (h *Handlers) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: msg})
}

func (h *Handlers) forbidden(c *gin.Context, msg string) {
	c.JSON(http.StatusForbidden, Response{Success: false, Error: msg})
}
