package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/expensio/expense-workflow/internal/currency"
	"github.com/expensio/expense-workflow/internal/directory"
	"github.com/expensio/expense-workflow/internal/export"
	"github.com/expensio/expense-workflow/internal/models"
	"github.com/expensio/expense-workflow/internal/org"
	"github.com/expensio/expense-workflow/internal/query"
	"github.com/expensio/expense-workflow/internal/repository"
	"github.com/expensio/expense-workflow/internal/workflow"
	"github.com/expensio/expense-workflow/pkg/database"
)

type testAPI struct {
	server *Server
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	logger := zap.NewNop()
	db, err := database.New(database.Config{
		Path:         filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	migrator := database.NewMigrator(db, logger)
	require.NoError(t, migrator.RunMigrations(context.Background(), "../../migrations"))

	companyRepo := repository.NewCompanyRepository(db.DB, logger)
	userRepo := repository.NewUserRepository(db.DB, logger)
	expenseRepo := repository.NewExpenseRepository(db, logger)

	dir := directory.NewService(userRepo)
	engine := workflow.NewEngine(expenseRepo, dir, companyRepo, currency.NewPassthrough(), decimal.NewFromInt(1000), logger)

	handlers := NewHandlers(
		org.NewService(db, companyRepo, userRepo, logger),
		engine,
		query.NewService(expenseRepo),
		dir,
		nil, // scanner disabled
		export.NewExcelWriter(logger),
		logger,
	)
	server := NewServer(ServerConfig{Host: "127.0.0.1", Port: 0}, handlers, logger)

	return &testAPI{server: server}
}

func (a *testAPI) do(t *testing.T, method, path, actorID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if actorID != "" {
		req.Header.Set(actorHeader, actorID)
	}

	w := httptest.NewRecorder()
	a.server.Router().ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()

	var resp struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success, "error: %s", resp.Error)
	require.NoError(t, json.Unmarshal(resp.Data, out))
}

func (a *testAPI) registerCompany(t *testing.T) (models.Company, models.User) {
	t.Helper()

	w := a.do(t, http.MethodPost, "/api/v1/companies", "", map[string]string{
		"company_name": "Acme",
		"country":      "US",
		"currency":     "USD",
		"admin_name":   "Alice",
		"admin_email":  "alice@acme.test",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var data struct {
		Company models.Company `json:"company"`
		Admin   models.User    `json:"admin"`
	}
	decodeData(t, w, &data)
	return data.Company, data.Admin
}

func (a *testAPI) createUser(t *testing.T, actorID string, body map[string]string) models.User {
	t.Helper()

	w := a.do(t, http.MethodPost, "/api/v1/users", actorID, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var user models.User
	decodeData(t, w, &user)
	return user
}

func TestHealthEndpoint(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestCompanyAndUserLifecycle(t *testing.T) {
	api := newTestAPI(t)
	_, admin := api.registerCompany(t)

	t.Run("missing actor header", func(t *testing.T) {
		w := api.do(t, http.MethodPost, "/api/v1/users", "", map[string]string{
			"name": "Eve", "email": "eve@acme.test", "role": "EMPLOYEE",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown actor", func(t *testing.T) {
		w := api.do(t, http.MethodPost, "/api/v1/users", "ghost", map[string]string{
			"name": "Eve", "email": "eve@acme.test", "role": "EMPLOYEE",
		})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("admin creates users", func(t *testing.T) {
		manager := api.createUser(t, admin.ID, map[string]string{
			"name": "Mark", "email": "mark@acme.test", "role": "MANAGER",
		})
		employee := api.createUser(t, admin.ID, map[string]string{
			"name": "Eve", "email": "eve@acme.test", "role": "EMPLOYEE", "manager_id": manager.ID,
		})
		assert.Equal(t, manager.ID, employee.ManagerID)

		w := api.do(t, http.MethodGet, "/api/v1/users", admin.ID, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var users []models.User
		decodeData(t, w, &users)
		assert.Len(t, users, 3)
	})

	t.Run("non-admin cannot create users", func(t *testing.T) {
		manager := api.createUser(t, admin.ID, map[string]string{
			"name": "Mona", "email": "mona@acme.test", "role": "MANAGER",
		})
		w := api.do(t, http.MethodPost, "/api/v1/users", manager.ID, map[string]string{
			"name": "X", "email": "x@acme.test", "role": "EMPLOYEE",
		})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestExpenseLifecycle(t *testing.T) {
	api := newTestAPI(t)
	_, admin := api.registerCompany(t)
	manager := api.createUser(t, admin.ID, map[string]string{
		"name": "Mark", "email": "mark@acme.test", "role": "MANAGER",
	})
	employee := api.createUser(t, admin.ID, map[string]string{
		"name": "Eve", "email": "eve@acme.test", "role": "EMPLOYEE", "manager_id": manager.ID,
	})

	submit := func(t *testing.T, amount string) models.Expense {
		w := api.do(t, http.MethodPost, "/api/v1/expenses", employee.ID, map[string]string{
			"amount":       amount,
			"currency":     "USD",
			"category":     "Meals",
			"description":  "Team lunch",
			"merchant":     "Cafe Roma",
			"expense_date": "2026-08-20",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var expense models.Expense
		decodeData(t, w, &expense)
		return expense
	}

	t.Run("submit routes to manager", func(t *testing.T) {
		expense := submit(t, "50")
		assert.Equal(t, manager.ID, expense.ApproverID)
		assert.Equal(t, "PENDING", expense.Status.String())
	})

	t.Run("invalid amount rejected", func(t *testing.T) {
		w := api.do(t, http.MethodPost, "/api/v1/expenses", employee.ID, map[string]string{
			"amount": "-5", "currency": "USD", "category": "Meals",
			"description": "x", "expense_date": "2026-08-20",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("approve below threshold finalizes", func(t *testing.T) {
		expense := submit(t, "200")

		w := api.do(t, http.MethodPost, fmt.Sprintf("/api/v1/expenses/%s/decision", expense.ID), manager.ID, map[string]string{
			"action": "APPROVE", "comment": "ok",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var updated models.Expense
		decodeData(t, w, &updated)
		assert.Equal(t, "APPROVED", updated.Status.String())
		require.Len(t, updated.History, 2)
	})

	t.Run("high value escalates then admin finalizes", func(t *testing.T) {
		expense := submit(t, "1500")

		w := api.do(t, http.MethodPost, fmt.Sprintf("/api/v1/expenses/%s/decision", expense.ID), manager.ID, map[string]string{
			"action": "APPROVE",
		})
		require.Equal(t, http.StatusOK, w.Code)

		var escalated models.Expense
		decodeData(t, w, &escalated)
		assert.Equal(t, "ESCALATED", escalated.Status.String())
		assert.Equal(t, admin.ID, escalated.ApproverID)

		w = api.do(t, http.MethodPost, fmt.Sprintf("/api/v1/expenses/%s/decision", expense.ID), admin.ID, map[string]string{
			"action": "APPROVE",
		})
		require.Equal(t, http.StatusOK, w.Code)

		var final models.Expense
		decodeData(t, w, &final)
		assert.Equal(t, "APPROVED", final.Status.String())
	})

	t.Run("decision on terminal expense conflicts", func(t *testing.T) {
		expense := submit(t, "10")

		w := api.do(t, http.MethodPost, fmt.Sprintf("/api/v1/expenses/%s/decision", expense.ID), manager.ID, map[string]string{
			"action": "REJECT", "comment": "no",
		})
		require.Equal(t, http.StatusOK, w.Code)

		w = api.do(t, http.MethodPost, fmt.Sprintf("/api/v1/expenses/%s/decision", expense.ID), manager.ID, map[string]string{
			"action": "APPROVE",
		})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("get expense", func(t *testing.T) {
		expense := submit(t, "33")

		w := api.do(t, http.MethodGet, "/api/v1/expenses/"+expense.ID, "", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var got models.Expense
		decodeData(t, w, &got)
		assert.Equal(t, expense.ID, got.ID)

		w = api.do(t, http.MethodGet, "/api/v1/expenses/ghost", "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("listings", func(t *testing.T) {
		w := api.do(t, http.MethodGet, "/api/v1/expenses?user_id="+employee.ID, "", nil)
		require.Equal(t, http.StatusOK, w.Code)

		w = api.do(t, http.MethodGet, "/api/v1/expenses?approver_id="+manager.ID, "", nil)
		require.Equal(t, http.StatusOK, w.Code)

		w = api.do(t, http.MethodGet, "/api/v1/expenses", employee.ID, nil)
		assert.Equal(t, http.StatusForbidden, w.Code, "unfiltered listing is admin only")

		w = api.do(t, http.MethodGet, "/api/v1/expenses", admin.ID, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("export", func(t *testing.T) {
		w := api.do(t, http.MethodGet, "/api/v1/expenses/export", admin.ID, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
		assert.NotEmpty(t, w.Body.Bytes())

		w = api.do(t, http.MethodGet, "/api/v1/expenses/export", employee.ID, nil)
		assert.Equal(t, http.StatusForbidden, w.Code, "export is admin only")
	})
}

func TestScanReceiptDisabled(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/api/v1/receipts/scan", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
