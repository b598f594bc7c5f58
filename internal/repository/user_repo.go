package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/expensio/expense-workflow/internal/models"
	"go.uber.org/zap"
)

// UserRepository handles user database operations
type UserRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB, logger *zap.Logger) *UserRepository {
	return &UserRepository{db: db, logger: logger}
}

const userColumns = `id, company_id, name, email, role, manager_id, created_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	var user models.User
	var managerID sql.NullString

	if err := row.Scan(
		&user.ID,
		&user.CompanyID,
		&user.Name,
		&user.Email,
		&user.Role,
		&managerID,
		&user.CreatedAt,
	); err != nil {
		return nil, err
	}

	if managerID.Valid {
		user.ManagerID = managerID.String
	}
	return &user, nil
}

// Create persists a new user
func (r *UserRepository) Create(ctx context.Context, tx *sql.Tx, user *models.User) error {
	query := `
		INSERT INTO users (id, company_id, name, email, role, manager_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	var managerID interface{}
	if user.ManagerID != "" {
		managerID = user.ManagerID
	}

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, user.ID, user.CompanyID, user.Name, user.Email, user.Role, managerID, user.CreatedAt)
	} else {
		_, err = r.db.ExecContext(ctx, query, user.ID, user.CompanyID, user.Name, user.Email, user.Role, managerID, user.CreatedAt)
	}

	if err != nil {
		r.logger.Error("Failed to create user", zap.Error(err))
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get user", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// ListByCompany retrieves all users belonging to a company
func (r *UserRepository) ListByCompany(ctx context.Context, companyID string) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE company_id = ? ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, companyID)
	if err != nil {
		r.logger.Error("Failed to list users", zap.String("company_id", companyID), zap.Error(err))
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// FirstAdminOfCompany returns the earliest-created admin of a company,
// or nil if the company has none. Ordering makes the pick deterministic
// for a given store state.
func (r *UserRepository) FirstAdminOfCompany(ctx context.Context, companyID string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE company_id = ? AND role = ?
		ORDER BY created_at ASC, id ASC
		LIMIT 1
	`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, companyID, models.RoleAdmin))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to find admin", zap.String("company_id", companyID), zap.Error(err))
		return nil, fmt.Errorf("failed to find admin: %w", err)
	}
	return user, nil
}
