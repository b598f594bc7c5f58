// Package org handles company registration and user management.
package org

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/expensio/expense-workflow/internal/models"
	"github.com/expensio/expense-workflow/internal/repository"
	"github.com/expensio/expense-workflow/pkg/database"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service creates companies and users. User creation is an admin-only
// operation; authentication of the actor happens upstream.
type Service struct {
	db        *database.DB
	companies *repository.CompanyRepository
	users     *repository.UserRepository
	logger    *zap.Logger
}

// NewService creates a new org service
func NewService(db *database.DB, companies *repository.CompanyRepository, users *repository.UserRepository, logger *zap.Logger) *Service {
	return &Service{db: db, companies: companies, users: users, logger: logger}
}

// RegisterCompanyInput carries the fields for company registration
type RegisterCompanyInput struct {
	CompanyName string
	Country     string
	Currency    string
	AdminName   string
	AdminEmail  string
}

// RegisterCompany creates a company and its first admin in one
// transaction and returns both
func (s *Service) RegisterCompany(ctx context.Context, input RegisterCompanyInput) (*models.Company, *models.User, error) {
	if input.CompanyName == "" || input.Country == "" || input.Currency == "" {
		return nil, nil, fmt.Errorf("company name, country and currency are required: %w", models.ErrValidation)
	}
	if input.AdminName == "" || input.AdminEmail == "" {
		return nil, nil, fmt.Errorf("admin name and email are required: %w", models.ErrValidation)
	}

	now := time.Now()
	company := &models.Company{
		ID:        uuid.NewString(),
		Name:      input.CompanyName,
		Country:   input.Country,
		Currency:  strings.ToUpper(input.Currency),
		CreatedAt: now,
	}
	admin := &models.User{
		ID:        uuid.NewString(),
		Name:      input.AdminName,
		Email:     input.AdminEmail,
		Role:      models.RoleAdmin,
		CompanyID: company.ID,
		CreatedAt: now,
	}

	err := s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		if err := s.companies.Create(ctx, tx, company); err != nil {
			return err
		}
		return s.users.Create(ctx, tx, admin)
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("Company registered",
		zap.String("company_id", company.ID),
		zap.String("admin_id", admin.ID))

	return company, admin, nil
}

// CreateUserInput carries the fields for user creation
type CreateUserInput struct {
	Name      string
	Email     string
	Role      models.Role
	ManagerID string
}

// CreateUser creates a user in the actor's company. Only admins may
// create users; a manager reference must point at a user of the same
// company.
func (s *Service) CreateUser(ctx context.Context, actor *models.User, input CreateUserInput) (*models.User, error) {
	if actor.Role != models.RoleAdmin {
		return nil, fmt.Errorf("only admins may create users: %w", models.ErrUnauthorized)
	}
	if input.Name == "" || input.Email == "" {
		return nil, fmt.Errorf("name and email are required: %w", models.ErrValidation)
	}
	if !input.Role.IsValid() {
		return nil, fmt.Errorf("unknown role %q: %w", input.Role, models.ErrValidation)
	}

	if input.ManagerID != "" {
		manager, err := s.users.GetByID(ctx, input.ManagerID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve manager: %w", err)
		}
		if manager.CompanyID != actor.CompanyID {
			return nil, fmt.Errorf("manager must belong to the same company: %w", models.ErrValidation)
		}
	}

	user := &models.User{
		ID:        uuid.NewString(),
		Name:      input.Name,
		Email:     input.Email,
		Role:      input.Role,
		CompanyID: actor.CompanyID,
		ManagerID: input.ManagerID,
		CreatedAt: time.Now(),
	}

	if err := s.users.Create(ctx, nil, user); err != nil {
		return nil, err
	}

	s.logger.Info("User created",
		zap.String("user_id", user.ID),
		zap.String("company_id", user.CompanyID),
		zap.String("role", user.Role.String()))

	return user, nil
}

// ListUsers returns all users of a company
func (s *Service) ListUsers(ctx context.Context, companyID string) ([]*models.User, error) {
	return s.users.ListByCompany(ctx, companyID)
}
