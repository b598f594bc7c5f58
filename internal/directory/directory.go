// Package directory is the read-only view over users the routing engine
// consults: role lookups, manager lookups and "any admin of company C".
package directory

import (
	"context"
	"fmt"

	"github.com/expensio/expense-workflow/internal/models"
)

// UserSource is the user lookup the directory reads from
type UserSource interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	FirstAdminOfCompany(ctx context.Context, companyID string) (*models.User, error)
}

// Service answers pure read queries; it never mutates anything
type Service struct {
	users UserSource
}

// NewService creates a new directory service
func NewService(users UserSource) *Service {
	return &Service{users: users}
}

// UserByID resolves a user id to the full user record
func (s *Service) UserByID(ctx context.Context, userID string) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

// RoleOf returns the role of the given user
func (s *Service) RoleOf(ctx context.Context, userID string) (models.Role, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve role: %w", err)
	}
	return user.Role, nil
}

// ManagerOf returns the id of the user's immediate manager, or the
// empty string if the user has none
func (s *Service) ManagerOf(ctx context.Context, userID string) (string, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve manager: %w", err)
	}
	return user.ManagerID, nil
}

// AnyAdminOf returns the id of an admin in the company, or the empty
// string if the company has none. The pick is deterministic for a given
// store state (earliest-created admin).
func (s *Service) AnyAdminOf(ctx context.Context, companyID string) (string, error) {
	admin, err := s.users.FirstAdminOfCompany(ctx, companyID)
	if err != nil {
		return "", fmt.Errorf("failed to find company admin: %w", err)
	}
	if admin == nil {
		return "", nil
	}
	return admin.ID, nil
}
