package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/expensio/expense-workflow/internal/models"
	"go.uber.org/zap"
)

// CompanyRepository handles company database operations
type CompanyRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCompanyRepository creates a new company repository
func NewCompanyRepository(db *sql.DB, logger *zap.Logger) *CompanyRepository {
	return &CompanyRepository{db: db, logger: logger}
}

// Create persists a new company
func (r *CompanyRepository) Create(ctx context.Context, tx *sql.Tx, company *models.Company) error {
	query := `
		INSERT INTO companies (id, name, country, currency, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, company.ID, company.Name, company.Country, company.Currency, company.CreatedAt)
	} else {
		_, err = r.db.ExecContext(ctx, query, company.ID, company.Name, company.Country, company.Currency, company.CreatedAt)
	}

	if err != nil {
		r.logger.Error("Failed to create company", zap.Error(err))
		return fmt.Errorf("failed to create company: %w", err)
	}
	return nil
}

// GetByID retrieves a company by ID
func (r *CompanyRepository) GetByID(ctx context.Context, id string) (*models.Company, error) {
	query := `
		SELECT id, name, country, currency, created_at
		FROM companies
		WHERE id = ?
	`

	var company models.Company
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&company.ID,
		&company.Name,
		&company.Country,
		&company.Currency,
		&company.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("company %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get company", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get company: %w", err)
	}

	return &company, nil
}
