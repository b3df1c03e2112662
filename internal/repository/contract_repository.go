package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/kushtati/kushtati-immo-api/internal/domain"
	"github.com/kushtati/kushtati-immo-api/pkg/database"
)

// PostgresContractRepository implements domain.ContractRepository using PostgreSQL
type PostgresContractRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresContractRepository creates a new contract repository
func NewPostgresContractRepository(db *sql.DB, logger *slog.Logger) *PostgresContractRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresContractRepository{db: db, logger: logger}
}

const contractColumns = `id, property_id, tenant_id, owner_id, start_date, end_date,
	monthly_rent, deposit, status, created_at, updated_at`

func scanContract(row rowScanner) (*domain.Contract, error) {
	c := &domain.Contract{}
	err := row.Scan(
		&c.ID,
		&c.PropertyID,
		&c.TenantID,
		&c.OwnerID,
		&c.StartDate,
		&c.EndDate,
		&c.MonthlyRent,
		&c.Deposit,
		&c.Status,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Create inserts a contract
func (r *PostgresContractRepository) Create(ctx context.Context, c *domain.Contract) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = domain.ContractStatusActive
	}

	query := `
		INSERT INTO contracts (id, property_id, tenant_id, owner_id, start_date, end_date,
		                       monthly_rent, deposit, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, query,
		c.ID, c.PropertyID, c.TenantID, c.OwnerID, c.StartDate, c.EndDate,
		c.MonthlyRent, c.Deposit, c.Status,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		r.logger.Error("failed to create contract",
			slog.String("property_id", c.PropertyID),
			slog.String("error", err.Error()),
		)
		return mapError("create contract", err)
	}
	return nil
}

// GetByID retrieves a contract by ID
func (r *PostgresContractRepository) GetByID(ctx context.Context, id string) (*domain.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE id = $1`
	c, err := scanContract(database.Conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError("get contract", err)
	}
	return c, nil
}

// ListByTenant lists a tenant's contracts, newest first
func (r *PostgresContractRepository) ListByTenant(ctx context.Context, tenantID string) ([]*domain.Contract, error) {
	return r.list(ctx, "list tenant contracts",
		`SELECT `+contractColumns+` FROM contracts WHERE tenant_id = $1 ORDER BY created_at DESC`, tenantID)
}

// ListByOwner lists an owner's contracts, newest first
func (r *PostgresContractRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Contract, error) {
	return r.list(ctx, "list owner contracts",
		`SELECT `+contractColumns+` FROM contracts WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID)
}

func (r *PostgresContractRepository) list(ctx context.Context, op, query string, args ...any) ([]*domain.Contract, error) {
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to query contracts",
			slog.String("op", op),
			slog.String("error", err.Error()),
		)
		return nil, mapError(op, err)
	}
	defer rows.Close()

	out := []*domain.Contract{}
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contract: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Update rewrites dates, amounts and status. Parties are fixed at creation.
func (r *PostgresContractRepository) Update(ctx context.Context, c *domain.Contract) error {
	query := `
		UPDATE contracts
		SET start_date = $1, end_date = $2, monthly_rent = $3, deposit = $4, status = $5,
		    updated_at = NOW()
		WHERE id = $6
		RETURNING updated_at
	`
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, query,
		c.StartDate, c.EndDate, c.MonthlyRent, c.Deposit, c.Status, c.ID,
	).Scan(&c.UpdatedAt)
	if err != nil {
		return mapError("update contract", err)
	}
	return nil
}

// Delete removes the contract and its payments
func (r *PostgresContractRepository) Delete(ctx context.Context, id string) (*domain.CascadeSummary, error) {
	q := database.Conn(ctx, r.db)
	summary := &domain.CascadeSummary{}

	res, err := q.ExecContext(ctx, `DELETE FROM payments WHERE contract_id = $1`, id)
	if err != nil {
		return nil, mapError("delete contract payments", err)
	}
	if summary.Payments, err = res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}

	res, err = q.ExecContext(ctx, `DELETE FROM contracts WHERE id = $1`, id)
	if err != nil {
		return nil, mapError("delete contract", err)
	}
	if summary.Contracts, err = res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if summary.Contracts == 0 {
		return nil, fmt.Errorf("delete contract: %w", domain.ErrNotFound)
	}
	return summary, nil
}

// ExpireEnded marks active contracts that ended before asOf as expired
func (r *PostgresContractRepository) ExpireEnded(ctx context.Context, asOf domain.Date) (int64, error) {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, `
		UPDATE contracts
		SET status = 'expired', updated_at = NOW()
		WHERE status = 'active' AND end_date < $1
	`, asOf)
	if err != nil {
		return 0, mapError("expire contracts", err)
	}
	return res.RowsAffected()
}
