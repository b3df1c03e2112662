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

// PostgresUserRepository implements domain.UserRepository using PostgreSQL
type PostgresUserRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresUserRepository creates a new user repository
func NewPostgresUserRepository(db *sql.DB, logger *slog.Logger) *PostgresUserRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresUserRepository{
		db:     db,
		logger: logger,
	}
}

const userColumns = `id, email, password_hash, name, phone, role, created_at, updated_at`

func scanUser(row rowScanner) (*domain.User, error) {
	user := &domain.User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Name,
		&user.Phone,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Create inserts a new user, assigning an id when none is set
func (r *PostgresUserRepository) Create(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	query := `
		INSERT INTO users (id, email, password_hash, name, phone, role)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	err := database.Conn(ctx, r.db).QueryRowContext(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.Name,
		user.Phone,
		user.Role,
	).Scan(&user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		r.logger.Error("failed to create user",
			slog.String("email", user.Email),
			slog.String("error", err.Error()),
		)
		return mapError("create user", err)
	}

	return nil
}

// GetByID retrieves a user by ID
func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(database.Conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError("get user", err)
	}
	return user, nil
}

// GetByEmail retrieves a user by email
func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(database.Conn(ctx, r.db).QueryRowContext(ctx, query, email))
	if err != nil {
		return nil, mapError("get user by email", err)
	}
	return user, nil
}

// Update rewrites the mutable profile fields. Role is never updated.
func (r *PostgresUserRepository) Update(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET email = $1, name = $2, phone = $3, password_hash = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING updated_at
	`

	err := database.Conn(ctx, r.db).QueryRowContext(ctx, query,
		user.Email,
		user.Name,
		user.Phone,
		user.PasswordHash,
		user.ID,
	).Scan(&user.UpdatedAt)

	if err != nil {
		return mapError("update user", err)
	}
	return nil
}

// List lists every user, newest first
func (r *PostgresUserRepository) List(ctx context.Context) ([]*domain.User, error) {
	return r.list(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
}

// ListByRole lists users of a role, newest first
func (r *PostgresUserRepository) ListByRole(ctx context.Context, role domain.Role) ([]*domain.User, error) {
	return r.list(ctx, `SELECT `+userColumns+` FROM users WHERE role = $1 ORDER BY created_at DESC`, role)
}

func (r *PostgresUserRepository) list(ctx context.Context, query string, args ...any) ([]*domain.User, error) {
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list users",
			slog.String("error", err.Error()),
		)
		return nil, mapError("list users", err)
	}
	defer rows.Close()

	users := []*domain.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

// DeleteCascade removes a user and everything that references it: payments
// on any contract the user is party to or whose property the user owns,
// those contracts, the user's properties and finally the user row.
func (r *PostgresUserRepository) DeleteCascade(ctx context.Context, id string) (*domain.CascadeSummary, error) {
	q := database.Conn(ctx, r.db)
	summary := &domain.CascadeSummary{}

	steps := []struct {
		name  string
		query string
		count *int64
	}{
		{
			name: "payments",
			query: `
				DELETE FROM payments
				WHERE tenant_id = $1
				   OR contract_id IN (
				       SELECT c.id FROM contracts c
				       WHERE c.owner_id = $1 OR c.tenant_id = $1
				          OR c.property_id IN (SELECT p.id FROM properties p WHERE p.owner_id = $1)
				   )`,
			count: &summary.Payments,
		},
		{
			name: "contracts",
			query: `
				DELETE FROM contracts
				WHERE owner_id = $1 OR tenant_id = $1
				   OR property_id IN (SELECT p.id FROM properties p WHERE p.owner_id = $1)`,
			count: &summary.Contracts,
		},
		{
			name:  "properties",
			query: `DELETE FROM properties WHERE owner_id = $1`,
			count: &summary.Properties,
		},
		{
			name:  "users",
			query: `DELETE FROM users WHERE id = $1`,
			count: &summary.Users,
		},
	}

	for _, step := range steps {
		res, err := q.ExecContext(ctx, step.query, id)
		if err != nil {
			r.logger.Error("cascade delete step failed",
				slog.String("user_id", id),
				slog.String("step", step.name),
				slog.String("error", err.Error()),
			)
			return nil, mapError("delete user "+step.name, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to check rows affected: %w", err)
		}
		*step.count = n
	}

	if summary.Users == 0 {
		return nil, fmt.Errorf("delete user: %w", domain.ErrNotFound)
	}
	return summary, nil
}
