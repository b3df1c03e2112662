package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/kushtati/kushtati-immo-api/internal/domain"
	"github.com/kushtati/kushtati-immo-api/pkg/database"
)

// PostgresPropertyRepository implements domain.PropertyRepository using PostgreSQL
type PostgresPropertyRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresPropertyRepository creates a new property repository
func NewPostgresPropertyRepository(db *sql.DB, logger *slog.Logger) *PostgresPropertyRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresPropertyRepository{db: db, logger: logger}
}

const propertySelect = `
	SELECT p.id, p.owner_id, p.title, p.description, p.location, p.price, p.type,
	       p.beds, p.baths, p.sqft, p.image_url, p.status, p.created_at, p.updated_at,
	       u.name, u.email, u.phone
	FROM properties p
	JOIN users u ON u.id = p.owner_id`

func scanProperty(row rowScanner) (*domain.Property, error) {
	p := &domain.Property{Owner: &domain.OwnerSummary{}}
	err := row.Scan(
		&p.ID,
		&p.OwnerID,
		&p.Title,
		&p.Description,
		&p.Location,
		&p.Price,
		&p.Type,
		&p.Beds,
		&p.Baths,
		&p.Sqft,
		&p.ImageURL,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.Owner.Name,
		&p.Owner.Email,
		&p.Owner.Phone,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Create inserts a property
func (r *PostgresPropertyRepository) Create(ctx context.Context, p *domain.Property) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = domain.PropertyStatusAvailable
	}

	query := `
		INSERT INTO properties (id, owner_id, title, description, location, price, type,
		                        beds, baths, sqft, image_url, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`

	err := database.Conn(ctx, r.db).QueryRowContext(ctx, query,
		p.ID, p.OwnerID, p.Title, p.Description, p.Location, p.Price, p.Type,
		p.Beds, p.Baths, p.Sqft, p.ImageURL, p.Status,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		r.logger.Error("failed to create property",
			slog.String("owner_id", p.OwnerID),
			slog.String("error", err.Error()),
		)
		return mapError("create property", err)
	}
	return nil
}

// GetByID retrieves a property with its owner's contact details
func (r *PostgresPropertyRepository) GetByID(ctx context.Context, id string) (*domain.Property, error) {
	p, err := scanProperty(database.Conn(ctx, r.db).QueryRowContext(ctx, propertySelect+` WHERE p.id = $1`, id))
	if err != nil {
		return nil, mapError("get property", err)
	}
	return p, nil
}

// List returns properties matching every set filter, newest first
func (r *PostgresPropertyRepository) List(ctx context.Context, f domain.PropertyFilter) ([]*domain.Property, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Type != nil {
		add("p.type = $%d", *f.Type)
	}
	if f.Status != nil {
		add("p.status = $%d", *f.Status)
	}
	if f.MinPrice != nil {
		add("p.price >= $%d", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		add("p.price <= $%d", *f.MaxPrice)
	}
	if loc := strings.TrimSpace(f.Location); loc != "" {
		add(`p.location ILIKE $%d ESCAPE '\'`, "%"+escapeLike(loc)+"%")
	}

	query := propertySelect
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY p.created_at DESC"

	return r.query(ctx, "list properties", query, args...)
}

// ListByOwner returns an owner's properties, newest first
func (r *PostgresPropertyRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Property, error) {
	return r.query(ctx, "list owner properties",
		propertySelect+` WHERE p.owner_id = $1 ORDER BY p.created_at DESC`, ownerID)
}

func (r *PostgresPropertyRepository) query(ctx context.Context, op, query string, args ...any) ([]*domain.Property, error) {
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to query properties",
			slog.String("op", op),
			slog.String("error", err.Error()),
		)
		return nil, mapError(op, err)
	}
	defer rows.Close()

	out := []*domain.Property{}
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan property: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Update rewrites every mutable column. Owner is fixed at creation.
func (r *PostgresPropertyRepository) Update(ctx context.Context, p *domain.Property) error {
	query := `
		UPDATE properties
		SET title = $1, description = $2, location = $3, price = $4, type = $5,
		    beds = $6, baths = $7, sqft = $8, image_url = $9, status = $10,
		    updated_at = NOW()
		WHERE id = $11
		RETURNING updated_at
	`
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, query,
		p.Title, p.Description, p.Location, p.Price, p.Type,
		p.Beds, p.Baths, p.Sqft, p.ImageURL, p.Status, p.ID,
	).Scan(&p.UpdatedAt)
	if err != nil {
		return mapError("update property", err)
	}
	return nil
}

// DeleteCascade removes the property, its contracts and their payments
func (r *PostgresPropertyRepository) DeleteCascade(ctx context.Context, id string) (*domain.CascadeSummary, error) {
	q := database.Conn(ctx, r.db)
	summary := &domain.CascadeSummary{}

	res, err := q.ExecContext(ctx,
		`DELETE FROM payments WHERE contract_id IN (SELECT id FROM contracts WHERE property_id = $1)`, id)
	if err != nil {
		return nil, mapError("delete property payments", err)
	}
	if summary.Payments, err = res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}

	res, err = q.ExecContext(ctx, `DELETE FROM contracts WHERE property_id = $1`, id)
	if err != nil {
		return nil, mapError("delete property contracts", err)
	}
	if summary.Contracts, err = res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}

	res, err = q.ExecContext(ctx, `DELETE FROM properties WHERE id = $1`, id)
	if err != nil {
		return nil, mapError("delete property", err)
	}
	if summary.Properties, err = res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if summary.Properties == 0 {
		return nil, fmt.Errorf("delete property: %w", domain.ErrNotFound)
	}
	return summary, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
