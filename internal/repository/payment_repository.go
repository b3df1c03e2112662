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

// PostgresPaymentRepository implements domain.PaymentRepository using PostgreSQL
type PostgresPaymentRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresPaymentRepository creates a new payment repository
func NewPostgresPaymentRepository(db *sql.DB, logger *slog.Logger) *PostgresPaymentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresPaymentRepository{db: db, logger: logger}
}

const paymentColumns = `id, contract_id, tenant_id, amount, payment_date, payment_method,
	status, transaction_id, notes, created_at, updated_at`

// paymentDetailSelect joins the contract, the property and both parties.
// Callers append the WHERE clause that decides whose payments are visible.
const paymentDetailSelect = `
	SELECT p.id, p.contract_id, p.tenant_id, p.amount, p.payment_date, p.payment_method,
	       p.status, p.transaction_id, p.notes, p.created_at, p.updated_at,
	       c.property_id, pr.title, pr.location, c.monthly_rent, c.owner_id,
	       o.name, t.name, t.email
	FROM payments p
	JOIN contracts c ON c.id = p.contract_id
	JOIN properties pr ON pr.id = c.property_id
	JOIN users o ON o.id = c.owner_id
	JOIN users t ON t.id = p.tenant_id`

const paymentOrder = ` ORDER BY p.payment_date DESC, p.created_at DESC`

func scanPayment(row rowScanner) (*domain.Payment, error) {
	p := &domain.Payment{}
	err := row.Scan(
		&p.ID,
		&p.ContractID,
		&p.TenantID,
		&p.Amount,
		&p.PaymentDate,
		&p.PaymentMethod,
		&p.Status,
		&p.TransactionID,
		&p.Notes,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func scanPaymentDetail(row rowScanner) (*domain.PaymentDetail, error) {
	d := &domain.PaymentDetail{}
	err := row.Scan(
		&d.ID,
		&d.ContractID,
		&d.TenantID,
		&d.Amount,
		&d.PaymentDate,
		&d.PaymentMethod,
		&d.Status,
		&d.TransactionID,
		&d.Notes,
		&d.CreatedAt,
		&d.UpdatedAt,
		&d.PropertyID,
		&d.PropertyTitle,
		&d.PropertyLocation,
		&d.MonthlyRent,
		&d.OwnerID,
		&d.OwnerName,
		&d.TenantName,
		&d.TenantEmail,
	)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Create inserts a payment
func (r *PostgresPaymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = domain.PaymentStatusPending
	}
	if p.PaymentDate.IsZero() {
		p.PaymentDate = domain.Today()
	}

	query := `
		INSERT INTO payments (id, contract_id, tenant_id, amount, payment_date, payment_method,
		                      status, transaction_id, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, query,
		p.ID, p.ContractID, p.TenantID, p.Amount, p.PaymentDate, p.PaymentMethod,
		p.Status, p.TransactionID, p.Notes,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		r.logger.Error("failed to create payment",
			slog.String("contract_id", p.ContractID),
			slog.String("error", err.Error()),
		)
		return mapError("create payment", err)
	}
	return nil
}

// GetByID retrieves a payment by ID
func (r *PostgresPaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	p, err := scanPayment(database.Conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError("get payment", err)
	}
	return p, nil
}

// ListByTenant returns payments made by the tenant. The tenant's own
// contact fields are blanked.
func (r *PostgresPaymentRepository) ListByTenant(ctx context.Context, tenantID string) ([]*domain.PaymentDetail, error) {
	out, err := r.list(ctx, "list tenant payments",
		paymentDetailSelect+` WHERE p.tenant_id = $1`+paymentOrder, tenantID)
	if err != nil {
		return nil, err
	}
	for _, d := range out {
		d.TenantName, d.TenantEmail = "", ""
	}
	return out, nil
}

// ListByOwner returns payments recorded on the owner's contracts.
func (r *PostgresPaymentRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.PaymentDetail, error) {
	out, err := r.list(ctx, "list owner payments",
		paymentDetailSelect+` WHERE c.owner_id = $1`+paymentOrder, ownerID)
	if err != nil {
		return nil, err
	}
	for _, d := range out {
		d.OwnerName = ""
	}
	return out, nil
}

// ListByContract returns every payment of a contract
func (r *PostgresPaymentRepository) ListByContract(ctx context.Context, contractID string) ([]*domain.PaymentDetail, error) {
	return r.list(ctx, "list contract payments",
		paymentDetailSelect+` WHERE p.contract_id = $1`+paymentOrder, contractID)
}

func (r *PostgresPaymentRepository) list(ctx context.Context, op, query string, args ...any) ([]*domain.PaymentDetail, error) {
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to query payments",
			slog.String("op", op),
			slog.String("error", err.Error()),
		)
		return nil, mapError(op, err)
	}
	defer rows.Close()

	out := []*domain.PaymentDetail{}
	for rows.Next() {
		d, err := scanPaymentDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Update rewrites the patchable fields: status, transaction id and notes.
func (r *PostgresPaymentRepository) Update(ctx context.Context, p *domain.Payment) error {
	query := `
		UPDATE payments
		SET status = $1, transaction_id = $2, notes = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING updated_at
	`
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, query,
		p.Status, p.TransactionID, p.Notes, p.ID,
	).Scan(&p.UpdatedAt)
	if err != nil {
		return mapError("update payment", err)
	}
	return nil
}

// Delete removes a payment
func (r *PostgresPaymentRepository) Delete(ctx context.Context, id string) error {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if err != nil {
		return mapError("delete payment", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete payment: %w", domain.ErrNotFound)
	}
	return nil
}
