package service

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/kushtati/kushtati-immo-api/internal/domain"
	"github.com/kushtati/kushtati-immo-api/internal/observability/metrics"
	"github.com/kushtati/kushtati-immo-api/internal/security"
	"github.com/kushtati/kushtati-immo-api/internal/security/audit"
)

// paymentLister is the listing strategy for one role.
type paymentLister func(ctx context.Context, payments domain.PaymentRepository, userID string) ([]*domain.PaymentDetail, error)

// paymentListers picks what a role sees on GET /api/payments: tenants see
// their own payments with the owner's name, owners see payments on their
// contracts with the tenant's contact.
var paymentListers = map[domain.Role]paymentLister{
	domain.RoleTenant: func(ctx context.Context, payments domain.PaymentRepository, userID string) ([]*domain.PaymentDetail, error) {
		return payments.ListByTenant(ctx, userID)
	},
	domain.RoleOwner: func(ctx context.Context, payments domain.PaymentRepository, userID string) ([]*domain.PaymentDetail, error) {
		return payments.ListByOwner(ctx, userID)
	},
}

// PaymentService records and manages rent payments
type PaymentService struct {
	payments  domain.PaymentRepository
	contracts domain.ContractRepository
	tx        domain.Transactor
	authz     *security.AuthorizationService
	audit     *audit.Logger
	validate  *Validator
	logger    *slog.Logger
}

func NewPaymentService(
	payments domain.PaymentRepository,
	contracts domain.ContractRepository,
	tx domain.Transactor,
	authz *security.AuthorizationService,
	auditLog *audit.Logger,
	logger *slog.Logger,
) *PaymentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PaymentService{
		payments:  payments,
		contracts: contracts,
		tx:        tx,
		authz:     authz,
		audit:     auditLog,
		validate:  NewValidator(),
		logger:    logger,
	}
}

type CreatePaymentInput struct {
	ContractID    string               `json:"contract_id" validate:"required"`
	Amount        *decimal.Decimal     `json:"amount" validate:"omitempty,gt=0"`
	PaymentDate   *domain.Date         `json:"payment_date"`
	PaymentMethod domain.PaymentMethod `json:"payment_method" validate:"required,paymentmethod"`
	Status        domain.PaymentStatus `json:"status" validate:"omitempty,paymentstatus"`
	TransactionID *string              `json:"transaction_id" validate:"omitempty,max=255"`
	Notes         *string              `json:"notes" validate:"omitempty,max=2000"`
}

// UpdatePaymentInput is the set of fields an owner may change afterwards.
type UpdatePaymentInput struct {
	Status        *domain.PaymentStatus `json:"status" validate:"omitempty,paymentstatus"`
	TransactionID *string               `json:"transaction_id" validate:"omitempty,max=255"`
	Notes         *string               `json:"notes" validate:"omitempty,max=2000"`
}

// ListForPrincipal returns the caller's payments using its role's strategy.
func (s *PaymentService) ListForPrincipal(ctx context.Context, p domain.Principal) ([]*domain.PaymentDetail, error) {
	if err := s.authz.ValidatePermission(p, security.PermListPayments); err != nil {
		return nil, err
	}
	list, ok := paymentListers[p.Role]
	if !ok {
		return nil, domain.Forbidden("unknown role")
	}
	payments, err := list(ctx, s.payments, p.ID)
	if err != nil {
		return nil, storageError(s.logger, "list payments", err, "payment not found")
	}
	return payments, nil
}

// ListForContract returns a contract's payments to either party.
func (s *PaymentService) ListForContract(ctx context.Context, p domain.Principal, contractID string) ([]*domain.PaymentDetail, error) {
	c, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		return nil, storageError(s.logger, "get contract", err, "contract not found")
	}
	if err := s.authz.AuthorizeContractAccess(p, c); err != nil {
		return nil, err
	}
	payments, err := s.payments.ListByContract(ctx, contractID)
	if err != nil {
		return nil, storageError(s.logger, "list contract payments", err, "payment not found")
	}
	return payments, nil
}

func (s *PaymentService) Get(ctx context.Context, p domain.Principal, id string) (*domain.Payment, error) {
	payment, c, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.AuthorizePaymentRead(p, c); err != nil {
		return nil, err
	}
	return payment, nil
}

// resolve loads a payment with its contract. A payment whose contract is
// gone reads as missing.
func (s *PaymentService) resolve(ctx context.Context, id string) (*domain.Payment, *domain.Contract, error) {
	payment, err := s.payments.GetByID(ctx, id)
	if err != nil {
		return nil, nil, storageError(s.logger, "get payment", err, "payment not found")
	}
	c, err := s.contracts.GetByID(ctx, payment.ContractID)
	if err != nil {
		return nil, nil, storageError(s.logger, "get contract", err, "payment not found")
	}
	return payment, c, nil
}

// Create records a payment against a contract the caller is party to. The
// tenant is always the contract's tenant.
func (s *PaymentService) Create(ctx context.Context, p domain.Principal, in CreatePaymentInput) (*domain.Payment, error) {
	if err := s.authz.ValidatePermission(p, security.PermCreatePayment); err != nil {
		return nil, err
	}

	in.TransactionID = trimOptional(in.TransactionID)
	in.Notes = trimOptional(in.Notes)
	if err := s.validate.Struct(in, requiredField(in.Amount == nil, "amount")...); err != nil {
		return nil, err
	}

	payment := &domain.Payment{
		ContractID:    in.ContractID,
		Amount:        *in.Amount,
		PaymentMethod: in.PaymentMethod,
		Status:        in.Status,
		TransactionID: in.TransactionID,
		Notes:         in.Notes,
	}
	if payment.Status == "" {
		payment.Status = domain.PaymentStatusPending
	}
	if in.PaymentDate != nil {
		payment.PaymentDate = *in.PaymentDate
	} else {
		payment.PaymentDate = domain.Today()
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		c, err := s.contracts.GetByID(ctx, in.ContractID)
		if err != nil {
			return storageError(s.logger, "get contract", err, "contract not found")
		}
		if err := s.authz.AuthorizeContractAccess(p, c); err != nil {
			return err
		}
		payment.TenantID = c.TenantID

		if err := s.payments.Create(ctx, payment); err != nil {
			return storageError(s.logger, "create payment", err, "payment not found")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ObservePaymentRecorded(string(payment.PaymentMethod))
	s.logger.Info("payment recorded",
		slog.String("payment_id", payment.ID),
		slog.String("contract_id", payment.ContractID),
		slog.String("recorded_by", p.ID),
	)
	return payment, nil
}

// Update changes status, transaction id or notes. Only the contract's
// owner may do so. Malformed input is rejected before any lookup.
func (s *PaymentService) Update(ctx context.Context, p domain.Principal, id string, in UpdatePaymentInput) (*domain.Payment, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	payment, c, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.AuthorizePaymentWrite(p, c); err != nil {
		return nil, err
	}

	if in.Status != nil {
		payment.Status = *in.Status
	}
	if in.TransactionID != nil {
		payment.TransactionID = trimOptional(in.TransactionID)
	}
	if in.Notes != nil {
		payment.Notes = trimOptional(in.Notes)
	}

	if err := s.payments.Update(ctx, payment); err != nil {
		return nil, storageError(s.logger, "update payment", err, "payment not found")
	}
	s.logger.Info("payment updated",
		slog.String("payment_id", id),
		slog.String("status", string(payment.Status)),
	)
	return payment, nil
}

func (s *PaymentService) Delete(ctx context.Context, p domain.Principal, id string) error {
	_, c, err := s.resolve(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authz.AuthorizePaymentWrite(p, c); err != nil {
		return err
	}
	if err := s.payments.Delete(ctx, id); err != nil {
		return storageError(s.logger, "delete payment", err, "payment not found")
	}
	s.audit.LogAction(ctx, p.ID, "delete", "payment", id, "success", "contract "+c.ID)
	return nil
}
