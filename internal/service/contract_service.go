package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/kushtati/kushtati-immo-api/internal/domain"
	"github.com/kushtati/kushtati-immo-api/internal/observability/metrics"
	"github.com/kushtati/kushtati-immo-api/internal/security"
	"github.com/kushtati/kushtati-immo-api/internal/security/audit"
)

// ContractService manages leases between owners and tenants
type ContractService struct {
	contracts  domain.ContractRepository
	properties domain.PropertyRepository
	users      domain.UserRepository
	tx         domain.Transactor
	authz      *security.AuthorizationService
	audit      *audit.Logger
	validate   *Validator
	logger     *slog.Logger
}

func NewContractService(
	contracts domain.ContractRepository,
	properties domain.PropertyRepository,
	users domain.UserRepository,
	tx domain.Transactor,
	authz *security.AuthorizationService,
	auditLog *audit.Logger,
	logger *slog.Logger,
) *ContractService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContractService{
		contracts:  contracts,
		properties: properties,
		users:      users,
		tx:         tx,
		authz:      authz,
		audit:      auditLog,
		validate:   NewValidator(),
		logger:     logger,
	}
}

type CreateContractInput struct {
	PropertyID  string           `json:"property_id" validate:"required"`
	TenantID    string           `json:"tenant_id" validate:"required"`
	StartDate   *domain.Date     `json:"start_date"`
	EndDate     *domain.Date     `json:"end_date"`
	MonthlyRent *decimal.Decimal `json:"monthly_rent" validate:"omitempty,gte=0"`
	Deposit     *decimal.Decimal `json:"deposit" validate:"omitempty,gte=0"`
}

// UpdateContractInput is a partial update. Nil fields keep their values.
type UpdateContractInput struct {
	StartDate   *domain.Date           `json:"start_date"`
	EndDate     *domain.Date           `json:"end_date"`
	MonthlyRent *decimal.Decimal       `json:"monthly_rent" validate:"omitempty,gte=0"`
	Deposit     *decimal.Decimal       `json:"deposit" validate:"omitempty,gte=0"`
	Status      *domain.ContractStatus `json:"status" validate:"omitempty,oneof=active expired terminated"`
}

func dateOrderError(start, end domain.Date) []domain.FieldError {
	if start.Before(end) {
		return nil
	}
	return []domain.FieldError{{Field: "end_date", Message: "must be after start_date"}}
}

// Create drafts a lease on one of the caller's properties. The owner is
// taken from the property, and the tenant must hold the tenant role.
func (s *ContractService) Create(ctx context.Context, p domain.Principal, in CreateContractInput) (*domain.Contract, error) {
	if err := s.authz.ValidatePermission(p, security.PermCreateContract); err != nil {
		return nil, err
	}

	extra := append(requiredField(in.StartDate == nil, "start_date"), requiredField(in.EndDate == nil, "end_date")...)
	extra = append(extra, requiredField(in.MonthlyRent == nil, "monthly_rent")...)
	if in.StartDate != nil && in.EndDate != nil {
		extra = append(extra, dateOrderError(*in.StartDate, *in.EndDate)...)
	}
	if err := s.validate.Struct(in, extra...); err != nil {
		return nil, err
	}

	contract := &domain.Contract{
		PropertyID:  in.PropertyID,
		TenantID:    in.TenantID,
		StartDate:   *in.StartDate,
		EndDate:     *in.EndDate,
		MonthlyRent: *in.MonthlyRent,
		Status:      domain.ContractStatusActive,
	}
	if in.Deposit != nil {
		contract.Deposit = *in.Deposit
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		prop, err := s.properties.GetByID(ctx, in.PropertyID)
		if err != nil {
			return storageError(s.logger, "get property", err, "property not found")
		}
		if prop.OwnerID != p.ID {
			s.audit.LogDenied(ctx, p.ID, "contract on a property owned by someone else")
			return domain.Forbidden("you can only create contracts for your own properties")
		}
		contract.OwnerID = prop.OwnerID

		tenant, err := s.users.GetByID(ctx, in.TenantID)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.BadRequest("tenant not found",
				domain.FieldError{Field: "tenant_id", Message: "does not reference an existing user"})
		}
		if err != nil {
			return storageError(s.logger, "get tenant", err, "tenant not found")
		}
		if tenant.Role != domain.RoleTenant {
			return domain.BadRequest("tenant_id must reference a tenant account",
				domain.FieldError{Field: "tenant_id", Message: "must reference a tenant account"})
		}

		if err := s.contracts.Create(ctx, contract); err != nil {
			return storageError(s.logger, "create contract", err, "contract not found")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("contract created",
		slog.String("contract_id", contract.ID),
		slog.String("property_id", contract.PropertyID),
		slog.String("tenant_id", contract.TenantID),
	)
	return contract, nil
}

// Get returns a contract the caller is party to. Strangers get NotFound.
func (s *ContractService) Get(ctx context.Context, p domain.Principal, id string) (*domain.Contract, error) {
	c, err := s.contracts.GetByID(ctx, id)
	if err != nil {
		return nil, storageError(s.logger, "get contract", err, "contract not found")
	}
	if err := s.authz.AuthorizeContractAccess(p, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ListForPrincipal returns the contracts where the caller is the tenant or
// the owner, depending on its role.
func (s *ContractService) ListForPrincipal(ctx context.Context, p domain.Principal) ([]*domain.Contract, error) {
	var (
		list []*domain.Contract
		err  error
	)
	switch p.Role {
	case domain.RoleTenant:
		list, err = s.contracts.ListByTenant(ctx, p.ID)
	case domain.RoleOwner:
		list, err = s.contracts.ListByOwner(ctx, p.ID)
	default:
		return nil, domain.Forbidden("unknown role")
	}
	if err != nil {
		return nil, storageError(s.logger, "list contracts", err, "contract not found")
	}
	return list, nil
}

// Update applies a partial change. Status may only leave active. Checks
// that need the stored contract (date order, transitions) run after the
// lookup; everything else is rejected before it.
func (s *ContractService) Update(ctx context.Context, p domain.Principal, id string, in UpdateContractInput) (*domain.Contract, error) {
	var early []domain.FieldError
	if in.StartDate != nil && in.EndDate != nil {
		early = dateOrderError(*in.StartDate, *in.EndDate)
	}
	if err := s.validate.Struct(in, early...); err != nil {
		return nil, err
	}

	c, err := s.Get(ctx, p, id)
	if err != nil {
		return nil, err
	}

	start, end := c.StartDate, c.EndDate
	if in.StartDate != nil {
		start = *in.StartDate
	}
	if in.EndDate != nil {
		end = *in.EndDate
	}
	if in.StartDate != nil || in.EndDate != nil {
		if fields := dateOrderError(start, end); len(fields) > 0 {
			return nil, domain.BadRequest("validation failed", fields...)
		}
	}
	if in.Status != nil && !c.Status.CanTransitionTo(*in.Status) {
		return nil, domain.BadRequest("invalid status transition",
			domain.FieldError{Field: "status", Message: "cannot change from " + string(c.Status) + " to " + string(*in.Status)})
	}

	c.StartDate, c.EndDate = start, end
	if in.MonthlyRent != nil {
		c.MonthlyRent = *in.MonthlyRent
	}
	if in.Deposit != nil {
		c.Deposit = *in.Deposit
	}
	if in.Status != nil {
		c.Status = *in.Status
	}

	if err := s.contracts.Update(ctx, c); err != nil {
		return nil, storageError(s.logger, "update contract", err, "contract not found")
	}
	s.logger.Info("contract updated",
		slog.String("contract_id", c.ID),
		slog.String("status", string(c.Status)),
	)
	return c, nil
}

// Delete removes a contract and its payments.
func (s *ContractService) Delete(ctx context.Context, p domain.Principal, id string) (*domain.CascadeSummary, error) {
	if _, err := s.Get(ctx, p, id); err != nil {
		return nil, err
	}

	var summary *domain.CascadeSummary
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		summary, err = s.contracts.Delete(ctx, id)
		return err
	})
	if err != nil {
		return nil, storageError(s.logger, "delete contract", err, "contract not found")
	}

	s.audit.LogCascade(ctx, p.ID, "contract", id, summary)
	metrics.ObserveCascade(summary.Payments, summary.Contracts, summary.Properties, summary.Users)
	return summary, nil
}

// ExpireEnded closes active contracts whose end date is before asOf.
func (s *ContractService) ExpireEnded(ctx context.Context, asOf domain.Date) (int64, error) {
	n, err := s.contracts.ExpireEnded(ctx, asOf)
	if err != nil {
		return 0, storageError(s.logger, "expire contracts", err, "contract not found")
	}
	metrics.ObserveContractsExpired(n)
	if n > 0 {
		s.logger.Info("contracts expired",
			slog.Int64("count", n),
			slog.String("as_of", asOf.String()),
		)
	}
	return n, nil
}
