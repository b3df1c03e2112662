package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type ContractStatus string

const (
	ContractStatusActive     ContractStatus = "active"
	ContractStatusExpired    ContractStatus = "expired"
	ContractStatusTerminated ContractStatus = "terminated"
)

func (s ContractStatus) Valid() bool {
	switch s {
	case ContractStatusActive, ContractStatusExpired, ContractStatusTerminated:
		return true
	}
	return false
}

// CanTransitionTo reports whether a contract in status s may move to next.
// Expired and terminated are final. Writing the current status is allowed.
func (s ContractStatus) CanTransitionTo(next ContractStatus) bool {
	if s == next {
		return true
	}
	return s == ContractStatusActive &&
		(next == ContractStatusExpired || next == ContractStatusTerminated)
}

// Contract is a lease binding a tenant to an owner's property
type Contract struct {
	ID          string          `json:"id"`
	PropertyID  string          `json:"property_id"`
	TenantID    string          `json:"tenant_id"`
	OwnerID     string          `json:"owner_id"`
	StartDate   Date            `json:"start_date"`
	EndDate     Date            `json:"end_date"`
	MonthlyRent decimal.Decimal `json:"monthly_rent"`
	Deposit     decimal.Decimal `json:"deposit"`
	Status      ContractStatus  `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// IsParty reports whether userID is the tenant or the owner of c.
func (c *Contract) IsParty(userID string) bool {
	return userID != "" && (c.TenantID == userID || c.OwnerID == userID)
}

// ContractRepository defines data access for contracts
type ContractRepository interface {
	Create(ctx context.Context, contract *Contract) error
	GetByID(ctx context.Context, id string) (*Contract, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*Contract, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*Contract, error)
	Update(ctx context.Context, contract *Contract) error
	// Delete removes the contract and its payments.
	Delete(ctx context.Context, id string) (*CascadeSummary, error)
	// ExpireEnded moves active contracts whose end date is before asOf to
	// expired and returns how many changed.
	ExpireEnded(ctx context.Context, asOf Date) (int64, error)
}
