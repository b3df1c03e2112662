package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentMethodOrangeMoney  PaymentMethod = "Orange Money"
	PaymentMethodMTNMoney     PaymentMethod = "MTN Money"
	PaymentMethodWave         PaymentMethod = "Wave"
	PaymentMethodCard         PaymentMethod = "Carte Bancaire"
	PaymentMethodCash         PaymentMethod = "Cash"
	PaymentMethodBankTransfer PaymentMethod = "Virement"
)

// PaymentMethods lists the accepted payment methods in display order.
var PaymentMethods = []PaymentMethod{
	PaymentMethodOrangeMoney,
	PaymentMethodMTNMoney,
	PaymentMethodWave,
	PaymentMethodCard,
	PaymentMethodCash,
	PaymentMethodBankTransfer,
}

func (m PaymentMethod) Valid() bool {
	for _, known := range PaymentMethods {
		if m == known {
			return true
		}
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPaid      PaymentStatus = "Payé"
	PaymentStatusPending   PaymentStatus = "En Attente"
	PaymentStatusLate      PaymentStatus = "En Retard"
	PaymentStatusCancelled PaymentStatus = "Annulé"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPaid, PaymentStatusPending, PaymentStatusLate, PaymentStatusCancelled:
		return true
	}
	return false
}

// Payment is a ledger row recorded against a contract. TenantID is copied
// from the contract when the row is inserted and never changes afterwards.
type Payment struct {
	ID            string          `json:"id"`
	ContractID    string          `json:"contract_id"`
	TenantID      string          `json:"tenant_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentDate   Date            `json:"payment_date"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Status        PaymentStatus   `json:"status"`
	TransactionID *string         `json:"transaction_id"`
	Notes         *string         `json:"notes"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// PaymentDetail is a payment joined with its contract, property and the
// counterparty visible to the reader.
type PaymentDetail struct {
	Payment
	PropertyID       string           `json:"property_id"`
	PropertyTitle    string           `json:"property_title"`
	PropertyLocation string           `json:"property_location"`
	MonthlyRent      *decimal.Decimal `json:"monthly_rent,omitempty"`
	OwnerID          string           `json:"owner_id"`
	OwnerName        string           `json:"owner_name,omitempty"`
	TenantName       string           `json:"tenant_name,omitempty"`
	TenantEmail      string           `json:"tenant_email,omitempty"`
}

// PaymentRepository defines data access for payments
type PaymentRepository interface {
	Create(ctx context.Context, payment *Payment) error
	GetByID(ctx context.Context, id string) (*Payment, error)
	// ListByTenant returns the tenant's payments with the owner's name.
	ListByTenant(ctx context.Context, tenantID string) ([]*PaymentDetail, error)
	// ListByOwner returns payments on the owner's contracts with the
	// tenant's name and email.
	ListByOwner(ctx context.Context, ownerID string) ([]*PaymentDetail, error)
	ListByContract(ctx context.Context, contractID string) ([]*PaymentDetail, error)
	Update(ctx context.Context, payment *Payment) error
	Delete(ctx context.Context, id string) error
}
