package security

import (
	"log/slog"
	"slices"

	"github.com/kushtati/kushtati-immo-api/internal/domain"
	"github.com/kushtati/kushtati-immo-api/internal/observability/metrics"
)

// Permission represents an action a role may attempt at all. Resource-level
// rules are checked separately once the target has been loaded.
type Permission string

const (
	PermCreateProperty Permission = "create_property"
	PermCreateContract Permission = "create_contract"
	PermCreatePayment  Permission = "create_payment"
	PermListPayments   Permission = "list_payments"
	PermListTenants    Permission = "list_tenants"
	PermListUsers      Permission = "list_users"
)

// RolePermissions maps roles to their permissions
var RolePermissions = map[domain.Role][]Permission{
	domain.RoleOwner: {
		PermCreateProperty,
		PermCreateContract,
		PermCreatePayment,
		PermListPayments,
		PermListTenants,
		PermListUsers,
	},
	domain.RoleTenant: {
		PermCreatePayment,
		PermListPayments,
	},
}

// AuthorizationService evaluates role permissions and ownership rules.
//
// Denials follow one policy: a principal who may read the target but not
// change it gets Forbidden; a principal who may not even read it gets
// NotFound, so existence is not disclosed.
type AuthorizationService struct {
	logger *slog.Logger
}

// NewAuthorizationService creates a new authorization service
func NewAuthorizationService(logger *slog.Logger) *AuthorizationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthorizationService{
		logger: logger,
	}
}

// HasPermission checks if a role has a specific permission
func (as *AuthorizationService) HasPermission(role domain.Role, permission Permission) bool {
	return slices.Contains(RolePermissions[role], permission)
}

// ValidatePermission validates that the principal's role has a permission
func (as *AuthorizationService) ValidatePermission(p domain.Principal, permission Permission) error {
	if !as.HasPermission(p.Role, permission) {
		as.deny(p, string(permission), "", "role lacks permission")
		return domain.Forbidden("your role is not allowed to perform this action")
	}
	return nil
}

// CanWriteProperty is the property write rule: the principal owns the
// listing and holds the owner role.
func CanWriteProperty(p domain.Principal, prop *domain.Property) bool {
	return p.Role == domain.RoleOwner && p.ID != "" && p.ID == prop.OwnerID
}

// CanAccessContract is the contract read and write rule.
func CanAccessContract(p domain.Principal, c *domain.Contract) bool {
	return c.IsParty(p.ID)
}

// CanWritePayment is the payment write rule: only the contract's owner.
func CanWritePayment(p domain.Principal, c *domain.Contract) bool {
	return p.ID != "" && p.ID == c.OwnerID
}

// AuthorizePropertyWrite checks an update or delete of a listing. Listings
// are public, so a denial is Forbidden.
func (as *AuthorizationService) AuthorizePropertyWrite(p domain.Principal, prop *domain.Property) error {
	if !CanWriteProperty(p, prop) {
		as.deny(p, "property", prop.ID, "not the owner of record")
		return domain.Forbidden("you can only modify your own properties")
	}
	return nil
}

// AuthorizeContractAccess checks any read or write of a contract.
func (as *AuthorizationService) AuthorizeContractAccess(p domain.Principal, c *domain.Contract) error {
	if !CanAccessContract(p, c) {
		as.deny(p, "contract", c.ID, "not a party")
		return domain.NotFound("contract not found")
	}
	return nil
}

// AuthorizePaymentRead checks a read of one payment through its contract.
func (as *AuthorizationService) AuthorizePaymentRead(p domain.Principal, c *domain.Contract) error {
	if !CanAccessContract(p, c) {
		as.deny(p, "payment", c.ID, "not a party")
		return domain.NotFound("payment not found")
	}
	return nil
}

// AuthorizePaymentWrite checks an update or delete of a payment. The tenant
// can see the payment, so the tenant is refused with Forbidden.
func (as *AuthorizationService) AuthorizePaymentWrite(p domain.Principal, c *domain.Contract) error {
	if !CanAccessContract(p, c) {
		as.deny(p, "payment", c.ID, "not a party")
		return domain.NotFound("payment not found")
	}
	if !CanWritePayment(p, c) {
		as.deny(p, "payment", c.ID, "only the owner may modify payments")
		return domain.Forbidden("only the property owner can modify payments")
	}
	return nil
}

// AuthorizeSelf checks that the principal acts on its own account.
func (as *AuthorizationService) AuthorizeSelf(p domain.Principal, userID string) error {
	if p.ID == "" || p.ID != userID {
		as.deny(p, "user", userID, "not self")
		return domain.Forbidden("you can only modify your own account")
	}
	return nil
}

// AuthorizeOwnerListing checks that an owner lists only their own
// properties through the private listing route.
func (as *AuthorizationService) AuthorizeOwnerListing(p domain.Principal, ownerID string) error {
	if p.ID == "" || p.ID != ownerID {
		as.deny(p, "property", ownerID, "listing another owner's properties")
		return domain.Forbidden("you can only list your own properties")
	}
	return nil
}

func (as *AuthorizationService) deny(p domain.Principal, resource, resourceID, reason string) {
	metrics.ObserveAuthorizationDenied(resource)
	as.logger.Warn("authorization denied",
		slog.String("user_id", p.ID),
		slog.String("role", string(p.Role)),
		slog.String("resource", resource),
		slog.String("resource_id", resourceID),
		slog.String("reason", reason),
	)
}
