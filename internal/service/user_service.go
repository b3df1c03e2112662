package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/kushtati/kushtati-immo-api/internal/domain"
	"github.com/kushtati/kushtati-immo-api/internal/observability/metrics"
	"github.com/kushtati/kushtati-immo-api/internal/security"
	"github.com/kushtati/kushtati-immo-api/internal/security/audit"
)

// UserService manages profiles, account deletion and the user directories.
type UserService struct {
	users    domain.UserRepository
	tx       domain.Transactor
	authz    *security.AuthorizationService
	audit    *audit.Logger
	validate *Validator
	logger   *slog.Logger
}

func NewUserService(
	users domain.UserRepository,
	tx domain.Transactor,
	authz *security.AuthorizationService,
	auditLog *audit.Logger,
	logger *slog.Logger,
) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{
		users:    users,
		tx:       tx,
		authz:    authz,
		audit:    auditLog,
		validate: NewValidator(),
		logger:   logger,
	}
}

// UpdateUserInput is a partial profile update. Nil fields are kept.
type UpdateUserInput struct {
	Email           *string      `json:"email" validate:"omitempty,email,max=255"`
	Name            *string      `json:"name" validate:"omitempty,min=2,max=255,personname"`
	Phone           *string      `json:"phone" validate:"omitempty,phone"`
	Password        *string      `json:"password" validate:"omitempty,min=8,max=72"`
	CurrentPassword *string      `json:"current_password"`
	Role            *domain.Role `json:"role"`
}

func (s *UserService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, storageError(s.logger, "get user", err, "user not found")
	}
	return user, nil
}

// UpdateProfile applies a self-service profile change. Changing the email
// re-checks uniqueness; changing the password requires the current one.
func (s *UserService) UpdateProfile(ctx context.Context, p domain.Principal, userID string, in UpdateUserInput) (*domain.User, error) {
	if err := s.authz.AuthorizeSelf(p, userID); err != nil {
		return nil, err
	}

	if in.Email != nil {
		e := normalizeEmail(*in.Email)
		in.Email = &e
	}
	if in.Name != nil {
		n := strings.TrimSpace(*in.Name)
		in.Name = &n
	}
	if in.Phone != nil {
		ph := strings.TrimSpace(*in.Phone)
		in.Phone = &ph
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, storageError(s.logger, "get user", err, "user not found")
	}
	if in.Role != nil && *in.Role != user.Role {
		return nil, domain.BadRequest("validation failed",
			domain.FieldError{Field: "role", Message: "cannot be changed"})
	}

	if in.Email != nil && *in.Email != user.Email {
		existing, err := s.users.GetByEmail(ctx, *in.Email)
		switch {
		case err == nil && existing.ID != user.ID:
			return nil, domain.Conflict("email already registered")
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			return nil, storageError(s.logger, "lookup email", err, "user not found")
		}
		user.Email = *in.Email
	}
	if in.Name != nil {
		user.Name = *in.Name
	}
	if in.Phone != nil {
		// An explicit empty phone clears it.
		user.Phone = trimOptional(in.Phone)
	}
	if in.Password != nil {
		if in.CurrentPassword == nil || *in.CurrentPassword == "" {
			return nil, domain.BadRequest("current password is required to set a new password",
				domain.FieldError{Field: "current_password", Message: "is required"})
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(*in.CurrentPassword)); err != nil {
			return nil, domain.Unauthorized("current password is incorrect")
		}
		hash, err := hashPassword(*in.Password)
		if err != nil {
			s.logger.Error("failed to hash password", slog.String("error", err.Error()))
			return nil, domain.Internal(err)
		}
		user.PasswordHash = hash
	}

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, domain.Conflict("email already registered")
		}
		return nil, storageError(s.logger, "update user", err, "user not found")
	}

	s.logger.Info("profile updated", slog.String("user_id", user.ID))
	return user, nil
}

// DeleteAccount removes the caller's account with everything that depends
// on it, in one transaction, and returns what was removed.
func (s *UserService) DeleteAccount(ctx context.Context, p domain.Principal, userID string) (*domain.CascadeSummary, error) {
	if err := s.authz.AuthorizeSelf(p, userID); err != nil {
		return nil, err
	}

	var summary *domain.CascadeSummary
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		summary, err = s.users.DeleteCascade(ctx, userID)
		return err
	})
	if err != nil {
		return nil, storageError(s.logger, "delete user", err, "user not found")
	}

	s.audit.LogCascade(ctx, p.ID, "user", userID, summary)
	metrics.ObserveCascade(summary.Payments, summary.Contracts, summary.Properties, summary.Users)
	return summary, nil
}

// ListAll is the full account directory. Only owners may read it; they can
// already see every owner and tenant through the two role directories.
func (s *UserService) ListAll(ctx context.Context, p domain.Principal) ([]*domain.User, error) {
	if err := s.authz.ValidatePermission(p, security.PermListUsers); err != nil {
		return nil, err
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, storageError(s.logger, "list users", err, "user not found")
	}
	return users, nil
}

// ListOwners is the public owner directory.
func (s *UserService) ListOwners(ctx context.Context) ([]*domain.User, error) {
	owners, err := s.users.ListByRole(ctx, domain.RoleOwner)
	if err != nil {
		return nil, storageError(s.logger, "list owners", err, "user not found")
	}
	return owners, nil
}

// ListTenants lets owners pick a tenant when drafting a contract.
func (s *UserService) ListTenants(ctx context.Context, p domain.Principal) ([]*domain.User, error) {
	if err := s.authz.ValidatePermission(p, security.PermListTenants); err != nil {
		return nil, err
	}
	tenants, err := s.users.ListByRole(ctx, domain.RoleTenant)
	if err != nil {
		return nil, storageError(s.logger, "list tenants", err, "user not found")
	}
	return tenants, nil
}
