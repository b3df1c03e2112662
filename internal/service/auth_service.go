package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/kushtati/kushtati-immo-api/internal/domain"
	"github.com/kushtati/kushtati-immo-api/internal/observability/metrics"
	"github.com/kushtati/kushtati-immo-api/internal/security/auth"
)

// hashCost is the bcrypt work factor for new password hashes.
var hashCost = bcrypt.DefaultCost

const invalidCredentials = "invalid email or password"

// AuthService handles registration and login
type AuthService struct {
	users    domain.UserRepository
	tokens   *auth.TokenManager
	validate *Validator
	logger   *slog.Logger
}

func NewAuthService(users domain.UserRepository, tokens *auth.TokenManager, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		users:    users,
		tokens:   tokens,
		validate: NewValidator(),
		logger:   logger,
	}
}

type RegisterInput struct {
	Email    string      `json:"email" validate:"required,email,max=255"`
	Password string      `json:"password" validate:"required,min=8,max=72"`
	Name     string      `json:"name" validate:"required,min=2,max=255,personname"`
	Phone    *string     `json:"phone" validate:"omitempty,phone"`
	Role     domain.Role `json:"role" validate:"required,oneof=owner tenant"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResult is returned by register and login
type AuthResult struct {
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	ExpiresAt time.Time    `json:"expires_at"`
	ExpiresIn int64        `json:"expires_in"` // seconds
	User      *domain.User `json:"user"`
}

// Register creates a new account and signs its first credential
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Email = normalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = trimOptional(in.Phone)
	if err := s.validate.Struct(in); err != nil {
		metrics.ObserveAuthAttempt("register", "invalid")
		return nil, err
	}

	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		metrics.ObserveAuthAttempt("register", "conflict")
		return nil, domain.Conflict("email already registered")
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, storageError(s.logger, "lookup email", err, "user not found")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), hashCost)
	if err != nil {
		s.logger.Error("failed to hash password", slog.String("error", err.Error()))
		return nil, domain.Internal(err)
	}

	user := &domain.User{
		Email:        in.Email,
		PasswordHash: string(hash),
		Name:         in.Name,
		Phone:        in.Phone,
		Role:         in.Role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// A concurrent registration can win the race past the pre-check.
		if errors.Is(err, domain.ErrDuplicate) {
			metrics.ObserveAuthAttempt("register", "conflict")
			return nil, domain.Conflict("email already registered")
		}
		return nil, storageError(s.logger, "create user", err, "user not found")
	}

	result, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	metrics.ObserveAuthAttempt("register", "success")
	s.logger.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("role", string(user.Role)),
	)
	return result, nil
}

// Login authenticates a user and returns a JWT token. Unknown emails and
// wrong passwords fail identically.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	in.Email = normalizeEmail(in.Email)
	if err := s.validate.Struct(in); err != nil {
		metrics.ObserveAuthAttempt("login", "invalid")
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Info("login attempt with unknown email")
			metrics.ObserveAuthAttempt("login", "failure")
			return nil, domain.Unauthorized(invalidCredentials)
		}
		return nil, storageError(s.logger, "lookup email", err, "user not found")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		s.logger.Info("login failed with wrong password", slog.String("user_id", user.ID))
		metrics.ObserveAuthAttempt("login", "failure")
		return nil, domain.Unauthorized(invalidCredentials)
	}

	result, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	metrics.ObserveAuthAttempt("login", "success")
	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	return result, nil
}

// Me returns the caller's own profile
func (s *AuthService) Me(ctx context.Context, p domain.Principal) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, p.ID)
	if err != nil {
		return nil, storageError(s.logger, "get user", err, "user not found")
	}
	return user, nil
}

func (s *AuthService) issue(user *domain.User) (*AuthResult, error) {
	token, expiresAt, err := s.tokens.GenerateToken(user)
	if err != nil {
		s.logger.Error("failed to sign token", slog.String("error", err.Error()))
		return nil, domain.Internal(err)
	}
	return &AuthResult{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: expiresAt,
		ExpiresIn: int64(s.tokens.TTL().Seconds()),
		User:      user,
	}, nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
