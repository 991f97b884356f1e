package service

import (
	"context"
	"fmt"
	"time"

	"github.com/alexedwards/argon2id"

	"github.com/diagnosis/quickstay/internal/domain"
	"github.com/diagnosis/quickstay/internal/platform/mailer"
	"github.com/diagnosis/quickstay/internal/repo/postgres"
	"github.com/diagnosis/quickstay/pkg/auth"
	"github.com/diagnosis/quickstay/pkg/config"
	"github.com/diagnosis/quickstay/pkg/events"
	"github.com/diagnosis/quickstay/pkg/logger"
)

type AuthService interface {
	Register(ctx context.Context, req *domain.RegisterRequest) (*domain.User, error)
	Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error)
	GetProfile(ctx context.Context, userID int64) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID int64, req *domain.UpdateProfileRequest) (*domain.User, error)
	ChangePassword(ctx context.Context, userID int64, req *domain.ChangePasswordRequest) error
	Deactivate(ctx context.Context, userID int64) error
}

type authService struct {
	users    postgres.UsersRepo
	mailer   mailer.Service
	eventBus events.Publisher
	config   config.AuthConfig
	now      func() time.Time
}

func NewAuthService(
	users postgres.UsersRepo,
	mailer mailer.Service,
	eventBus events.Publisher,
	cfg config.AuthConfig,
) AuthService {
	return &authService{
		users:    users,
		mailer:   mailer,
		eventBus: eventBus,
		config:   cfg,
		now:      time.Now,
	}
}

func (s *authService) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.User, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "find user", Err: err}
	}
	if existing != nil {
		return nil, domain.ErrEmailTaken
	}
	existing, err = s.users.FindByUsername(ctx, req.Username)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "find user", Err: err}
	}
	if existing != nil {
		return nil, domain.ErrUsernameTaken
	}

	hash, err := argon2id.CreateHash(req.Password, argon2id.DefaultParams)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.Create(ctx, &domain.User{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Username:     req.Username,
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		IsActive:     true,
	})
	if err == domain.ErrEmailTaken || err == domain.ErrUsernameTaken {
		return nil, err
	}
	if err != nil {
		logger.ErrorContext(ctx, "Failed to create user", "error", err)
		return nil, &domain.PersistenceError{Op: "create user", Err: err}
	}

	if err := s.mailer.SendWelcome(ctx, user.Email, user.DisplayName()); err != nil {
		logger.WarnContext(ctx, "Failed to send welcome email", "error", err, "user_id", user.ID)
	}

	s.publish(ctx, events.AccountRegistered, user)
	logger.InfoContext(ctx, "User registered", "user_id", user.ID)
	return user, nil
}

func (s *authService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "find user", Err: err}
	}
	if user == nil {
		return nil, domain.ErrInvalidCredentials
	}

	valid, err := argon2id.ComparePasswordAndHash(req.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !valid {
		return nil, domain.ErrInvalidCredentials
	}
	if user.IsBlocked() {
		return nil, domain.NewStateErrorFrom(domain.ErrAccountDeactivated)
	}

	token, err := auth.NewAccessToken(user.ID, user.Email, user.Role, s.config.JWTSecret, s.config.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}

	return &domain.LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.config.AccessTokenTTL.Seconds()),
		User:        user.ToProfile(),
	}, nil
}

func (s *authService) GetProfile(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "find user", Err: err}
	}
	if user == nil {
		return nil, &domain.NotFoundError{Resource: "User"}
	}
	return user, nil
}

func (s *authService) UpdateProfile(ctx context.Context, userID int64, req *domain.UpdateProfileRequest) (*domain.User, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	before := *user
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}

	if err := s.users.UpdateProfile(ctx, user); err != nil {
		*user = before
		logger.ErrorContext(ctx, "Failed to update profile", "error", err, "user_id", userID)
		return nil, &domain.PersistenceError{Op: "update profile", Err: err}
	}
	return user, nil
}

func (s *authService) ChangePassword(ctx context.Context, userID int64, req *domain.ChangePasswordRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return err
	}

	valid, err := argon2id.ComparePasswordAndHash(req.CurrentPassword, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("failed to verify password: %w", err)
	}
	if !valid {
		return domain.NewValidationError("current_password", "Current password is incorrect")
	}

	hash, err := argon2id.CreateHash(req.NewPassword, argon2id.DefaultParams)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		logger.ErrorContext(ctx, "Failed to update password", "error", err, "user_id", userID)
		return &domain.PersistenceError{Op: "update password", Err: err}
	}
	return nil
}

// Deactivate is a soft delete; bookings and reviews stay attached to the account.
func (s *authService) Deactivate(ctx context.Context, userID int64) error {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return err
	}
	if user.IsBlocked() {
		return domain.NewStateErrorFrom(domain.ErrAccountDeactivated)
	}
	if err := s.users.SetActive(ctx, userID, false); err != nil {
		return &domain.PersistenceError{Op: "deactivate user", Err: err}
	}
	user.IsActive = false

	s.publish(ctx, events.AccountDeactivated, user)
	logger.InfoContext(ctx, "Account deactivated", "user_id", userID)
	return nil
}

func (s *authService) publish(ctx context.Context, subject string, user *domain.User) {
	evt := events.AccountEvent{UserID: user.ID, Email: user.Email, OccurredAt: s.now()}
	if err := s.eventBus.Publish(ctx, subject, evt); err != nil {
		logger.ErrorContext(ctx, "Failed to publish event", "error", err, "subject", subject)
	}
}
