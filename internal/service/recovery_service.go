package service

import (
	"context"
	"fmt"
	"time"

	"github.com/alexedwards/argon2id"

	"github.com/diagnosis/quickstay/internal/domain"
	"github.com/diagnosis/quickstay/internal/platform/mailer"
	"github.com/diagnosis/quickstay/internal/platform/session"
	"github.com/diagnosis/quickstay/internal/repo/postgres"
	"github.com/diagnosis/quickstay/pkg/config"
	"github.com/diagnosis/quickstay/pkg/events"
	"github.com/diagnosis/quickstay/pkg/logger"
)

// RecoveryService runs the password reset flow. Every method expects a recovery
// session in ctx (see session.WithSession).
type RecoveryService interface {
	RequestOTP(ctx context.Context, req *domain.ForgotPasswordRequest) error
	VerifyOTP(ctx context.Context, req *domain.VerifyOTPRequest) error
	ResetPassword(ctx context.Context, req *domain.ResetPasswordRequest) error
	ResendOTP(ctx context.Context) error
}

type recoveryService struct {
	users    postgres.UsersRepo
	mailer   mailer.Service
	eventBus events.Publisher
	otp      config.OTPConfig
	now      func() time.Time
}

func NewRecoveryService(
	users postgres.UsersRepo,
	mailer mailer.Service,
	eventBus events.Publisher,
	otp config.OTPConfig,
) RecoveryService {
	return &recoveryService{
		users:    users,
		mailer:   mailer,
		eventBus: eventBus,
		otp:      otp,
		now:      time.Now,
	}
}

func (s *recoveryService) RequestOTP(ctx context.Context, req *domain.ForgotPasswordRequest) error {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return err
	}

	sess, err := session.FromContext(ctx)
	if err != nil {
		return err
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to look up user for password reset", "error", err)
		return &domain.PersistenceError{Op: "find user", Err: err}
	}

	if user == nil {
		// Unknown addresses get the same answer as known ones. Nothing is sent.
		logger.InfoContext(ctx, "Password reset requested for unknown email")
		return s.beginSession(ctx, sess, req.Email)
	}

	if user.IsBlocked() {
		return domain.NewStateErrorFrom(domain.ErrAccountDeactivated)
	}

	if err := s.issueOTP(ctx, user, "request"); err != nil {
		return err
	}
	if err := s.beginSession(ctx, sess, user.Email); err != nil {
		return err
	}
	if err := s.sendOTP(ctx, user); err != nil {
		return err
	}

	s.publish(ctx, events.PasswordResetIssued, user)
	return nil
}

func (s *recoveryService) VerifyOTP(ctx context.Context, req *domain.VerifyOTPRequest) error {
	sess, err := session.FromContext(ctx)
	if err != nil {
		return err
	}

	email, ok, err := sess.Get(ctx, session.KeyResetEmail)
	if err != nil {
		return &domain.PersistenceError{Op: "read session", Err: err}
	}
	if !ok {
		return domain.NewStateErrorFrom(domain.ErrRecoverySessionEmpty)
	}

	req.Normalize()
	if err := req.Validate(s.otp.Length); err != nil {
		return err
	}

	// Re-read so a concurrent resend is always observed before comparing.
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to load user for OTP verification", "error", err)
		return &domain.PersistenceError{Op: "find user", Err: err}
	}
	if user != nil && user.IsBlocked() {
		return domain.NewStateErrorFrom(domain.ErrAccountDeactivated)
	}
	if user == nil || !user.VerifyOTP(req.OTP, s.now()) {
		otpVerifications.WithLabelValues("rejected").Inc()
		return domain.NewValidationError("otp", domain.ErrInvalidOTP.Error())
	}

	if err := sess.Set(ctx, session.KeyOTPVerified, "true"); err != nil {
		return &domain.PersistenceError{Op: "write session", Err: err}
	}
	otpVerifications.WithLabelValues("accepted").Inc()
	logger.InfoContext(ctx, "OTP verified", "user_id", user.ID)
	return nil
}

func (s *recoveryService) ResetPassword(ctx context.Context, req *domain.ResetPasswordRequest) error {
	sess, err := session.FromContext(ctx)
	if err != nil {
		return err
	}

	email, hasEmail, err := sess.Get(ctx, session.KeyResetEmail)
	if err != nil {
		return &domain.PersistenceError{Op: "read session", Err: err}
	}
	verified, hasFlag, err := sess.Get(ctx, session.KeyOTPVerified)
	if err != nil {
		return &domain.PersistenceError{Op: "read session", Err: err}
	}
	if !hasEmail || !hasFlag || verified != "true" {
		return domain.NewStateErrorFrom(domain.ErrOTPNotVerified)
	}

	if err := req.Validate(); err != nil {
		return err
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return &domain.PersistenceError{Op: "find user", Err: err}
	}
	if user == nil {
		s.endSession(ctx, sess)
		return domain.NewStateErrorFrom(domain.ErrRecoverySessionEmpty)
	}
	if user.IsBlocked() {
		return domain.NewStateErrorFrom(domain.ErrAccountDeactivated)
	}

	hash, err := argon2id.CreateHash(req.NewPassword, argon2id.DefaultParams)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	prevHash, prevCode, prevExpiry := user.PasswordHash, user.OTPCode, user.OTPExpiresAt
	user.PasswordHash = hash
	user.ClearOTP()
	if err := s.users.ResetPassword(ctx, user.ID, hash); err != nil {
		user.PasswordHash, user.OTPCode, user.OTPExpiresAt = prevHash, prevCode, prevExpiry
		logger.ErrorContext(ctx, "Failed to store new password", "error", err, "user_id", user.ID)
		return &domain.PersistenceError{Op: "reset password", Err: err}
	}

	s.endSession(ctx, sess)
	passwordResets.Inc()

	if err := s.mailer.SendResetConfirmation(ctx, user.Email, user.DisplayName()); err != nil {
		logger.WarnContext(ctx, "Failed to send reset confirmation", "error", err, "user_id", user.ID)
	}

	s.publish(ctx, events.PasswordResetApplied, user)
	logger.InfoContext(ctx, "Password reset completed", "user_id", user.ID)
	return nil
}

func (s *recoveryService) ResendOTP(ctx context.Context) error {
	sess, err := session.FromContext(ctx)
	if err != nil {
		return err
	}

	email, ok, err := sess.Get(ctx, session.KeyResetEmail)
	if err != nil {
		return &domain.PersistenceError{Op: "read session", Err: err}
	}
	if !ok {
		return domain.NewStateErrorFrom(domain.ErrRecoverySessionEmpty)
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return &domain.PersistenceError{Op: "find user", Err: err}
	}
	if user == nil {
		logger.InfoContext(ctx, "OTP resend for unknown email")
		return nil
	}
	if user.IsBlocked() {
		return domain.NewStateErrorFrom(domain.ErrAccountDeactivated)
	}

	if err := s.issueOTP(ctx, user, "resend"); err != nil {
		return err
	}
	if err := sess.Delete(ctx, session.KeyOTPVerified); err != nil {
		return &domain.PersistenceError{Op: "write session", Err: err}
	}
	if err := s.sendOTP(ctx, user); err != nil {
		return err
	}

	s.publish(ctx, events.PasswordResetIssued, user)
	return nil
}

// issueOTP replaces the user's code and persists it. The in-memory user is
// restored if the write fails.
func (s *recoveryService) issueOTP(ctx context.Context, user *domain.User, trigger string) error {
	code, err := domain.GenerateOTP(s.otp.Length)
	if err != nil {
		return fmt.Errorf("failed to generate otp: %w", err)
	}

	prevCode, prevExpiry := user.OTPCode, user.OTPExpiresAt
	user.SetOTP(code, s.now(), s.otp.TTL)
	if err := s.users.SetOTP(ctx, user.ID, code, *user.OTPExpiresAt); err != nil {
		user.OTPCode, user.OTPExpiresAt = prevCode, prevExpiry
		logger.ErrorContext(ctx, "Failed to store OTP", "error", err, "user_id", user.ID)
		return &domain.PersistenceError{Op: "store otp", Err: err}
	}

	otpIssued.WithLabelValues(trigger).Inc()
	return nil
}

func (s *recoveryService) sendOTP(ctx context.Context, user *domain.User) error {
	if err := s.mailer.SendOTP(ctx, user.Email, *user.OTPCode, user.DisplayName()); err != nil {
		logger.ErrorContext(ctx, "Failed to send OTP email", "error", err, "user_id", user.ID)
		return &domain.NotificationError{Kind: "otp", Err: err}
	}
	logger.InfoContext(ctx, "OTP sent", "user_id", user.ID)
	return nil
}

// beginSession points the session at email and drops any earlier verification.
func (s *recoveryService) beginSession(ctx context.Context, sess session.Session, email string) error {
	if err := sess.Set(ctx, session.KeyResetEmail, email); err != nil {
		return &domain.PersistenceError{Op: "write session", Err: err}
	}
	if err := sess.Delete(ctx, session.KeyOTPVerified); err != nil {
		return &domain.PersistenceError{Op: "write session", Err: err}
	}
	return nil
}

func (s *recoveryService) endSession(ctx context.Context, sess session.Session) {
	if err := sess.Delete(ctx, session.KeyResetEmail, session.KeyOTPVerified); err != nil {
		logger.WarnContext(ctx, "Failed to clear recovery session", "error", err)
	}
}

func (s *recoveryService) publish(ctx context.Context, subject string, user *domain.User) {
	evt := events.AccountEvent{UserID: user.ID, Email: user.Email, OccurredAt: s.now()}
	if err := s.eventBus.Publish(ctx, subject, evt); err != nil {
		logger.ErrorContext(ctx, "Failed to publish event", "error", err, "subject", subject)
	}
}
