package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/diagnosis/quickstay/internal/domain"
	"github.com/diagnosis/quickstay/pkg/auth"
	"github.com/diagnosis/quickstay/pkg/config"
	"github.com/diagnosis/quickstay/pkg/events"
)

const testSecret = "test-secret-with-enough-entropy"

func newAuthFixture(t *testing.T, users ...*domain.User) (*authService, *fakeUsers, *mockMailer, *recordingPublisher) {
	t.Helper()
	fu := newFakeUsers(users...)
	m := &mockMailer{}
	bus := &recordingPublisher{}
	svc := &authService{
		users:    fu,
		mailer:   m,
		eventBus: bus,
		config:   config.AuthConfig{JWTSecret: testSecret, AccessTokenTTL: 15 * time.Minute},
		now:      time.Now,
	}
	return svc, fu, m, bus
}

func userWithPassword(t *testing.T, password string) *domain.User {
	t.Helper()
	hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	require.NoError(t, err)
	u := ada()
	u.PasswordHash = hash
	return u
}

func TestAuth_Register(t *testing.T) {
	svc, fu, m, bus := newAuthFixture(t)
	m.On("SendWelcome", mock.Anything, "grace@example.com", "Grace Hopper").Return(errors.New("smtp down"))

	req := &domain.RegisterRequest{
		FirstName:       "Grace",
		LastName:        "Hopper",
		Username:        "grace",
		Email:           "Grace@Example.com",
		Password:        "C0bol-Rules!",
		ConfirmPassword: "C0bol-Rules!",
	}
	u, err := svc.Register(context.Background(), req)
	require.NoError(t, err, "welcome mail failure does not fail registration")
	assert.Equal(t, "grace@example.com", u.Email)
	assert.True(t, u.IsActive)
	assert.Equal(t, domain.RoleUser, u.Role)

	stored := fu.get(u.ID)
	ok, err := argon2id.ComparePasswordAndHash("C0bol-Rules!", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{events.AccountRegistered}, bus.published())

	dup := *req
	_, err = svc.Register(context.Background(), &dup)
	assert.ErrorIs(t, err, domain.ErrEmailTaken)

	dup = *req
	dup.Email = "other@example.com"
	_, err = svc.Register(context.Background(), &dup)
	assert.ErrorIs(t, err, domain.ErrUsernameTaken)
}

func TestAuth_Login(t *testing.T) {
	svc, fu, _, _ := newAuthFixture(t, userWithPassword(t, "Secret123!"))
	ctx := context.Background()

	resp, err := svc.Login(ctx, &domain.LoginRequest{Email: "ADA@example.com", Password: "Secret123!"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, int64(900), resp.ExpiresIn)
	assert.Equal(t, "Ada Lovelace", resp.User.FullName)

	claims, err := auth.Parse(resp.AccessToken, testSecret)
	require.NoError(t, err)
	assert.Equal(t, int64(1), claims.Sub)
	assert.Equal(t, domain.RoleUser, claims.Role)

	_, err = svc.Login(ctx, &domain.LoginRequest{Email: "ada@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = svc.Login(ctx, &domain.LoginRequest{Email: "nobody@example.com", Password: "Secret123!"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	require.NoError(t, fu.SetActive(ctx, 1, false))
	_, err = svc.Login(ctx, &domain.LoginRequest{Email: "ada@example.com", Password: "Secret123!"})
	requireStateError(t, err, domain.ErrAccountDeactivated)
}

func TestAuth_ProfileAndPassword(t *testing.T) {
	svc, fu, _, bus := newAuthFixture(t, userWithPassword(t, "Secret123!"))
	ctx := context.Background()

	phone := "+1 555-123-4567"
	last := ""
	u, err := svc.UpdateProfile(ctx, 1, &domain.UpdateProfileRequest{Phone: &phone, LastName: &last})
	require.NoError(t, err)
	assert.Equal(t, "+15551234567", u.Phone)
	assert.Equal(t, "Ada", u.FullName())
	assert.Equal(t, "+15551234567", fu.get(1).Phone)

	err = svc.ChangePassword(ctx, 1, &domain.ChangePasswordRequest{
		CurrentPassword: "nope", NewPassword: "Newer123!", ConfirmPassword: "Newer123!",
	})
	assert.Equal(t, "Current password is incorrect", validationReason(t, err))

	require.NoError(t, svc.ChangePassword(ctx, 1, &domain.ChangePasswordRequest{
		CurrentPassword: "Secret123!", NewPassword: "Newer123!", ConfirmPassword: "Newer123!",
	}))
	ok, _ := argon2id.ComparePasswordAndHash("Newer123!", fu.get(1).PasswordHash)
	assert.True(t, ok)

	require.NoError(t, svc.Deactivate(ctx, 1))
	assert.False(t, fu.get(1).IsActive)
	requireStateError(t, svc.Deactivate(ctx, 1), domain.ErrAccountDeactivated)
	assert.Equal(t, []string{events.AccountDeactivated}, bus.published())

	_, err = svc.GetProfile(ctx, 404)
	var nf *domain.NotFoundError
	assert.True(t, errors.As(err, &nf))
}
