package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/diagnosis/quickstay/internal/domain"
)

type UsersRepo interface {
	Create(ctx context.Context, u *domain.User) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	UpdateProfile(ctx context.Context, u *domain.User) error
	UpdatePassword(ctx context.Context, id int64, hash string) error
	SetOTP(ctx context.Context, id int64, code string, expiresAt time.Time) error
	ResetPassword(ctx context.Context, id int64, hash string) error
	SetActive(ctx context.Context, id int64, active bool) error
}

type UsersRepoImpl struct{ pool *pgxpool.Pool }

func NewUsersRepo(pool *pgxpool.Pool) *UsersRepoImpl { return &UsersRepoImpl{pool: pool} }

const userCols = `id, first_name, last_name, username, email, phone, password_hash, role, is_active,
otp_code, otp_expires_at, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(
		&u.ID, &u.FirstName, &u.LastName, &u.Username, &u.Email, &u.Phone,
		&u.PasswordHash, &u.Role, &u.IsActive,
		&u.OTPCode, &u.OTPExpiresAt, &u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UsersRepoImpl) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	const q = `
INSERT INTO users (first_name, last_name, username, email, phone, password_hash, role)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING ` + userCols
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	role := u.Role
	if role == "" {
		role = domain.RoleUser
	}
	created, err := scanUser(r.pool.QueryRow(ctx, q,
		u.FirstName, u.LastName, u.Username, u.Email, u.Phone, u.PasswordHash, role,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			switch pgErr.ConstraintName {
			case "users_email_key":
				return nil, domain.ErrEmailTaken
			case "users_username_key":
				return nil, domain.ErrUsernameTaken
			}
		}
		return nil, err
	}
	return created, nil
}

func (r *UsersRepoImpl) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE email=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	u, err := scanUser(r.pool.QueryRow(ctx, q, email))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return u, err
}

func (r *UsersRepoImpl) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE username=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	u, err := scanUser(r.pool.QueryRow(ctx, q, username))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return u, err
}

func (r *UsersRepoImpl) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	u, err := scanUser(r.pool.QueryRow(ctx, q, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return u, err
}

func (r *UsersRepoImpl) UpdateProfile(ctx context.Context, u *domain.User) error {
	const q = `UPDATE users SET first_name=$2, last_name=$3, phone=$4, updated_at=now() WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.pool.Exec(ctx, q, u.ID, u.FirstName, u.LastName, u.Phone)
	return err
}

func (r *UsersRepoImpl) UpdatePassword(ctx context.Context, id int64, hash string) error {
	const q = `UPDATE users SET password_hash=$2, updated_at=now() WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.pool.Exec(ctx, q, id, hash)
	return err
}

// SetOTP replaces any outstanding code for the user.
func (r *UsersRepoImpl) SetOTP(ctx context.Context, id int64, code string, expiresAt time.Time) error {
	const q = `UPDATE users SET otp_code=$2, otp_expires_at=$3, updated_at=now() WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	ct, err := r.pool.Exec(ctx, q, id, code, expiresAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ResetPassword stores the new hash and clears the OTP in one statement.
func (r *UsersRepoImpl) ResetPassword(ctx context.Context, id int64, hash string) error {
	const q = `
UPDATE users
SET password_hash=$2, otp_code=NULL, otp_expires_at=NULL, updated_at=now()
WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	ct, err := r.pool.Exec(ctx, q, id, hash)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *UsersRepoImpl) SetActive(ctx context.Context, id int64, active bool) error {
	const q = `UPDATE users SET is_active=$2, updated_at=now() WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.pool.Exec(ctx, q, id, active)
	return err
}

var _ UsersRepo = (*UsersRepoImpl)(nil)
