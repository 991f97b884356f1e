package postgres

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IdempotencyRepo remembers which booking an Idempotency-Key produced for a user.
type IdempotencyRepo interface {
	// FindBooking returns the booking created earlier with key, or 0 when none is recorded.
	FindBooking(ctx context.Context, userID int64, key string) (int64, error)
	Save(ctx context.Context, userID int64, key string, bookingID int64) error
	CleanupExpired(ctx context.Context) (int64, error)
}

type IdempotencyRepoImpl struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

func NewIdempotencyRepo(pool *pgxpool.Pool) *IdempotencyRepoImpl {
	return &IdempotencyRepoImpl{pool: pool, ttl: 24 * time.Hour}
}

// keyHash scopes the client key to the user so two accounts never share a slot.
func keyHash(userID int64, key string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d:%s", userID, key)))
	return fmt.Sprintf("%x", sum)
}

func (r *IdempotencyRepoImpl) FindBooking(ctx context.Context, userID int64, key string) (int64, error) {
	const q = `SELECT booking_id FROM booking_idempotency WHERE key_hash = $1 AND expires_at > now()`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var bookingID int64
	err := r.pool.QueryRow(ctx, q, keyHash(userID, key)).Scan(&bookingID)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return bookingID, nil
}

func (r *IdempotencyRepoImpl) Save(ctx context.Context, userID int64, key string, bookingID int64) error {
	const q = `
		INSERT INTO booking_idempotency (key_hash, user_id, booking_id, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key_hash) DO UPDATE SET
			booking_id = EXCLUDED.booking_id,
			expires_at = EXCLUDED.expires_at
		WHERE booking_idempotency.expires_at < now()`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, keyHash(userID, key), userID, bookingID, time.Now().Add(r.ttl))
	return err
}

func (r *IdempotencyRepoImpl) CleanupExpired(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	query := `DELETE FROM booking_idempotency WHERE expires_at < now()`
	result, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected(), nil
}

var _ IdempotencyRepo = (*IdempotencyRepoImpl)(nil)
