package postgres

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type RateLimitRepo interface {
	// Allow counts one hit against key and reports whether it stays within limit per window.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	CleanupExpired(ctx context.Context) (int64, error)
}

type RateLimitRepoImpl struct{ pool *pgxpool.Pool }

func NewRateLimitRepo(pool *pgxpool.Pool) *RateLimitRepoImpl { return &RateLimitRepoImpl{pool: pool} }

func (r *RateLimitRepoImpl) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	hashed := fmt.Sprintf("%x", sha256.Sum256([]byte(key)))

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	now := time.Now()
	windowStart := now.Add(-window)

	const q = `
		INSERT INTO rate_limits (key, count, window_start, expires_at)
		VALUES ($1, 1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET
			count = CASE
				WHEN rate_limits.window_start < $4 THEN 1
				ELSE rate_limits.count + 1
			END,
			window_start = CASE
				WHEN rate_limits.window_start < $4 THEN $2
				ELSE rate_limits.window_start
			END,
			expires_at = $3
		RETURNING count`

	var count int
	if err := r.pool.QueryRow(ctx, q, hashed, now, now.Add(window), windowStart).Scan(&count); err != nil {
		// fail open
		return true, err
	}
	return count <= limit, nil
}

func (r *RateLimitRepoImpl) CleanupExpired(ctx context.Context) (int64, error) {
	const q = `DELETE FROM rate_limits WHERE expires_at < now()`
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	ct, err := r.pool.Exec(ctx, q)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

var _ RateLimitRepo = (*RateLimitRepoImpl)(nil)
