package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/diagnosis/quickstay/internal/domain"
)

type ReviewsRepo interface {
	CreateAndRefreshRating(ctx context.Context, rv *domain.Review) (*domain.Review, float64, error)
	ListByRoom(ctx context.Context, roomID int64, limit, offset int) ([]domain.Review, error)
}

type ReviewsRepoImpl struct{ pool *pgxpool.Pool }

func NewReviewsRepo(pool *pgxpool.Pool) *ReviewsRepoImpl { return &ReviewsRepoImpl{pool: pool} }

const reviewCols = `id, user_id, room_id, rating, comment, created_at`

// CreateAndRefreshRating inserts the review and stores the room's new average
// rating in the same transaction.
func (r *ReviewsRepoImpl) CreateAndRefreshRating(ctx context.Context, rv *domain.Review) (*domain.Review, float64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var roomID int64
	if err := tx.QueryRow(ctx, `SELECT id FROM rooms WHERE id=$1 FOR UPDATE`, rv.RoomID).Scan(&roomID); err != nil {
		if err == pgx.ErrNoRows {
			return nil, 0, &domain.NotFoundError{Resource: "Room"}
		}
		return nil, 0, err
	}

	var created domain.Review
	if err := tx.QueryRow(ctx, `
INSERT INTO reviews (user_id, room_id, rating, comment)
VALUES ($1,$2,$3,$4)
RETURNING `+reviewCols, rv.UserID, rv.RoomID, rv.Rating, rv.Comment).Scan(
		&created.ID, &created.UserID, &created.RoomID, &created.Rating, &created.Comment, &created.CreatedAt,
	); err != nil {
		return nil, 0, err
	}

	rows, err := tx.Query(ctx, `SELECT rating FROM reviews WHERE room_id=$1`, rv.RoomID)
	if err != nil {
		return nil, 0, err
	}
	ratings, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return nil, 0, err
	}
	avg := domain.AverageRating(ratings)

	if _, err := tx.Exec(ctx, `UPDATE rooms SET rating=$2, updated_at=now() WHERE id=$1`, rv.RoomID, avg); err != nil {
		return nil, 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, 0, err
	}
	return &created, avg, nil
}

func (r *ReviewsRepoImpl) ListByRoom(ctx context.Context, roomID int64, limit, offset int) ([]domain.Review, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	const q = `SELECT ` + reviewCols + ` FROM reviews WHERE room_id=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.pool.Query(ctx, q, roomID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Review, 0, limit)
	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(&rv.ID, &rv.UserID, &rv.RoomID, &rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

var _ ReviewsRepo = (*ReviewsRepoImpl)(nil)
