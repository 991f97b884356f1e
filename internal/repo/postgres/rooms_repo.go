package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/diagnosis/quickstay/internal/domain"
)

type RoomsRepo interface {
	Create(ctx context.Context, room *domain.Room) (*domain.Room, error)
	GetByID(ctx context.Context, id int64) (*domain.Room, error)
	List(ctx context.Context, filter domain.RoomFilter) ([]domain.Room, error)
	UpdateStatus(ctx context.Context, id int64, status domain.RoomStatus) error
	HasActiveBookings(ctx context.Context, id int64) (bool, error)
}

type RoomsRepoImpl struct{ pool *pgxpool.Pool }

func NewRoomsRepo(pool *pgxpool.Pool) *RoomsRepoImpl { return &RoomsRepoImpl{pool: pool} }

const roomCols = `id, name, room_type, description, price_per_night::float8, max_guests, room_size,
amenities, image, status, rating::float8, created_at, updated_at`

func scanRoom(row pgx.Row) (*domain.Room, error) {
	var rm domain.Room
	if err := row.Scan(
		&rm.ID, &rm.Name, &rm.RoomType, &rm.Description, &rm.PricePerNight, &rm.MaxGuests, &rm.RoomSize,
		&rm.Amenities, &rm.Image, &rm.Status, &rm.Rating, &rm.CreatedAt, &rm.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &rm, nil
}

func (r *RoomsRepoImpl) Create(ctx context.Context, room *domain.Room) (*domain.Room, error) {
	const q = `
INSERT INTO rooms (name, room_type, description, price_per_night, max_guests, room_size, amenities, image, status)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
RETURNING ` + roomCols
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	status := room.Status
	if status == "" {
		status = domain.RoomAvailable
	}
	return scanRoom(r.pool.QueryRow(ctx, q,
		room.Name, room.RoomType, room.Description, room.PricePerNight, room.MaxGuests,
		room.RoomSize, room.Amenities, room.Image, status,
	))
}

func (r *RoomsRepoImpl) GetByID(ctx context.Context, id int64) (*domain.Room, error) {
	const q = `SELECT ` + roomCols + ` FROM rooms WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rm, err := scanRoom(r.pool.QueryRow(ctx, q, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return rm, err
}

func (r *RoomsRepoImpl) List(ctx context.Context, filter domain.RoomFilter) ([]domain.Room, error) {
	limit, offset := filter.Limit, filter.Offset
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var where []string
	var args []any
	if filter.Status != nil {
		args = append(args, *filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.RoomType != nil {
		args = append(args, *filter.RoomType)
		where = append(where, fmt.Sprintf("room_type = $%d", len(args)))
	}

	q := `SELECT ` + roomCols + ` FROM rooms`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, limit, offset)
	q += fmt.Sprintf(` ORDER BY price_per_night ASC, id ASC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rooms := make([]domain.Room, 0, limit)
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, *rm)
	}
	return rooms, rows.Err()
}

func (r *RoomsRepoImpl) UpdateStatus(ctx context.Context, id int64, status domain.RoomStatus) error {
	const q = `UPDATE rooms SET status=$2, updated_at=now() WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	ct, err := r.pool.Exec(ctx, q, id, status)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// HasActiveBookings reports pending or confirmed bookings that have not checked out yet.
func (r *RoomsRepoImpl) HasActiveBookings(ctx context.Context, id int64) (bool, error) {
	const q = `
SELECT EXISTS (
	SELECT 1 FROM bookings
	WHERE room_id=$1 AND status IN ('pending','confirmed') AND check_out_date > CURRENT_DATE
)`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var exists bool
	err := r.pool.QueryRow(ctx, q, id).Scan(&exists)
	return exists, err
}

var _ RoomsRepo = (*RoomsRepoImpl)(nil)
