package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/diagnosis/quickstay/internal/domain"
)

// PrepareBooking runs inside the creation transaction with the room row locked.
// It sees every active booking overlapping the requested dates and may fill in
// derived fields (total price) or abort with an error.
type PrepareBooking func(room *domain.Room, overlapping []domain.Booking) error

type BookingRepo interface {
	CreateIfAvailable(ctx context.Context, b *domain.Booking, prepare PrepareBooking) (*domain.Booking, error)
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	FindOverlapping(ctx context.Context, roomID int64, checkIn, checkOut time.Time, statuses []domain.BookingStatus) ([]domain.Booking, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Booking, error)
	ListByStatus(ctx context.Context, status *domain.BookingStatus, limit, offset int) ([]domain.Booking, error)
	UpdateStatus(ctx context.Context, b *domain.Booking, from domain.BookingStatus) error
}

type BookingRepoImpl struct {
	pool *pgxpool.Pool
}

func NewBookingRepo(pool *pgxpool.Pool) *BookingRepoImpl {
	return &BookingRepoImpl{pool: pool}
}

const bookingCols = `
id, user_id, room_id, check_in_date, check_out_date, guests_count,
total_price::float8, status, rejection_reason, created_at, updated_at`

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	if err := row.Scan(
		&b.ID, &b.UserID, &b.RoomID, &b.CheckInDate, &b.CheckOutDate, &b.GuestsCount,
		&b.TotalPrice, &b.Status, &b.RejectionReason, &b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &b, nil
}

func collectBookings(rows pgx.Rows, capacity int) ([]domain.Booking, error) {
	defer rows.Close()
	bs := make([]domain.Booking, 0, capacity)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bs = append(bs, *b)
	}
	return bs, rows.Err()
}

const overlapQuery = `
SELECT ` + bookingCols + `
FROM bookings
WHERE room_id = $1
  AND status = ANY($4)
  AND check_in_date < $3
  AND check_out_date > $2
ORDER BY check_in_date`

// CreateIfAvailable locks the room, reads overlapping active bookings and inserts b
// only when prepare accepts. Conflicts detected by the database surface as
// domain.ErrRoomUnavailable.
func (r *BookingRepoImpl) CreateIfAvailable(ctx context.Context, b *domain.Booking, prepare PrepareBooking) (*domain.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	room, err := scanRoom(tx.QueryRow(ctx, `SELECT `+roomCols+` FROM rooms WHERE id=$1 FOR UPDATE`, b.RoomID))
	if err == pgx.ErrNoRows {
		return nil, &domain.NotFoundError{Resource: "Room"}
	}
	if err != nil {
		return nil, mapBookingErr(err)
	}

	rows, err := tx.Query(ctx, overlapQuery, b.RoomID, b.CheckInDate, b.CheckOutDate, statusStrings(domain.ActiveStatuses))
	if err != nil {
		return nil, mapBookingErr(err)
	}
	overlapping, err := collectBookings(rows, 4)
	if err != nil {
		return nil, mapBookingErr(err)
	}

	if err := prepare(room, overlapping); err != nil {
		return nil, err
	}

	const q = `
INSERT INTO bookings (user_id, room_id, check_in_date, check_out_date, guests_count, total_price, status)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING ` + bookingCols
	status := b.Status
	if status == "" {
		status = domain.BookingPending
	}
	created, err := scanBooking(tx.QueryRow(ctx, q,
		b.UserID, b.RoomID, b.CheckInDate, b.CheckOutDate, b.GuestsCount, b.TotalPrice, status,
	))
	if err != nil {
		return nil, mapBookingErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, mapBookingErr(err)
	}
	return created, nil
}

func statusStrings(statuses []domain.BookingStatus) []string {
	out := make([]string, len(statuses))
	for i, st := range statuses {
		out[i] = string(st)
	}
	return out
}

// mapBookingErr turns overlap exclusion and serialization failures into ErrRoomUnavailable.
func mapBookingErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23P01", "40001":
			return domain.ErrRoomUnavailable
		}
	}
	return err
}

func (r *BookingRepoImpl) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	b, err := scanBooking(r.pool.QueryRow(ctx, q, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return b, err
}

// FindOverlapping returns bookings in statuses whose [check-in, check-out) range
// intersects the given one.
func (r *BookingRepoImpl) FindOverlapping(ctx context.Context, roomID int64, checkIn, checkOut time.Time, statuses []domain.BookingStatus) ([]domain.Booking, error) {
	if len(statuses) == 0 {
		statuses = domain.ActiveStatuses
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.pool.Query(ctx, overlapQuery, roomID, checkIn, checkOut, statusStrings(statuses))
	if err != nil {
		return nil, err
	}
	return collectBookings(rows, 4)
}

func (r *BookingRepoImpl) ListByUser(ctx context.Context, userID int64) ([]domain.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE user_id=$1 ORDER BY check_in_date DESC, id DESC`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows, 16)
}

func (r *BookingRepoImpl) ListByStatus(ctx context.Context, status *domain.BookingStatus, limit, offset int) ([]domain.Booking, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	const q = `
		SELECT ` + bookingCols + `
		FROM bookings
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var st *string
	if status != nil {
		s := string(*status)
		st = &s
	}
	rows, err := r.pool.Query(ctx, q, st, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows, limit)
}

// UpdateStatus persists b.Status and b.RejectionReason only if the stored status is
// still from. A lost race returns domain.ErrConcurrentUpdate.
func (r *BookingRepoImpl) UpdateStatus(ctx context.Context, b *domain.Booking, from domain.BookingStatus) error {
	const q = `
UPDATE bookings
SET status=$2, rejection_reason=$3, updated_at=now()
WHERE id=$1 AND status=$4
RETURNING updated_at`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	err := r.pool.QueryRow(ctx, q, b.ID, b.Status, b.RejectionReason, from).Scan(&b.UpdatedAt)
	if err == pgx.ErrNoRows {
		return domain.ErrConcurrentUpdate
	}
	return mapBookingErr(err)
}

var _ BookingRepo = (*BookingRepoImpl)(nil)
