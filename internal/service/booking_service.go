package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diagnosis/quickstay/internal/domain"
	"github.com/diagnosis/quickstay/internal/repo/postgres"
	"github.com/diagnosis/quickstay/pkg/events"
	"github.com/diagnosis/quickstay/pkg/logger"
)

type BookingService interface {
	// Create books a room. A non-empty idempotencyKey replays the booking an earlier
	// call with the same key produced; replayed reports that case.
	Create(ctx context.Context, userID int64, req *domain.CreateBookingRequest, idempotencyKey string) (b *domain.Booking, replayed bool, err error)
	ListMine(ctx context.Context, userID int64, filter domain.BookingFilter) ([]domain.Booking, error)
	GetMine(ctx context.Context, userID, id int64) (*domain.Booking, error)
	CancelMine(ctx context.Context, userID, id int64) (*domain.Booking, error)
	List(ctx context.Context, status *domain.BookingStatus, limit, offset int) ([]domain.Booking, error)
	Approve(ctx context.Context, id int64) (*domain.Booking, error)
	Reject(ctx context.Context, id int64, req *domain.RejectBookingRequest) (*domain.Booking, error)
	Today() time.Time
}

type bookingService struct {
	bookings    postgres.BookingRepo
	idempotency postgres.IdempotencyRepo
	eventBus    events.Publisher
	now         func() time.Time
}

func NewBookingService(
	bookings postgres.BookingRepo,
	idempotency postgres.IdempotencyRepo,
	eventBus events.Publisher,
) BookingService {
	return &bookingService{
		bookings:    bookings,
		idempotency: idempotency,
		eventBus:    eventBus,
		now:         time.Now,
	}
}

func (s *bookingService) Today() time.Time { return domain.DateOf(s.now()) }

func (s *bookingService) Create(ctx context.Context, userID int64, req *domain.CreateBookingRequest, idempotencyKey string) (*domain.Booking, bool, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, false, err
	}
	checkIn, checkOut, err := req.Dates()
	if err != nil {
		return nil, false, err
	}
	if err := domain.ValidateDateRange(checkIn, checkOut, s.now()); err != nil {
		return nil, false, err
	}

	if idempotencyKey != "" {
		existing, err := s.replay(ctx, userID, idempotencyKey)
		if err != nil {
			return nil, false, err
		}
		if existing != nil {
			logger.InfoContext(ctx, "Replaying idempotent booking", "booking_id", existing.ID)
			return existing, true, nil
		}
	}

	b := &domain.Booking{
		UserID:       userID,
		RoomID:       req.RoomID,
		CheckInDate:  checkIn,
		CheckOutDate: checkOut,
		GuestsCount:  req.GuestsCount,
		Status:       domain.BookingPending,
	}

	created, err := s.bookings.CreateIfAvailable(ctx, b, func(room *domain.Room, overlapping []domain.Booking) error {
		if room.IsUnderMaintenance() {
			return domain.NewStateErrorFrom(domain.ErrRoomUnderMaintenance)
		}
		if b.GuestsCount > room.MaxGuests {
			return domain.NewValidationError("guests_count",
				fmt.Sprintf("This room allows at most %d guests", room.MaxGuests))
		}
		if !domain.IsAvailableForDates(overlapping, b.CheckInDate, b.CheckOutDate) {
			return domain.ErrRoomUnavailable
		}
		b.CalculateTotalPrice(room.PricePerNight)
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrRoomUnavailable) {
			bookingOutcomes.WithLabelValues("conflict").Inc()
			return nil, false, err
		}
		bookingOutcomes.WithLabelValues("rejected").Inc()
		if isDomainErr(err) {
			return nil, false, err
		}
		logger.ErrorContext(ctx, "Failed to create booking", "error", err, "room_id", req.RoomID)
		return nil, false, &domain.PersistenceError{Op: "create booking", Err: err}
	}
	bookingOutcomes.WithLabelValues("created").Inc()

	if idempotencyKey != "" {
		if err := s.idempotency.Save(ctx, userID, idempotencyKey, created.ID); err != nil {
			logger.WarnContext(ctx, "Failed to record idempotency key", "error", err, "booking_id", created.ID)
		}
	}

	evt := events.BookingCreatedEvent{
		BookingID:  created.ID,
		UserID:     created.UserID,
		RoomID:     created.RoomID,
		CheckIn:    created.CheckInDate.Format(domain.DateLayout),
		CheckOut:   created.CheckOutDate.Format(domain.DateLayout),
		Guests:     created.GuestsCount,
		TotalPrice: created.TotalPrice,
		CreatedAt:  created.CreatedAt,
	}
	if err := s.eventBus.Publish(ctx, events.BookingCreated, evt); err != nil {
		logger.ErrorContext(ctx, "Failed to publish event", "error", err, "subject", events.BookingCreated)
	}

	logger.InfoContext(ctx, "Booking created", "booking_id", created.ID, "room_id", created.RoomID, "user_id", userID)
	return created, false, nil
}

func (s *bookingService) replay(ctx context.Context, userID int64, key string) (*domain.Booking, error) {
	id, err := s.idempotency.FindBooking(ctx, userID, key)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "check idempotency key", Err: err}
	}
	if id == 0 {
		return nil, nil
	}
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "get booking", Err: err}
	}
	if b == nil || b.UserID != userID {
		return nil, nil
	}
	return b, nil
}

func (s *bookingService) ListMine(ctx context.Context, userID int64, filter domain.BookingFilter) ([]domain.Booking, error) {
	all, err := s.bookings.ListByUser(ctx, userID)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "list bookings", Err: err}
	}
	today := s.Today()
	out := make([]domain.Booking, 0, len(all))
	for i := range all {
		if filter.Match(&all[i], today) {
			out = append(out, all[i])
		}
	}
	return out, nil
}

// GetMine hides bookings owned by someone else behind NotFound.
func (s *bookingService) GetMine(ctx context.Context, userID, id int64) (*domain.Booking, error) {
	b, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.UserID != userID {
		return nil, &domain.NotFoundError{Resource: "Booking"}
	}
	return b, nil
}

func (s *bookingService) CancelMine(ctx context.Context, userID, id int64) (*domain.Booking, error) {
	b, err := s.GetMine(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	today := s.Today()
	if err := s.transition(ctx, b, func(b *domain.Booking) error { return b.Cancel(today) }, events.BookingCancelled); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *bookingService) List(ctx context.Context, status *domain.BookingStatus, limit, offset int) ([]domain.Booking, error) {
	bs, err := s.bookings.ListByStatus(ctx, status, limit, offset)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "list bookings", Err: err}
	}
	return bs, nil
}

func (s *bookingService) Approve(ctx context.Context, id int64) (*domain.Booking, error) {
	b, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, b, (*domain.Booking).Approve, events.BookingApproved); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *bookingService) Reject(ctx context.Context, id int64, req *domain.RejectBookingRequest) (*domain.Booking, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	b, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, b, func(b *domain.Booking) error { return b.Reject(req.Reason) }, events.BookingRejected); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *bookingService) get(ctx context.Context, id int64) (*domain.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "get booking", Err: err}
	}
	if b == nil {
		return nil, &domain.NotFoundError{Resource: "Booking"}
	}
	return b, nil
}

// transition applies mutate, then commits it against the status read earlier.
// The booking is restored when the commit fails.
func (s *bookingService) transition(ctx context.Context, b *domain.Booking, mutate func(*domain.Booking) error, subject string) error {
	snap := b.Snapshot()
	from := b.Status
	if err := mutate(b); err != nil {
		return err
	}

	if err := s.bookings.UpdateStatus(ctx, b, from); err != nil {
		b.Restore(snap)
		if errors.Is(err, domain.ErrConcurrentUpdate) {
			return err
		}
		logger.ErrorContext(ctx, "Failed to update booking status", "error", err, "booking_id", b.ID)
		return &domain.PersistenceError{Op: "update booking status", Err: err}
	}
	bookingTransitions.WithLabelValues(string(b.Status)).Inc()

	evt := events.BookingStatusEvent{
		BookingID: b.ID,
		UserID:    b.UserID,
		RoomID:    b.RoomID,
		Status:    string(b.Status),
		ChangedAt: s.now(),
	}
	if b.RejectionReason != nil {
		evt.Reason = *b.RejectionReason
	}
	if err := s.eventBus.Publish(ctx, subject, evt); err != nil {
		logger.ErrorContext(ctx, "Failed to publish event", "error", err, "subject", subject)
	}

	logger.InfoContext(ctx, "Booking status changed", "booking_id", b.ID, "from", from, "to", b.Status)
	return nil
}

func isDomainErr(err error) bool {
	var (
		verr  *domain.ValidationError
		serr  *domain.StateError
		nferr *domain.NotFoundError
	)
	return errors.As(err, &verr) || errors.As(err, &serr) || errors.As(err, &nferr) ||
		errors.Is(err, domain.ErrConcurrentUpdate)
}
