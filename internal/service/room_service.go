package service

import (
	"context"
	"errors"
	"time"

	"github.com/diagnosis/quickstay/internal/domain"
	"github.com/diagnosis/quickstay/internal/repo/postgres"
	"github.com/diagnosis/quickstay/pkg/events"
	"github.com/diagnosis/quickstay/pkg/logger"
)

type RoomService interface {
	List(ctx context.Context, filter domain.RoomFilter) ([]domain.Room, error)
	Get(ctx context.Context, id int64) (*domain.Room, error)
	CheckAvailability(ctx context.Context, roomID int64, checkIn, checkOut string) (*domain.Availability, error)
	Create(ctx context.Context, req *domain.CreateRoomRequest) (*domain.Room, error)
	SetStatus(ctx context.Context, id int64, req *domain.UpdateRoomStatusRequest) (*domain.Room, error)
	AddReview(ctx context.Context, userID, roomID int64, req *domain.CreateReviewRequest) (*domain.Review, float64, error)
	ListReviews(ctx context.Context, roomID int64, limit, offset int) ([]domain.Review, error)
}

type roomService struct {
	rooms    postgres.RoomsRepo
	bookings postgres.BookingRepo
	reviews  postgres.ReviewsRepo
	eventBus events.Publisher
	now      func() time.Time
}

func NewRoomService(
	rooms postgres.RoomsRepo,
	bookings postgres.BookingRepo,
	reviews postgres.ReviewsRepo,
	eventBus events.Publisher,
) RoomService {
	return &roomService{
		rooms:    rooms,
		bookings: bookings,
		reviews:  reviews,
		eventBus: eventBus,
		now:      time.Now,
	}
}

func (s *roomService) List(ctx context.Context, filter domain.RoomFilter) ([]domain.Room, error) {
	rooms, err := s.rooms.List(ctx, filter)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "list rooms", Err: err}
	}
	return rooms, nil
}

func (s *roomService) Get(ctx context.Context, id int64) (*domain.Room, error) {
	room, err := s.rooms.GetByID(ctx, id)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "get room", Err: err}
	}
	if room == nil {
		return nil, &domain.NotFoundError{Resource: "Room"}
	}
	return room, nil
}

func (s *roomService) CheckAvailability(ctx context.Context, roomID int64, checkIn, checkOut string) (*domain.Availability, error) {
	in, err := domain.ParseDate("check_in", checkIn)
	if err != nil {
		return nil, err
	}
	out, err := domain.ParseDate("check_out", checkOut)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateDateRange(in, out, s.now()); err != nil {
		return nil, err
	}

	room, err := s.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}

	overlapping, err := s.bookings.FindOverlapping(ctx, roomID, in, out, domain.ActiveStatuses)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "find overlapping bookings", Err: err}
	}

	nights := domain.ComputeNights(in, out)
	return &domain.Availability{
		RoomID:     roomID,
		CheckIn:    in.Format(domain.DateLayout),
		CheckOut:   out.Format(domain.DateLayout),
		Available:  !room.IsUnderMaintenance() && domain.IsAvailableForDates(overlapping, in, out),
		Nights:     nights,
		TotalPrice: domain.ComputeTotalPrice(nights, room.PricePerNight),
	}, nil
}

func (s *roomService) Create(ctx context.Context, req *domain.CreateRoomRequest) (*domain.Room, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	room := &domain.Room{
		Name:          req.Name,
		RoomType:      domain.RoomType(req.RoomType),
		Description:   req.Description,
		PricePerNight: req.PricePerNight,
		MaxGuests:     req.MaxGuests,
		RoomSize:      req.RoomSize,
		Image:         req.Image,
		Status:        domain.RoomAvailable,
	}
	room.SetAmenitiesList(req.Amenities)

	created, err := s.rooms.Create(ctx, room)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to create room", "error", err)
		return nil, &domain.PersistenceError{Op: "create room", Err: err}
	}
	logger.InfoContext(ctx, "Room created", "room_id", created.ID)
	return created, nil
}

// SetStatus refuses to put a room into maintenance while it still holds active bookings.
func (s *roomService) SetStatus(ctx context.Context, id int64, req *domain.UpdateRoomStatusRequest) (*domain.Room, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	status, _ := domain.ParseRoomStatus(req.Status)

	room, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if status == domain.RoomMaintenance && !room.IsUnderMaintenance() {
		busy, err := s.rooms.HasActiveBookings(ctx, id)
		if err != nil {
			return nil, &domain.PersistenceError{Op: "check room bookings", Err: err}
		}
		if busy {
			return nil, domain.NewStateErrorFrom(domain.ErrRoomHasBookings)
		}
	}

	prev := room.Status
	room.Status = status
	if err := s.rooms.UpdateStatus(ctx, id, status); err != nil {
		room.Status = prev
		return nil, &domain.PersistenceError{Op: "update room status", Err: err}
	}
	logger.InfoContext(ctx, "Room status changed", "room_id", id, "from", prev, "to", status)
	return room, nil
}

func (s *roomService) AddReview(ctx context.Context, userID, roomID int64, req *domain.CreateReviewRequest) (*domain.Review, float64, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, 0, err
	}

	review, rating, err := s.reviews.CreateAndRefreshRating(ctx, &domain.Review{
		UserID:  userID,
		RoomID:  roomID,
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		var nf *domain.NotFoundError
		if errors.As(err, &nf) {
			return nil, 0, err
		}
		logger.ErrorContext(ctx, "Failed to store review", "error", err, "room_id", roomID)
		return nil, 0, &domain.PersistenceError{Op: "create review", Err: err}
	}

	evt := events.ReviewCreatedEvent{
		ReviewID:   review.ID,
		RoomID:     roomID,
		Rating:     review.Rating,
		RoomRating: rating,
		CreatedAt:  review.CreatedAt,
	}
	if err := s.eventBus.Publish(ctx, events.ReviewCreated, evt); err != nil {
		logger.ErrorContext(ctx, "Failed to publish event", "error", err, "subject", events.ReviewCreated)
	}
	return review, rating, nil
}

func (s *roomService) ListReviews(ctx context.Context, roomID int64, limit, offset int) ([]domain.Review, error) {
	if _, err := s.Get(ctx, roomID); err != nil {
		return nil, err
	}
	reviews, err := s.reviews.ListByRoom(ctx, roomID, limit, offset)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "list reviews", Err: err}
	}
	return reviews, nil
}
