package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diagnosis/quickstay/internal/domain"
	"github.com/diagnosis/quickstay/pkg/events"
)

type bookingFixture struct {
	svc      *bookingService
	bookings *fakeBookings
	idem     *fakeIdempotency
	bus      *recordingPublisher
	now      time.Time
}

func newBookingFixture(rooms ...domain.Room) *bookingFixture {
	if len(rooms) == 0 {
		rooms = []domain.Room{
			{ID: 1, Name: "Sea View", PricePerNight: 100, MaxGuests: 2, Status: domain.RoomAvailable},
		}
	}
	f := &bookingFixture{
		bookings: newFakeBookings(rooms...),
		idem:     newFakeIdempotency(),
		bus:      &recordingPublisher{},
		now:      time.Date(2030, 1, 1, 9, 30, 0, 0, time.UTC),
	}
	f.svc = &bookingService{
		bookings:    f.bookings,
		idempotency: f.idem,
		eventBus:    f.bus,
		now:         func() time.Time { return f.now },
	}
	return f
}

func bookReq(roomID int64, in, out string, guests int) *domain.CreateBookingRequest {
	return &domain.CreateBookingRequest{RoomID: roomID, CheckIn: in, CheckOut: out, GuestsCount: guests}
}

func TestBooking_CreateComputesPriceAndRejectsOverlap(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()

	first, replayed, err := f.svc.Create(ctx, 7, bookReq(1, "2030-01-10", "2030-01-13", 2), "")
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, domain.BookingPending, first.Status)
	assert.Equal(t, 3, first.Nights())
	assert.Equal(t, 300.0, first.TotalPrice)
	assert.Equal(t, int64(7), first.UserID)

	_, _, err = f.svc.Create(ctx, 8, bookReq(1, "2030-01-12", "2030-01-15", 1), "")
	assert.ErrorIs(t, err, domain.ErrRoomUnavailable)

	second, _, err := f.svc.Create(ctx, 8, bookReq(1, "2030-01-13", "2030-01-15", 1), "")
	require.NoError(t, err)
	assert.Equal(t, 200.0, second.TotalPrice)

	assert.Equal(t, []string{events.BookingCreated, events.BookingCreated}, f.bus.published())
}

func TestBooking_CreateValidation(t *testing.T) {
	f := newBookingFixture(
		domain.Room{ID: 1, PricePerNight: 100, MaxGuests: 2, Status: domain.RoomAvailable},
		domain.Room{ID: 2, PricePerNight: 80, MaxGuests: 2, Status: domain.RoomMaintenance},
	)
	ctx := context.Background()

	tests := []struct {
		name   string
		req    *domain.CreateBookingRequest
		reason string
	}{
		{"past check-in", bookReq(1, "2029-12-31", "2030-01-02", 1), "Check-in date cannot be in the past"},
		{"same day", bookReq(1, "2030-01-05", "2030-01-05", 1), "Check-out date must be after check-in date"},
		{"bad date", bookReq(1, "05/01/2030", "2030-01-07", 1), "Invalid date format, expected YYYY-MM-DD"},
		{"too many guests", bookReq(1, "2030-01-05", "2030-01-07", 3), "This room allows at most 2 guests"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := f.svc.Create(ctx, 1, tt.req, "")
			assert.Equal(t, tt.reason, validationReason(t, err))
		})
	}

	_, _, err := f.svc.Create(ctx, 1, bookReq(1, "2030-01-01", "2030-01-02", 1), "")
	assert.NoError(t, err, "check-in today is allowed")

	_, _, err = f.svc.Create(ctx, 1, bookReq(2, "2030-01-05", "2030-01-07", 1), "")
	requireStateError(t, err, domain.ErrRoomUnderMaintenance)

	_, _, err = f.svc.Create(ctx, 1, bookReq(99, "2030-01-05", "2030-01-07", 1), "")
	var nf *domain.NotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestBooking_IdempotentReplay(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()

	first, replayed, err := f.svc.Create(ctx, 7, bookReq(1, "2030-01-10", "2030-01-12", 1), "key-1")
	require.NoError(t, err)
	assert.False(t, replayed)

	again, replayed, err := f.svc.Create(ctx, 7, bookReq(1, "2030-01-10", "2030-01-12", 1), "key-1")
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, first.ID, again.ID)

	// another user's key never replays someone else's booking
	_, _, err = f.svc.Create(ctx, 8, bookReq(1, "2030-01-10", "2030-01-12", 1), "key-1")
	assert.ErrorIs(t, err, domain.ErrRoomUnavailable)

	all, _ := f.bookings.ListByStatus(ctx, nil, 0, 0)
	assert.Len(t, all, 1)
}

func TestBooking_ConcurrentRequestsBookOnce(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()

	var wg sync.WaitGroup
	var ok, conflicts int32
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(user int64) {
			defer wg.Done()
			_, _, err := f.svc.Create(ctx, user, bookReq(1, "2030-02-01", "2030-02-04", 1), "")
			switch {
			case err == nil:
				atomic.AddInt32(&ok, 1)
			case errors.Is(err, domain.ErrRoomUnavailable):
				atomic.AddInt32(&conflicts, 1)
			}
		}(int64(i + 1))
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok)
	assert.Equal(t, int32(19), conflicts)
}

func TestBooking_Transitions(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()

	b, _, err := f.svc.Create(ctx, 7, bookReq(1, "2030-01-10", "2030-01-12", 1), "")
	require.NoError(t, err)

	approved, err := f.svc.Approve(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingConfirmed, approved.Status)

	_, err = f.svc.Approve(ctx, b.ID)
	var serr *domain.StateError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, "Only pending bookings can be approved", serr.Reason)

	_, err = f.svc.Reject(ctx, b.ID, &domain.RejectBookingRequest{Reason: "late"})
	assert.EqualError(t, err, "Only pending bookings can be rejected")

	cancelled, err := f.svc.CancelMine(ctx, 7, b.ID)
	require.NoError(t, err)
	assert.True(t, cancelled.IsCancelled())

	_, err = f.svc.CancelMine(ctx, 7, b.ID)
	assert.EqualError(t, err, "This booking cannot be cancelled")

	// the cancelled range is free again
	_, _, err = f.svc.Create(ctx, 8, bookReq(1, "2030-01-10", "2030-01-12", 1), "")
	assert.NoError(t, err)

	assert.Equal(t, []string{
		events.BookingCreated, events.BookingApproved, events.BookingCancelled, events.BookingCreated,
	}, f.bus.published())
}

func TestBooking_RejectRecordsReason(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()

	b, _, err := f.svc.Create(ctx, 7, bookReq(1, "2030-01-10", "2030-01-12", 1), "")
	require.NoError(t, err)

	rejected, err := f.svc.Reject(ctx, b.ID, &domain.RejectBookingRequest{Reason: " double booked "})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingRejected, rejected.Status)
	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, "double booked", *rejected.RejectionReason)

	stored, _ := f.bookings.GetByID(ctx, b.ID)
	assert.Equal(t, domain.BookingRejected, stored.Status)
}

func TestBooking_CancelOnlyOwnAndFuture(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()

	b, _, err := f.svc.Create(ctx, 7, bookReq(1, "2030-01-03", "2030-01-05", 1), "")
	require.NoError(t, err)

	_, err = f.svc.CancelMine(ctx, 8, b.ID)
	var nf *domain.NotFoundError
	assert.True(t, errors.As(err, &nf))

	f.now = time.Date(2030, 1, 3, 8, 0, 0, 0, time.UTC)
	_, err = f.svc.CancelMine(ctx, 7, b.ID)
	assert.EqualError(t, err, "This booking cannot be cancelled")
}

func TestBooking_PersistenceFailureRestoresState(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()

	b, _, err := f.svc.Create(ctx, 7, bookReq(1, "2030-01-10", "2030-01-12", 1), "")
	require.NoError(t, err)

	f.bookings.updateErr = errStorage
	_, err = f.svc.Reject(ctx, b.ID, &domain.RejectBookingRequest{Reason: "no"})
	var perr *domain.PersistenceError
	require.True(t, errors.As(err, &perr))
	assert.True(t, domain.IsRetryable(err))

	stored, _ := f.bookings.GetByID(ctx, b.ID)
	assert.Equal(t, domain.BookingPending, stored.Status)
	assert.Nil(t, stored.RejectionReason)

	f.bookings.updateErr = domain.ErrConcurrentUpdate
	_, err = f.svc.Approve(ctx, b.ID)
	assert.ErrorIs(t, err, domain.ErrConcurrentUpdate)
}

func TestBooking_ListMineFilters(t *testing.T) {
	f := newBookingFixture(
		domain.Room{ID: 1, PricePerNight: 100, MaxGuests: 2, Status: domain.RoomAvailable},
		domain.Room{ID: 2, PricePerNight: 50, MaxGuests: 2, Status: domain.RoomAvailable},
	)
	ctx := context.Background()

	early, _, err := f.svc.Create(ctx, 7, bookReq(1, "2030-01-02", "2030-01-04", 1), "")
	require.NoError(t, err)
	later, _, err := f.svc.Create(ctx, 7, bookReq(2, "2030-03-01", "2030-03-03", 1), "")
	require.NoError(t, err)
	gone, _, err := f.svc.Create(ctx, 7, bookReq(1, "2030-04-01", "2030-04-03", 1), "")
	require.NoError(t, err)
	_, _, err = f.svc.Create(ctx, 9, bookReq(2, "2030-05-01", "2030-05-03", 1), "")
	require.NoError(t, err)
	_, err = f.svc.CancelMine(ctx, 7, gone.ID)
	require.NoError(t, err)

	f.now = time.Date(2030, 2, 1, 0, 0, 0, 0, time.UTC)

	ids := func(filter domain.BookingFilter) []int64 {
		bs, err := f.svc.ListMine(ctx, 7, filter)
		require.NoError(t, err)
		var out []int64
		for _, b := range bs {
			out = append(out, b.ID)
		}
		return out
	}

	assert.ElementsMatch(t, []int64{early.ID, later.ID, gone.ID}, ids(domain.FilterAll))
	assert.Equal(t, []int64{later.ID}, ids(domain.FilterUpcoming))
	assert.Equal(t, []int64{early.ID}, ids(domain.FilterPast))
	assert.Equal(t, []int64{gone.ID}, ids(domain.FilterCancelled))
}
