package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/diagnosis/quickstay/internal/domain"
	"github.com/diagnosis/quickstay/internal/repo/postgres"
)

var errStorage = errors.New("connection reset by peer")

// fakeUsers keeps users by id and hands out copies, like a real store would.
type fakeUsers struct {
	mu        sync.Mutex
	byID      map[int64]*domain.User
	nextID    int64
	setOTPErr error
	resetErr  error
}

func newFakeUsers(users ...*domain.User) *fakeUsers {
	f := &fakeUsers{byID: map[int64]*domain.User{}}
	for _, u := range users {
		f.nextID++
		u.ID = f.nextID
		cp := *u
		f.byID[u.ID] = &cp
	}
	return f
}

func (f *fakeUsers) get(id int64) *domain.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.byID[id]
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}

func (f *fakeUsers) find(match func(*domain.User) bool) *domain.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if match(u) {
			cp := *u
			return &cp
		}
	}
	return nil
}

func (f *fakeUsers) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	if f.find(func(x *domain.User) bool { return x.Email == u.Email }) != nil {
		return nil, domain.ErrEmailTaken
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	cp := *u
	cp.ID = f.nextID
	cp.CreatedAt = time.Now()
	f.byID[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	return f.find(func(u *domain.User) bool { return strings.EqualFold(u.Email, email) }), nil
}

func (f *fakeUsers) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	return f.find(func(u *domain.User) bool { return u.Username == username }), nil
}

func (f *fakeUsers) FindByID(_ context.Context, id int64) (*domain.User, error) {
	return f.get(id), nil
}

func (f *fakeUsers) UpdateProfile(_ context.Context, u *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur := f.byID[u.ID]
	cur.FirstName, cur.LastName, cur.Phone = u.FirstName, u.LastName, u.Phone
	return nil
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id int64, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[id].PasswordHash = hash
	return nil
}

func (f *fakeUsers) SetOTP(_ context.Context, id int64, code string, expiresAt time.Time) error {
	if f.setOTPErr != nil {
		return f.setOTPErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.byID[id]
	u.OTPCode, u.OTPExpiresAt = &code, &expiresAt
	return nil
}

func (f *fakeUsers) ResetPassword(_ context.Context, id int64, hash string) error {
	if f.resetErr != nil {
		return f.resetErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.byID[id]
	u.PasswordHash = hash
	u.OTPCode, u.OTPExpiresAt = nil, nil
	return nil
}

func (f *fakeUsers) SetActive(_ context.Context, id int64, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[id].IsActive = active
	return nil
}

// fakeBookings serializes CreateIfAvailable under one lock, standing in for the
// database transaction.
type fakeBookings struct {
	mu        sync.Mutex
	rooms     map[int64]*domain.Room
	items     map[int64]*domain.Booking
	nextID    int64
	updateErr error
}

func newFakeBookings(rooms ...domain.Room) *fakeBookings {
	f := &fakeBookings{rooms: map[int64]*domain.Room{}, items: map[int64]*domain.Booking{}}
	for i := range rooms {
		r := rooms[i]
		f.rooms[r.ID] = &r
	}
	return f
}

func (f *fakeBookings) overlapping(roomID int64, in, out time.Time, statuses []domain.BookingStatus) []domain.Booking {
	var res []domain.Booking
	for _, b := range f.items {
		if b.RoomID != roomID || !domain.Overlaps(b.CheckInDate, b.CheckOutDate, in, out) {
			continue
		}
		for _, st := range statuses {
			if b.Status == st {
				res = append(res, *b)
				break
			}
		}
	}
	return res
}

func (f *fakeBookings) CreateIfAvailable(_ context.Context, b *domain.Booking, prepare postgres.PrepareBooking) (*domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	room := f.rooms[b.RoomID]
	if room == nil {
		return nil, &domain.NotFoundError{Resource: "Room"}
	}
	rc := *room
	if err := prepare(&rc, f.overlapping(b.RoomID, b.CheckInDate, b.CheckOutDate, domain.ActiveStatuses)); err != nil {
		return nil, err
	}

	f.nextID++
	cp := *b
	cp.ID = f.nextID
	cp.CreatedAt = time.Now()
	f.items[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeBookings) GetByID(_ context.Context, id int64) (*domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := f.items[id]
	if b == nil {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBookings) FindOverlapping(_ context.Context, roomID int64, in, out time.Time, statuses []domain.BookingStatus) ([]domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.overlapping(roomID, in, out, statuses), nil
}

func (f *fakeBookings) ListByUser(_ context.Context, userID int64) ([]domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []domain.Booking
	for id := int64(1); id <= f.nextID; id++ {
		if b := f.items[id]; b != nil && b.UserID == userID {
			res = append(res, *b)
		}
	}
	return res, nil
}

func (f *fakeBookings) ListByStatus(_ context.Context, status *domain.BookingStatus, _, _ int) ([]domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []domain.Booking
	for id := int64(1); id <= f.nextID; id++ {
		if b := f.items[id]; b != nil && (status == nil || b.Status == *status) {
			res = append(res, *b)
		}
	}
	return res, nil
}

func (f *fakeBookings) UpdateStatus(_ context.Context, b *domain.Booking, from domain.BookingStatus) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cur := f.items[b.ID]
	if cur == nil || cur.Status != from {
		return domain.ErrConcurrentUpdate
	}
	cur.Status, cur.RejectionReason = b.Status, b.RejectionReason
	return nil
}

type fakeIdempotency struct {
	mu   sync.Mutex
	keys map[string]int64
}

func newFakeIdempotency() *fakeIdempotency { return &fakeIdempotency{keys: map[string]int64{}} }

func (f *fakeIdempotency) FindBooking(_ context.Context, userID int64, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.keys[idemKey(userID, key)], nil
}

func (f *fakeIdempotency) Save(_ context.Context, userID int64, key string, bookingID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys[idemKey(userID, key)] = bookingID
	return nil
}

func (f *fakeIdempotency) CleanupExpired(context.Context) (int64, error) { return 0, nil }

func idemKey(userID int64, key string) string {
	return fmt.Sprintf("%d:%s", userID, key)
}

type fakeRooms struct {
	mu        sync.Mutex
	rooms     map[int64]*domain.Room
	nextID    int64
	hasActive bool
	statusErr error
}

func newFakeRooms(rooms ...domain.Room) *fakeRooms {
	f := &fakeRooms{rooms: map[int64]*domain.Room{}}
	for i := range rooms {
		r := rooms[i]
		f.rooms[r.ID] = &r
		if r.ID > f.nextID {
			f.nextID = r.ID
		}
	}
	return f
}

func (f *fakeRooms) Create(_ context.Context, room *domain.Room) (*domain.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	cp := *room
	cp.ID = f.nextID
	f.rooms[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeRooms) GetByID(_ context.Context, id int64) (*domain.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.rooms[id]
	if r == nil {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRooms) List(_ context.Context, filter domain.RoomFilter) ([]domain.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []domain.Room
	for _, r := range f.rooms {
		if filter.Status != nil && r.Status != *filter.Status {
			continue
		}
		if filter.RoomType != nil && r.RoomType != *filter.RoomType {
			continue
		}
		res = append(res, *r)
	}
	return res, nil
}

func (f *fakeRooms) UpdateStatus(_ context.Context, id int64, status domain.RoomStatus) error {
	if f.statusErr != nil {
		return f.statusErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rooms[id].Status = status
	return nil
}

func (f *fakeRooms) HasActiveBookings(context.Context, int64) (bool, error) { return f.hasActive, nil }

type fakeReviews struct {
	mu      sync.Mutex
	rooms   *fakeRooms
	reviews []domain.Review
}

func (f *fakeReviews) CreateAndRefreshRating(ctx context.Context, rv *domain.Review) (*domain.Review, float64, error) {
	room, _ := f.rooms.GetByID(ctx, rv.RoomID)
	if room == nil {
		return nil, 0, &domain.NotFoundError{Resource: "Room"}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *rv
	cp.ID = int64(len(f.reviews) + 1)
	f.reviews = append(f.reviews, cp)

	var ratings []int
	for _, r := range f.reviews {
		if r.RoomID == rv.RoomID {
			ratings = append(ratings, r.Rating)
		}
	}
	avg := domain.AverageRating(ratings)
	f.rooms.mu.Lock()
	f.rooms.rooms[rv.RoomID].Rating = avg
	f.rooms.mu.Unlock()
	return &cp, avg, nil
}

func (f *fakeReviews) ListByRoom(_ context.Context, roomID int64, _, _ int) ([]domain.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []domain.Review
	for _, r := range f.reviews {
		if r.RoomID == roomID {
			res = append(res, r)
		}
	}
	return res, nil
}

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) SendOTP(ctx context.Context, toEmail, code, displayName string) error {
	return m.Called(ctx, toEmail, code, displayName).Error(0)
}

func (m *mockMailer) SendWelcome(ctx context.Context, toEmail, displayName string) error {
	return m.Called(ctx, toEmail, displayName).Error(0)
}

func (m *mockMailer) SendResetConfirmation(ctx context.Context, toEmail, displayName string) error {
	return m.Called(ctx, toEmail, displayName).Error(0)
}

type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (p *recordingPublisher) Publish(_ context.Context, subject string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.subjects...)
}

var (
	_ postgres.UsersRepo       = (*fakeUsers)(nil)
	_ postgres.BookingRepo     = (*fakeBookings)(nil)
	_ postgres.IdempotencyRepo = (*fakeIdempotency)(nil)
	_ postgres.RoomsRepo       = (*fakeRooms)(nil)
	_ postgres.ReviewsRepo     = (*fakeReviews)(nil)
)
