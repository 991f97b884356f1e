package domain

import (
	"math"
	"strings"
	"time"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingRejected  BookingStatus = "rejected"
)

// ActiveStatuses hold a room's dates.
var ActiveStatuses = []BookingStatus{BookingPending, BookingConfirmed}

func (s BookingStatus) IsActive() bool {
	return s == BookingPending || s == BookingConfirmed
}

func ParseBookingStatus(s string) (BookingStatus, bool) {
	switch st := BookingStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case BookingPending, BookingConfirmed, BookingCancelled, BookingRejected:
		return st, true
	}
	return "", false
}

const DateLayout = "2006-01-02"

// DateOf drops the clock part of t, keeping its calendar date in UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseDate(field, s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, NewValidationError(field, "Invalid date format, expected YYYY-MM-DD")
	}
	return t, nil
}

type Booking struct {
	ID              int64         `json:"id"`
	UserID          int64         `json:"user_id"`
	RoomID          int64         `json:"room_id"`
	CheckInDate     time.Time     `json:"check_in_date"`
	CheckOutDate    time.Time     `json:"check_out_date"`
	GuestsCount     int           `json:"guests_count"`
	TotalPrice      float64       `json:"total_price"`
	Status          BookingStatus `json:"status"`
	RejectionReason *string       `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// ComputeNights counts calendar days between the two dates. Zero dates give 0.
func ComputeNights(checkIn, checkOut time.Time) int {
	if checkIn.IsZero() || checkOut.IsZero() {
		return 0
	}
	return int(DateOf(checkOut).Sub(DateOf(checkIn)).Hours() / 24)
}

// ComputeTotalPrice is nights times the nightly rate, or 0 for unusable input.
func ComputeTotalPrice(nights int, nightlyRate float64) float64 {
	if nights <= 0 || nightlyRate < 0 || math.IsNaN(nightlyRate) || math.IsInf(nightlyRate, 0) {
		return 0
	}
	return math.Round(float64(nights)*nightlyRate*100) / 100
}

// ValidateDateRange applies the stay rules relative to today.
func ValidateDateRange(checkIn, checkOut, today time.Time) error {
	in, out := DateOf(checkIn), DateOf(checkOut)
	if in.Before(DateOf(today)) {
		return NewValidationError("check_in", "Check-in date cannot be in the past")
	}
	if !out.After(in) {
		return NewValidationError("check_out", "Check-out date must be after check-in date")
	}
	if ComputeNights(in, out) < 1 {
		return NewValidationError("check_out", "Minimum 1-night stay required")
	}
	return nil
}

// Overlaps uses half-open ranges, so a check-out day can be the next check-in day.
func Overlaps(aIn, aOut, bIn, bOut time.Time) bool {
	return DateOf(aIn).Before(DateOf(bOut)) && DateOf(aOut).After(DateOf(bIn))
}

// IsAvailableForDates reports whether no active booking in existing overlaps the range.
func IsAvailableForDates(existing []Booking, checkIn, checkOut time.Time) bool {
	for _, b := range existing {
		if b.Status.IsActive() && Overlaps(b.CheckInDate, b.CheckOutDate, checkIn, checkOut) {
			return false
		}
	}
	return true
}

func (b *Booking) Nights() int {
	return ComputeNights(b.CheckInDate, b.CheckOutDate)
}

func (b *Booking) CalculateTotalPrice(nightlyRate float64) float64 {
	b.TotalPrice = ComputeTotalPrice(b.Nights(), nightlyRate)
	return b.TotalPrice
}

func (b *Booking) IsUpcoming(today time.Time) bool {
	return b.Status.IsActive() && !DateOf(b.CheckInDate).Before(DateOf(today))
}

func (b *Booking) IsPast(today time.Time) bool {
	return DateOf(b.CheckOutDate).Before(DateOf(today))
}

func (b *Booking) IsCancelled() bool {
	return b.Status == BookingCancelled
}

func (b *Booking) CanCancel(today time.Time) bool {
	return b.Status.IsActive() && DateOf(b.CheckInDate).After(DateOf(today))
}

func (b *Booking) Approve() error {
	if b.Status != BookingPending {
		return NewStateError("Only pending bookings can be approved")
	}
	b.Status = BookingConfirmed
	return nil
}

func (b *Booking) Reject(reason string) error {
	if b.Status != BookingPending {
		return NewStateError("Only pending bookings can be rejected")
	}
	b.Status = BookingRejected
	if reason = strings.TrimSpace(reason); reason != "" {
		b.RejectionReason = &reason
	}
	return nil
}

func (b *Booking) Cancel(today time.Time) error {
	if !b.CanCancel(today) {
		return NewStateError("This booking cannot be cancelled")
	}
	b.Status = BookingCancelled
	return nil
}

// BookingState is the mutable part of a booking, kept to undo a transition
// whose commit failed.
type BookingState struct {
	Status          BookingStatus
	RejectionReason *string
}

func (b *Booking) Snapshot() BookingState {
	return BookingState{Status: b.Status, RejectionReason: b.RejectionReason}
}

func (b *Booking) Restore(s BookingState) {
	b.Status = s.Status
	b.RejectionReason = s.RejectionReason
}

type BookingDTO struct {
	ID              int64         `json:"id"`
	RoomID          int64         `json:"room_id"`
	UserID          int64         `json:"user_id"`
	CheckIn         string        `json:"check_in"`
	CheckOut        string        `json:"check_out"`
	Nights          int           `json:"nights"`
	GuestsCount     int           `json:"guests_count"`
	TotalPrice      float64       `json:"total_price"`
	Status          BookingStatus `json:"status"`
	RejectionReason string        `json:"rejection_reason,omitempty"`
	CanCancel       bool          `json:"can_cancel"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

func (b *Booking) ToDTO(today time.Time) BookingDTO {
	dto := BookingDTO{
		ID:          b.ID,
		RoomID:      b.RoomID,
		UserID:      b.UserID,
		CheckIn:     b.CheckInDate.Format(DateLayout),
		CheckOut:    b.CheckOutDate.Format(DateLayout),
		Nights:      b.Nights(),
		GuestsCount: b.GuestsCount,
		TotalPrice:  b.TotalPrice,
		Status:      b.Status,
		CanCancel:   b.CanCancel(today),
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
	if b.RejectionReason != nil {
		dto.RejectionReason = *b.RejectionReason
	}
	return dto
}

// BookingFilter narrows a user's booking list.
type BookingFilter string

const (
	FilterAll       BookingFilter = "all"
	FilterUpcoming  BookingFilter = "upcoming"
	FilterPast      BookingFilter = "past"
	FilterCancelled BookingFilter = "cancelled"
)

func ParseBookingFilter(s string) (BookingFilter, bool) {
	switch f := BookingFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FilterAll, true
	case FilterAll, FilterUpcoming, FilterPast, FilterCancelled:
		return f, true
	}
	return "", false
}

func (f BookingFilter) Match(b *Booking, today time.Time) bool {
	switch f {
	case FilterUpcoming:
		return b.IsUpcoming(today)
	case FilterPast:
		return b.IsPast(today)
	case FilterCancelled:
		return b.IsCancelled()
	default:
		return true
	}
}
