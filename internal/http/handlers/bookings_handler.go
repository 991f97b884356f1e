package handlers

import (
	"net/http"
	"strings"

	"github.com/diagnosis/quickstay/internal/domain"
	"github.com/diagnosis/quickstay/internal/http/response"
	"github.com/diagnosis/quickstay/pkg/logger"
)

const maxIdempotencyKeyLen = 255

// CreateBooking books a room for the caller. Repeating a request with the same
// Idempotency-Key returns the original booking with 200 instead of 201.
func (h *Handlers) CreateBooking(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}

	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if len(key) > maxIdempotencyKeyLen {
		response.BadRequest(w, "Idempotency-Key is too long")
		return
	}

	var req domain.CreateBookingRequest
	if !decode(w, r, &req) {
		return
	}

	b, replayed, err := h.bookingService.Create(r.Context(), c.Sub, &req, key)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	status := http.StatusCreated
	if replayed {
		logger.InfoContext(r.Context(), "Replayed idempotent booking", "booking_id", b.ID)
		status = http.StatusOK
	}
	writeJSON(w, status, b.ToDTO(h.bookingService.Today()))
}

func (h *Handlers) ListMyBookings(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	filter, ok := domain.ParseBookingFilter(r.URL.Query().Get("filter"))
	if !ok {
		response.BadRequest(w, "filter must be one of: all upcoming past cancelled")
		return
	}

	bookings, err := h.bookingService.ListMine(r.Context(), c.Sub, filter)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.bookingDTOs(bookings))
}

func (h *Handlers) GetMyBooking(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	b, err := h.bookingService.GetMine(r.Context(), c.Sub, id)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b.ToDTO(h.bookingService.Today()))
}

func (h *Handlers) CancelMyBooking(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	b, err := h.bookingService.CancelMine(r.Context(), c.Sub, id)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b.ToDTO(h.bookingService.Today()))
}

func (h *Handlers) bookingDTOs(bookings []domain.Booking) []domain.BookingDTO {
	today := h.bookingService.Today()
	dtos := make([]domain.BookingDTO, 0, len(bookings))
	for i := range bookings {
		dtos = append(dtos, bookings[i].ToDTO(today))
	}
	return dtos
}
