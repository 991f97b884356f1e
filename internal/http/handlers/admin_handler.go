package handlers

import (
	"net/http"

	"github.com/diagnosis/quickstay/internal/domain"
	"github.com/diagnosis/quickstay/internal/http/response"
	"github.com/diagnosis/quickstay/pkg/logger"
)

// ListBookings handles listing all bookings (admin only)
func (h *Handlers) ListBookings(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	var statusPtr *domain.BookingStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, ok := domain.ParseBookingStatus(raw)
		if !ok {
			response.BadRequest(w, "Invalid status parameter")
			return
		}
		statusPtr = &st
	}

	bookings, err := h.bookingService.List(r.Context(), statusPtr, limit, offset)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.bookingDTOs(bookings))
}

func (h *Handlers) ApproveBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	b, err := h.bookingService.Approve(r.Context(), id)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	logger.InfoContext(r.Context(), "Booking approved", "booking_id", id)
	writeJSON(w, http.StatusOK, b.ToDTO(h.bookingService.Today()))
}

func (h *Handlers) RejectBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	// the reason is optional, so an empty body is accepted
	var req domain.RejectBookingRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}

	b, err := h.bookingService.Reject(r.Context(), id, &req)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	logger.InfoContext(r.Context(), "Booking rejected", "booking_id", id)
	writeJSON(w, http.StatusOK, b.ToDTO(h.bookingService.Today()))
}

func (h *Handlers) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateRoomRequest
	if !decode(w, r, &req) {
		return
	}

	room, err := h.roomService.Create(r.Context(), &req)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, room.ToDTO())
}

func (h *Handlers) SetRoomStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req domain.UpdateRoomStatusRequest
	if !decode(w, r, &req) {
		return
	}

	room, err := h.roomService.SetStatus(r.Context(), id, &req)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, room.ToDTO())
}
