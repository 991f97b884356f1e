package handlers

import (
	"net/http"

	"github.com/diagnosis/quickstay/internal/domain"
	"github.com/diagnosis/quickstay/internal/http/response"
)

func (h *Handlers) ListRooms(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	filter := domain.RoomFilter{Limit: limit, Offset: offset}

	if raw := r.URL.Query().Get("status"); raw != "" {
		st, ok := domain.ParseRoomStatus(raw)
		if !ok {
			response.BadRequest(w, "Invalid status parameter")
			return
		}
		filter.Status = &st
	}
	if raw := r.URL.Query().Get("room_type"); raw != "" {
		rt, ok := domain.ParseRoomType(raw)
		if !ok {
			response.BadRequest(w, "Invalid room_type parameter")
			return
		}
		filter.RoomType = &rt
	}

	rooms, err := h.roomService.List(r.Context(), filter)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	dtos := make([]domain.RoomDTO, 0, len(rooms))
	for i := range rooms {
		dtos = append(dtos, rooms[i].ToDTO())
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handlers) GetRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	room, err := h.roomService.Get(r.Context(), id)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, room.ToDTO())
}

func (h *Handlers) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()

	avail, err := h.roomService.CheckAvailability(r.Context(), id, q.Get("check_in"), q.Get("check_out"))
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, avail)
}

func (h *Handlers) AddReview(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req domain.CreateReviewRequest
	if !decode(w, r, &req) {
		return
	}

	review, rating, err := h.roomService.AddReview(r.Context(), c.Sub, id, &req)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"review":      review,
		"room_rating": rating,
	})
}

func (h *Handlers) ListReviews(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	limit, offset := parsePagination(r)

	reviews, err := h.roomService.ListReviews(r.Context(), id, limit, offset)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	if reviews == nil {
		reviews = []domain.Review{}
	}
	writeJSON(w, http.StatusOK, reviews)
}
