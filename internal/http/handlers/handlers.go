package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/diagnosis/quickstay/internal/http/middleware"
	"github.com/diagnosis/quickstay/internal/http/response"
	"github.com/diagnosis/quickstay/internal/service"
	"github.com/diagnosis/quickstay/pkg/auth"
)

const maxBodyBytes = 1 << 20

type Handlers struct {
	authService     service.AuthService
	recoveryService service.RecoveryService
	roomService     service.RoomService
	bookingService  service.BookingService
}

func New(
	authService service.AuthService,
	recoveryService service.RecoveryService,
	roomService service.RoomService,
	bookingService service.BookingService,
) *Handlers {
	return &Handlers{
		authService:     authService,
		recoveryService: recoveryService,
		roomService:     roomService,
		bookingService:  bookingService,
	}
}

// Helper functions for common response patterns
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	response.WriteJSON(w, statusCode, data)
}

func writeMessage(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"message": message})
}

// decode reads a JSON body into dst, rejecting unknown fields and oversized bodies.
func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			response.BadRequest(w, "Request body is required")
			return false
		}
		response.BadRequest(w, "Invalid JSON format")
		return false
	}
	return true
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(w, "Invalid ID")
		return 0, false
	}
	return id, true
}

// Helper to parse pagination parameters
func parsePagination(r *http.Request) (limit, offset int) {
	limit = 20
	offset = 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return limit, offset
}

// claims returns the authenticated caller or writes a 401.
func claims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	c := middleware.Claims(r)
	if c == nil || c.Sub == 0 {
		response.Unauthorized(w, "Authentication required")
		return nil, false
	}
	return c, true
}
