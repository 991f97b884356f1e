package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"

	"github.com/diagnosis/quickstay/internal/domain"
	mw "github.com/diagnosis/quickstay/internal/http/middleware"
	"github.com/diagnosis/quickstay/internal/platform/session"
)

type RouteOptions struct {
	JWTSecret string

	// recovery session
	Cookies    sessions.Store
	CookieName string
	Sessions   session.Store

	// OTP abuse control; a nil Limiter disables it
	Limiter           mw.Limiter
	OTPRequests       int
	OTPWindow         time.Duration
	TrustProxyHeaders bool
}

// Routes mounts the versioned API.
func (h *Handlers) Routes(opts RouteOptions) chi.Router {
	r := chi.NewRouter()

	otpLimit := func(next http.Handler) http.Handler { return next }
	if opts.Limiter != nil {
		otpLimit = mw.NewRateLimiter(opts.Limiter, mw.RateLimitConfig{
			Requests:          opts.OTPRequests,
			Window:            opts.OTPWindow,
			Scope:             "otp",
			TrustProxyHeaders: opts.TrustProxyHeaders,
		}).Middleware()
	}
	requireUser := mw.RequireJWT(opts.JWTSecret, domain.RoleUser)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)

		r.Route("/password", func(r chi.Router) {
			r.Use(mw.Session(opts.Cookies, opts.CookieName, opts.Sessions))
			r.With(otpLimit).Post("/forgot", h.ForgotPassword)
			r.Post("/verify-otp", h.VerifyOTP)
			r.Post("/reset", h.ResetPassword)
			r.With(otpLimit).Post("/resend-otp", h.ResendOTP)
		})
	})

	r.Route("/profile", func(r chi.Router) {
		r.Use(requireUser)
		r.Get("/", h.GetProfile)
		r.Patch("/", h.UpdateProfile)
		r.Delete("/", h.DeactivateAccount)
		r.Post("/password", h.ChangePassword)
	})

	r.Route("/rooms", func(r chi.Router) {
		r.Get("/", h.ListRooms)
		r.Get("/{id}", h.GetRoom)
		r.Get("/{id}/availability", h.CheckAvailability)
		r.Get("/{id}/reviews", h.ListReviews)
		r.With(requireUser).Post("/{id}/reviews", h.AddReview)
	})

	r.Route("/bookings", func(r chi.Router) {
		r.Use(requireUser)
		r.Post("/", h.CreateBooking)
		r.Get("/", h.ListMyBookings)
		r.Get("/{id}", h.GetMyBooking)
		r.Post("/{id}/cancel", h.CancelMyBooking)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(mw.RequireJWT(opts.JWTSecret, domain.RoleAdmin))
		r.Get("/bookings", h.ListBookings)
		r.Post("/bookings/{id}/approve", h.ApproveBooking)
		r.Post("/bookings/{id}/reject", h.RejectBooking)
		r.Post("/rooms", h.CreateRoom)
		r.Patch("/rooms/{id}/status", h.SetRoomStatus)
	})

	return r
}
