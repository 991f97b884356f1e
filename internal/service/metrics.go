package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	otpIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quickstay_otp_issued_total",
			Help: "Password reset codes generated, by trigger",
		},
		[]string{"trigger"},
	)

	otpVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quickstay_otp_verifications_total",
			Help: "Password reset code checks, by outcome",
		},
		[]string{"outcome"},
	)

	passwordResets = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quickstay_password_resets_total",
			Help: "Completed password resets",
		},
	)

	bookingOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quickstay_booking_requests_total",
			Help: "Booking creation attempts, by outcome",
		},
		[]string{"outcome"},
	)

	bookingTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quickstay_booking_transitions_total",
			Help: "Booking status changes, by target status",
		},
		[]string{"status"},
	)
)
