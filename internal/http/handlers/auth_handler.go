package handlers

import (
	"net/http"

	"github.com/diagnosis/quickstay/internal/domain"
	"github.com/diagnosis/quickstay/internal/http/response"
	"github.com/diagnosis/quickstay/pkg/logger"
)

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if !decode(w, r, &req) {
		return
	}

	u, err := h.authService.Register(r.Context(), &req)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	logger.InfoContext(r.Context(), "User registered", "user_id", u.ID)
	writeJSON(w, http.StatusCreated, u.ToProfile())
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if !decode(w, r, &req) {
		return
	}

	resp, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req domain.ForgotPasswordRequest
	if !decode(w, r, &req) {
		return
	}

	// the response is the same whether or not the address has an account
	if err := h.recoveryService.RequestOTP(r.Context(), &req); err != nil {
		response.FromError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "If an account exists for this email, a verification code has been sent")
}

func (h *Handlers) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyOTPRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.recoveryService.VerifyOTP(r.Context(), &req); err != nil {
		response.FromError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Code verified, you can now set a new password")
}

func (h *Handlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req domain.ResetPasswordRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.recoveryService.ResetPassword(r.Context(), &req); err != nil {
		response.FromError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Your password has been reset, please log in")
}

func (h *Handlers) ResendOTP(w http.ResponseWriter, r *http.Request) {
	if err := h.recoveryService.ResendOTP(r.Context()); err != nil {
		response.FromError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "If an account exists for this email, a new verification code has been sent")
}
