package handlers

import (
	"net/http"

	"github.com/diagnosis/quickstay/internal/domain"
	"github.com/diagnosis/quickstay/internal/http/response"
)

func (h *Handlers) GetProfile(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}

	u, err := h.authService.GetProfile(r.Context(), c.Sub)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u.ToProfile())
}

func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	var req domain.UpdateProfileRequest
	if !decode(w, r, &req) {
		return
	}

	u, err := h.authService.UpdateProfile(r.Context(), c.Sub, &req)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u.ToProfile())
}

func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	var req domain.ChangePasswordRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.authService.ChangePassword(r.Context(), c.Sub, &req); err != nil {
		response.FromError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Password updated")
}

// DeactivateAccount soft-deletes the caller's account.
func (h *Handlers) DeactivateAccount(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}

	if err := h.authService.Deactivate(r.Context(), c.Sub); err != nil {
		response.FromError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Account deactivated")
}
