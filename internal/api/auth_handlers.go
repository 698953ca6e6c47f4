package api

import (
	"net/http"

	"task-manager/internal/service"
)

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if !decodeJSON(w, r, &in) {
		return
	}
	user, token, err := h.auth.Register(r.Context(), in)
	if err != nil {
		writeError(w, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, envelope{"success": true, "user": user, "token": token, "message": "Registration successful"})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	if !decodeJSON(w, r, &in) {
		return
	}
	user, token, err := h.auth.Login(r.Context(), in)
	if err != nil {
		writeError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "user": user, "token": token, "message": "Login successful"})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), currentToken(r)); err != nil {
		writeError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "message": "Logged out successfully"})
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	token, err := h.auth.Refresh(r.Context(), currentToken(r))
	if err != nil {
		writeError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "token": token, "message": "Token refreshed successfully"})
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{"success": true, "user": currentUser(r), "message": "Profile retrieved successfully"})
}

func (h *Handler) updatePreferences(w http.ResponseWriter, r *http.Request) {
	var updates map[string]any
	if !decodeJSON(w, r, &updates) {
		return
	}
	user, err := h.auth.UpdatePreferences(r.Context(), currentUser(r), updates)
	if err != nil {
		writeError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "user": user, "message": "Preferences updated successfully"})
}
