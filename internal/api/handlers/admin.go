package handlers

import (
	"errors"
	"net/http"

	"github.com/amu-events/server/internal/api/middleware"
	"github.com/amu-events/server/internal/api/problem"
	"github.com/amu-events/server/internal/domain/events"
	"github.com/amu-events/server/internal/domain/registrations"
	"github.com/amu-events/server/internal/domain/users"
)

// AdminHandler serves the admin-only management surface. Every route is
// behind RequireAdmin, so handlers can assume the session carries the
// ADMIN role.
type AdminHandler struct {
	Users         *users.AdminService
	Events        *events.Service
	Registrations *registrations.Service
	Env           string
}

func NewAdminHandler(userAdmin *users.AdminService, eventService *events.Service, registrationService *registrations.Service, env string) *AdminHandler {
	return &AdminHandler{
		Users:         userAdmin,
		Events:        eventService,
		Registrations: registrationService,
		Env:           env,
	}
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	items, err := h.Users.ListUsers(r.Context())
	if err != nil {
		writeServerError(w, r, h.Env, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *AdminHandler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	items, err := h.Registrations.ListAll(r.Context())
	if err != nil {
		writeServerError(w, r, h.Env, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *AdminHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())

	if err := h.Events.Delete(r.Context(), r.PathValue("id"), claims.Subject); err != nil {
		if errors.Is(err, events.ErrNotFound) {
			problem.Write(w, r, http.StatusNotFound,
				problemBase+"not-found", "Event not found", err, h.Env)
			return
		}
		writeServerError(w, r, h.Env, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"message": "Event deleted successfully"})
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())

	if err := h.Users.DeleteUser(r.Context(), r.PathValue("id"), claims.Subject); err != nil {
		switch {
		case errors.Is(err, users.ErrSelfDelete):
			problem.Write(w, r, http.StatusBadRequest,
				problemBase+"self-action", "You cannot delete your own account", err, h.Env)
		case errors.Is(err, users.ErrUserNotFound):
			problem.Write(w, r, http.StatusNotFound,
				problemBase+"not-found", "User not found", err, h.Env)
		default:
			writeServerError(w, r, h.Env, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"message": "User deleted successfully"})
}

func (h *AdminHandler) ToggleBlock(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())

	blocked, err := h.Users.ToggleBlock(r.Context(), r.PathValue("id"), claims.Subject)
	if err != nil {
		switch {
		case errors.Is(err, users.ErrSelfBlock):
			problem.Write(w, r, http.StatusBadRequest,
				problemBase+"self-action", "You cannot block your own account", err, h.Env)
		case errors.Is(err, users.ErrUserNotFound):
			problem.Write(w, r, http.StatusNotFound,
				problemBase+"not-found", "User not found", err, h.Env)
		default:
			writeServerError(w, r, h.Env, err)
		}
		return
	}

	message := "User unblocked successfully"
	if blocked {
		message = "User blocked successfully"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   message,
		"isBlocked": blocked,
	})
}

type changeRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=USER ADMIN"`
}

func (h *AdminHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())

	var req changeRoleRequest
	if !decodeAndValidate(w, r, h.Env, &req) {
		return
	}

	if err := h.Users.ChangeRole(r.Context(), r.PathValue("id"), req.Role, claims.Subject); err != nil {
		switch {
		case errors.Is(err, users.ErrSelfDemote):
			problem.Write(w, r, http.StatusBadRequest,
				problemBase+"self-action", "You cannot change your own role", err, h.Env)
		case errors.Is(err, users.ErrInvalidRole):
			problem.Write(w, r, http.StatusBadRequest,
				problemBase+"invalid-role", "Role must be USER or ADMIN", err, h.Env)
		case errors.Is(err, users.ErrUserNotFound):
			problem.Write(w, r, http.StatusNotFound,
				problemBase+"not-found", "User not found", err, h.Env)
		default:
			writeServerError(w, r, h.Env, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"message": "User role updated successfully"})
}
