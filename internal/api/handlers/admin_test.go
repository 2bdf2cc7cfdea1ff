package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/amu-events/server/internal/audit"
	"github.com/amu-events/server/internal/domain/events"
	"github.com/amu-events/server/internal/domain/registrations"
	"github.com/amu-events/server/internal/domain/users"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func adminMux(h *AdminHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /api/admin/users", adminProtected(h.ListUsers))
	mux.Handle("GET /api/admin/registrations", adminProtected(h.ListRegistrations))
	mux.Handle("DELETE /api/admin/events/{id}", adminProtected(h.DeleteEvent))
	mux.Handle("DELETE /api/admin/users/{id}", adminProtected(h.DeleteUser))
	mux.Handle("PUT /api/admin/users/{id}/block", adminProtected(h.ToggleBlock))
	mux.Handle("PUT /api/admin/users/{id}/role", adminProtected(h.ChangeRole))
	return mux
}

func newAdminHandler(userRepo users.Repository, eventRepo events.Repository, regRepo registrations.Repository) *AdminHandler {
	adminService := users.NewAdminService(userRepo, audit.NewLogger(zerolog.Nop()))
	return NewAdminHandler(adminService, newEventService(eventRepo), newRegistrationService(regRepo), testEnv)
}

func adminToken() string {
	return bearerFor("admin-1", "admin@univ-amu.fr", users.RoleAdmin)
}

func TestAdminRoutes_RejectNonAdmin(t *testing.T) {
	h := newAdminHandler(stubUserRepo{}, stubEventRepo{}, stubRegistrationRepo{})

	req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	req.Header.Set("Authorization", bearerFor("u1", "marie@univ-amu.fr", users.RoleUser))
	res := httptest.NewRecorder()
	adminMux(h).ServeHTTP(res, req)

	require.Equal(t, http.StatusForbidden, res.Code)
}

func TestAdminListUsers(t *testing.T) {
	repo := stubUserRepo{
		listFn: func() ([]users.AdminUser, error) {
			return []users.AdminUser{
				{ID: "u1", Email: "marie@univ-amu.fr", EventsCreated: 2, Registrations: 5},
			}, nil
		},
	}
	h := newAdminHandler(repo, stubEventRepo{}, stubRegistrationRepo{})

	req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	req.Header.Set("Authorization", adminToken())
	res := httptest.NewRecorder()
	adminMux(h).ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), `"eventsCreated":2`)
}

func TestAdminDeleteEvent(t *testing.T) {
	deleted := ""
	repo := stubEventRepo{
		getFn: func(id string) (*events.Event, error) {
			return &events.Event{ID: id, Title: "Campus Tour"}, nil
		},
		deleteFn: func(id string) error {
			deleted = id
			return nil
		},
	}
	h := newAdminHandler(stubUserRepo{}, repo, stubRegistrationRepo{})

	req := httptest.NewRequest(http.MethodDelete, "/api/admin/events/e1", nil)
	req.Header.Set("Authorization", adminToken())
	res := httptest.NewRecorder()
	adminMux(h).ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, "e1", deleted)
	require.Contains(t, res.Body.String(), "Event deleted successfully")
}

func TestAdminDeleteUser_SelfRejected(t *testing.T) {
	h := newAdminHandler(stubUserRepo{}, stubEventRepo{}, stubRegistrationRepo{})

	req := httptest.NewRequest(http.MethodDelete, "/api/admin/users/admin-1", nil)
	req.Header.Set("Authorization", adminToken())
	res := httptest.NewRecorder()
	adminMux(h).ServeHTTP(res, req)

	require.Equal(t, http.StatusBadRequest, res.Code)
	require.Contains(t, res.Body.String(), "https://amu.events/problems/self-action")
}

func TestAdminToggleBlock(t *testing.T) {
	repo := stubUserRepo{
		getByIDFn: func(id string) (*users.User, error) {
			return &users.User{ID: id, Email: "marie@univ-amu.fr", IsBlocked: false}, nil
		},
	}
	h := newAdminHandler(repo, stubEventRepo{}, stubRegistrationRepo{})

	req := httptest.NewRequest(http.MethodPut, "/api/admin/users/u1/block", nil)
	req.Header.Set("Authorization", adminToken())
	res := httptest.NewRecorder()
	adminMux(h).ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), `"isBlocked":true`)
	require.Contains(t, res.Body.String(), "User blocked successfully")
}

func TestAdminChangeRole(t *testing.T) {
	repo := stubUserRepo{
		getByIDFn: func(id string) (*users.User, error) {
			return &users.User{ID: id, Email: "marie@univ-amu.fr", Role: users.RoleUser}, nil
		},
	}
	h := newAdminHandler(repo, stubEventRepo{}, stubRegistrationRepo{})

	req := httptest.NewRequest(http.MethodPut, "/api/admin/users/u1/role",
		strings.NewReader(`{"role":"ADMIN"}`))
	req.Header.Set("Authorization", adminToken())
	res := httptest.NewRecorder()
	adminMux(h).ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), "User role updated successfully")
}

func TestAdminChangeRole_RejectsUnknownRole(t *testing.T) {
	h := newAdminHandler(stubUserRepo{}, stubEventRepo{}, stubRegistrationRepo{})

	req := httptest.NewRequest(http.MethodPut, "/api/admin/users/u1/role",
		strings.NewReader(`{"role":"SUPERUSER"}`))
	req.Header.Set("Authorization", adminToken())
	res := httptest.NewRecorder()
	adminMux(h).ServeHTTP(res, req)

	require.Equal(t, http.StatusBadRequest, res.Code)
}
