package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/amu-events/server/internal/domain/events"
	"github.com/amu-events/server/internal/domain/registrations"
	"github.com/amu-events/server/internal/domain/users"
	"github.com/stretchr/testify/require"
)

func eventsMux(h *EventsHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/events", h.List)
	mux.HandleFunc("GET /api/events/{id}", h.Get)
	mux.Handle("POST /api/events", authenticated(h.Create))
	mux.Handle("PUT /api/events/{id}", authenticated(h.Update))
	mux.Handle("POST /api/events/{id}/register", authenticated(h.Register))
	mux.Handle("POST /api/events/{id}/unregister", authenticated(h.Unregister))
	return mux
}

func newEventsHandler(eventRepo events.Repository, regRepo registrations.Repository) *EventsHandler {
	return NewEventsHandler(newEventService(eventRepo), newRegistrationService(regRepo), testEnv)
}

func TestListEvents_Public(t *testing.T) {
	repo := stubEventRepo{
		listFn: func() ([]events.Event, error) {
			return []events.Event{
				{ID: "e1", Title: "Campus Tour", MaxSpots: 30, RemainingSpots: 12},
			}, nil
		},
	}
	h := newEventsHandler(repo, stubRegistrationRepo{})

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	res := httptest.NewRecorder()
	eventsMux(h).ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), `"remainingSpots":12`)
}

func TestGetEvent_NotFound(t *testing.T) {
	h := newEventsHandler(stubEventRepo{}, stubRegistrationRepo{})

	req := httptest.NewRequest(http.MethodGet, "/api/events/missing", nil)
	res := httptest.NewRecorder()
	eventsMux(h).ServeHTTP(res, req)

	require.Equal(t, http.StatusNotFound, res.Code)
	require.Equal(t, "application/problem+json", res.Header().Get("Content-Type"))
}

func TestCreateEvent_RequiresToken(t *testing.T) {
	h := newEventsHandler(stubEventRepo{}, stubRegistrationRepo{})

	req := httptest.NewRequest(http.MethodPost, "/api/events",
		strings.NewReader(`{"title":"Campus Tour","description":"d","date":"2026-09-10T14:00:00Z","location":"Luminy","maxSpots":30}`))
	res := httptest.NewRecorder()
	eventsMux(h).ServeHTTP(res, req)

	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestCreateEvent_SetsCreatorFromSession(t *testing.T) {
	repo := stubEventRepo{
		createFn: func(params events.CreateParams) (*events.Event, error) {
			require.Equal(t, "u1", params.CreatorID)
			require.Equal(t, time.Date(2026, 9, 10, 14, 0, 0, 0, time.UTC), params.Date)
			return &events.Event{ID: "e1", Title: params.Title, MaxSpots: params.MaxSpots,
				RemainingSpots: params.MaxSpots, CreatorID: params.CreatorID}, nil
		},
	}
	h := newEventsHandler(repo, stubRegistrationRepo{})

	req := httptest.NewRequest(http.MethodPost, "/api/events",
		strings.NewReader(`{"title":"Campus Tour","description":"Visit the campus","date":"2026-09-10T14:00:00Z","location":"Luminy","maxSpots":30}`))
	req.Header.Set("Authorization", bearerFor("u1", "marie@univ-amu.fr", users.RoleUser))
	res := httptest.NewRecorder()
	eventsMux(h).ServeHTTP(res, req)

	require.Equal(t, http.StatusCreated, res.Code)
	require.Contains(t, res.Body.String(), `"creatorId":"u1"`)
}

func TestCreateEvent_RejectsBadDate(t *testing.T) {
	h := newEventsHandler(stubEventRepo{}, stubRegistrationRepo{})

	req := httptest.NewRequest(http.MethodPost, "/api/events",
		strings.NewReader(`{"title":"Campus Tour","description":"d","date":"next tuesday","location":"Luminy","maxSpots":30}`))
	req.Header.Set("Authorization", bearerFor("u1", "marie@univ-amu.fr", users.RoleUser))
	res := httptest.NewRecorder()
	eventsMux(h).ServeHTTP(res, req)

	require.Equal(t, http.StatusBadRequest, res.Code)
	require.Contains(t, res.Body.String(), "RFC 3339")
}

func TestUpdateEvent_StrangerForbidden(t *testing.T) {
	repo := stubEventRepo{
		getFn: func(id string) (*events.Event, error) {
			return &events.Event{ID: id, Title: "Campus Tour", CreatorID: "owner", MaxSpots: 30,
				Date: time.Date(2026, 9, 10, 14, 0, 0, 0, time.UTC)}, nil
		},
	}
	h := newEventsHandler(repo, stubRegistrationRepo{})

	req := httptest.NewRequest(http.MethodPut, "/api/events/e1",
		strings.NewReader(`{"title":"New Title","description":"d","date":"2026-09-10T14:00:00Z","location":"Luminy","maxSpots":30}`))
	req.Header.Set("Authorization", bearerFor("stranger", "x@univ-amu.fr", users.RoleUser))
	res := httptest.NewRecorder()
	eventsMux(h).ServeHTTP(res, req)

	require.Equal(t, http.StatusForbidden, res.Code)
	require.Contains(t, res.Body.String(), "https://amu.events/problems/forbidden")
}

func TestUpdateEvent_AdminAllowed(t *testing.T) {
	repo := stubEventRepo{
		getFn: func(id string) (*events.Event, error) {
			return &events.Event{ID: id, Title: "Campus Tour", CreatorID: "owner", MaxSpots: 30,
				Date: time.Date(2026, 9, 10, 14, 0, 0, 0, time.UTC)}, nil
		},
		updateFn: func(id string, params events.UpdateParams) (*events.Event, error) {
			return &events.Event{ID: id, Title: params.Title, CreatorID: "owner",
				MaxSpots: params.MaxSpots, Date: params.Date}, nil
		},
	}
	h := newEventsHandler(repo, stubRegistrationRepo{})

	req := httptest.NewRequest(http.MethodPut, "/api/events/e1",
		strings.NewReader(`{"title":"New Title","description":"d","date":"2026-09-10T14:00:00Z","location":"Luminy","maxSpots":30}`))
	req.Header.Set("Authorization", bearerFor("admin", "admin@univ-amu.fr", users.RoleAdmin))
	res := httptest.NewRecorder()
	eventsMux(h).ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), `"title":"New Title"`)
}

func TestRegister_FullEvent(t *testing.T) {
	repo := stubRegistrationRepo{
		registerFn: func(string, string) (*registrations.Registration, error) {
			return nil, registrations.ErrEventFull
		},
	}
	h := newEventsHandler(stubEventRepo{}, repo)

	req := httptest.NewRequest(http.MethodPost, "/api/events/e1/register", nil)
	req.Header.Set("Authorization", bearerFor("u1", "marie@univ-amu.fr", users.RoleUser))
	res := httptest.NewRecorder()
	eventsMux(h).ServeHTTP(res, req)

	require.Equal(t, http.StatusBadRequest, res.Code)
	require.Contains(t, res.Body.String(), "https://amu.events/problems/event-full")
}

func TestRegister_Duplicate(t *testing.T) {
	repo := stubRegistrationRepo{
		registerFn: func(string, string) (*registrations.Registration, error) {
			return nil, registrations.ErrAlreadyRegistered
		},
	}
	h := newEventsHandler(stubEventRepo{}, repo)

	req := httptest.NewRequest(http.MethodPost, "/api/events/e1/register", nil)
	req.Header.Set("Authorization", bearerFor("u1", "marie@univ-amu.fr", users.RoleUser))
	res := httptest.NewRecorder()
	eventsMux(h).ServeHTTP(res, req)

	require.Equal(t, http.StatusBadRequest, res.Code)
	require.Contains(t, res.Body.String(), "https://amu.events/problems/already-registered")
}

func TestRegister_Succeeds(t *testing.T) {
	repo := stubRegistrationRepo{
		registerFn: func(eventID, userID string) (*registrations.Registration, error) {
			require.Equal(t, "e1", eventID)
			require.Equal(t, "u1", userID)
			return &registrations.Registration{ID: "r1", EventID: eventID, UserID: userID,
				RegisteredAt: time.Now()}, nil
		},
	}
	h := newEventsHandler(stubEventRepo{}, repo)

	req := httptest.NewRequest(http.MethodPost, "/api/events/e1/register", nil)
	req.Header.Set("Authorization", bearerFor("u1", "marie@univ-amu.fr", users.RoleUser))
	res := httptest.NewRecorder()
	eventsMux(h).ServeHTTP(res, req)

	require.Equal(t, http.StatusCreated, res.Code)
	require.Contains(t, res.Body.String(), `"eventId":"e1"`)
}

func TestUnregister_Succeeds(t *testing.T) {
	repo := stubRegistrationRepo{
		unregisterFn: func(eventID, userID string) error {
			require.Equal(t, "e1", eventID)
			require.Equal(t, "u1", userID)
			return nil
		},
	}
	h := newEventsHandler(stubEventRepo{}, repo)

	req := httptest.NewRequest(http.MethodPost, "/api/events/e1/unregister", nil)
	req.Header.Set("Authorization", bearerFor("u1", "marie@univ-amu.fr", users.RoleUser))
	res := httptest.NewRecorder()
	eventsMux(h).ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), "Unregistered successfully")
}

func TestUnregister_NotRegistered(t *testing.T) {
	h := newEventsHandler(stubEventRepo{}, stubRegistrationRepo{})

	req := httptest.NewRequest(http.MethodPost, "/api/events/e1/unregister", nil)
	req.Header.Set("Authorization", bearerFor("u1", "marie@univ-amu.fr", users.RoleUser))
	res := httptest.NewRecorder()
	eventsMux(h).ServeHTTP(res, req)

	require.Equal(t, http.StatusNotFound, res.Code)
}
