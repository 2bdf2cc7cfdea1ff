package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/amu-events/server/internal/api/middleware"
	"github.com/amu-events/server/internal/api/problem"
	"github.com/amu-events/server/internal/domain/events"
	"github.com/amu-events/server/internal/domain/registrations"
	"github.com/amu-events/server/internal/metrics"
)

type EventsHandler struct {
	Events        *events.Service
	Registrations *registrations.Service
	Env           string
}

func NewEventsHandler(eventService *events.Service, registrationService *registrations.Service, env string) *EventsHandler {
	return &EventsHandler{Events: eventService, Registrations: registrationService, Env: env}
}

func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.Events.List(r.Context())
	if err != nil {
		writeServerError(w, r, h.Env, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *EventsHandler) Get(w http.ResponseWriter, r *http.Request) {
	event, err := h.Events.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, events.ErrNotFound) {
			problem.Write(w, r, http.StatusNotFound,
				problemBase+"not-found", "Event not found", err, h.Env)
			return
		}
		writeServerError(w, r, h.Env, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

type eventRequest struct {
	Title       string `json:"title" validate:"required,min=3,max=200"`
	Description string `json:"description" validate:"required"`
	Date        string `json:"date" validate:"required"`
	Location    string `json:"location" validate:"required"`
	MaxSpots    int    `json:"maxSpots" validate:"required,min=1"`
}

func (req *eventRequest) parseDate(w http.ResponseWriter, r *http.Request, env string) (time.Time, bool) {
	date, err := time.Parse(time.RFC3339, req.Date)
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest,
			problemBase+"validation-error", "Invalid request", err, env,
			problem.WithErrors(map[string]any{"date": "must be an RFC 3339 timestamp"}))
		return time.Time{}, false
	}
	return date, true
}

func (h *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		problem.Write(w, r, http.StatusUnauthorized,
			problemBase+"unauthorized", "Authentication required", problem.ErrUnauthorized, h.Env)
		return
	}

	var req eventRequest
	if !decodeAndValidate(w, r, h.Env, &req) {
		return
	}
	date, ok := req.parseDate(w, r, h.Env)
	if !ok {
		return
	}

	event, err := h.Events.Create(r.Context(), events.CreateParams{
		Title:       req.Title,
		Description: req.Description,
		Date:        date,
		Location:    req.Location,
		MaxSpots:    req.MaxSpots,
		CreatorID:   claims.Subject,
	})
	if err != nil {
		if errors.Is(err, events.ErrInvalidCapacity) {
			problem.Write(w, r, http.StatusBadRequest,
				problemBase+"invalid-capacity", "Event capacity must be at least 1", err, h.Env)
			return
		}
		writeServerError(w, r, h.Env, err)
		return
	}

	writeJSON(w, http.StatusCreated, event)
}

func (h *EventsHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		problem.Write(w, r, http.StatusUnauthorized,
			problemBase+"unauthorized", "Authentication required", problem.ErrUnauthorized, h.Env)
		return
	}

	var req eventRequest
	if !decodeAndValidate(w, r, h.Env, &req) {
		return
	}
	date, ok := req.parseDate(w, r, h.Env)
	if !ok {
		return
	}

	event, err := h.Events.Update(r.Context(), r.PathValue("id"), events.UpdateParams{
		Title:       req.Title,
		Description: req.Description,
		Date:        date,
		Location:    req.Location,
		MaxSpots:    req.MaxSpots,
	}, events.Actor{ID: claims.Subject, Role: claims.Role})
	if err != nil {
		switch {
		case errors.Is(err, events.ErrNotFound):
			problem.Write(w, r, http.StatusNotFound,
				problemBase+"not-found", "Event not found", err, h.Env)
		case errors.Is(err, events.ErrForbidden):
			problem.Write(w, r, http.StatusForbidden,
				problemBase+"forbidden", "Only the event creator or an admin can update this event", err, h.Env)
		case errors.Is(err, events.ErrInvalidCapacity):
			problem.Write(w, r, http.StatusBadRequest,
				problemBase+"invalid-capacity", "Event capacity must be at least 1", err, h.Env)
		default:
			writeServerError(w, r, h.Env, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, event)
}

func (h *EventsHandler) Register(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		problem.Write(w, r, http.StatusUnauthorized,
			problemBase+"unauthorized", "Authentication required", problem.ErrUnauthorized, h.Env)
		return
	}

	registration, err := h.Registrations.Register(r.Context(), r.PathValue("id"), claims.Subject)
	if err != nil {
		switch {
		case errors.Is(err, registrations.ErrEventNotFound):
			metrics.RegistrationsTotal.WithLabelValues("not_found").Inc()
			problem.Write(w, r, http.StatusNotFound,
				problemBase+"not-found", "Event not found", err, h.Env)
		case errors.Is(err, registrations.ErrEventFull):
			metrics.RegistrationsTotal.WithLabelValues("full").Inc()
			problem.Write(w, r, http.StatusBadRequest,
				problemBase+"event-full", "Event is full", err, h.Env)
		case errors.Is(err, registrations.ErrAlreadyRegistered):
			metrics.RegistrationsTotal.WithLabelValues("duplicate").Inc()
			problem.Write(w, r, http.StatusBadRequest,
				problemBase+"already-registered", "Already registered", err, h.Env)
		default:
			metrics.RegistrationsTotal.WithLabelValues("error").Inc()
			writeServerError(w, r, h.Env, err)
		}
		return
	}

	metrics.RegistrationsTotal.WithLabelValues("success").Inc()
	writeJSON(w, http.StatusCreated, registration)
}

func (h *EventsHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		problem.Write(w, r, http.StatusUnauthorized,
			problemBase+"unauthorized", "Authentication required", problem.ErrUnauthorized, h.Env)
		return
	}

	err := h.Registrations.Unregister(r.Context(), r.PathValue("id"), claims.Subject)
	if err != nil {
		if errors.Is(err, registrations.ErrRegistrationNotFound) {
			problem.Write(w, r, http.StatusNotFound,
				problemBase+"not-found", "Registration not found", err, h.Env)
			return
		}
		writeServerError(w, r, h.Env, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"message": "Unregistered successfully"})
}
