package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/amu-events/server/internal/api/middleware"
	"github.com/amu-events/server/internal/audit"
	"github.com/amu-events/server/internal/auth"
	"github.com/amu-events/server/internal/domain/events"
	"github.com/amu-events/server/internal/domain/registrations"
	"github.com/amu-events/server/internal/domain/users"
	"github.com/rs/zerolog"
)

const testEnv = "test"

var testJWT = auth.NewJWTManager("handler-test-secret", time.Hour, "test")

// bearerFor issues a real token so tests exercise the same middleware path
// as production requests.
func bearerFor(userID, email, role string) string {
	token, err := testJWT.Generate(userID, email, role)
	if err != nil {
		panic(err)
	}
	return "Bearer " + token
}

func authenticated(h http.HandlerFunc) http.Handler {
	return middleware.JWTAuth(testJWT, testEnv)(h)
}

func adminProtected(h http.HandlerFunc) http.Handler {
	return middleware.JWTAuth(testJWT, testEnv)(middleware.RequireAdmin(testEnv)(h))
}

// stubUserRepo backs the users service in handler tests. Unset func fields
// fall back to not-found.
type stubUserRepo struct {
	getByEmailFn func(email string) (*users.User, error)
	getByIDFn    func(id string) (*users.User, error)
	getByTokenFn func(token string) (*users.User, error)
	createFn     func(params users.CreateParams) (*users.User, error)
	listFn       func() ([]users.AdminUser, error)
	deleteFn     func(id string) error
}

func (s stubUserRepo) Create(_ context.Context, params users.CreateParams) (*users.User, error) {
	if s.createFn == nil {
		return nil, users.ErrUserNotFound
	}
	return s.createFn(params)
}

func (s stubUserRepo) GetByID(_ context.Context, id string) (*users.User, error) {
	if s.getByIDFn == nil {
		return nil, users.ErrUserNotFound
	}
	return s.getByIDFn(id)
}

func (s stubUserRepo) GetByEmail(_ context.Context, email string) (*users.User, error) {
	if s.getByEmailFn == nil {
		return nil, users.ErrUserNotFound
	}
	return s.getByEmailFn(email)
}

func (s stubUserRepo) GetByVerificationToken(_ context.Context, token string) (*users.User, error) {
	if s.getByTokenFn == nil {
		return nil, users.ErrUserNotFound
	}
	return s.getByTokenFn(token)
}

func (s stubUserRepo) MarkVerified(_ context.Context, _ string) error { return nil }
func (s stubUserRepo) RotateVerificationToken(_ context.Context, _, _ string, _ time.Time) error {
	return nil
}

func (s stubUserRepo) List(_ context.Context) ([]users.AdminUser, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn()
}

func (s stubUserRepo) Delete(_ context.Context, id string) error {
	if s.deleteFn == nil {
		return users.ErrUserNotFound
	}
	return s.deleteFn(id)
}

func (s stubUserRepo) SetBlocked(_ context.Context, _ string, _ bool) error { return nil }
func (s stubUserRepo) SetRole(_ context.Context, _, _ string) error         { return nil }

type noopUserNotifier struct{}

func (noopUserNotifier) SendVerification(_ context.Context, _, _, _ string) error { return nil }

func newUserService(repo users.Repository) *users.Service {
	return users.NewService(repo, noopUserNotifier{}, testJWT, 24*time.Hour, zerolog.Nop())
}

// stubEventRepo backs the events service in handler tests.
type stubEventRepo struct {
	listFn   func() ([]events.Event, error)
	getFn    func(id string) (*events.Event, error)
	createFn func(params events.CreateParams) (*events.Event, error)
	updateFn func(id string, params events.UpdateParams) (*events.Event, error)
	deleteFn func(id string) error
}

func (s stubEventRepo) List(_ context.Context) ([]events.Event, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn()
}

func (s stubEventRepo) Get(_ context.Context, id string) (*events.Event, error) {
	if s.getFn == nil {
		return nil, events.ErrNotFound
	}
	return s.getFn(id)
}

func (s stubEventRepo) Create(_ context.Context, params events.CreateParams) (*events.Event, error) {
	if s.createFn == nil {
		return nil, events.ErrNotFound
	}
	return s.createFn(params)
}

func (s stubEventRepo) Update(_ context.Context, id string, params events.UpdateParams) (*events.Event, error) {
	if s.updateFn == nil {
		return nil, events.ErrNotFound
	}
	return s.updateFn(id, params)
}

func (s stubEventRepo) Delete(_ context.Context, id string) error {
	if s.deleteFn == nil {
		return events.ErrNotFound
	}
	return s.deleteFn(id)
}

func (s stubEventRepo) RegistrantEmails(_ context.Context, _ string) ([]string, error) {
	return nil, nil
}

type noopDirectory struct{}

func (noopDirectory) AdminEmails(_ context.Context) ([]string, error) { return nil, nil }

type noopEventNotifier struct{}

func (noopEventNotifier) SendEventCreated(_ context.Context, _ *events.Event, _ []string) error {
	return nil
}

func (noopEventNotifier) SendEventUpdated(_ context.Context, _ *events.Event, _ []string, _, _ []string) error {
	return nil
}

func newEventService(repo events.Repository) *events.Service {
	return events.NewService(repo, noopDirectory{}, noopEventNotifier{},
		audit.NewLogger(zerolog.Nop()), zerolog.Nop())
}

// stubRegistrationRepo backs the registrations service in handler tests.
type stubRegistrationRepo struct {
	registerFn   func(eventID, userID string) (*registrations.Registration, error)
	unregisterFn func(eventID, userID string) error
	listAllFn    func() ([]registrations.AdminRegistration, error)
}

func (s stubRegistrationRepo) Register(_ context.Context, eventID, userID string) (*registrations.Registration, error) {
	if s.registerFn == nil {
		return nil, registrations.ErrEventNotFound
	}
	return s.registerFn(eventID, userID)
}

func (s stubRegistrationRepo) Unregister(_ context.Context, eventID, userID string) error {
	if s.unregisterFn == nil {
		return registrations.ErrRegistrationNotFound
	}
	return s.unregisterFn(eventID, userID)
}

func (s stubRegistrationRepo) ListAll(_ context.Context) ([]registrations.AdminRegistration, error) {
	if s.listAllFn == nil {
		return nil, nil
	}
	return s.listAllFn()
}

func (s stubRegistrationRepo) EventInfo(_ context.Context, eventID string) (registrations.EventInfo, error) {
	return registrations.EventInfo{ID: eventID, Title: "Test Event", OrganizerEmail: "org@univ-amu.fr"}, nil
}

type noopRegistrationNotifier struct{}

func (noopRegistrationNotifier) SendNewRegistration(_ context.Context, _ registrations.EventInfo, _ registrations.Person) error {
	return nil
}

func newRegistrationService(repo registrations.Repository) *registrations.Service {
	return registrations.NewService(repo, noopRegistrationNotifier{}, zerolog.Nop())
}
