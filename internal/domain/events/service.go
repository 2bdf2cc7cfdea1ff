package events

import (
	"context"
	"fmt"
	"time"

	"github.com/amu-events/server/internal/audit"
	"github.com/rs/zerolog"
)

// Repository is the persistence surface the event service depends on.
type Repository interface {
	List(ctx context.Context) ([]Event, error)
	Get(ctx context.Context, id string) (*Event, error)
	Create(ctx context.Context, params CreateParams) (*Event, error)
	Update(ctx context.Context, id string, params UpdateParams) (*Event, error)
	// Delete removes the event and its registrations in one transaction.
	Delete(ctx context.Context, id string) error
	// RegistrantEmails returns the addresses of everyone registered for the
	// event, for update notifications.
	RegistrantEmails(ctx context.Context, id string) ([]string, error)
}

// Directory resolves notification recipients outside the event aggregate.
type Directory interface {
	AdminEmails(ctx context.Context) ([]string, error)
}

// Notifier sends event mail. All sends from this service are best-effort.
type Notifier interface {
	SendEventCreated(ctx context.Context, event *Event, recipients []string) error
	SendEventUpdated(ctx context.Context, event *Event, changes []string, registrants, admins []string) error
}

type Service struct {
	repo      Repository
	directory Directory
	notifier  Notifier
	audit     *audit.Logger
	logger    zerolog.Logger
}

func NewService(repo Repository, directory Directory, notifier Notifier, auditLogger *audit.Logger, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		directory: directory,
		notifier:  notifier,
		audit:     auditLogger,
		logger:    logger.With().Str("component", "events").Logger(),
	}
}

func (s *Service) List(ctx context.Context) ([]Event, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*Event, error) {
	return s.repo.Get(ctx, id)
}

// Create stores a new event and notifies admins. Notification failure never
// fails the create.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Event, error) {
	if params.MaxSpots < 1 {
		return nil, ErrInvalidCapacity
	}

	event, err := s.repo.Create(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		admins, err := s.directory.AdminEmails(ctx)
		if err != nil {
			s.logger.Error().Err(err).Msg("admin lookup for event notification failed")
			return
		}
		if err := s.notifier.SendEventCreated(ctx, event, admins); err != nil {
			s.logger.Error().Err(err).Str("event_id", event.ID).Msg("event created notification failed")
		}
	}()

	return event, nil
}

// Update applies field changes. Only the creator or an admin may update; if
// any field changed, current registrants and admins are notified with a
// rendered diff.
func (s *Service) Update(ctx context.Context, id string, params UpdateParams, actor Actor) (*Event, error) {
	if params.MaxSpots < 1 {
		return nil, ErrInvalidCapacity
	}

	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if existing.CreatorID != actor.ID && !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	changes := Diff(existing, params)

	updated, err := s.repo.Update(ctx, id, params)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}

	if len(changes) > 0 {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			registrants, err := s.repo.RegistrantEmails(ctx, id)
			if err != nil {
				s.logger.Error().Err(err).Str("event_id", id).Msg("registrant lookup failed")
				registrants = nil
			}
			admins, err := s.directory.AdminEmails(ctx)
			if err != nil {
				s.logger.Error().Err(err).Msg("admin lookup failed")
				admins = nil
			}
			if err := s.notifier.SendEventUpdated(ctx, updated, changes, registrants, admins); err != nil {
				s.logger.Error().Err(err).Str("event_id", id).Msg("event updated notification failed")
			}
		}()
	}

	return updated, nil
}

// Delete removes an event and all its registrations. Admin-only; the role
// check happens at the routing layer, the audit record here.
func (s *Service) Delete(ctx context.Context, id, actingAdminID string) error {
	event, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}

	s.audit.Record(ctx, audit.Entry{
		Action:     "event.deleted",
		ActorID:    actingAdminID,
		TargetType: "event",
		TargetID:   id,
		Details:    map[string]string{"title": event.Title},
	})
	return nil
}
