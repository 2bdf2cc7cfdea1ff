package registrations

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Repository is the persistence surface of the registration engine.
//
// Register must perform its capacity check and insert atomically: within one
// transaction it locks the event row, counts existing registrations, rejects
// a full event or a duplicate (eventID, userID) pair, and inserts. Two
// concurrent calls racing for the last spot must never both succeed.
type Repository interface {
	Register(ctx context.Context, eventID, userID string) (*Registration, error)
	Unregister(ctx context.Context, eventID, userID string) error
	ListAll(ctx context.Context) ([]AdminRegistration, error)
	EventInfo(ctx context.Context, eventID string) (EventInfo, error)
}

// Notifier sends the organizer a note about a new registration.
type Notifier interface {
	SendNewRegistration(ctx context.Context, event EventInfo, attendee Person) error
}

type Service struct {
	repo     Repository
	notifier Notifier
	logger   zerolog.Logger
}

func NewService(repo Repository, notifier Notifier, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		logger:   logger.With().Str("component", "registrations").Logger(),
	}
}

// Register books a spot. On success the organizer is notified best-effort.
func (s *Service) Register(ctx context.Context, eventID, userID string) (*Registration, error) {
	registration, err := s.repo.Register(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		info, err := s.repo.EventInfo(ctx, eventID)
		if err != nil {
			s.logger.Error().Err(err).Str("event_id", eventID).Msg("event lookup for registration notification failed")
			return
		}
		if err := s.notifier.SendNewRegistration(ctx, info, registration.User); err != nil {
			s.logger.Error().Err(err).Str("event_id", eventID).Msg("registration notification failed")
		}
	}()

	return registration, nil
}

// Unregister removes the caller's registration. A second call fails with
// ErrRegistrationNotFound rather than silently succeeding.
func (s *Service) Unregister(ctx context.Context, eventID, userID string) error {
	return s.repo.Unregister(ctx, eventID, userID)
}

// ListAll returns every registration with user and event projections,
// newest first. Admin-only at the routing layer.
func (s *Service) ListAll(ctx context.Context) ([]AdminRegistration, error) {
	return s.repo.ListAll(ctx)
}
