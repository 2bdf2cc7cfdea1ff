package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/amu-events/server/internal/config"
	"github.com/amu-events/server/internal/domain/events"
	"github.com/amu-events/server/internal/domain/registrations"
	"github.com/amu-events/server/internal/metrics"
	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

//go:embed templates/*.html
var templateFS embed.FS

// Service renders and delivers transactional email. When the service is
// disabled it logs the would-be delivery and reports success, so callers
// never branch on the email configuration.
type Service struct {
	config      config.EmailConfig
	frontendURL string
	templates   *template.Template
	client      *resend.Client
	logger      zerolog.Logger
}

type verificationData struct {
	Name            string
	VerificationURL string
	CurrentYear     int
}

type eventCreatedData struct {
	Event       *events.Event
	CreatorName string
	CreatorMail string
	EventDate   string
}

type eventUpdatedData struct {
	Event     *events.Event
	Changes   []string
	EventDate string
}

type newRegistrationData struct {
	EventTitle    string
	AttendeeName  string
	AttendeeEmail string
}

func NewService(cfg config.EmailConfig, frontendURL string, logger zerolog.Logger) (*Service, error) {
	if cfg.Enabled {
		if err := validateAddress(cfg.From); err != nil {
			return nil, fmt.Errorf("invalid sender email in config: %w", err)
		}
	}

	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}

	s := &Service{
		config:      cfg,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		templates:   templates,
		logger:      logger.With().Str("component", "email").Logger(),
	}
	if cfg.Enabled {
		s.client = resend.NewClient(cfg.ResendAPIKey)
	}
	return s, nil
}

// SendVerification emails the account verification link to a new user.
func (s *Service) SendVerification(ctx context.Context, to, name, token string) error {
	if err := validateAddress(to); err != nil {
		return fmt.Errorf("invalid recipient email: %w", err)
	}

	verificationURL := fmt.Sprintf("%s/verify-email/%s", s.frontendURL, url.PathEscape(token))
	if !s.config.Enabled {
		s.logger.Info().
			Str("to", to).
			Str("link", verificationURL).
			Msg("email service disabled, skipping verification email")
		return nil
	}

	body, err := s.render("verification.html", verificationData{
		Name:            name,
		VerificationURL: verificationURL,
		CurrentYear:     time.Now().Year(),
	})
	if err != nil {
		return err
	}
	if err := s.send(ctx, []string{to}, nil, "Verify Your Email - AixMarseilleEvents", body); err != nil {
		metrics.VerificationEmailsTotal.WithLabelValues("failed").Inc()
		return err
	}
	metrics.VerificationEmailsTotal.WithLabelValues("sent").Inc()
	return nil
}

// SendEventCreated notifies administrators that a new event needs review.
func (s *Service) SendEventCreated(ctx context.Context, event *events.Event, recipients []string) error {
	if len(recipients) == 0 {
		return nil
	}
	if !s.config.Enabled {
		s.logger.Info().
			Str("event_id", event.ID).
			Int("recipients", len(recipients)).
			Msg("email service disabled, skipping event created email")
		return nil
	}

	body, err := s.render("event_created.html", eventCreatedData{
		Event:       event,
		CreatorName: event.Creator.Name,
		CreatorMail: event.Creator.Email,
		EventDate:   event.Date.Format("Monday, 2 January 2006 at 15:04"),
	})
	if err != nil {
		return err
	}
	return s.send(ctx, []string{s.config.From}, recipients, "New Event: "+event.Title, body)
}

// SendEventUpdated notifies registrants and administrators about changes to
// an event. Registrants and admins receive separate messages so admins can
// filter on the subject prefix.
func (s *Service) SendEventUpdated(ctx context.Context, event *events.Event, changes []string, registrants, admins []string) error {
	if len(registrants) == 0 && len(admins) == 0 {
		return nil
	}
	if !s.config.Enabled {
		s.logger.Info().
			Str("event_id", event.ID).
			Int("registrants", len(registrants)).
			Int("admins", len(admins)).
			Msg("email service disabled, skipping event updated email")
		return nil
	}

	body, err := s.render("event_updated.html", eventUpdatedData{
		Event:     event,
		Changes:   changes,
		EventDate: event.Date.Format("Monday, 2 January 2006 at 15:04"),
	})
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	if len(registrants) > 0 {
		g.Go(func() error {
			return s.send(ctx, []string{s.config.From}, registrants, "Update: "+event.Title, body)
		})
	}
	if len(admins) > 0 {
		g.Go(func() error {
			return s.send(ctx, []string{s.config.From}, admins, "[Admin] Event Update: "+event.Title, body)
		})
	}
	return g.Wait()
}

// SendNewRegistration tells an event organizer that someone signed up.
func (s *Service) SendNewRegistration(ctx context.Context, event registrations.EventInfo, attendee registrations.Person) error {
	if err := validateAddress(event.OrganizerEmail); err != nil {
		return fmt.Errorf("invalid organizer email: %w", err)
	}
	if !s.config.Enabled {
		s.logger.Info().
			Str("event_id", event.ID).
			Str("to", event.OrganizerEmail).
			Msg("email service disabled, skipping registration email")
		return nil
	}

	body, err := s.render("new_registration.html", newRegistrationData{
		EventTitle:    event.Title,
		AttendeeName:  attendee.Name,
		AttendeeEmail: attendee.Email,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, []string{event.OrganizerEmail}, nil, "New Registration for "+event.Title, body)
}

func (s *Service) render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("execute template %s: %w", name, err)
	}
	return buf.String(), nil
}

// validateAddress checks format and rejects header injection attempts.
func validateAddress(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return fmt.Errorf("invalid email format: %w", err)
	}
	if strings.ContainsAny(addr.Address, "\r\n") {
		return fmt.Errorf("invalid email address: contains newline characters")
	}
	return nil
}
