package users

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/amu-events/server/internal/auth"
	"github.com/rs/zerolog"
)

// Repository is the persistence surface the user service depends on.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByVerificationToken(ctx context.Context, token string) (*User, error)
	// MarkVerified sets email_verified and clears the token and expiry in a
	// single statement.
	MarkVerified(ctx context.Context, id string) error
	RotateVerificationToken(ctx context.Context, id, token string, expires time.Time) error
	List(ctx context.Context) ([]AdminUser, error)
	// Delete removes the user, their registrations, their created events and
	// those events' registrations in one transaction.
	Delete(ctx context.Context, id string) error
	SetBlocked(ctx context.Context, id string, blocked bool) error
	SetRole(ctx context.Context, id, role string) error
}

// Notifier sends account mail. Implementations must be safe for concurrent use.
type Notifier interface {
	SendVerification(ctx context.Context, to, name, token string) error
}

type Service struct {
	repo               Repository
	notifier           Notifier
	jwt                *auth.JWTManager
	verificationExpiry time.Duration
	logger             zerolog.Logger
}

func NewService(repo Repository, notifier Notifier, jwt *auth.JWTManager, verificationExpiry time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		repo:               repo,
		notifier:           notifier,
		jwt:                jwt,
		verificationExpiry: verificationExpiry,
		logger:             logger.With().Str("component", "users").Logger(),
	}
}

type RegisterParams struct {
	Email    string
	Password string
	Name     string
}

// Register creates an unverified account and dispatches the verification
// email. No session token is issued until the email is verified.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*User, error) {
	_, err := s.repo.GetByEmail(ctx, params.Email)
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	hash, err := auth.HashPassword(params.Password)
	if err != nil {
		return nil, err
	}

	token, err := generateSecureToken()
	if err != nil {
		return nil, err
	}
	expires := time.Now().Add(s.verificationExpiry)

	user, err := s.repo.Create(ctx, CreateParams{
		Email:               params.Email,
		PasswordHash:        hash,
		Name:                params.Name,
		Role:                RoleUser,
		EmailVerified:       false,
		VerificationToken:   &token,
		VerificationExpires: &expires,
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.dispatchVerification(user.Email, user.Name, token)
	return user, nil
}

// VerifyEmail consumes a verification token. Verifying twice is not an
// error: the second call reports AlreadyVerified without mutating anything.
func (s *Service) VerifyEmail(ctx context.Context, token string) (VerifyResult, error) {
	user, err := s.repo.GetByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return VerifyResult{}, ErrTokenNotFound
		}
		return VerifyResult{}, fmt.Errorf("lookup token: %w", err)
	}

	if user.VerificationExpires != nil && time.Now().After(*user.VerificationExpires) {
		return VerifyResult{}, ErrTokenExpired
	}

	if user.EmailVerified {
		return VerifyResult{AlreadyVerified: true}, nil
	}

	if err := s.repo.MarkVerified(ctx, user.ID); err != nil {
		return VerifyResult{}, fmt.Errorf("mark verified: %w", err)
	}
	return VerifyResult{Verified: true}, nil
}

// ResendVerification rotates the token and resends the email. An unknown
// address succeeds silently so the endpoint cannot be used to probe accounts.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.logger.Debug().Msg("resend requested for unknown email")
			return nil
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	if user.EmailVerified {
		return ErrAlreadyVerified
	}

	token, err := generateSecureToken()
	if err != nil {
		return err
	}
	expires := time.Now().Add(s.verificationExpiry)

	if err := s.repo.RotateVerificationToken(ctx, user.ID, token, expires); err != nil {
		return fmt.Errorf("rotate token: %w", err)
	}

	s.dispatchVerification(user.Email, user.Name, token)
	return nil
}

// Login verifies credentials and issues a signed session token. Admins are
// exempt from the email-verification requirement; seeded admins are created
// pre-verified.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if !auth.VerifyPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	if user.IsBlocked {
		return nil, ErrAccountBlocked
	}

	if !user.EmailVerified && user.Role != RoleAdmin {
		return nil, ErrEmailNotVerified
	}

	token, err := s.jwt.Generate(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("sign session: %w", err)
	}

	return &Session{Token: token, User: user.Projection()}, nil
}

func (s *Service) Profile(ctx context.Context, userID string) (*Profile, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Profile{
		ID:            user.ID,
		Email:         user.Email,
		Name:          user.Name,
		Role:          user.Role,
		EmailVerified: user.EmailVerified,
		CreatedAt:     user.CreatedAt,
	}, nil
}

func (s *Service) dispatchVerification(email, name, token string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.notifier.SendVerification(ctx, email, name, token); err != nil {
			s.logger.Error().Err(err).Msg("verification email failed")
		}
	}()
}

// generateSecureToken returns 32 bytes of cryptographically secure
// randomness as URL-safe base64 (43 characters).
func generateSecureToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
