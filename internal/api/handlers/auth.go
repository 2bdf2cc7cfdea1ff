package handlers

import (
	"errors"
	"net/http"

	"github.com/amu-events/server/internal/api/middleware"
	"github.com/amu-events/server/internal/api/problem"
	"github.com/amu-events/server/internal/domain/users"
	"github.com/amu-events/server/internal/metrics"
)

type AuthHandler struct {
	Users *users.Service
	Env   string
}

func NewAuthHandler(service *users.Service, env string) *AuthHandler {
	return &AuthHandler{Users: service, Env: env}
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required,min=2,max=100"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeAndValidate(w, r, h.Env, &req) {
		return
	}

	user, err := h.Users.Register(r.Context(), users.RegisterParams{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		if errors.Is(err, users.ErrEmailTaken) {
			problem.Write(w, r, http.StatusBadRequest,
				problemBase+"email-taken", "Email already registered", err, h.Env)
			return
		}
		writeServerError(w, r, h.Env, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Registration successful! Please check your email to verify your account.",
		"email":   user.Email,
	})
}

func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if token == "" {
		problem.Write(w, r, http.StatusBadRequest,
			problemBase+"validation-error", "Invalid request",
			errors.New("missing verification token"), h.Env)
		return
	}

	result, err := h.Users.VerifyEmail(r.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, users.ErrTokenNotFound):
			problem.Write(w, r, http.StatusBadRequest,
				problemBase+"invalid-token", "Invalid or expired verification token", err, h.Env)
		case errors.Is(err, users.ErrTokenExpired):
			problem.Write(w, r, http.StatusBadRequest,
				problemBase+"token-expired", "Verification token has expired", err, h.Env,
				problem.WithErrors(map[string]any{"canResend": true}))
		default:
			writeServerError(w, r, h.Env, err)
		}
		return
	}

	if result.AlreadyVerified {
		writeJSON(w, http.StatusOK, map[string]any{
			"message":         "Email already verified. You can login now.",
			"alreadyVerified": true,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Email verified successfully! You can now login.",
		"verified": true,
	})
}

type resendRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req resendRequest
	if !decodeAndValidate(w, r, h.Env, &req) {
		return
	}

	if err := h.Users.ResendVerification(r.Context(), req.Email); err != nil {
		if errors.Is(err, users.ErrAlreadyVerified) {
			problem.Write(w, r, http.StatusBadRequest,
				problemBase+"already-verified", "Email already verified", err, h.Env)
			return
		}
		writeServerError(w, r, h.Env, err)
		return
	}

	// Unknown addresses get the same response so the endpoint cannot be
	// used to probe which emails have accounts.
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "If an account exists with this email, a verification link will be sent.",
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeAndValidate(w, r, h.Env, &req) {
		return
	}

	session, err := h.Users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, users.ErrInvalidCredentials):
			metrics.LoginAttemptsTotal.WithLabelValues("invalid").Inc()
			problem.Write(w, r, http.StatusUnauthorized,
				problemBase+"invalid-credentials", "Invalid credentials", err, h.Env)
		case errors.Is(err, users.ErrAccountBlocked):
			metrics.LoginAttemptsTotal.WithLabelValues("blocked").Inc()
			problem.Write(w, r, http.StatusForbidden,
				problemBase+"account-blocked", "Your account has been blocked. Please contact support.", err, h.Env)
		case errors.Is(err, users.ErrEmailNotVerified):
			metrics.LoginAttemptsTotal.WithLabelValues("unverified").Inc()
			problem.Write(w, r, http.StatusForbidden,
				problemBase+"email-not-verified", "Please verify your email before logging in", err, h.Env,
				problem.WithErrors(map[string]any{
					"emailNotVerified": true,
					"email":            req.Email,
				}))
		default:
			writeServerError(w, r, h.Env, err)
		}
		return
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	writeJSON(w, http.StatusOK, session)
}

func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		problem.Write(w, r, http.StatusUnauthorized,
			problemBase+"unauthorized", "Authentication required", problem.ErrUnauthorized, h.Env)
		return
	}

	profile, err := h.Users.Profile(r.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			problem.Write(w, r, http.StatusNotFound,
				problemBase+"not-found", "User not found", err, h.Env)
			return
		}
		writeServerError(w, r, h.Env, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}
