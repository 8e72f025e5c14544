package password

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/taskdeck/taskdeck/internal/httputil"
	"github.com/taskdeck/taskdeck/pkg/auth"
	"github.com/taskdeck/taskdeck/pkg/domain"
)

// Handler handles password authentication endpoints.
type Handler struct {
	logger          *slog.Logger
	passwordService *auth.PasswordService
	tokenService    *auth.TokenService
}

// NewHandler creates a new password handler.
func NewHandler(logger *slog.Logger, passwordService *auth.PasswordService, tokenService *auth.TokenService) *Handler {
	return &Handler{
		logger:          logger,
		passwordService: passwordService,
		tokenService:    tokenService,
	}
}

// RegisterRequest represents a registration request.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// LoginRequest represents a login request.
type LoginRequest struct {
	Identifier string `json:"identifier,omitempty"`
	Email      string `json:"email,omitempty"` // alias for identifier
	Password   string `json:"password"`
}

// TokenResponse represents a token response.
type TokenResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int    `json:"expires_in"`
}

// Register handles user registration.
// POST /v1/auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		httputil.Error(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.passwordService.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			httputil.Error(w, http.StatusConflict, "user already exists")
			return
		}
		if errors.Is(err, domain.ErrValidation) {
			httputil.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("registration failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "registration failed")
		return
	}

	h.writeToken(w, user, http.StatusCreated)
}

// Login handles user login. The lockout check happens inside Authenticate
// before the credential comparison; a locked identifier gets 429 with a
// retry-after, and every other failure gets the same 401 body.
// POST /v1/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	identifier := req.Identifier
	if identifier == "" {
		identifier = req.Email
	}
	if identifier == "" || req.Password == "" {
		httputil.Error(w, http.StatusBadRequest, "identifier and password are required")
		return
	}

	user, err := h.passwordService.Authenticate(r.Context(), identifier, req.Password)
	if err != nil {
		var locked *domain.LockedError
		if errors.As(err, &locked) {
			retryAfter := int(locked.RetryAfter.Seconds())
			w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
			httputil.JSON(w, http.StatusTooManyRequests, map[string]any{
				"error":       "too many failed login attempts",
				"retry_after": retryAfter,
			})
			return
		}
		if errors.Is(err, domain.ErrInvalidCredentials) {
			httputil.Error(w, http.StatusUnauthorized, "invalid identifier or password")
			return
		}
		h.logger.Error("authentication failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "authentication failed")
		return
	}

	h.writeToken(w, user, http.StatusOK)
}

func (h *Handler) writeToken(w http.ResponseWriter, user *domain.User, status int) {
	token, err := h.tokenService.Issue(user)
	if err != nil {
		h.logger.Error("failed to issue token", "error", err, "user_id", user.ID)
		httputil.Error(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	httputil.JSON(w, status, TokenResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: int(h.tokenService.TTL().Seconds()),
	})
}
