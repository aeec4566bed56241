package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/smartassist/apiserver/internal/services"
	"github.com/smartassist/apiserver/types"
)

const tokenTypeBearer = "bearer"

// AuthHandler provides account and token endpoints.
type AuthHandler struct {
	accounts *services.AccountService
	logger   logrus.FieldLogger
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(accounts *services.AccountService, logger logrus.FieldLogger) *AuthHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &AuthHandler{accounts: accounts, logger: logger}
}

// AuthRouter registers auth routes on the given router. throttle, when not
// nil, guards the credential endpoints.
func AuthRouter(
	r chi.Router,
	accounts *services.AccountService,
	mw *AuthMiddleware,
	throttle func(http.Handler) http.Handler,
	logger logrus.FieldLogger,
) {
	handler := NewAuthHandler(accounts, logger)

	credentials := r.With()
	if throttle != nil {
		credentials = r.With(throttle)
	}
	credentials.Post("/register", handler.Register)
	credentials.Post("/login", handler.Login)

	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticated)
		r.Get("/profile", handler.Profile)
		r.Put("/profile", handler.UpdateProfile)
		r.Delete("/account", handler.DeleteAccount)
		r.Post("/refresh", handler.Refresh)
	})
}

// Register creates a new user account and returns a token.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	session, err := h.accounts.Register(r.Context(), services.RegisterInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err, "user not found")
		return
	}

	writeJSON(w, http.StatusCreated, newTokenResponse(session))
}

// Login verifies credentials and returns a token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing credentials")
		return
	}

	session, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "user not found")
		return
	}

	writeJSON(w, http.StatusOK, newTokenResponse(session))
}

// Profile returns the current authenticated user.
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentUser(r))
}

func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req ProfileUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.accounts.UpdateProfile(r.Context(), currentUser(r), services.ProfileUpdate{
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err, "user not found")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.DeleteAccount(r.Context(), currentUser(r)); err != nil {
		writeServiceError(w, r, h.logger, err, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Account deleted successfully"})
}

// Refresh issues a new token for the caller.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	session, err := h.accounts.Refresh(r.Context(), currentUser(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, newTokenResponse(session))
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ProfileUpdateRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

type TokenResponse struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
	User        types.User `json:"user"`
}

func newTokenResponse(session services.Session) TokenResponse {
	return TokenResponse{
		AccessToken: session.AccessToken,
		TokenType:   tokenTypeBearer,
		User:        session.User,
	}
}
