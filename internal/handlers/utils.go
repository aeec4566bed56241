package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/smartassist/apiserver/internal/auth"
	"github.com/smartassist/apiserver/internal/services"
	"github.com/smartassist/apiserver/internal/store"
	"github.com/smartassist/apiserver/types"
)

const (
	defaultPage     = 1
	maxJSONBodySize = 1 << 20
)

type contextKey string

const contextUserKey contextKey = "user"

// ErrorResponse is a simple error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse acknowledges an operation without returning a resource.
type MessageResponse struct {
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// WithUser stores the resolved identity of a request.
func WithUser(ctx context.Context, user types.User) context.Context {
	return context.WithValue(ctx, contextUserKey, user)
}

// UserFromContext returns the identity stored by the auth middleware. Routes
// behind optional auth always find one, possibly the guest.
func UserFromContext(ctx context.Context) (types.User, bool) {
	user, ok := ctx.Value(contextUserKey).(types.User)
	return user, ok
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeServiceError maps a service or auth failure to a response. notFound is
// the message used for store.ErrNotFound.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger logrus.FieldLogger, err error, notFound string) {
	if verr, ok := services.IsValidation(err); ok {
		writeError(w, http.StatusBadRequest, verr.Message)
		return
	}
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, notFound)
		return
	}
	if errors.Is(err, services.ErrAnalysisUnavailable) {
		logger.WithError(err).WithField("path", r.URL.Path).Warn("analysis unavailable")
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	var authErr *auth.Error
	if errors.As(err, &authErr) {
		writeAuthError(w, r, logger, err)
		return
	}

	logger.WithError(err).WithField("path", r.URL.Path).Error("request failed")
	writeError(w, http.StatusInternalServerError, auth.PublicMessage(err))
}

// writeAuthError renders an auth failure. Infrastructure detail is logged
// and never sent to the client.
func writeAuthError(w http.ResponseWriter, r *http.Request, logger logrus.FieldLogger, err error) {
	switch auth.KindOf(err) {
	case auth.Unauthenticated, auth.InvalidCredentials:
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, auth.PublicMessage(err))
	case auth.Forbidden:
		writeError(w, http.StatusForbidden, auth.PublicMessage(err))
	case auth.WeakPassword:
		writeError(w, http.StatusBadRequest, auth.PublicMessage(err))
	default:
		logger.WithError(err).WithField("path", r.URL.Path).Error("auth infrastructure failure")
		writeError(w, http.StatusInternalServerError, auth.PublicMessage(err))
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodySize))
	if err := decoder.Decode(dst); err != nil {
		return errors.New("invalid request")
	}
	return nil
}

func parseIDParam(r *http.Request, name string) (int, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

// parsePagination reads page and limit. Limit is left at 0 when absent so the
// service can apply its own default and cap.
func parsePagination(r *http.Request) (page, limit int, err error) {
	page = defaultPage

	if raw := strings.TrimSpace(r.URL.Query().Get("page")); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 1 {
			return 0, 0, errors.New("invalid page")
		}
	}

	rawLimit := strings.TrimSpace(r.URL.Query().Get("limit"))
	if rawLimit == "" {
		rawLimit = strings.TrimSpace(r.URL.Query().Get("per_page"))
	}
	if rawLimit != "" {
		limit, err = strconv.Atoi(rawLimit)
		if err != nil || limit < 1 {
			return 0, 0, errors.New("invalid limit")
		}
	}

	return page, limit, nil
}

// parseLimitOffset reads limit and offset for feed-style listings.
func parseLimitOffset(r *http.Request) (limit, offset int, err error) {
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return 0, 0, errors.New("invalid limit")
		}
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("offset")); raw != "" {
		offset, err = strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return 0, 0, errors.New("invalid offset")
		}
	}
	return limit, offset, nil
}
