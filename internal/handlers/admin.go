package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/smartassist/apiserver/internal/services"
	"github.com/smartassist/apiserver/types"
)

// AdminHandler provides user management for administrators.
type AdminHandler struct {
	accounts *services.AccountService
	logger   logrus.FieldLogger
}

func NewAdminHandler(accounts *services.AccountService, logger logrus.FieldLogger) *AdminHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &AdminHandler{accounts: accounts, logger: logger}
}

// AdminRouter registers admin routes. Every route requires the admin role.
func AdminRouter(r chi.Router, accounts *services.AccountService, mw *AuthMiddleware, logger logrus.FieldLogger) {
	handler := NewAdminHandler(accounts, logger)

	r.Use(mw.Admin)
	r.Get("/users", handler.ListUsers)
	r.Put("/users/{userID}/role", handler.ChangeRole)
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, limit, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	users, err := h.accounts.ListUsers(r.Context(), page, limit)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *AdminHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req RoleChangeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.accounts.ChangeRole(r.Context(), id, req.Role)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type RoleChangeRequest struct {
	Role types.Role `json:"role"`
}
