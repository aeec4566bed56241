package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/smartassist/apiserver/internal/services"
	"github.com/smartassist/apiserver/types"
)

const chatNotFound = "Chat message not found"

// ChatbotHandler serves the FAQ chatbot.
type ChatbotHandler struct {
	chatbot *services.ChatbotService
	logger  logrus.FieldLogger
}

func NewChatbotHandler(chatbot *services.ChatbotService, logger logrus.FieldLogger) *ChatbotHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ChatbotHandler{chatbot: chatbot, logger: logger}
}

// ChatbotRouter registers chatbot routes. Guests may ask and rate; history
// needs a user or admin account.
func ChatbotRouter(r chi.Router, chatbot *services.ChatbotService, mw *AuthMiddleware, logger logrus.FieldLogger) {
	handler := NewChatbotHandler(chatbot, logger)

	r.With(mw.Optional).Post("/query", handler.Query)
	r.Post("/{chatID}/feedback", handler.Feedback)
	r.With(mw.Roles(types.RoleUser, types.RoleAdmin)).Get("/history", handler.History)
}

func (h *ChatbotHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req ChatQueryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	log, err := h.chatbot.Ask(r.Context(), currentUser(r), req.Question, req.SessionID)
	if err != nil {
		writeServiceError(w, r, h.logger, err, chatNotFound)
		return
	}
	writeJSON(w, http.StatusCreated, log)
}

func (h *ChatbotHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "chatID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid chat id")
		return
	}

	var req ChatFeedbackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.chatbot.Feedback(r.Context(), id, req.Rating); err != nil {
		writeServiceError(w, r, h.logger, err, chatNotFound)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{
		Message: "Feedback submitted successfully",
		Detail:  fmt.Sprintf("Rated %d stars", req.Rating),
	})
}

func (h *ChatbotHandler) History(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parseLimitOffset(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	logs, err := h.chatbot.History(r.Context(), currentUser(r), limit, offset)
	if err != nil {
		writeServiceError(w, r, h.logger, err, chatNotFound)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

type ChatQueryRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id"`
}

type ChatFeedbackRequest struct {
	Rating int `json:"rating"`
}
