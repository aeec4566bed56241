package handlers

import (
	"net/http"
	"testing"

	"github.com/smartassist/apiserver/internal/services"
	"github.com/smartassist/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatbotHandler_QueryUsesFAQFallback(t *testing.T) {
	api := newTestAPI(t)
	api.faqs.faqs[1] = types.FAQ{ID: 1, Question: "What causes headaches?", Answer: "Stress and dehydration.", IsActive: true}

	rec := api.do(t, http.MethodPost, "/api/chatbot/query", "", ChatQueryRequest{Question: "Why do headaches happen?", SessionID: "s-1"})
	requireStatus(t, rec, http.StatusCreated)
	log := decodeBody[types.ChatLog](t, rec)
	assert.Equal(t, "Stress and dehydration.", log.Answer)
	assert.Equal(t, services.SourceFAQ, log.Source)
	assert.Equal(t, "s-1", log.SessionID)

	rec = api.do(t, http.MethodPost, "/api/chatbot/query", "", ChatQueryRequest{Question: "zzz"})
	requireStatus(t, rec, http.StatusCreated)
	log = decodeBody[types.ChatLog](t, rec)
	assert.Equal(t, services.FallbackAnswer, log.Answer)
	assert.NotEmpty(t, log.SessionID)

	rec = api.do(t, http.MethodPost, "/api/chatbot/query", "", ChatQueryRequest{Question: "  "})
	requireStatus(t, rec, http.StatusBadRequest)
}

func TestChatbotHandler_Feedback(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodPost, "/api/chatbot/query", "", ChatQueryRequest{Question: "hello there"})
	requireStatus(t, rec, http.StatusCreated)

	rec = api.do(t, http.MethodPost, "/api/chatbot/1/feedback", "", ChatFeedbackRequest{Rating: 4})
	requireStatus(t, rec, http.StatusOK)
	msg := decodeBody[MessageResponse](t, rec)
	assert.Equal(t, "Feedback submitted successfully", msg.Message)
	assert.Equal(t, "Rated 4 stars", msg.Detail)
	require.NotNil(t, api.chats.logs[0].Rating)

	rec = api.do(t, http.MethodPost, "/api/chatbot/1/feedback", "", ChatFeedbackRequest{Rating: 9})
	requireStatus(t, rec, http.StatusBadRequest)

	rec = api.do(t, http.MethodPost, "/api/chatbot/77/feedback", "", ChatFeedbackRequest{Rating: 3})
	requireStatus(t, rec, http.StatusNotFound)
	assert.Equal(t, "Chat message not found", errorMessage(t, rec))
}

func TestChatbotHandler_History(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.seedUser(t, "olga@example.com", types.RoleUser)

	for _, q := range []string{"first question", "second question"} {
		requireStatus(t, api.do(t, http.MethodPost, "/api/chatbot/query", token, ChatQueryRequest{Question: q}), http.StatusCreated)
	}
	requireStatus(t, api.do(t, http.MethodPost, "/api/chatbot/query", "", ChatQueryRequest{Question: "guest question"}), http.StatusCreated)

	rec := api.do(t, http.MethodGet, "/api/chatbot/history", token, nil)
	requireStatus(t, rec, http.StatusOK)
	history := decodeBody[[]types.ChatLog](t, rec)
	require.Len(t, history, 2)
	assert.Equal(t, "second question", history[0].Question)

	rec = api.do(t, http.MethodGet, "/api/chatbot/history?offset=-1", token, nil)
	requireStatus(t, rec, http.StatusBadRequest)

	rec = api.do(t, http.MethodGet, "/api/chatbot/history", "", nil)
	requireStatus(t, rec, http.StatusUnauthorized)
}
