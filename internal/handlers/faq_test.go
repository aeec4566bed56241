package handlers

import (
	"net/http"
	"testing"

	"github.com/smartassist/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFAQHandler_Lifecycle(t *testing.T) {
	api := newTestAPI(t)
	_, adminToken := api.seedUser(t, "root@example.com", types.RoleAdmin)
	_, userToken := api.seedUser(t, "user@example.com", types.RoleUser)

	create := FAQCreateRequest{
		Question: "What is a normal temperature?",
		Answer:   "Around 37 degrees Celsius.",
		Category: "general",
	}

	rec := api.do(t, http.MethodPost, "/api/faqs", userToken, create)
	requireStatus(t, rec, http.StatusForbidden)

	rec = api.do(t, http.MethodPost, "/api/faqs", adminToken, create)
	requireStatus(t, rec, http.StatusCreated)
	created := decodeBody[types.FAQ](t, rec)
	require.Equal(t, 1, created.ID)
	assert.True(t, created.IsActive)

	rec = api.do(t, http.MethodGet, "/api/faqs?category=general", "", nil)
	requireStatus(t, rec, http.StatusOK)
	assert.Len(t, decodeBody[[]types.FAQ](t, rec), 1)

	answer := "Between 36.1 and 37.2 degrees Celsius."
	rec = api.do(t, http.MethodPut, "/api/faqs/1", adminToken, FAQUpdateRequest{Answer: &answer})
	requireStatus(t, rec, http.StatusOK)
	assert.Equal(t, answer, decodeBody[types.FAQ](t, rec).Answer)

	rec = api.do(t, http.MethodDelete, "/api/faqs/1", adminToken, nil)
	requireStatus(t, rec, http.StatusOK)
	assert.Equal(t, "FAQ deleted successfully", decodeBody[MessageResponse](t, rec).Message)

	rec = api.do(t, http.MethodGet, "/api/faqs/1", "", nil)
	requireStatus(t, rec, http.StatusNotFound)
	assert.Equal(t, "FAQ not found", errorMessage(t, rec))

	rec = api.do(t, http.MethodGet, "/api/faqs", "", nil)
	requireStatus(t, rec, http.StatusOK)
	assert.JSONEq(t, "[]", rec.Body.String())

	// Deactivated entries stay in the table.
	assert.False(t, api.faqs.faqs[1].IsActive)
}

func TestFAQHandler_Validation(t *testing.T) {
	api := newTestAPI(t)
	_, adminToken := api.seedUser(t, "root@example.com", types.RoleAdmin)

	rec := api.do(t, http.MethodPost, "/api/faqs", adminToken, FAQCreateRequest{Question: "short", Answer: "also short"})
	requireStatus(t, rec, http.StatusBadRequest)
	assert.Equal(t, "Question must be at least 10 characters", errorMessage(t, rec))

	rec = api.do(t, http.MethodDelete, "/api/faqs/42", adminToken, nil)
	requireStatus(t, rec, http.StatusNotFound)

	rec = api.do(t, http.MethodGet, "/api/faqs/zero", "", nil)
	requireStatus(t, rec, http.StatusBadRequest)
}
