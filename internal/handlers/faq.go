package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/smartassist/apiserver/internal/services"
)

const faqNotFound = "FAQ not found"

// FAQHandler serves the public FAQ list and the admin FAQ editor.
type FAQHandler struct {
	faqs   *services.FAQService
	logger logrus.FieldLogger
}

func NewFAQHandler(faqs *services.FAQService, logger logrus.FieldLogger) *FAQHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &FAQHandler{faqs: faqs, logger: logger}
}

// FAQRouter registers FAQ routes. Reads are public, writes need admin.
func FAQRouter(r chi.Router, faqs *services.FAQService, mw *AuthMiddleware, logger logrus.FieldLogger) {
	handler := NewFAQHandler(faqs, logger)

	r.Get("/", handler.ListFAQs)
	r.With(mw.Admin).Post("/", handler.CreateFAQ)
	r.Route("/{faqID}", func(r chi.Router) {
		r.Get("/", handler.GetFAQ)
		r.With(mw.Admin).Put("/", handler.UpdateFAQ)
		r.With(mw.Admin).Delete("/", handler.DeleteFAQ)
	})
}

func (h *FAQHandler) ListFAQs(w http.ResponseWriter, r *http.Request) {
	faqs, err := h.faqs.List(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		writeServiceError(w, r, h.logger, err, faqNotFound)
		return
	}
	writeJSON(w, http.StatusOK, faqs)
}

// GetFAQ returns an active entry. Deactivated entries are reported missing.
func (h *FAQHandler) GetFAQ(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "faqID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid faq id")
		return
	}

	faq, err := h.faqs.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err, faqNotFound)
		return
	}
	if !faq.IsActive {
		writeError(w, http.StatusNotFound, faqNotFound)
		return
	}
	writeJSON(w, http.StatusOK, faq)
}

func (h *FAQHandler) CreateFAQ(w http.ResponseWriter, r *http.Request) {
	var req FAQCreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	faq, err := h.faqs.Create(r.Context(), services.FAQInput{
		Question: req.Question,
		Answer:   req.Answer,
		Category: req.Category,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err, faqNotFound)
		return
	}
	writeJSON(w, http.StatusCreated, faq)
}

func (h *FAQHandler) UpdateFAQ(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "faqID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid faq id")
		return
	}

	var req FAQUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	faq, err := h.faqs.Update(r.Context(), id, services.FAQUpdate{
		Question: req.Question,
		Answer:   req.Answer,
		Category: req.Category,
		IsActive: req.IsActive,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err, faqNotFound)
		return
	}
	writeJSON(w, http.StatusOK, faq)
}

// DeleteFAQ deactivates an entry.
func (h *FAQHandler) DeleteFAQ(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "faqID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid faq id")
		return
	}

	if err := h.faqs.Deactivate(r.Context(), id); err != nil {
		writeServiceError(w, r, h.logger, err, faqNotFound)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "FAQ deleted successfully"})
}

type FAQCreateRequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Category string `json:"category"`
}

type FAQUpdateRequest struct {
	Question *string `json:"question"`
	Answer   *string `json:"answer"`
	Category *string `json:"category"`
	IsActive *bool   `json:"is_active"`
}
