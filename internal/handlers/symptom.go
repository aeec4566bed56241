package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/smartassist/apiserver/internal/services"
)

const symptomNotFound = "Symptom check not found"

// SymptomHandler serves the symptom checker.
type SymptomHandler struct {
	symptoms *services.SymptomService
	logger   logrus.FieldLogger
}

func NewSymptomHandler(symptoms *services.SymptomService, logger logrus.FieldLogger) *SymptomHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &SymptomHandler{symptoms: symptoms, logger: logger}
}

// SymptomRouter registers symptom routes. Guests may run a check; only
// signed-in users get a history.
func SymptomRouter(r chi.Router, symptoms *services.SymptomService, mw *AuthMiddleware, logger logrus.FieldLogger) {
	handler := NewSymptomHandler(symptoms, logger)

	r.With(mw.Optional).Post("/check", handler.Check)
	r.With(mw.Authenticated).Get("/history", handler.History)
}

func (h *SymptomHandler) Check(w http.ResponseWriter, r *http.Request) {
	var req SymptomCheckRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	check, err := h.symptoms.Check(r.Context(), currentUser(r), services.SymptomInput{
		Symptoms: req.Symptoms,
		Age:      req.Age,
		Gender:   req.Gender,
		Duration: req.Duration,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err, symptomNotFound)
		return
	}
	writeJSON(w, http.StatusCreated, check)
}

func (h *SymptomHandler) History(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parseLimitOffset(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	checks, err := h.symptoms.History(r.Context(), currentUser(r), limit, offset)
	if err != nil {
		writeServiceError(w, r, h.logger, err, symptomNotFound)
		return
	}
	writeJSON(w, http.StatusOK, checks)
}

type SymptomCheckRequest struct {
	Symptoms string `json:"symptoms"`
	Age      int    `json:"age"`
	Gender   string `json:"gender"`
	Duration string `json:"duration"`
}
