package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/smartassist/apiserver/internal/services"
)

const (
	resumeNotFound      = "Resume not found"
	formFieldFile       = "file"
	formFieldTargetRole = "target_role"
	maxMultipartMemory  = 1 << 20
	multipartOverhead   = 1 << 20
)

// ResumeHandler provides resume upload and retrieval endpoints.
type ResumeHandler struct {
	resumes  *services.ResumeService
	maxBytes int64
	logger   logrus.FieldLogger
}

func NewResumeHandler(resumes *services.ResumeService, maxBytes int64, logger logrus.FieldLogger) *ResumeHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ResumeHandler{resumes: resumes, maxBytes: maxBytes, logger: logger}
}

// ResumeRouter registers resume routes. Every route requires authentication.
func ResumeRouter(r chi.Router, resumes *services.ResumeService, mw *AuthMiddleware, maxBytes int64, logger logrus.FieldLogger) {
	handler := NewResumeHandler(resumes, maxBytes, logger)

	r.Use(mw.Authenticated)
	r.Post("/", handler.Upload)
	r.Get("/", handler.List)
	r.Route("/{resumeID}", func(r chi.Router) {
		r.Get("/", handler.Get)
		r.Get("/download", handler.Download)
		r.Delete("/", handler.Delete)
	})
}

func (h *ResumeHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)
	}
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	file, header, err := r.FormFile(formFieldFile)
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	resume, err := h.resumes.Upload(r.Context(), currentUser(r), services.ResumeUpload{
		Filename:   header.Filename,
		Size:       header.Size,
		TargetRole: r.FormValue(formFieldTargetRole),
		Body:       file,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err, resumeNotFound)
		return
	}
	writeJSON(w, http.StatusCreated, resume)
}

func (h *ResumeHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parseLimitOffset(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resumes, err := h.resumes.List(r.Context(), currentUser(r), limit, offset)
	if err != nil {
		writeServiceError(w, r, h.logger, err, resumeNotFound)
		return
	}
	writeJSON(w, http.StatusOK, resumes)
}

func (h *ResumeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "resumeID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid resume id")
		return
	}

	resume, err := h.resumes.Get(r.Context(), currentUser(r), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err, resumeNotFound)
		return
	}
	writeJSON(w, http.StatusOK, resume)
}

// Download streams the stored file back as an attachment.
func (h *ResumeHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "resumeID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid resume id")
		return
	}

	resume, body, err := h.resumes.Open(r.Context(), currentUser(r), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err, resumeNotFound)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", resume.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(resume.Size, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sanitizeFilename(resume.Filename)))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.logger.WithError(err).WithField("resume_id", id).Warn("resume download interrupted")
	}
}

func (h *ResumeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "resumeID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid resume id")
		return
	}

	if err := h.resumes.Delete(r.Context(), currentUser(r), id); err != nil {
		writeServiceError(w, r, h.logger, err, resumeNotFound)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Resume deleted successfully"})
}

var filenameReplacer = strings.NewReplacer(`"`, "", "\\", "", "\r", "", "\n", "")

func sanitizeFilename(name string) string {
	return filenameReplacer.Replace(name)
}
