package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/newdaybreak/careers/internal/services"
	"github.com/newdaybreak/careers/types"
	"github.com/sirupsen/logrus"
)

const maxApplicationBytes = 1 << 20

// ApplicationHandler provides the applicant and admin application endpoints.
type ApplicationHandler struct {
	intakeService *services.IntakeService
	reviewService *services.ReviewService
	exportService *services.ExportService
	log           logrus.FieldLogger
}

// NewApplicationHandler constructs an ApplicationHandler.
func NewApplicationHandler(
	intakeService *services.IntakeService,
	reviewService *services.ReviewService,
	exportService *services.ExportService,
	log logrus.FieldLogger,
) *ApplicationHandler {
	return &ApplicationHandler{
		intakeService: intakeService,
		reviewService: reviewService,
		exportService: exportService,
		log:           log,
	}
}

// ApplicationRouter registers the public intake route and the admin routes.
func ApplicationRouter(r chi.Router, handler *ApplicationHandler, authMiddleware func(http.Handler) http.Handler) {
	r.Post("/apply", handler.Apply)
	r.Route("/admin/applications", func(r chi.Router) {
		r.Use(authMiddleware, RequireRole(types.RoleAdmin))
		r.Get("/", handler.ListApplications)
		r.Post("/{applicationID}/status", handler.UpdateStatus)
		r.Get("/{applicationID}/download", handler.Download)
	})
}

// Apply accepts a caregiver application. No authentication is required.
func (h *ApplicationHandler) Apply(w http.ResponseWriter, r *http.Request) {
	var sub services.Submission
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxApplicationBytes)).Decode(&sub); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	id, err := h.intakeService.Submit(r.Context(), sub)
	if err != nil {
		writeServiceError(w, h.log, err, "application not found")
		return
	}

	writeJSON(w, http.StatusCreated, ApplyResponse{
		Message:       "Application submitted successfully",
		ApplicationID: id,
	})
}

// ListApplications returns all applications, newest first.
func (h *ApplicationHandler) ListApplications(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	items, err := h.reviewService.List(r.Context(), identity)
	if err != nil {
		writeServiceError(w, h.log, err, "application not found")
		return
	}

	writeJSON(w, http.StatusOK, items)
}

// UpdateStatus approves or rejects an application and queues the applicant email.
func (h *ApplicationHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseApplicationID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	app, err := h.reviewService.UpdateStatus(r.Context(), identity, id, req.Status, req.Note)
	if err != nil {
		writeServiceError(w, h.log, err, "application not found")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{
		Message: fmt.Sprintf("Application %s and applicant notified.", app.Status),
	})
}

// Download exports one application as a JSON or PDF attachment.
func (h *ApplicationHandler) Download(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseApplicationID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	doc, err := h.exportService.Export(r.Context(), identity, id, r.URL.Query().Get("format"))
	if err != nil {
		writeServiceError(w, h.log, err, "application not found")
		return
	}

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Data)
}

type ApplyResponse struct {
	Message       string `json:"message"`
	ApplicationID int64  `json:"application_id"`
}

type StatusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}
