package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/newdaybreak/careers/internal/services"
	"github.com/newdaybreak/careers/internal/store"
	"github.com/sirupsen/logrus"
)

type contextKey string

const contextIdentityKey contextKey = "identity"

func withIdentity(ctx context.Context, identity services.Identity) context.Context {
	return context.WithValue(ctx, contextIdentityKey, identity)
}

func identityFromContext(ctx context.Context) (services.Identity, error) {
	identity, ok := ctx.Value(contextIdentityKey).(services.Identity)
	if !ok || identity.UserID < 1 {
		return services.Identity{}, errors.New("missing identity")
	}
	return identity, nil
}

// ErrorResponse is a simple error payload. Missing lists absent required
// fields for rejected applications.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Missing []string `json:"missing,omitempty"`
}

// MessageResponse is returned by endpoints that only confirm an action.
type MessageResponse struct {
	Message string `json:"message"`
}

// Healthz reports that the process is serving requests.
func Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeServiceError maps service errors to HTTP responses. notFound is the
// message used for a missing record.
func writeServiceError(w http.ResponseWriter, log logrus.FieldLogger, err error, notFound string) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: verr.Message, Missing: verr.Fields})
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, services.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, services.ErrForbidden):
		writeError(w, http.StatusForbidden, "admin privileges required")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, notFound)
	case errors.Is(err, services.ErrUnavailable):
		writeError(w, http.StatusNotImplemented, "pdf export not available on this server")
	default:
		log.WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func parseApplicationID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "applicationID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, errors.New("invalid application id")
	}
	return id, nil
}
