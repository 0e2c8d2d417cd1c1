package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/cloudstorage/pkg/resource"
	"github.com/dmitrymomot/cloudstorage/pkg/storage"
)

// Envelope is the JSON response body.
type Envelope struct {
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Success   bool   `json:"success"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func ok(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Envelope{Success: true, Data: data})
}

func created(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusCreated, Envelope{Success: true, Data: data})
}

func fail(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, status, Envelope{Error: message, RequestID: middleware.GetReqID(r.Context())})
}

// statusFor maps domain and storage errors to an HTTP status and a
// client-safe message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, resource.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, resource.ErrNotFound):
		return http.StatusNotFound, "resource not found"
	case errors.Is(err, resource.ErrNotUploaded):
		return http.StatusNotFound, "resource has no uploaded file"
	case errors.Is(err, resource.ErrURLUnavailable), errors.Is(err, storage.ErrObjectNotFound):
		return http.StatusNotFound, "file not available"
	case errors.Is(err, storage.ErrInvalidResourceID):
		return http.StatusBadRequest, "invalid resource id"
	case errors.Is(err, storage.ErrUploadFailed),
		errors.Is(err, storage.ErrDeleteFailed),
		errors.Is(err, storage.ErrResolveFailed),
		errors.Is(err, storage.ErrProviderFailed),
		errors.Is(err, storage.ErrInvalidCredentials),
		errors.Is(err, storage.ErrContainerNotFound):
		return http.StatusBadGateway, "storage backend error"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// failErr writes err as a JSON error. Server-side failures are logged.
func failErr(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.String("error", err.Error()),
		)
	}
	fail(w, r, status, msg)
}
