package handlers

import (
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"github.com/Rakhazzan/SINTESIS/internal/api/middleware"
	"github.com/Rakhazzan/SINTESIS/internal/domain/entities"
	"github.com/Rakhazzan/SINTESIS/internal/infrastructure/observability"
	apperrors "github.com/Rakhazzan/SINTESIS/pkg/errors"
)

const maxBodyBytes = 1 << 20

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// statusOf maps an application error to its HTTP status
func statusOf(err error) int {
	switch apperrors.TypeOf(err) {
	case apperrors.ErrorTypeValidation:
		return http.StatusBadRequest
	case apperrors.ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	case apperrors.ErrorTypeNotFound:
		return http.StatusNotFound
	case apperrors.ErrorTypeExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondWithAppError writes err with the status of its type. Internal
// details never reach the client.
func respondWithAppError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		observability.LoggerFromContext(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		observability.RecordError(trace.SpanFromContext(r.Context()), err)
		if status == http.StatusInternalServerError {
			respondWithError(w, status, "internal server error")
			return
		}
	}
	respondWithError(w, status, apperrors.MessageOf(err))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(v); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func sessionOf(w http.ResponseWriter, r *http.Request) (*entities.Session, bool) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "not signed in")
	}
	return session, ok
}
