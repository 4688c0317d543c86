package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Rakhazzan/SINTESIS/internal/domain/entities"
	"github.com/Rakhazzan/SINTESIS/internal/domain/providers"
	apperrors "github.com/Rakhazzan/SINTESIS/pkg/errors"
)

type sessionKey struct{}

// WithSession returns a copy of ctx carrying session
func WithSession(ctx context.Context, session *entities.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}

// SessionFromContext returns the session stored by AuthMiddleware
func SessionFromContext(ctx context.Context) (*entities.Session, bool) {
	session, ok := ctx.Value(sessionKey{}).(*entities.Session)
	return session, ok && session != nil
}

// AuthMiddleware requires a valid access token. The token is read from the
// Authorization header, or from the access_token query parameter for
// EventSource clients that cannot set headers.
func AuthMiddleware(verifier providers.SessionVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, apperrors.MessageOf(err))
				return
			}

			session, err := verifier.Verify(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, apperrors.MessageOf(err))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		if token := r.URL.Query().Get("access_token"); token != "" {
			return token, nil
		}
		return "", apperrors.NewUnauthorizedError("missing access token")
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", apperrors.NewUnauthorizedError("malformed authorization header")
	}
	return strings.TrimSpace(token), nil
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
