package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rakhazzan/SINTESIS/internal/domain/entities"
	apperrors "github.com/Rakhazzan/SINTESIS/pkg/errors"
)

type stubVerifier map[string]*entities.Session

func (s stubVerifier) Verify(token string) (*entities.Session, error) {
	if session, ok := s[token]; ok {
		return session, nil
	}
	return nil, apperrors.NewUnauthorizedError("invalid access token")
}

func echoSession() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := SessionFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		_, _ = w.Write([]byte(session.UserID))
	})
}

func TestAuthMiddleware(t *testing.T) {
	verifier := stubVerifier{"good": {UserID: "doc-1"}}
	handler := AuthMiddleware(verifier)(echoSession())

	cases := []struct {
		name   string
		header string
		query  string
		status int
		body   string
	}{
		{name: "missing token", status: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic good", status: http.StatusUnauthorized},
		{name: "invalid token", header: "Bearer bad", status: http.StatusUnauthorized},
		{name: "bearer header", header: "Bearer good", status: http.StatusOK, body: "doc-1"},
		{name: "lowercase scheme", header: "bearer good", status: http.StatusOK, body: "doc-1"},
		{name: "query token for event streams", query: "?access_token=good", status: http.StatusOK, body: "doc-1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/stream/unread"+tc.query, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tc.status, w.Code)
			if tc.body != "" {
				assert.Equal(t, tc.body, w.Body.String())
			}
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := NewUserRateLimiter(0.001, 1)
	handler := RateLimitMiddleware(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	post := func(userID string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/patients", nil)
		req = req.WithContext(WithSession(req.Context(), &entities.Session{UserID: userID}))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusNoContent, post("doc-1"))
	assert.Equal(t, http.StatusTooManyRequests, post("doc-1"))
	assert.Equal(t, http.StatusNoContent, post("doc-2"), "buckets are per user")

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/patients", nil))
	assert.Equal(t, http.StatusNoContent, w.Code, "reads are not limited")
}

func TestUserRateLimiter_Cleanup(t *testing.T) {
	limiter := NewUserRateLimiter(1, 1)
	now := time.Date(2024, time.March, 14, 10, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	limiter.GetLimiter("doc-1")
	now = now.Add(2 * time.Minute)
	limiter.GetLimiter("doc-2")
	now = now.Add(2 * time.Minute)

	limiter.Cleanup()

	assert.Equal(t, 1, limiter.Len())
}

func TestCORSMiddleware(t *testing.T) {
	handler := CORSMiddleware([]string{"https://clinic.example"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/patients", nil)
	req.Header.Set("Origin", "https://clinic.example")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://clinic.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", w.Header().Get("Vary"))

	req = httptest.NewRequest(http.MethodGet, "/api/patients", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
