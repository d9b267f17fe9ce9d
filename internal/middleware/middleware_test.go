package middleware

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"docforest/internal/auth"
	"docforest/internal/domain"
	"docforest/internal/httputil"
)

type stubVerifier struct{}

func (stubVerifier) VerifyToken(token string) (*auth.Claims, error) {
	if token != "good" {
		return nil, domain.ErrUnauthorized
	}
	c := &auth.Claims{}
	c.Subject = "user-1"
	return c, nil
}

func (stubVerifier) Close() error { return nil }

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, httputil.GetUserID(r))
	})
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name     string
		verifier auth.JWTVerifier
		path     string
		header   map[string]string
		status   int
		user     string
	}{
		{"valid bearer", stubVerifier{}, "/api/v1/documents/", map[string]string{"Authorization": "Bearer good"}, 200, "user-1"},
		{"invalid bearer", stubVerifier{}, "/api/v1/documents/", map[string]string{"Authorization": "Bearer bad"}, 401, ""},
		{"missing bearer", stubVerifier{}, "/api/v1/documents/", nil, 401, ""},
		{"dev header ignored with verifier", stubVerifier{}, "/api/v1/documents/", map[string]string{DevUserHeader: "eve"}, 401, ""},
		{"dev header", nil, "/api/v1/documents/", map[string]string{DevUserHeader: "dev"}, 200, "dev"},
		{"dev without header", nil, "/api/v1/documents/", nil, 401, ""},
		{"public path", stubVerifier{}, "/health", nil, 200, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := AuthMiddleware(tt.verifier, discard, "/health", "/metrics")(echoUser())
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == 200 {
				assert.Equal(t, tt.user, rec.Body.String())
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	h := Recovery(discard)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(errors.New("boom"))
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestRequestLogger_PassesStatus(t *testing.T) {
	h := RequestLogger(discard)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
