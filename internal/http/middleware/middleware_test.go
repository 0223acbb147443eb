package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/api/students", "/api/students"},
		{"/api/students/42", "/api/students/{id}"},
		{"/api/students/email/a@b.co", "/api/students/email/{email}"},
		{"/api/students/search", "/api/students/search"},
		{"/students/7/edit", "/students/{id}/edit"},
		{"/", "/"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizePath(tt.in))
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEqual(t, "", seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
}
