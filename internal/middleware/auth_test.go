package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAuthMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := AuthMiddleware("secret", ok)

	tests := []struct {
		name     string
		path     string
		cookie   bool
		expected int
	}{
		{"login page is public", "/login", false, http.StatusOK},
		{"metrics are public", "/metrics", false, http.StatusOK},
		{"api without cookie", "/api/session", false, http.StatusUnauthorized},
		{"page without cookie", "/", false, http.StatusSeeOther},
		{"page with cookie", "/", true, http.StatusOK},
		{"api with cookie", "/api/session", true, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.cookie {
				req.AddCookie(&http.Cookie{Name: "authenticated", Value: "true"})
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.expected {
				t.Errorf("status = %d, expected %d", rec.Code, tt.expected)
			}
		})
	}
}

func TestAuthMiddleware_EmptyPasswordDisablesAuth(t *testing.T) {
	handler := AuthMiddleware("", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/session", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d", rec.Code)
	}
}
