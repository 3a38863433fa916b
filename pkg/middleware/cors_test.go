package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestCORS(t *testing.T) {
	corsHandler := CORS([]string{"http://localhost:5173", "https://desk.example.com"})(okHandler())

	tests := []struct {
		name          string
		origin        string
		method        string
		requestMethod string
		wantOrigin    string
	}{
		{
			name:       "panel origin",
			origin:     "http://localhost:5173",
			method:     http.MethodGet,
			wantOrigin: "http://localhost:5173",
		},
		{
			name:       "deployed panel origin",
			origin:     "https://desk.example.com",
			method:     http.MethodPost,
			wantOrigin: "https://desk.example.com",
		},
		{
			name:   "foreign origin",
			origin: "http://evil.com",
			method: http.MethodGet,
		},
		{
			name:          "preflight for a state change",
			origin:        "http://localhost:5173",
			method:        http.MethodOptions,
			requestMethod: http.MethodPut,
			wantOrigin:    "http://localhost:5173",
		},
		{
			name:          "preflight for an unused method",
			origin:        "http://localhost:5173",
			method:        http.MethodOptions,
			requestMethod: http.MethodDelete,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/agent/state", nil)
			req.Header.Set("Origin", tt.origin)
			if tt.requestMethod != "" {
				req.Header.Set("Access-Control-Request-Method", tt.requestMethod)
			}

			rec := httptest.NewRecorder()
			corsHandler.ServeHTTP(rec, req)

			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
			if tt.requestMethod != "" && tt.wantOrigin != "" {
				if got := rec.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, tt.requestMethod) {
					t.Errorf("Access-Control-Allow-Methods = %q, want %s", got, tt.requestMethod)
				}
			}
		})
	}
}

func TestCORSWildcardDropsCredentials(t *testing.T) {
	h := CORS([]string{"http://localhost:5173", "*"})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/desk/metrics", nil)
	req.Header.Set("Origin", "http://anywhere.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("wildcard should allow any origin")
	}
	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "" {
		t.Errorf("Access-Control-Allow-Credentials = %q, want none", got)
	}
}
