package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

var testSecret = []byte("test-secret")

func testKeyfunc(*jwt.Token) (interface{}, error) { return testSecret, nil }

func sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	return s
}

// echoUser responds with the authenticated user's role
func echoUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := GetUserFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusTeapot)
		return
	}
	w.Write([]byte(claims.Role + "|" + claims.Name))
}

func TestMiddleware(t *testing.T) {
	a := NewWithKeyfunc(Config{Issuer: "https://idp.example.com"}, testKeyfunc, []string{"HS256"}, zerolog.Nop())
	handler := a.Middleware(http.HandlerFunc(echoUser))

	future := time.Now().Add(time.Hour).Unix()
	tests := []struct {
		name       string
		header     string
		query      string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "missing token",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "keycloak realm role",
			header: "Bearer " + sign(t, jwt.MapClaims{
				"iss":          "https://idp.example.com",
				"exp":          future,
				"name":         "Ada",
				"realm_access": map[string]interface{}{"roles": []string{"offline_access", "agent", "supervisor"}},
			}),
			wantStatus: http.StatusOK,
			wantBody:   "supervisor|Ada",
		},
		{
			name: "token in query for websockets",
			query: sign(t, jwt.MapClaims{
				"iss":                "https://idp.example.com",
				"exp":                future,
				"preferred_username": "grace",
				"cognito:groups":     []string{"contact-center-agents"},
			}),
			wantStatus: http.StatusOK,
			wantBody:   "agent|grace",
		},
		{
			name:       "no roles defaults to viewer",
			header:     "Bearer " + sign(t, jwt.MapClaims{"iss": "https://idp.example.com", "exp": future, "name": "Bob"}),
			wantStatus: http.StatusOK,
			wantBody:   "viewer|Bob",
		},
		{
			name:       "expired",
			header:     "Bearer " + sign(t, jwt.MapClaims{"iss": "https://idp.example.com", "exp": time.Now().Add(-time.Hour).Unix()}),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong issuer",
			header:     "Bearer " + sign(t, jwt.MapClaims{"iss": "https://evil.example.com", "exp": future}),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "not a bearer header",
			header:     "Basic dXNlcjpwYXNz",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/api/desk/metrics"
			if tt.query != "" {
				target += "?token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestHealthSkipsAuth(t *testing.T) {
	a := NewWithKeyfunc(Config{}, testKeyfunc, []string{"HS256"}, zerolog.Nop())
	handler := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestDisabledUsesDevUser(t *testing.T) {
	a, err := New(Config{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	rec := httptest.NewRecorder()
	a.Middleware(http.HandlerFunc(echoUser)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/agents", nil))

	if rec.Body.String() != "agent|Dev Agent" {
		t.Errorf("body = %q, want dev agent", rec.Body.String())
	}
}

func TestRequireRole(t *testing.T) {
	a, _ := New(Config{}, zerolog.Nop())
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	rec := httptest.NewRecorder()
	a.Middleware(RequireRole(RoleSupervisor, RoleAdmin)(ok)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}

	rec = httptest.NewRecorder()
	a.Middleware(RequireRole(RoleAgent)(ok)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	RequireRole(RoleAgent)(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status without claims = %d, want 401", rec.Code)
	}
}
