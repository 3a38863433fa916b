package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// Roles in priority order
const (
	RoleAdmin      = "admin"
	RoleSupervisor = "supervisor"
	RoleAgent      = "agent"
	RoleViewer     = "viewer"
)

var rolePriority = []string{RoleAdmin, RoleSupervisor, RoleAgent, RoleViewer}

// RealmAccess carries Keycloak realm roles
type RealmAccess struct {
	Roles []string `json:"roles"`
}

// Claims are the token claims the desk reads
type Claims struct {
	Email             string      `json:"email"`
	Name              string      `json:"name"`
	PreferredUsername string      `json:"preferred_username,omitempty"`
	Groups            []string    `json:"groups,omitempty"`
	CognitoGroups     []string    `json:"cognito:groups,omitempty"`
	RealmAccess       RealmAccess `json:"realm_access"`

	// Role is resolved from the realm roles or groups after parsing
	Role string `json:"-"`

	jwt.RegisteredClaims
}

type contextKey string

const UserContextKey contextKey = "user"

// Config configures token validation
type Config struct {
	Enabled  bool
	JWKSURL  string
	Issuer   string
	Audience string
}

// Authenticator validates bearer tokens against a JWKS
type Authenticator struct {
	cfg     Config
	keyfunc jwt.Keyfunc
	methods []string
	logger  zerolog.Logger
}

var defaultMethods = []string{"RS256", "RS384", "RS512", "ES256", "ES384", "ES512"}

// New creates an authenticator. When auth is enabled the JWKS is fetched
// and refreshed in the background by keyfunc.
func New(cfg Config, logger zerolog.Logger) (*Authenticator, error) {
	a := &Authenticator{
		cfg:     cfg,
		methods: defaultMethods,
		logger:  logger.With().Str("component", "auth").Logger(),
	}
	if !cfg.Enabled {
		a.logger.Warn().Msg("authentication disabled, requests run as the dev user")
		return a, nil
	}

	a.logger.Info().Str("jwks_url", cfg.JWKSURL).Msg("fetching JWKS")
	k, err := keyfunc.NewDefault([]string{cfg.JWKSURL})
	if err != nil {
		return nil, fmt.Errorf("failed to create keyfunc: %w", err)
	}
	a.keyfunc = k.Keyfunc
	return a, nil
}

// NewWithKeyfunc creates an enabled authenticator that verifies with kf
func NewWithKeyfunc(cfg Config, kf jwt.Keyfunc, methods []string, logger zerolog.Logger) *Authenticator {
	cfg.Enabled = true
	if len(methods) == 0 {
		methods = defaultMethods
	}
	return &Authenticator{
		cfg:     cfg,
		keyfunc: kf,
		methods: methods,
		logger:  logger.With().Str("component", "auth").Logger(),
	}
}

// devClaims is the identity used while auth is disabled
func devClaims() *Claims {
	return &Claims{
		Email: "dev@agentdesk.local",
		Name:  "Dev Agent",
		Role:  RoleAgent,
	}
}

// Middleware validates the JWT and stores the claims in the request context
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		if !a.cfg.Enabled {
			ctx := context.WithValue(r.Context(), UserContextKey, devClaims())
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		tokenString := extractToken(r)
		if tokenString == "" {
			a.logger.Debug().Str("path", r.URL.Path).Msg("missing authorization token")
			http.Error(w, "Unauthorized: Missing token", http.StatusUnauthorized)
			return
		}

		claims, err := a.validateToken(tokenString)
		if err != nil {
			a.logger.Warn().Err(err).Msg("token validation failed")
			http.Error(w, fmt.Sprintf("Unauthorized: %v", err), http.StatusUnauthorized)
			return
		}

		a.logger.Debug().Str("email", claims.Email).Str("role", claims.Role).Msg("user authenticated")

		ctx := context.WithValue(r.Context(), UserContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractToken gets the token from Authorization header or query parameter
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString != authHeader {
			return tokenString
		}
	}

	// WebSocket clients cannot set headers
	return r.URL.Query().Get("token")
}

func (a *Authenticator) validateToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods(a.methods)}
	if a.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.cfg.Issuer))
	}
	if a.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(a.cfg.Audience))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, a.keyfunc, opts...)
	if err != nil {
		return nil, fmt.Errorf("token verification failed: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	if claims.Name == "" {
		claims.Name = claims.PreferredUsername
	}
	claims.Role = resolveRole(claims)
	return claims, nil
}

// resolveRole picks the highest role from Keycloak realm roles, then from
// Cognito or plain groups. The default is viewer.
func resolveRole(c *Claims) string {
	for _, role := range rolePriority {
		for _, r := range c.RealmAccess.Roles {
			if r == role {
				return role
			}
		}
	}

	groups := append(append([]string{}, c.CognitoGroups...), c.Groups...)
	for _, role := range rolePriority[:3] {
		for _, g := range groups {
			if strings.Contains(strings.ToLower(g), role) {
				return role
			}
		}
	}
	return RoleViewer
}

// GetUserFromContext retrieves user claims from request context
func GetUserFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(UserContextKey).(*Claims)
	return claims, ok
}

// HasRole checks if user has specific role
func HasRole(claims *Claims, role string) bool {
	return claims.Role == role
}

// RequireRole rejects requests whose user has none of roles
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetUserFromContext(r.Context())
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			for _, role := range roles {
				if HasRole(claims, role) {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, "Forbidden", http.StatusForbidden)
		})
	}
}
