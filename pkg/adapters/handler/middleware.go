package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tinylink-io/tinylink/pkg/config"
	"github.com/tinylink-io/tinylink/pkg/core/domain"
)

type contextKey string

const principalKey contextKey = "principal"

// Claims carried by the auth_token JWT. Subject is the principal's
// opaque UUID.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type Middleware struct {
	jwtSecret []byte
}

func NewMiddleware(cfg *config.Config) *Middleware {
	return &Middleware{
		jwtSecret: []byte(cfg.JWTSecret),
	}
}

// WithPrincipal resolves credentials to a principal when present and
// valid, and lets the request through anonymously otherwise. Used by
// operations that accept both authenticated and anonymous callers.
func (m *Middleware) WithPrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p := m.resolvePrincipal(r); p != nil {
			r = r.WithContext(context.WithValue(r.Context(), principalKey, p))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth rejects requests that do not resolve to a principal.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := m.resolvePrincipal(r)
		if p == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), principalKey, p)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// resolvePrincipal accepts a bearer token or the auth_token cookie.
func (m *Middleware) resolvePrincipal(r *http.Request) *domain.Principal {
	tokenString := ""
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		tokenString = strings.TrimPrefix(auth, "Bearer ")
	} else if cookie, err := r.Cookie("auth_token"); err == nil {
		tokenString = cookie.Value
	}
	if tokenString == "" {
		return nil
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return m.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil
	}
	return &domain.Principal{ID: id, Email: claims.Email}
}

// PrincipalFromContext returns the authenticated principal, or nil for
// anonymous requests.
func PrincipalFromContext(ctx context.Context) *domain.Principal {
	p, _ := ctx.Value(principalKey).(*domain.Principal)
	return p
}
