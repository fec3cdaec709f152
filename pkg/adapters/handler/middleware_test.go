package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tinylink-io/tinylink/pkg/config"
)

func TestRequireAuth(t *testing.T) {
	cfg := &config.Config{
		JWTSecret: "testservlet",
	}
	mw := NewMiddleware(cfg)

	tests := []struct {
		name           string
		cookieValue    string
		bearer         string
		expectedStatus int
	}{
		{
			name:           "No credentials",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Invalid cookie",
			cookieValue:    "invalid",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Valid cookie",
			cookieValue:    generateTestToken(t, cfg.JWTSecret, uuid.New()),
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Valid bearer token",
			bearer:         generateTestToken(t, cfg.JWTSecret, uuid.New()),
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Non-UUID subject",
			cookieValue:    generateTestTokenWithSubject(t, cfg.JWTSecret, "alice@example.com"),
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/links/abc123/stats", nil)
			if tt.cookieValue != "" {
				req.AddCookie(&http.Cookie{Name: "auth_token", Value: tt.cookieValue})
			}
			if tt.bearer != "" {
				req.Header.Set("Authorization", "Bearer "+tt.bearer)
			}

			rr := httptest.NewRecorder()
			handler := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if PrincipalFromContext(r.Context()) == nil {
					t.Error("authenticated request should carry a principal")
				}
				w.WriteHeader(http.StatusOK)
			}))

			handler.ServeHTTP(rr, req)

			if status := rr.Code; status != tt.expectedStatus {
				t.Errorf("handler returned wrong status code: got %v want %v",
					status, tt.expectedStatus)
			}
		})
	}
}

func TestWithPrincipalAllowsAnonymous(t *testing.T) {
	mw := NewMiddleware(&config.Config{JWTSecret: "testservlet"})

	req := httptest.NewRequest("GET", "/links/abc123", nil)
	rr := httptest.NewRecorder()

	handler := mw.WithPrincipal(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if PrincipalFromContext(r.Context()) != nil {
			t.Error("request without credentials should be anonymous")
		}
		w.WriteHeader(http.StatusOK)
	}))
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("got %d, want 200", rr.Code)
	}
}

func TestWithPrincipalResolvesIdentity(t *testing.T) {
	cfg := &config.Config{JWTSecret: "testservlet"}
	mw := NewMiddleware(cfg)
	id := uuid.New()

	req := httptest.NewRequest("GET", "/links/abc123", nil)
	req.AddCookie(&http.Cookie{Name: "auth_token", Value: generateTestToken(t, cfg.JWTSecret, id)})
	rr := httptest.NewRecorder()

	handler := mw.WithPrincipal(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := PrincipalFromContext(r.Context())
		if p == nil {
			t.Fatal("expected a principal")
		}
		if p.ID != id {
			t.Errorf("principal id = %v, want %v", p.ID, id)
		}
		w.WriteHeader(http.StatusOK)
	}))
	handler.ServeHTTP(rr, req)
}

func generateTestToken(t *testing.T, secret string, id uuid.UUID) string {
	t.Helper()
	return generateTestTokenWithSubject(t, secret, id.String())
}

func generateTestTokenWithSubject(t *testing.T, secret, subject string) string {
	t.Helper()
	expirationTime := time.Now().Add(5 * time.Minute)
	claims := &Claims{
		Email: "test@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expirationTime),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return tokenString
}
