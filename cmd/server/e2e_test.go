package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tinylink-io/tinylink/pkg/adapters/handler"
	"github.com/tinylink-io/tinylink/pkg/adapters/repository/sqlite"
	"github.com/tinylink-io/tinylink/pkg/config"
	"github.com/tinylink-io/tinylink/pkg/core/domain"
	"github.com/tinylink-io/tinylink/pkg/core/services"
)

func setupServer(t *testing.T, dbName string) (*httptest.Server, *sqlite.SQLiteRepository, *config.Config) {
	t.Helper()

	dbURL := "file:" + dbName + "?mode=memory&cache=shared"
	repo, err := sqlite.NewSQLiteRepository(dbURL)
	if err != nil {
		t.Fatalf("Failed to init db: %v", err)
	}

	cfg := &config.Config{
		JWTSecret:     "e2e-secret",
		ReservedCodes: []string{"docs", "redoc", "openapi", "auth", "links"},
	}

	gen := services.NewRandomCodeGenerator()
	validator := services.NewAliasValidator(cfg.ReservedCodes)
	service := services.NewLinkService(repo, gen, validator, nil, 6, 10)

	server := httptest.NewServer(handler.NewRouter(cfg, service))
	t.Cleanup(server.Close)
	return server, repo, cfg
}

func signToken(t *testing.T, secret string, id uuid.UUID) string {
	t.Helper()
	claims := &handler.Claims{
		Email: "user@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return token
}

func doJSON(t *testing.T, client *http.Client, method, url, token string, payload any) *http.Response {
	t.Helper()
	var body *bytes.Buffer
	if payload != nil {
		data, _ := json.Marshal(payload)
		body = bytes.NewBuffer(data)
	} else {
		body = bytes.NewBuffer(nil)
	}
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestAnonymousLinkLifecycle(t *testing.T) {
	server, repo, _ := setupServer(t, "e2e_anon")
	client := server.Client()
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}

	// Create without alias or credentials.
	resp := doJSON(t, client, "POST", server.URL+"/links/shorten", "", map[string]any{
		"original_url": "https://example.com/",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", resp.StatusCode)
	}
	var created domain.Link
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()
	if len(created.ShortCode) != 6 {
		t.Errorf("short code %q has length %d, want 6", created.ShortCode, len(created.ShortCode))
	}
	if created.OwnerID != nil {
		t.Error("anonymous link should have no owner")
	}

	// Redirect increments the counter.
	resp, err := client.Get(server.URL + "/links/" + created.ShortCode)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusFound {
		t.Errorf("redirect: expected 302, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "https://example.com/" {
		t.Errorf("redirect location = %q", loc)
	}

	stored, err := repo.GetByShortCode(context.Background(), created.ShortCode)
	if err != nil {
		t.Fatal(err)
	}
	if stored.ClickCount != 1 {
		t.Errorf("click count = %d, want 1", stored.ClickCount)
	}

	// Stats are owner-gated; an anonymous link has no owner at all.
	resp = doJSON(t, client, "GET", server.URL+"/links/"+created.ShortCode+"/stats", "", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("anonymous stats: expected 401, got %d", resp.StatusCode)
	}
}

func TestOwnedLinkLifecycle(t *testing.T) {
	server, _, cfg := setupServer(t, "e2e_owned")
	client := server.Client()
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}

	ownerID := uuid.New()
	ownerToken := signToken(t, cfg.JWTSecret, ownerID)
	strangerToken := signToken(t, cfg.JWTSecret, uuid.New())

	// Reserved alias is rejected.
	resp := doJSON(t, client, "POST", server.URL+"/links/shorten", ownerToken, map[string]any{
		"original_url": "https://example.com/guide",
		"alias":        "docs",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("reserved alias: expected 400, got %d", resp.StatusCode)
	}

	// Valid alias succeeds.
	resp = doJSON(t, client, "POST", server.URL+"/links/shorten", ownerToken, map[string]any{
		"original_url": "https://example.com/guide",
		"alias":        "my-link_1",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create with alias: expected 201, got %d", resp.StatusCode)
	}
	var created domain.Link
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()
	if created.ShortCode != "my-link_1" {
		t.Errorf("short code = %q, want the alias", created.ShortCode)
	}
	if created.OwnerID == nil || *created.OwnerID != ownerID {
		t.Errorf("owner id = %v, want %v", created.OwnerID, ownerID)
	}

	// Same alias again is taken.
	resp = doJSON(t, client, "POST", server.URL+"/links/shorten", ownerToken, map[string]any{
		"original_url": "https://example.com/other",
		"alias":        "my-link_1",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("duplicate alias: expected 400, got %d", resp.StatusCode)
	}

	// Owned links resolve only for their owner.
	req, _ := http.NewRequest("GET", server.URL+"/links/my-link_1", nil)
	req.Header.Set("Authorization", "Bearer "+strangerToken)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("stranger redirect: expected 403, got %d", resp.StatusCode)
	}

	req, _ = http.NewRequest("GET", server.URL+"/links/my-link_1", nil)
	req.Header.Set("Authorization", "Bearer "+ownerToken)
	resp, err = client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusFound {
		t.Errorf("owner redirect: expected 302, got %d", resp.StatusCode)
	}

	// Stats: stranger forbidden, owner sees the click.
	resp = doJSON(t, client, "GET", server.URL+"/links/my-link_1/stats", strangerToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("stranger stats: expected 403, got %d", resp.StatusCode)
	}

	resp = doJSON(t, client, "GET", server.URL+"/links/my-link_1/stats", ownerToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("owner stats: expected 200, got %d", resp.StatusCode)
	}
	var stats domain.Link
	json.NewDecoder(resp.Body).Decode(&stats)
	resp.Body.Close()
	if stats.ClickCount != 1 {
		t.Errorf("stats click count = %d, want 1", stats.ClickCount)
	}

	// Search finds the owner's link by URL.
	resp = doJSON(t, client, "GET", server.URL+"/links/search?original_url=https%3A%2F%2Fexample.com%2Fguide", ownerToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("search: expected 200, got %d", resp.StatusCode)
	}
	var found []domain.Link
	json.NewDecoder(resp.Body).Decode(&found)
	resp.Body.Close()
	if len(found) != 1 || found[0].ShortCode != "my-link_1" {
		t.Errorf("search results = %+v, want the created link", found)
	}

	// Update the target URL, then delete; the code stops resolving.
	resp = doJSON(t, client, "PUT", server.URL+"/links/my-link_1", ownerToken, map[string]any{
		"original_url": "https://example.com/guide-v2",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update: expected 200, got %d", resp.StatusCode)
	}
	var updated domain.Link
	json.NewDecoder(resp.Body).Decode(&updated)
	resp.Body.Close()
	if updated.OriginalURL != "https://example.com/guide-v2" {
		t.Errorf("updated URL = %q", updated.OriginalURL)
	}

	resp = doJSON(t, client, "DELETE", server.URL+"/links/my-link_1", ownerToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete: expected 204, got %d", resp.StatusCode)
	}

	req, _ = http.NewRequest("GET", server.URL+"/links/my-link_1", nil)
	req.Header.Set("Authorization", "Bearer "+ownerToken)
	resp, err = client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("resolve after delete: expected 404, got %d", resp.StatusCode)
	}
}

func TestExpiredLinkReturnsGone(t *testing.T) {
	server, repo, _ := setupServer(t, "e2e_expired")
	client := server.Client()
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}

	past := time.Now().Add(-time.Minute)
	link := &domain.Link{
		OriginalURL: "https://example.com/stale",
		ShortCode:   "stale1",
		CreatedAt:   time.Now().Add(-time.Hour),
		ExpiresAt:   &past,
	}
	if err := repo.Create(context.Background(), link); err != nil {
		t.Fatal(err)
	}

	resp, err := client.Get(server.URL + "/links/stale1")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusGone {
		t.Errorf("expired redirect: expected 410, got %d", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	server, _, _ := setupServer(t, "e2e_health")

	resp, err := server.Client().Get(server.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz: expected 200, got %d", resp.StatusCode)
	}
}
