package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/tinylink-io/tinylink/pkg/core/domain"
	"github.com/tinylink-io/tinylink/pkg/ports"
)

type HTTPHandler struct {
	service ports.LinkService
}

func NewHTTPHandler(service ports.LinkService) *HTTPHandler {
	return &HTTPHandler{service: service}
}

// CreateLinkRequest payload
type CreateLinkRequest struct {
	OriginalURL string     `json:"original_url"`
	Alias       string     `json:"alias,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// UpdateLinkRequest payload
type UpdateLinkRequest struct {
	OriginalURL string `json:"original_url"`
}

// Create Link
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	p := PrincipalFromContext(r.Context())
	link, err := h.service.Shorten(r.Context(), req.OriginalURL, req.Alias, req.ExpiresAt, p)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, link)
}

// Redirect to original URL
func (h *HTTPHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("short_code")

	p := PrincipalFromContext(r.Context())
	originalURL, err := h.service.Resolve(r.Context(), code, p)
	if err != nil {
		writeError(w, err)
		return
	}

	http.Redirect(w, r, originalURL, http.StatusFound)
}

// Get Stats for a Link (owner only)
func (h *HTTPHandler) Stats(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("short_code")

	p := PrincipalFromContext(r.Context())
	link, err := h.service.Stats(r.Context(), code, p)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, link)
}

// Update Link URL (owner only)
func (h *HTTPHandler) Update(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("short_code")

	var req UpdateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	p := PrincipalFromContext(r.Context())
	link, err := h.service.Update(r.Context(), code, p, req.OriginalURL)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, link)
}

// Delete Link (owner only)
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("short_code")

	p := PrincipalFromContext(r.Context())
	if err := h.service.Delete(r.Context(), code, p); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Search the caller's links by original URL
func (h *HTTPHandler) Search(w http.ResponseWriter, r *http.Request) {
	originalURL := r.URL.Query().Get("original_url")
	if originalURL == "" {
		http.Error(w, "original_url query parameter is required", http.StatusBadRequest)
		return
	}

	p := PrincipalFromContext(r.Context())
	links, err := h.service.Search(r.Context(), originalURL, p)
	if err != nil {
		writeError(w, err)
		return
	}
	if links == nil {
		links = []domain.Link{}
	}

	writeJSON(w, http.StatusOK, links)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidAlias),
		errors.Is(err, domain.ErrInvalidURL),
		errors.Is(err, domain.ErrAliasTaken):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrForbidden):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, domain.ErrGone):
		http.Error(w, err.Error(), http.StatusGone)
	case errors.Is(err, domain.ErrAllocationExhausted):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
