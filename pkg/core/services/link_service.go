package services

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/tinylink-io/tinylink/pkg/core/domain"
	"github.com/tinylink-io/tinylink/pkg/ports"
)

const maxURLLength = 2048

// conflictsPerLength is how many unique-index conflicts we tolerate at
// a given candidate length before growing it by one character.
const conflictsPerLength = 3

// readRetries bounds internal retries of idempotent reads on transient
// store failures.
const readRetries = 3

// LinkService implements allocation, resolution and the owner-gated
// mutation operations. The repository's unique index on short_code is
// the only authority for allocation races; everything the service
// checks beforehand is advisory.
type LinkService struct {
	repo        ports.LinkRepository
	gen         ports.CodeGenerator
	validator   *AliasValidator
	cache       ports.RedirectCache // optional, may be nil
	codeLength  int
	maxAttempts int
	now         func() time.Time
}

func NewLinkService(repo ports.LinkRepository, gen ports.CodeGenerator, validator *AliasValidator, cache ports.RedirectCache, codeLength, maxAttempts int) *LinkService {
	if codeLength < 1 {
		codeLength = 6
	}
	if maxAttempts < 1 {
		maxAttempts = 10
	}
	return &LinkService{
		repo:        repo,
		gen:         gen,
		validator:   validator,
		cache:       cache,
		codeLength:  codeLength,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

// Shorten creates a link. With an alias it validates and reserves it;
// without one it retries random candidates until an unused code is
// found or the attempt budget runs out.
func (s *LinkService) Shorten(ctx context.Context, originalURL, alias string, expiresAt *time.Time, owner *domain.Principal) (*domain.Link, error) {
	if err := validateOriginalURL(originalURL); err != nil {
		return nil, err
	}

	link := &domain.Link{
		OriginalURL: originalURL,
		CreatedAt:   s.now(),
		ExpiresAt:   expiresAt,
	}
	if owner != nil {
		id := owner.ID
		link.OwnerID = &id
	}

	if alias != "" {
		return s.allocateAlias(ctx, link, alias)
	}
	return s.allocateRandom(ctx, link)
}

func (s *LinkService) allocateAlias(ctx context.Context, link *domain.Link, alias string) (*domain.Link, error) {
	code, err := s.validator.Validate(alias)
	if err != nil {
		return nil, err
	}

	// Advisory pre-check for a fast user-facing error. The insert below
	// is the real guard.
	existing, err := s.repo.GetByShortCode(ctx, code)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrAliasTaken
	}

	link.ShortCode = code
	if err := s.repo.Create(ctx, link); err != nil {
		if errors.Is(err, domain.ErrCodeTaken) {
			return nil, domain.ErrAliasTaken
		}
		return nil, err
	}
	return link, nil
}

func (s *LinkService) allocateRandom(ctx context.Context, link *domain.Link) (*domain.Link, error) {
	length := s.codeLength
	conflicts := 0

	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		code, err := s.gen.Generate(length)
		if err != nil {
			return nil, err
		}
		if s.validator.IsReserved(code) {
			continue
		}

		link.ShortCode = code
		err = s.repo.Create(ctx, link)
		if err == nil {
			return link, nil
		}
		if !errors.Is(err, domain.ErrCodeTaken) {
			return nil, err
		}

		// Lost the unique-index race. A conflict streak at this length
		// means the space is crowded, so widen the candidate.
		conflicts++
		if conflicts%conflictsPerLength == 0 {
			length++
		}
	}
	return nil, domain.ErrAllocationExhausted
}

// Resolve returns the redirect target for a code, enforcing ownership
// and expiry, and counts the click. The increment happens store-side so
// concurrent resolutions are all reflected.
func (s *LinkService) Resolve(ctx context.Context, code string, p *domain.Principal) (string, error) {
	link, cached, err := s.lookup(ctx, code)
	if err != nil {
		return "", err
	}

	if link.OwnerID != nil && !link.IsOwnedBy(p) {
		return "", domain.ErrForbidden
	}
	if link.IsExpired(s.now()) {
		return "", domain.ErrGone
	}

	if _, err := s.repo.IncrementClicks(ctx, code); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Deleted between the cached read and the increment.
			s.evict(ctx, code)
			return "", domain.ErrNotFound
		}
		return "", err
	}

	if !cached && s.cache != nil {
		s.cache.Add(ctx, code, link)
	}
	return link.OriginalURL, nil
}

// Stats returns the link record, owner only. Anonymous links recorded
// no creator, so their stats are visible to nobody.
func (s *LinkService) Stats(ctx context.Context, code string, p *domain.Principal) (*domain.Link, error) {
	link, err := s.getByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !link.IsOwnedBy(p) {
		return nil, domain.ErrForbidden
	}
	return link, nil
}

// Update replaces the original URL, owner only, and returns the
// refreshed record.
func (s *LinkService) Update(ctx context.Context, code string, p *domain.Principal, originalURL string) (*domain.Link, error) {
	if err := validateOriginalURL(originalURL); err != nil {
		return nil, err
	}

	link, err := s.getByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !link.IsOwnedBy(p) {
		return nil, domain.ErrForbidden
	}

	if err := s.repo.UpdateOriginalURL(ctx, code, originalURL); err != nil {
		return nil, err
	}
	s.evict(ctx, code)

	return s.getByCode(ctx, code)
}

// Delete removes the link, owner only. Anonymous links have no owner
// and therefore cannot be deleted through this operation.
func (s *LinkService) Delete(ctx context.Context, code string, p *domain.Principal) error {
	link, err := s.getByCode(ctx, code)
	if err != nil {
		return err
	}
	if !link.IsOwnedBy(p) {
		return domain.ErrForbidden
	}

	if err := s.repo.DeleteByShortCode(ctx, code); err != nil {
		return err
	}
	s.evict(ctx, code)
	return nil
}

// Search returns the caller's links that exactly match the given URL.
func (s *LinkService) Search(ctx context.Context, originalURL string, p *domain.Principal) ([]domain.Link, error) {
	if p == nil {
		return nil, domain.ErrForbidden
	}
	return s.repo.FindByOwnerAndURL(ctx, p.ID, originalURL)
}

func (s *LinkService) lookup(ctx context.Context, code string) (*domain.Link, bool, error) {
	if s.cache != nil {
		if link, ok := s.cache.Get(ctx, code); ok {
			return link, true, nil
		}
	}
	link, err := s.getByCode(ctx, code)
	if err != nil {
		return nil, false, err
	}
	return link, false, nil
}

// getByCode retries transient store failures for this idempotent read.
// Writes are never retried here: re-running an insert or increment
// without re-checking its precondition could duplicate the side effect.
func (s *LinkService) getByCode(ctx context.Context, code string) (*domain.Link, error) {
	var link *domain.Link
	var err error
	for attempt := 0; attempt < readRetries; attempt++ {
		link, err = s.repo.GetByShortCode(ctx, code)
		if err == nil || errors.Is(err, domain.ErrNotFound) || ctx.Err() != nil {
			return link, err
		}
	}
	return nil, err
}

func (s *LinkService) evict(ctx context.Context, code string) {
	if s.cache != nil {
		s.cache.Remove(ctx, code)
	}
}

func validateOriginalURL(originalURL string) error {
	if originalURL == "" || len(originalURL) > maxURLLength {
		return domain.ErrInvalidURL
	}
	u, err := url.Parse(originalURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return domain.ErrInvalidURL
	}
	return nil
}

var _ ports.LinkService = (*LinkService)(nil)
