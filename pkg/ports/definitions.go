package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tinylink-io/tinylink/pkg/core/domain"
)

// LinkRepository defines storage operations for links.
//
// The store's unique index on short_code is the single authority for
// allocation races: Create must return domain.ErrCodeTaken when the
// insert loses such a race. Lookup methods return domain.ErrNotFound
// for missing codes.
type LinkRepository interface {
	Create(ctx context.Context, link *domain.Link) error
	GetByShortCode(ctx context.Context, code string) (*domain.Link, error)
	UpdateOriginalURL(ctx context.Context, code string, originalURL string) error
	// IncrementClicks applies a store-side atomic increment and returns
	// the new count. Concurrent increments must not be lost.
	IncrementClicks(ctx context.Context, code string) (int64, error)
	DeleteByShortCode(ctx context.Context, code string) error
	FindByOwnerAndURL(ctx context.Context, owner uuid.UUID, originalURL string) ([]domain.Link, error)
	Dump(ctx context.Context) ([]domain.Link, error) // For migration
}

// RedirectCache memoizes code -> link lookups for hot redirects. It is
// never authoritative: ownership and expiry checks re-run on cached
// values, and click increments always go to the repository.
type RedirectCache interface {
	Get(ctx context.Context, code string) (*domain.Link, bool)
	Add(ctx context.Context, code string, link *domain.Link)
	Remove(ctx context.Context, code string)
}

// CodeGenerator produces random candidate short codes.
type CodeGenerator interface {
	Generate(length int) (string, error)
}

// LinkService defines the business logic operations
type LinkService interface {
	Shorten(ctx context.Context, originalURL, alias string, expiresAt *time.Time, owner *domain.Principal) (*domain.Link, error)
	Resolve(ctx context.Context, code string, p *domain.Principal) (string, error)
	Stats(ctx context.Context, code string, p *domain.Principal) (*domain.Link, error)
	Update(ctx context.Context, code string, p *domain.Principal, originalURL string) (*domain.Link, error)
	Delete(ctx context.Context, code string, p *domain.Principal) error
	Search(ctx context.Context, originalURL string, p *domain.Principal) ([]domain.Link, error)
}
