package cache

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/tinylink-io/tinylink/pkg/core/domain"
	"github.com/tinylink-io/tinylink/pkg/ports"
)

// LRUCache is an in-process redirect cache. It only memoizes reads;
// the repository stays authoritative for uniqueness and counters.
type LRUCache struct {
	cache *lru.Cache[string, domain.Link]
}

func NewLRUCache(size int) (*LRUCache, error) {
	c, err := lru.New[string, domain.Link](size)
	if err != nil {
		return nil, err
	}
	return &LRUCache{cache: c}, nil
}

func (c *LRUCache) Get(_ context.Context, code string) (*domain.Link, bool) {
	link, ok := c.cache.Get(code)
	if !ok {
		return nil, false
	}
	return &link, true
}

func (c *LRUCache) Add(_ context.Context, code string, link *domain.Link) {
	c.cache.Add(code, *link)
}

func (c *LRUCache) Remove(_ context.Context, code string) {
	c.cache.Remove(code)
}

// Ensure interface compliance
var _ ports.RedirectCache = (*LRUCache)(nil)
