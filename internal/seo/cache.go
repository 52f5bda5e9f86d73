package seo

import (
	"strings"

	"github.com/utafrali/catalogimporter/internal/domain"
)

// SlugCache holds the url records written by the current batch, keyed by slug.
// Records staged in a batch are not visible through the repository until the
// batch commits, so slug validation consults the cache first.
//
// A SlugCache is not safe for concurrent use.
type SlugCache struct {
	records map[string]*domain.UrlRecord
}

// NewSlugCache creates an empty cache.
func NewSlugCache() *SlugCache {
	return &SlugCache{records: make(map[string]*domain.UrlRecord)}
}

// Put records rec under its slug, replacing any earlier entry.
func (c *SlugCache) Put(rec *domain.UrlRecord) {
	c.records[strings.ToLower(rec.Slug)] = rec
}

// Get returns the record cached for slug.
func (c *SlugCache) Get(slug string) (*domain.UrlRecord, bool) {
	if c == nil {
		return nil, false
	}
	rec, ok := c.records[strings.ToLower(slug)]
	return rec, ok
}

// Len returns the number of cached slugs.
func (c *SlugCache) Len() int {
	if c == nil {
		return 0
	}
	return len(c.records)
}
