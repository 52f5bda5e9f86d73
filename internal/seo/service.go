// Package seo assigns and persists search-engine-friendly slugs.
package seo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/utafrali/catalogimporter/internal/domain"
	"github.com/utafrali/catalogimporter/internal/repository"
	apperrors "github.com/utafrali/catalogimporter/pkg/errors"
	"github.com/utafrali/catalogimporter/pkg/slug"
)

// DefaultMaxLength is the slug length used when Settings.MaxLength is not set.
const DefaultMaxLength = 400

// maxAttempts bounds the numeric suffix search.
const maxAttempts = 10000

// Settings configures slug validation.
type Settings struct {
	// ReservedSlugs can never be assigned to an entity, e.g. "admin" or "cart".
	ReservedSlugs []string
	MaxLength     int
}

// Service validates and persists url records.
type Service struct {
	repo      repository.UrlRecordRepository
	reserved  map[string]struct{}
	maxLength int
	logger    *slog.Logger
}

// NewService creates a new slug service.
func NewService(repo repository.UrlRecordRepository, settings Settings, logger *slog.Logger) *Service {
	reserved := make(map[string]struct{}, len(settings.ReservedSlugs))
	for _, s := range settings.ReservedSlugs {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			reserved[s] = struct{}{}
		}
	}
	maxLength := settings.MaxLength
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	return &Service{
		repo:      repo,
		reserved:  reserved,
		maxLength: maxLength,
		logger:    logger,
	}
}

// BeginBatch opens a url record batch.
func (s *Service) BeginBatch(ctx context.Context) (repository.UrlRecordBatch, error) {
	return s.repo.BeginBatch(ctx)
}

// ValidateSlug turns candidate (or fallback when candidate is blank) into a
// slug that no other entity owns. When the result would be empty and
// ensureNotEmpty is set, the entity id is used instead. A taken slug gets a
// numeric suffix: "lamp", "lamp-2", "lamp-3" and so on.
func (s *Service) ValidateSlug(ctx context.Context, entity domain.Entity, candidate, fallback string, ensureNotEmpty bool, cache *SlugCache) (string, error) {
	if strings.TrimSpace(candidate) == "" {
		candidate = fallback
	}

	base := slug.Truncate(slug.Generate(candidate), s.maxLength)
	if base == "" {
		if !ensureNotEmpty {
			return "", nil
		}
		base = strconv.FormatInt(entity.GetID(), 10)
	}

	current := base
	for i := 2; i < maxAttempts; i++ {
		taken, err := s.isTaken(ctx, entity, current, cache)
		if err != nil {
			return "", err
		}
		if !taken {
			return current, nil
		}
		current = s.withSuffix(base, i)
	}
	return "", fmt.Errorf("validate slug %q: no free suffix after %d attempts", base, maxAttempts)
}

// withSuffix appends "-n" to base, shortening base so the result stays
// within the maximum length.
func (s *Service) withSuffix(base string, n int) string {
	suffix := "-" + strconv.Itoa(n)
	return slug.Truncate(base, max(s.maxLength-len(suffix), 1)) + suffix
}

// isTaken reports whether slug is reserved or owned by an entity other than entity.
func (s *Service) isTaken(ctx context.Context, entity domain.Entity, slug string, cache *SlugCache) (bool, error) {
	if _, ok := s.reserved[slug]; ok {
		return true, nil
	}

	if rec, ok := cache.Get(slug); ok {
		return !ownedBy(rec, entity), nil
	}

	rec, err := s.repo.GetBySlug(ctx, slug)
	if errors.Is(err, apperrors.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup slug %q: %w", slug, err)
	}
	return !ownedBy(rec, entity), nil
}

func ownedBy(rec *domain.UrlRecord, entity domain.Entity) bool {
	return rec.EntityID == entity.GetID() && rec.EntityName == entity.EntityName()
}

// SaveSlug makes slug the active url record of entity in languageID.
//
// An entity keeps one active record per language. Changing the slug
// reactivates a matching inactive record or inserts a new one, and then
// deactivates the previous record. An empty slug deactivates the active
// record. The returned record is the active one, or nil when none remains.
func (s *Service) SaveSlug(ctx context.Context, batch repository.UrlRecordBatch, entity domain.Entity, slug string, languageID int) (*domain.UrlRecord, error) {
	records, err := s.repo.ListByEntity(ctx, entity.GetID(), entity.EntityName(), languageID)
	if err != nil {
		return nil, fmt.Errorf("list url records: %w", err)
	}

	var active *domain.UrlRecord
	for i := range records {
		if records[i].IsActive {
			active = &records[i]
			break
		}
	}

	findInactive := func(slug string) *domain.UrlRecord {
		for i := range records {
			if !records[i].IsActive && strings.EqualFold(records[i].Slug, slug) {
				return &records[i]
			}
		}
		return nil
	}

	switch {
	case active == nil && slug == "":
		return nil, nil

	case active == nil:
		return s.activate(ctx, batch, entity, findInactive(slug), slug, languageID)

	case slug == "":
		active.IsActive = false
		if err := batch.Update(ctx, active); err != nil {
			return nil, fmt.Errorf("deactivate slug: %w", err)
		}
		return nil, nil

	case strings.EqualFold(active.Slug, slug):
		return active, nil

	default:
		rec, err := s.activate(ctx, batch, entity, findInactive(slug), slug, languageID)
		if err != nil {
			return nil, err
		}
		active.IsActive = false
		if err := batch.Update(ctx, active); err != nil {
			return nil, fmt.Errorf("deactivate slug: %w", err)
		}
		return rec, nil
	}
}

// activate reactivates inactive when given, otherwise inserts a new active record.
func (s *Service) activate(ctx context.Context, batch repository.UrlRecordBatch, entity domain.Entity, inactive *domain.UrlRecord, slug string, languageID int) (*domain.UrlRecord, error) {
	if inactive != nil {
		inactive.IsActive = true
		if err := batch.Update(ctx, inactive); err != nil {
			return nil, fmt.Errorf("reactivate slug: %w", err)
		}
		return inactive, nil
	}

	rec := &domain.UrlRecord{
		EntityID:   entity.GetID(),
		EntityName: entity.EntityName(),
		Slug:       slug,
		IsActive:   true,
		LanguageID: languageID,
	}
	if err := batch.Insert(ctx, rec); err != nil {
		return nil, fmt.Errorf("insert slug: %w", err)
	}
	s.logger.DebugContext(ctx, "slug inserted",
		slog.String("slug", slug),
		slog.Int64("entity_id", rec.EntityID),
	)
	return rec, nil
}
