package memory

import (
	"context"
	"sort"

	"github.com/utafrali/catalogimporter/internal/domain"
	"github.com/utafrali/catalogimporter/internal/repository"
	apperrors "github.com/utafrali/catalogimporter/pkg/errors"
)

// LanguageRepository implements repository.LanguageRepository.
type LanguageRepository struct {
	store *Store
}

var _ repository.LanguageRepository = (*LanguageRepository)(nil)

// Languages returns the language repository of the store.
func (s *Store) Languages() *LanguageRepository {
	return &LanguageRepository{store: s}
}

// AddLanguage registers a language.
func (s *Store) AddLanguage(lang domain.Language) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.languages = append(s.languages, lang)
}

// ListActive returns published languages ordered by display order.
func (r *LanguageRepository) ListActive(_ context.Context) ([]domain.Language, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var out []domain.Language
	for _, l := range r.store.languages {
		if l.Published {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out, nil
}

// LocalizedPropertyRepository implements repository.LocalizedPropertyRepository.
type LocalizedPropertyRepository struct {
	store *Store
}

var _ repository.LocalizedPropertyRepository = (*LocalizedPropertyRepository)(nil)

// LocalizedProperties returns the localized property repository of the store.
func (s *Store) LocalizedProperties() *LocalizedPropertyRepository {
	return &LocalizedPropertyRepository{store: s}
}

// CountLocalizedProperties returns the number of stored localized values.
func (s *Store) CountLocalizedProperties() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.localized)
}

// Get retrieves one localized value.
func (r *LocalizedPropertyRepository) Get(_ context.Context, entityID int64, languageID int, keyGroup, key string) (*domain.LocalizedProperty, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	lp, ok := r.store.localized[localizedKey{entityID, languageID, keyGroup, key}]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *lp
	return &cp, nil
}

// BeginBatch opens a localized property write batch.
func (r *LocalizedPropertyRepository) BeginBatch(_ context.Context) (repository.LocalizedPropertyBatch, error) {
	return &localizedBatch{
		batch:   newBatch(r.store, "localized_properties"),
		pending: make(map[localizedKey]string),
	}, nil
}

type localizedBatch struct {
	*batch
	pending map[localizedKey]string
}

func (b *localizedBatch) Upsert(_ context.Context, prop *domain.LocalizedProperty) (bool, error) {
	k := localizedKey{prop.EntityID, prop.LanguageID, prop.LocaleKeyGroup, prop.LocaleKey}

	current, staged := b.pending[k]
	var existing *domain.LocalizedProperty
	if !staged {
		b.store.mu.RLock()
		if lp, ok := b.store.localized[k]; ok {
			cp := *lp
			existing = &cp
			current, staged = lp.LocaleValue, true
		}
		b.store.mu.RUnlock()
	}
	if staged && current == prop.LocaleValue {
		return false, nil
	}

	if existing != nil {
		prop.ID = existing.ID
	} else if prop.ID == 0 {
		prop.ID = b.store.nextID()
	}
	cp := *prop
	if err := b.stage(func() {
		if lp, ok := b.store.localized[k]; ok {
			lp.LocaleValue = cp.LocaleValue
			return
		}
		b.store.localized[k] = &cp
	}); err != nil {
		return false, err
	}
	b.pending[k] = prop.LocaleValue
	return true, nil
}
