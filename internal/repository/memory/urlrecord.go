package memory

import (
	"context"
	"strings"

	"github.com/utafrali/catalogimporter/internal/domain"
	"github.com/utafrali/catalogimporter/internal/repository"
	apperrors "github.com/utafrali/catalogimporter/pkg/errors"
)

// UrlRecordRepository implements repository.UrlRecordRepository.
type UrlRecordRepository struct {
	store *Store
}

var _ repository.UrlRecordRepository = (*UrlRecordRepository)(nil)

// UrlRecords returns the url record repository of the store.
func (s *Store) UrlRecords() *UrlRecordRepository {
	return &UrlRecordRepository{store: s}
}

// AddUrlRecord stores a record directly, outside any batch.
func (s *Store) AddUrlRecord(rec *domain.UrlRecord) *domain.UrlRecord {
	s.assignID(&rec.ID)
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.urlRecords[rec.ID] = &cp
	return rec
}

// AllUrlRecords returns every committed url record.
func (s *Store) AllUrlRecords() []domain.UrlRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.UrlRecord, 0, len(s.urlRecords))
	for id := int64(1); id <= s.seq; id++ {
		if rec, ok := s.urlRecords[id]; ok {
			out = append(out, *rec)
		}
	}
	return out
}

// GetBySlug retrieves the record owning slug, compared case-insensitively.
func (r *UrlRecordRepository) GetBySlug(_ context.Context, slug string) (*domain.UrlRecord, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	if rec := r.store.urlRecordBySlug(slug); rec != nil {
		cp := *rec
		return &cp, nil
	}
	return nil, apperrors.ErrNotFound
}

func (s *Store) urlRecordBySlug(slug string) *domain.UrlRecord {
	var found *domain.UrlRecord
	for _, rec := range s.urlRecords {
		if strings.EqualFold(rec.Slug, slug) && (found == nil || rec.ID < found.ID) {
			found = rec
		}
	}
	return found
}

// ListByEntity returns the records of an entity in one language ordered by id.
func (r *UrlRecordRepository) ListByEntity(_ context.Context, entityID int64, entityName string, languageID int) ([]domain.UrlRecord, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var out []domain.UrlRecord
	for id := int64(1); id <= r.store.seq; id++ {
		rec, ok := r.store.urlRecords[id]
		if ok && rec.EntityID == entityID && rec.EntityName == entityName && rec.LanguageID == languageID {
			out = append(out, *rec)
		}
	}
	return out, nil
}

// BeginBatch opens a url record write batch.
func (r *UrlRecordRepository) BeginBatch(_ context.Context) (repository.UrlRecordBatch, error) {
	return &urlRecordBatch{batch: newBatch(r.store, "url_records"), pending: make(map[string]bool)}, nil
}

type urlRecordBatch struct {
	*batch
	pending map[string]bool
}

func (b *urlRecordBatch) Insert(_ context.Context, rec *domain.UrlRecord) error {
	key := strings.ToLower(rec.Slug)
	b.store.mu.RLock()
	taken := b.store.urlRecordBySlug(rec.Slug) != nil
	b.store.mu.RUnlock()
	if taken || b.pending[key] {
		return apperrors.AlreadyExists("url record", "slug", rec.Slug)
	}

	rec.ID = b.store.nextID()
	cp := *rec
	if err := b.stage(func() { b.store.urlRecords[cp.ID] = &cp }); err != nil {
		return err
	}
	b.pending[key] = true
	return nil
}

func (b *urlRecordBatch) Update(_ context.Context, rec *domain.UrlRecord) error {
	b.store.mu.RLock()
	_, ok := b.store.urlRecords[rec.ID]
	b.store.mu.RUnlock()
	if !ok {
		return apperrors.ErrNotFound
	}
	cp := *rec
	return b.stage(func() { b.store.urlRecords[cp.ID] = &cp })
}
