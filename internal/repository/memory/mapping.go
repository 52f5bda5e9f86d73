package memory

import (
	"context"
	"sort"

	"github.com/utafrali/catalogimporter/internal/domain"
	"github.com/utafrali/catalogimporter/internal/repository"
	apperrors "github.com/utafrali/catalogimporter/pkg/errors"
)

// TargetRepository implements repository.TargetRepository over categories or manufacturers.
type TargetRepository struct {
	store *Store
	kind  domain.MappingKind
}

var _ repository.TargetRepository = (*TargetRepository)(nil)

// Categories returns the category lookup of the store.
func (s *Store) Categories() *TargetRepository {
	return &TargetRepository{store: s, kind: domain.MappingCategory}
}

// Manufacturers returns the manufacturer lookup of the store.
func (s *Store) Manufacturers() *TargetRepository {
	return &TargetRepository{store: s, kind: domain.MappingManufacturer}
}

// AddCategory registers a category.
func (s *Store) AddCategory(c domain.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[c.ID] = c
}

// AddManufacturer registers a manufacturer.
func (s *Store) AddManufacturer(m domain.Manufacturer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manufacturers[m.ID] = m
}

// Exists reports whether a non-deleted target with id exists.
func (r *TargetRepository) Exists(_ context.Context, id int64) (bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	if r.kind == domain.MappingManufacturer {
		m, ok := r.store.manufacturers[id]
		return ok && !m.Deleted, nil
	}
	c, ok := r.store.categories[id]
	return ok && !c.Deleted, nil
}

// MappingRepository implements repository.MappingRepository for one association kind.
type MappingRepository struct {
	store *Store
	kind  domain.MappingKind
}

var _ repository.MappingRepository = (*MappingRepository)(nil)

// ProductCategories returns the product-category mapping repository.
func (s *Store) ProductCategories() *MappingRepository {
	return &MappingRepository{store: s, kind: domain.MappingCategory}
}

// ProductManufacturers returns the product-manufacturer mapping repository.
func (s *Store) ProductManufacturers() *MappingRepository {
	return &MappingRepository{store: s, kind: domain.MappingManufacturer}
}

// Mappings returns every committed mapping of a kind ordered by id.
func (s *Store) Mappings(kind domain.MappingKind) []domain.ProductMapping {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ProductMapping, 0, len(s.mappings[kind]))
	for _, m := range s.mappings[kind] {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Exists reports whether the product is already mapped to the target.
func (r *MappingRepository) Exists(_ context.Context, productID, targetID int64) (bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	_, ok := r.store.mappings[r.kind][mappingKey{productID, targetID}]
	return ok, nil
}

// BeginBatch opens a mapping write batch.
func (r *MappingRepository) BeginBatch(_ context.Context) (repository.MappingBatch, error) {
	return &mappingBatch{
		batch:   newBatch(r.store, "product_"+string(r.kind)+"_mappings"),
		kind:    r.kind,
		pending: make(map[mappingKey]bool),
	}, nil
}

type mappingBatch struct {
	*batch
	kind    domain.MappingKind
	pending map[mappingKey]bool
}

func (b *mappingBatch) Insert(_ context.Context, m *domain.ProductMapping) error {
	k := mappingKey{m.ProductID, m.TargetID}
	b.store.mu.RLock()
	_, exists := b.store.mappings[b.kind][k]
	b.store.mu.RUnlock()
	if exists || b.pending[k] {
		return apperrors.ErrAlreadyExists
	}

	m.ID = b.store.nextID()
	m.Kind = b.kind
	cp := *m
	if err := b.stage(func() { b.store.mappings[cp.Kind][k] = &cp }); err != nil {
		return err
	}
	b.pending[k] = true
	return nil
}
