package memory

import (
	"context"

	"github.com/utafrali/catalogimporter/internal/domain"
	"github.com/utafrali/catalogimporter/internal/repository"
	apperrors "github.com/utafrali/catalogimporter/pkg/errors"
)

// ProductRepository implements repository.ProductRepository.
type ProductRepository struct {
	store *Store
}

var _ repository.ProductRepository = (*ProductRepository)(nil)

// Products returns the product repository of the store.
func (s *Store) Products() *ProductRepository {
	return &ProductRepository{store: s}
}

// AddProduct stores a product directly, outside any batch.
func (s *Store) AddProduct(p *domain.Product) *domain.Product {
	s.assignID(&p.ID)
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.products[p.ID] = &cp
	return p
}

// AllProducts returns a copy of every committed product ordered by id.
func (s *Store) AllProducts() []domain.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Product, 0, len(s.products))
	for id := int64(1); id <= s.seq; id++ {
		if p, ok := s.products[id]; ok {
			out = append(out, *p)
		}
	}
	return out
}

// StoreMappings returns the store ids a product is limited to.
func (s *Store) StoreMappings(productID int64) []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]int(nil), s.storeMappings[productID]...)
}

// GetByID retrieves a product by identifier.
func (r *ProductRepository) GetByID(_ context.Context, id int64) (*domain.Product, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	p, ok := r.store.products[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// GetBySku retrieves a product by SKU. The lowest id wins when SKUs repeat.
func (r *ProductRepository) GetBySku(_ context.Context, sku string) (*domain.Product, error) {
	return r.findFirst(func(p *domain.Product) bool { return p.Sku == sku })
}

// GetByGtin retrieves a product by GTIN.
func (r *ProductRepository) GetByGtin(_ context.Context, gtin string) (*domain.Product, error) {
	return r.findFirst(func(p *domain.Product) bool { return p.Gtin == gtin })
}

func (r *ProductRepository) findFirst(match func(p *domain.Product) bool) (*domain.Product, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var found *domain.Product
	for _, p := range r.store.products {
		if match(p) && (found == nil || p.ID < found.ID) {
			found = p
		}
	}
	if found == nil {
		return nil, apperrors.ErrNotFound
	}
	cp := *found
	return &cp, nil
}

// BeginBatch opens a product write batch.
func (r *ProductRepository) BeginBatch(_ context.Context) (repository.ProductBatch, error) {
	return &productBatch{batch: newBatch(r.store, "products"), inserted: make(map[int64]struct{})}, nil
}

type productBatch struct {
	*batch
	inserted map[int64]struct{}
}

func (b *productBatch) Insert(_ context.Context, p *domain.Product) error {
	p.ID = b.store.nextID()
	cp := *p
	if err := b.stage(func() { b.store.products[cp.ID] = &cp }); err != nil {
		return err
	}
	b.inserted[cp.ID] = struct{}{}
	return nil
}

// Update accepts committed products and those inserted earlier in this batch.
func (b *productBatch) Update(_ context.Context, p *domain.Product) error {
	_, ok := b.inserted[p.ID]
	if !ok {
		b.store.mu.RLock()
		_, ok = b.store.products[p.ID]
		b.store.mu.RUnlock()
	}
	if !ok {
		return apperrors.ErrNotFound
	}
	cp := *p
	return b.stage(func() { b.store.products[cp.ID] = &cp })
}

func (b *productBatch) SaveStoreMappings(_ context.Context, productID int64, storeIDs []int) error {
	ids := append([]int(nil), storeIDs...)
	return b.stage(func() { b.store.storeMappings[productID] = ids })
}
