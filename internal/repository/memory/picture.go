package memory

import (
	"context"
	"sort"

	"github.com/utafrali/catalogimporter/internal/domain"
	"github.com/utafrali/catalogimporter/internal/repository"
	apperrors "github.com/utafrali/catalogimporter/pkg/errors"
)

// PictureRepository implements repository.PictureRepository.
type PictureRepository struct {
	store *Store
}

var _ repository.PictureRepository = (*PictureRepository)(nil)

// Pictures returns the picture repository of the store.
func (s *Store) Pictures() *PictureRepository {
	return &PictureRepository{store: s}
}

// ProductPictures returns the picture mappings of a product ordered by display order.
func (s *Store) ProductPictures(productID int64) []domain.ProductPicture {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.ProductPicture
	for _, pp := range s.productPictures {
		if pp.ProductID == productID {
			out = append(out, pp)
		}
	}
	return out
}

// CountPictures returns the number of stored pictures.
func (s *Store) CountPictures() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pictures)
}

// ListByProduct returns the pictures mapped to a product.
func (r *PictureRepository) ListByProduct(_ context.Context, productID int64) ([]domain.Picture, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var links []domain.ProductPicture
	for _, pp := range r.store.productPictures {
		if pp.ProductID == productID {
			links = append(links, pp)
		}
	}
	sort.SliceStable(links, func(i, j int) bool { return links[i].DisplayOrder < links[j].DisplayOrder })

	out := make([]domain.Picture, 0, len(links))
	for _, pp := range links {
		if pic, ok := r.store.pictures[pp.PictureID]; ok {
			out = append(out, *pic)
		}
	}
	return out, nil
}

// Insert stores picture metadata.
func (r *PictureRepository) Insert(_ context.Context, pic *domain.Picture) error {
	pic.ID = r.store.nextID()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *pic
	r.store.pictures[pic.ID] = &cp
	return nil
}

// InsertProductPicture stores a product-picture mapping.
func (r *PictureRepository) InsertProductPicture(_ context.Context, pp *domain.ProductPicture) error {
	pp.ID = r.store.nextID()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.pictures[pp.PictureID]; !ok {
		return apperrors.ErrNotFound
	}
	r.store.productPictures = append(r.store.productPictures, *pp)
	return nil
}
