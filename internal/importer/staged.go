package importer

import "github.com/utafrali/catalogimporter/internal/domain"

// stagedProducts indexes the products written earlier in the current batch.
// They are invisible to repository lookups until the batch commits, so two
// rows sharing an Id, Sku or Gtin must resolve here first or the second row
// would create a duplicate.
//
// Entries are copies taken after a successful write; a row that later fails
// cannot leak its unsaved field values into the next row.
type stagedProducts struct {
	byID   map[int64]domain.Product
	bySku  map[string]int64
	byGtin map[string]int64
}

func newStagedProducts() *stagedProducts {
	return &stagedProducts{
		byID:   make(map[int64]domain.Product),
		bySku:  make(map[string]int64),
		byGtin: make(map[string]int64),
	}
}

// put records the saved state of p. When keys repeat the lowest id wins,
// matching repository resolution.
func (s *stagedProducts) put(p *domain.Product) {
	s.byID[p.ID] = *p
	index := func(m map[string]int64, key string) {
		if key == "" {
			return
		}
		if id, ok := m[key]; !ok || p.ID < id {
			m[key] = p.ID
		}
	}
	index(s.bySku, p.Sku)
	index(s.byGtin, p.Gtin)
}

func (s *stagedProducts) id(id int64) (*domain.Product, bool) {
	p, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	return &p, true
}

func (s *stagedProducts) sku(sku string) (*domain.Product, bool) {
	return s.key(s.bySku, sku, func(p *domain.Product) string { return p.Sku })
}

func (s *stagedProducts) gtin(gtin string) (*domain.Product, bool) {
	return s.key(s.byGtin, gtin, func(p *domain.Product) string { return p.Gtin })
}

// key follows an index entry and drops it if a later write changed the key.
func (s *stagedProducts) key(m map[string]int64, key string, field func(*domain.Product) string) (*domain.Product, bool) {
	id, ok := m[key]
	if !ok {
		return nil, false
	}
	p, ok := s.id(id)
	if !ok || field(p) != key {
		return nil, false
	}
	return p, true
}
