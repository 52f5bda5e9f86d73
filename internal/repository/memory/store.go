// Package memory implements the repository interfaces on in-process maps.
// Batches buffer their writes and apply them atomically on Commit, so reads
// made during a batch only observe committed data, as with a database.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/utafrali/catalogimporter/internal/domain"
)

var errBatchClosed = errors.New("batch already closed")

type localizedKey struct {
	entityID   int64
	languageID int
	keyGroup   string
	key        string
}

type mappingKey struct {
	productID int64
	targetID  int64
}

// Store holds every table of the in-memory catalog.
type Store struct {
	mu  sync.RWMutex
	seq int64

	products        map[int64]*domain.Product
	storeMappings   map[int64][]int
	urlRecords      map[int64]*domain.UrlRecord
	languages       []domain.Language
	localized       map[localizedKey]*domain.LocalizedProperty
	categories      map[int64]domain.Category
	manufacturers   map[int64]domain.Manufacturer
	mappings        map[domain.MappingKind]map[mappingKey]*domain.ProductMapping
	pictures        map[int64]*domain.Picture
	productPictures []domain.ProductPicture

	commitHook func(table string) error
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		products:      make(map[int64]*domain.Product),
		storeMappings: make(map[int64][]int),
		urlRecords:    make(map[int64]*domain.UrlRecord),
		localized:     make(map[localizedKey]*domain.LocalizedProperty),
		categories:    make(map[int64]domain.Category),
		manufacturers: make(map[int64]domain.Manufacturer),
		mappings: map[domain.MappingKind]map[mappingKey]*domain.ProductMapping{
			domain.MappingCategory:     {},
			domain.MappingManufacturer: {},
		},
		pictures: make(map[int64]*domain.Picture),
	}
}

// SetCommitHook installs a function consulted before each batch commit. A
// non-nil error fails the commit. Tests use it to simulate backend failures.
func (s *Store) SetCommitHook(hook func(table string) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitHook = hook
}

// nextID allocates a store-wide identifier. Identifiers are never reused,
// even when the batch that allocated one is discarded.
func (s *Store) nextID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

// assignID allocates an identifier when *id is zero and otherwise moves the
// sequence past *id so later allocations cannot collide with it.
func (s *Store) assignID(id *int64) {
	if *id == 0 {
		*id = s.nextID()
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if *id > s.seq {
		s.seq = *id
	}
}

// batch buffers writes until Commit.
type batch struct {
	store  *Store
	table  string
	ops    []func()
	closed bool
}

func newBatch(s *Store, table string) *batch {
	return &batch{store: s, table: table}
}

func (b *batch) stage(op func()) error {
	if b.closed {
		return errBatchClosed
	}
	b.ops = append(b.ops, op)
	return nil
}

// Commit applies the buffered writes.
func (b *batch) Commit(_ context.Context) (int, error) {
	if b.closed {
		return 0, errBatchClosed
	}
	b.closed = true

	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	if hook := b.store.commitHook; hook != nil {
		if err := hook(b.table); err != nil {
			return 0, fmt.Errorf("commit %s batch: %w", b.table, err)
		}
	}
	for _, op := range b.ops {
		op()
	}
	return len(b.ops), nil
}

// Rollback discards the buffered writes.
func (b *batch) Rollback(_ context.Context) error {
	b.closed = true
	b.ops = nil
	return nil
}
