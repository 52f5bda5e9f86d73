package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/catalogimporter/internal/domain"
	apperrors "github.com/utafrali/catalogimporter/pkg/errors"
)

func TestProductBatch_WritesVisibleAfterCommit(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repo := s.Products()

	b, err := repo.BeginBatch(ctx)
	require.NoError(t, err)

	p := &domain.Product{Name: "Widget", Sku: "W-1"}
	require.NoError(t, b.Insert(ctx, p))
	assert.NotZero(t, p.ID)

	_, err = repo.GetBySku(ctx, "W-1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	n, err := b.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := repo.GetBySku(ctx, "W-1")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, "Widget", got.Name)
}

func TestProductRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	p := s.AddProduct(&domain.Product{Name: "Widget"})

	got, err := s.Products().GetByID(ctx, p.ID)
	require.NoError(t, err)
	got.Name = "Changed"

	again, err := s.Products().GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Widget", again.Name)
}

func TestProductBatch_UpdateOfStagedInsert(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	b, err := s.Products().BeginBatch(ctx)
	require.NoError(t, err)

	p := &domain.Product{Name: "Widget", Sku: "W-1"}
	require.NoError(t, b.Insert(ctx, p))
	updated := *p
	updated.Name = "Widget v2"
	require.NoError(t, b.Update(ctx, &updated))

	_, err = b.Commit(ctx)
	require.NoError(t, err)

	products := s.AllProducts()
	require.Len(t, products, 1)
	assert.Equal(t, "Widget v2", products[0].Name)
}

func TestProductBatch_UpdateUnknown(t *testing.T) {
	ctx := context.Background()
	b, err := NewStore().Products().BeginBatch(ctx)
	require.NoError(t, err)

	err = b.Update(ctx, &domain.Product{ID: 42})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestBatch_CommitHookFailure(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	s.SetCommitHook(func(table string) error {
		if table == "products" {
			return errors.New("disk full")
		}
		return nil
	})

	b, err := s.Products().BeginBatch(ctx)
	require.NoError(t, err)
	require.NoError(t, b.Insert(ctx, &domain.Product{Name: "Widget"}))

	n, err := b.Commit(ctx)
	require.Error(t, err)
	assert.Zero(t, n)
	assert.Contains(t, err.Error(), "commit products batch")
	assert.Empty(t, s.AllProducts())

	_, err = b.Commit(ctx)
	assert.ErrorIs(t, err, errBatchClosed)
}

func TestBatch_Rollback(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	b, err := s.Products().BeginBatch(ctx)
	require.NoError(t, err)
	require.NoError(t, b.Insert(ctx, &domain.Product{Name: "Widget"}))
	require.NoError(t, b.Rollback(ctx))

	assert.Empty(t, s.AllProducts())
	assert.ErrorIs(t, b.Insert(ctx, &domain.Product{}), errBatchClosed)
}

func TestUrlRecordBatch_RejectsTakenSlug(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	s.AddUrlRecord(&domain.UrlRecord{EntityID: 1, EntityName: "Product", Slug: "widget", IsActive: true})

	b, err := s.UrlRecords().BeginBatch(ctx)
	require.NoError(t, err)

	err = b.Insert(ctx, &domain.UrlRecord{EntityID: 2, EntityName: "Product", Slug: "Widget"})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)

	require.NoError(t, b.Insert(ctx, &domain.UrlRecord{EntityID: 2, EntityName: "Product", Slug: "widget-2"}))
	err = b.Insert(ctx, &domain.UrlRecord{EntityID: 3, EntityName: "Product", Slug: "widget-2"})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)

	n, err := b.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	recs, err := s.UrlRecords().ListByEntity(ctx, 2, "Product", 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "widget-2", recs[0].Slug)
}

func TestLocalizedBatch_UpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repo := s.LocalizedProperties()

	prop := func(v string) *domain.LocalizedProperty {
		return &domain.LocalizedProperty{EntityID: 7, LanguageID: 2, LocaleKeyGroup: "Product", LocaleKey: "Name", LocaleValue: v}
	}

	b, err := repo.BeginBatch(ctx)
	require.NoError(t, err)
	changed, err := b.Upsert(ctx, prop("Gerät"))
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = b.Upsert(ctx, prop("Gerät"))
	require.NoError(t, err)
	assert.False(t, changed)
	n, err := b.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	b, err = repo.BeginBatch(ctx)
	require.NoError(t, err)
	changed, err = b.Upsert(ctx, prop("Gerät"))
	require.NoError(t, err)
	assert.False(t, changed)
	changed, err = b.Upsert(ctx, prop("Neues Gerät"))
	require.NoError(t, err)
	assert.True(t, changed)
	_, err = b.Commit(ctx)
	require.NoError(t, err)

	got, err := repo.Get(ctx, 7, 2, "Product", "Name")
	require.NoError(t, err)
	assert.Equal(t, "Neues Gerät", got.LocaleValue)
	assert.Equal(t, 1, s.CountLocalizedProperties())
}

func TestLanguageRepository_ListActive(t *testing.T) {
	s := NewStore()
	s.AddLanguage(domain.Language{ID: 2, UniqueSeoCode: "de", Published: true, DisplayOrder: 2})
	s.AddLanguage(domain.Language{ID: 1, UniqueSeoCode: "en", Published: true, DisplayOrder: 1})
	s.AddLanguage(domain.Language{ID: 3, UniqueSeoCode: "fr", Published: false})

	langs, err := s.Languages().ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, langs, 2)
	assert.Equal(t, "en", langs[0].UniqueSeoCode)
	assert.Equal(t, "de", langs[1].UniqueSeoCode)
}

func TestMappingBatch_DuplicatesRejected(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	s.AddCategory(domain.Category{ID: 5})
	s.AddCategory(domain.Category{ID: 6, Deleted: true})

	ok, err := s.Categories().Exists(ctx, 5)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.Categories().Exists(ctx, 6)
	require.NoError(t, err)
	assert.False(t, ok)

	repo := s.ProductCategories()
	b, err := repo.BeginBatch(ctx)
	require.NoError(t, err)
	require.NoError(t, b.Insert(ctx, &domain.ProductMapping{ProductID: 1, TargetID: 5, DisplayOrder: 1}))
	assert.ErrorIs(t, b.Insert(ctx, &domain.ProductMapping{ProductID: 1, TargetID: 5}), apperrors.ErrAlreadyExists)
	_, err = b.Commit(ctx)
	require.NoError(t, err)

	exists, err := repo.Exists(ctx, 1, 5)
	require.NoError(t, err)
	assert.True(t, exists)

	mappings := s.Mappings(domain.MappingCategory)
	require.Len(t, mappings, 1)
	assert.Equal(t, "ProductCategory", mappings[0].EntityName())
	assert.Empty(t, s.Mappings(domain.MappingManufacturer))
}

func TestPictureRepository(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repo := s.Pictures()

	pic := &domain.Picture{MimeType: "image/png", Fingerprint: "abc"}
	require.NoError(t, repo.Insert(ctx, pic))
	require.NoError(t, repo.InsertProductPicture(ctx, &domain.ProductPicture{ProductID: 9, PictureID: pic.ID, DisplayOrder: 1}))

	pics, err := repo.ListByProduct(ctx, 9)
	require.NoError(t, err)
	require.Len(t, pics, 1)
	assert.Equal(t, "abc", pics[0].Fingerprint)

	err = repo.InsertProductPicture(ctx, &domain.ProductPicture{ProductID: 9, PictureID: 999})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
