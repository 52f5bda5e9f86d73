package repository

import (
	"context"

	"github.com/utafrali/catalogimporter/internal/domain"
)

// Batch is a stage-scoped write scope. Writes staged on a batch become
// visible to readers only after Commit. A failed write leaves the batch usable.
type Batch interface {
	// Commit publishes all successfully staged writes and returns their count.
	Commit(ctx context.Context) (int, error)

	// Rollback discards the batch. It is a no-op after Commit.
	Rollback(ctx context.Context) error
}

// ProductRepository defines product lookups and the product write batch.
type ProductRepository interface {
	// GetByID retrieves a product by identifier.
	GetByID(ctx context.Context, id int64) (*domain.Product, error)

	// GetBySku retrieves a product by its stock keeping unit.
	GetBySku(ctx context.Context, sku string) (*domain.Product, error)

	// GetByGtin retrieves a product by its global trade item number.
	GetByGtin(ctx context.Context, gtin string) (*domain.Product, error)

	// BeginBatch opens a product write batch.
	BeginBatch(ctx context.Context) (ProductBatch, error)
}

// ProductBatch stages product writes.
type ProductBatch interface {
	Batch

	// Insert stages a new product and assigns its identifier.
	Insert(ctx context.Context, product *domain.Product) error

	// Update stages changes to an existing product.
	Update(ctx context.Context, product *domain.Product) error

	// SaveStoreMappings replaces the set of stores the product is limited to.
	SaveStoreMappings(ctx context.Context, productID int64, storeIDs []int) error
}

// UrlRecordRepository defines slug persistence.
type UrlRecordRepository interface {
	// GetBySlug retrieves the record owning a slug, active or not.
	GetBySlug(ctx context.Context, slug string) (*domain.UrlRecord, error)

	// ListByEntity returns every record of an entity in one language.
	ListByEntity(ctx context.Context, entityID int64, entityName string, languageID int) ([]domain.UrlRecord, error)

	// BeginBatch opens a url record write batch.
	BeginBatch(ctx context.Context) (UrlRecordBatch, error)
}

// UrlRecordBatch stages url record writes.
type UrlRecordBatch interface {
	Batch

	// Insert stages a new record and assigns its identifier.
	Insert(ctx context.Context, record *domain.UrlRecord) error

	// Update stages changes to an existing record.
	Update(ctx context.Context, record *domain.UrlRecord) error
}

// LanguageRepository lists storefront languages.
type LanguageRepository interface {
	// ListActive returns published languages ordered by display order.
	ListActive(ctx context.Context) ([]domain.Language, error)
}

// LocalizedPropertyRepository defines localized value persistence.
type LocalizedPropertyRepository interface {
	// Get retrieves one localized value.
	Get(ctx context.Context, entityID int64, languageID int, keyGroup, key string) (*domain.LocalizedProperty, error)

	// BeginBatch opens a localized property write batch.
	BeginBatch(ctx context.Context) (LocalizedPropertyBatch, error)
}

// LocalizedPropertyBatch stages localized value writes.
type LocalizedPropertyBatch interface {
	Batch

	// Upsert stages the value keyed by (entity, language, key group, key).
	// It reports false when the stored value is already equal.
	Upsert(ctx context.Context, prop *domain.LocalizedProperty) (bool, error)
}

// TargetRepository answers existence checks for association targets.
type TargetRepository interface {
	// Exists reports whether the entity with the given id exists and is not deleted.
	Exists(ctx context.Context, id int64) (bool, error)
}

// MappingRepository defines persistence for one product association table.
type MappingRepository interface {
	// Exists reports whether the product is already mapped to the target.
	Exists(ctx context.Context, productID, targetID int64) (bool, error)

	// BeginBatch opens a mapping write batch.
	BeginBatch(ctx context.Context) (MappingBatch, error)
}

// MappingBatch stages mapping inserts.
type MappingBatch interface {
	Batch

	// Insert stages a new mapping and assigns its identifier.
	Insert(ctx context.Context, mapping *domain.ProductMapping) error
}

// PictureRepository persists pictures. Writes commit immediately because a
// mapping row must reference the picture's identifier.
type PictureRepository interface {
	// ListByProduct returns the pictures mapped to a product.
	ListByProduct(ctx context.Context, productID int64) ([]domain.Picture, error)

	// Insert stores picture metadata and assigns its identifier.
	Insert(ctx context.Context, picture *domain.Picture) error

	// InsertProductPicture stores a product-picture mapping.
	InsertProductPicture(ctx context.Context, mapping *domain.ProductPicture) error
}
