package importer

import (
	"context"

	"github.com/utafrali/catalogimporter/internal/domain"
	"github.com/utafrali/catalogimporter/internal/media"
	"github.com/utafrali/catalogimporter/internal/repository"
	"github.com/utafrali/catalogimporter/internal/seo"
)

// Notifier publishes entity change notifications. Publication is fire and
// forget: a failed notification is logged and never fails an import.
type Notifier interface {
	EntityInserted(ctx context.Context, entity domain.Entity) error
	EntityUpdated(ctx context.Context, entity domain.Entity) error
}

// ProgressReporter receives the number of rows handed to the pipeline so far.
type ProgressReporter interface {
	ReportProgress(ctx context.Context, processed, total int)
}

// AbortSignal is polled before each batch.
type AbortSignal interface {
	Aborted(ctx context.Context) bool
}

// SlugService validates and persists product slugs.
type SlugService interface {
	BeginBatch(ctx context.Context) (repository.UrlRecordBatch, error)
	ValidateSlug(ctx context.Context, entity domain.Entity, candidate, fallback string, ensureNotEmpty bool, cache *seo.SlugCache) (string, error)
	SaveSlug(ctx context.Context, batch repository.UrlRecordBatch, entity domain.Entity, slug string, languageID int) (*domain.UrlRecord, error)
}

// PictureService loads and stores product pictures.
type PictureService interface {
	LoadImage(ctx context.Context, ref string) ([]byte, error)
	ListProductPictures(ctx context.Context, productID int64) ([]domain.Picture, error)
	FindDuplicate(data []byte, existing []domain.Picture) *domain.Picture
	InsertPicture(ctx context.Context, data []byte, mimeType, nameHint string) (*domain.Picture, error)
	InsertProductPicture(ctx context.Context, productID, pictureID int64, displayOrder int) (*domain.ProductPicture, error)
}

var (
	_ SlugService    = (*seo.Service)(nil)
	_ PictureService = (*media.Service)(nil)
)

type nopNotifier struct{}

func (nopNotifier) EntityInserted(context.Context, domain.Entity) error { return nil }
func (nopNotifier) EntityUpdated(context.Context, domain.Entity) error  { return nil }
