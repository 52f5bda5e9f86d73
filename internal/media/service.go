// Package media stores product pictures.
package media

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/utafrali/catalogimporter/internal/domain"
	"github.com/utafrali/catalogimporter/internal/repository"
	"github.com/utafrali/catalogimporter/internal/storage"
	apperrors "github.com/utafrali/catalogimporter/pkg/errors"
	"github.com/utafrali/catalogimporter/pkg/slug"
)

const maxSeoFilenameLength = 100

// Service loads, deduplicates and stores pictures. Picture writes are not
// batched: a mapping row needs the picture's identifier immediately.
type Service struct {
	pictures repository.PictureRepository
	storage  storage.Storage
	loader   *Loader
	logger   *slog.Logger
}

// NewService creates a new picture service.
func NewService(pictures repository.PictureRepository, store storage.Storage, loader *Loader, logger *slog.Logger) *Service {
	return &Service{
		pictures: pictures,
		storage:  store,
		loader:   loader,
		logger:   logger,
	}
}

// Fingerprint returns the hex sha256 of data.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// LoadImage reads the picture referenced by a file path or http(s) URL.
// It returns ErrImageNotFound when the resource does not exist.
func (s *Service) LoadImage(ctx context.Context, ref string) ([]byte, error) {
	return s.loader.Load(ctx, ref)
}

// ListProductPictures returns the pictures already assigned to a product.
func (s *Service) ListProductPictures(ctx context.Context, productID int64) ([]domain.Picture, error) {
	pics, err := s.pictures.ListByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list product pictures: %w", err)
	}
	return pics, nil
}

// FindDuplicate returns the picture among existing whose content equals data.
func (s *Service) FindDuplicate(data []byte, existing []domain.Picture) *domain.Picture {
	fp := Fingerprint(data)
	for i := range existing {
		if existing[i].Fingerprint == fp {
			return &existing[i]
		}
	}
	return nil
}

// InsertPicture stores data and its metadata. The MIME type is detected from
// the content when mimeType is empty. nameHint becomes the SEO file name.
func (s *Service) InsertPicture(ctx context.Context, data []byte, mimeType, nameHint string) (*domain.Picture, error) {
	if len(data) == 0 {
		return nil, apperrors.InvalidInput("picture is empty")
	}
	if len(data) > domain.MaxPictureSize {
		return nil, apperrors.InvalidInput(fmt.Sprintf("picture size %d exceeds maximum allowed size of %d bytes", len(data), domain.MaxPictureSize))
	}

	detected := mimetype.Detect(data)
	if mimeType == "" {
		mimeType = detected.String()
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, apperrors.InvalidInput(fmt.Sprintf("content type %q is not an image", mimeType))
	}

	fp := Fingerprint(data)
	key := fmt.Sprintf("pictures/%s/%s%s", fp[:2], uuid.New().String(), detected.Extension())

	result, err := s.storage.Upload(ctx, &storage.UploadInput{
		Key:         key,
		ContentType: mimeType,
		Size:        int64(len(data)),
		Data:        bytes.NewReader(data),
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	pic := &domain.Picture{
		MimeType:    mimeType,
		SeoFilename: slug.Truncate(slug.Generate(nameHint), maxSeoFilenameLength),
		Fingerprint: fp,
		Size:        int64(len(data)),
		StorageKey:  result.Key,
		URL:         result.URL,
		IsNew:       true,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.pictures.Insert(ctx, pic); err != nil {
		if delErr := s.storage.Delete(ctx, key); delErr != nil {
			s.logger.ErrorContext(ctx, "failed to clean up storage after db error",
				slog.String("key", key),
				slog.String("error", delErr.Error()),
			)
		}
		return nil, fmt.Errorf("create picture record: %w", err)
	}

	s.logger.DebugContext(ctx, "picture stored",
		slog.Int64("picture_id", pic.ID),
		slog.String("mime_type", pic.MimeType),
		slog.Int64("size", pic.Size),
	)
	return pic, nil
}

// InsertProductPicture assigns a stored picture to a product.
func (s *Service) InsertProductPicture(ctx context.Context, productID, pictureID int64, displayOrder int) (*domain.ProductPicture, error) {
	pp := &domain.ProductPicture{ProductID: productID, PictureID: pictureID, DisplayOrder: displayOrder}
	if err := s.pictures.InsertProductPicture(ctx, pp); err != nil {
		return nil, fmt.Errorf("create product picture: %w", err)
	}
	return pp, nil
}
