package postgres

import (
	"context"
	"fmt"

	"github.com/utafrali/catalogimporter/internal/domain"
	"github.com/utafrali/catalogimporter/internal/repository"
	"github.com/utafrali/catalogimporter/pkg/database"
	apperrors "github.com/utafrali/catalogimporter/pkg/errors"
)

const (
	listProductPicturesSQL = `
		SELECT p.id, p.mime_type, p.seo_filename, p.fingerprint, p.size, p.storage_key, p.url, p.is_new, p.created_at
		FROM pictures p
		JOIN product_pictures pp ON pp.picture_id = p.id
		WHERE pp.product_id = $1
		ORDER BY pp.display_order, pp.id`

	insertPictureSQL = `
		INSERT INTO pictures (mime_type, seo_filename, fingerprint, size, storage_key, url, is_new, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	insertProductPictureSQL = `
		INSERT INTO product_pictures (product_id, picture_id, display_order)
		VALUES ($1, $2, $3)
		RETURNING id`
)

// PictureRepository implements repository.PictureRepository using PostgreSQL.
// Writes are not batched: each runs as its own statement.
type PictureRepository struct {
	db database.DBTX
}

var _ repository.PictureRepository = (*PictureRepository)(nil)

// NewPictureRepository creates a new PostgreSQL-backed picture repository.
func NewPictureRepository(db database.DBTX) *PictureRepository {
	return &PictureRepository{db: db}
}

// ListByProduct returns the pictures mapped to a product in display order.
func (r *PictureRepository) ListByProduct(ctx context.Context, productID int64) (out []domain.Picture, err error) {
	ctx, end := database.TraceQuery(ctx, "ListProductPictures", listProductPicturesSQL)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, listProductPicturesSQL, productID)
	if err != nil {
		return nil, fmt.Errorf("list product pictures: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.Picture
		if err := rows.Scan(&p.ID, &p.MimeType, &p.SeoFilename, &p.Fingerprint, &p.Size,
			&p.StorageKey, &p.URL, &p.IsNew, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan picture: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pictures: %w", err)
	}
	return out, nil
}

// Insert stores picture metadata.
func (r *PictureRepository) Insert(ctx context.Context, p *domain.Picture) (err error) {
	ctx, end := database.TraceQuery(ctx, "InsertPicture", insertPictureSQL)
	defer func() { end(err) }()

	err = r.db.QueryRow(ctx, insertPictureSQL,
		p.MimeType, p.SeoFilename, p.Fingerprint, p.Size, p.StorageKey, p.URL, p.IsNew, p.CreatedAt,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("insert picture: %w", err)
	}
	return nil
}

// InsertProductPicture stores a product-picture mapping.
func (r *PictureRepository) InsertProductPicture(ctx context.Context, pp *domain.ProductPicture) (err error) {
	ctx, end := database.TraceQuery(ctx, "InsertProductPicture", insertProductPictureSQL)
	defer func() { end(err) }()

	err = r.db.QueryRow(ctx, insertProductPictureSQL, pp.ProductID, pp.PictureID, pp.DisplayOrder).Scan(&pp.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("insert product picture: %w", err)
	}
	return nil
}
