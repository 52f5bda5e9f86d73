package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/utafrali/catalogimporter/internal/domain"
	"github.com/utafrali/catalogimporter/internal/media"
)

const msgDuplicatePicture = "Found equal picture in data store. Skipping field."

var pictureColumns = []string{"Picture1", "Picture2", "Picture3"}

func hasPictureColumns(seg *Segmenter) bool {
	for _, c := range pictureColumns {
		if seg.HasColumn(c) {
			return true
		}
	}
	return false
}

// processPictures stores the pictures referenced by each row and maps them
// to the row's product. Pictures equal to one the product already has are
// skipped. Picture writes are not batched.
func (im *Importer) processPictures(ctx context.Context, bc *batchContext, rows []*Row) error {
	var last *domain.ProductPicture

	for _, row := range rows {
		p := row.Entity
		var existing []domain.Picture
		loaded := row.IsNew

		for _, column := range pictureColumns {
			ref := row.Value(column)
			if ref == "" {
				continue
			}

			data, err := im.deps.Pictures.LoadImage(ctx, ref)
			if errors.Is(err, media.ErrImageNotFound) {
				bc.logger.DebugContext(ctx, "picture not found",
					slog.String("ref", ref),
					slog.Int("row", row.Index()),
				)
				continue
			}
			if err != nil {
				bc.result.AddWarning(fmt.Sprintf("Cannot load picture %q: %v", ref, err), row.Index(), column)
				continue
			}

			if !loaded {
				existing, err = im.deps.Pictures.ListProductPictures(ctx, p.ID)
				if err != nil {
					bc.result.AddWarning(err.Error(), row.Index(), column)
					continue
				}
				loaded = true
			}

			if dup := im.deps.Pictures.FindDuplicate(data, existing); dup != nil {
				bc.result.AddInfo(msgDuplicatePicture, row.Index(), column)
				continue
			}

			pic, err := im.deps.Pictures.InsertPicture(ctx, data, "", p.Name)
			if err != nil {
				bc.result.AddWarning(fmt.Sprintf("Cannot store picture %q: %v", ref, err), row.Index(), column)
				continue
			}
			pp, err := im.deps.Pictures.InsertProductPicture(ctx, p.ID, pic.ID, 1)
			if err != nil {
				bc.result.AddWarning(fmt.Sprintf("Cannot assign picture %q: %v", ref, err), row.Index(), column)
				continue
			}
			existing = append(existing, *pic)
			last = pp
		}
	}

	if last != nil {
		im.notifyInserted(ctx, bc, last)
	}
	return nil
}
