package importer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/catalogimporter/internal/domain"
	"github.com/utafrali/catalogimporter/internal/seo"
)

const columnSeName = "SeName"

// needsSlugs reports whether the slug stage has work: an explicit SeName
// column, or rows that were created or renamed.
func needsSlugs(seg *Segmenter, rows []*Row) bool {
	if seg.HasColumn(columnSeName) {
		return true
	}
	for _, row := range rows {
		if row.IsNew || row.NameChanged {
			return true
		}
	}
	return false
}

// processSlugs assigns a unique slug to every new or renamed product and to
// every product with an SeName cell. Slugs written earlier in the batch are
// tracked in a cache because they are not visible to lookups until commit.
func (im *Importer) processSlugs(ctx context.Context, bc *batchContext, rows []*Row) error {
	batch, err := im.deps.Slugs.BeginBatch(ctx)
	if err != nil {
		return fmt.Errorf("begin slug batch: %w", err)
	}
	defer rollback(ctx, batch)

	hasSeName := bc.seg.HasColumn(columnSeName)
	cache := seo.NewSlugCache()

	for _, row := range rows {
		if !row.IsNew && !row.NameChanged && !hasSeName {
			continue
		}
		p := row.Entity

		slug, err := im.deps.Slugs.ValidateSlug(ctx, p, row.Value(columnSeName), p.Name, true, cache)
		if err != nil {
			bc.result.AddWarning(fmt.Sprintf("Cannot validate slug: %v", err), row.Index(), columnSeName)
			continue
		}

		var rec *domain.UrlRecord
		if row.IsNew {
			rec = &domain.UrlRecord{
				EntityID:   p.ID,
				EntityName: p.EntityName(),
				Slug:       slug,
				IsActive:   true,
			}
			err = batch.Insert(ctx, rec)
		} else {
			rec, err = im.deps.Slugs.SaveSlug(ctx, batch, p, slug, 0)
		}
		if err != nil {
			bc.result.AddWarning(fmt.Sprintf("Cannot save slug %q: %v", slug, err), row.Index(), columnSeName)
			continue
		}
		if rec != nil {
			cache.Put(rec)
		}
	}

	n, err := batch.Commit(ctx)
	if err != nil {
		return fmt.Errorf("commit slugs: %w", err)
	}
	bc.logger.DebugContext(ctx, "slugs committed", slog.Int("writes", n), slog.Int("cached", cache.Len()))
	return nil
}
