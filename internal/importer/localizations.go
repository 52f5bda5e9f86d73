package importer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/catalogimporter/internal/domain"
)

// localizableFields are the product fields that accept "Field[code]" columns.
var localizableFields = []string{
	"Name",
	"ShortDescription",
	"FullDescription",
	"MetaKeywords",
	"MetaDescription",
	"MetaTitle",
}

func hasLocalizedColumns(seg *Segmenter) bool {
	for _, f := range localizableFields {
		if seg.HasLocalizedColumn(f) {
			return true
		}
	}
	return false
}

// processLocalizations upserts the non-blank localized values of every row
// for every active language.
func (im *Importer) processLocalizations(ctx context.Context, bc *batchContext, rows []*Row) error {
	languages, err := im.deps.Languages.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list languages: %w", err)
	}
	if len(languages) == 0 {
		return nil
	}

	batch, err := im.deps.Localized.BeginBatch(ctx)
	if err != nil {
		return fmt.Errorf("begin localization batch: %w", err)
	}
	defer rollback(ctx, batch)

	changed := 0
	for _, row := range rows {
		for _, lang := range languages {
			for _, field := range localizableFields {
				column := localizedColumn(field, lang.UniqueSeoCode)
				if !bc.seg.HasColumn(column) {
					continue
				}
				value := row.Value(column)
				if value == "" {
					continue
				}

				ok, err := batch.Upsert(ctx, &domain.LocalizedProperty{
					EntityID:       row.Entity.ID,
					LanguageID:     lang.ID,
					LocaleKeyGroup: domain.ProductEntityName,
					LocaleKey:      field,
					LocaleValue:    value,
				})
				if err != nil {
					bc.result.AddWarning(fmt.Sprintf("Cannot save localized value: %v", err), row.Index(), column)
					continue
				}
				if ok {
					changed++
				}
			}
		}
	}

	if _, err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("commit localized properties: %w", err)
	}
	bc.logger.DebugContext(ctx, "localized properties committed", slog.Int("changed", changed))
	return nil
}
