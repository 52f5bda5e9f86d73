package importer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/catalogimporter/internal/domain"
	"github.com/utafrali/catalogimporter/internal/repository"
)

// association maps products to targets listed in an id list column.
type association struct {
	stage    string
	column   string
	kind     domain.MappingKind
	targets  repository.TargetRepository
	mappings repository.MappingRepository
}

func (im *Importer) associations() []association {
	return []association{
		{
			stage:    StageCategories,
			column:   "CategoryIds",
			kind:     domain.MappingCategory,
			targets:  im.deps.Categories,
			mappings: im.deps.ProductCategories,
		},
		{
			stage:    StageManufacturers,
			column:   "ManufacturerIds",
			kind:     domain.MappingManufacturer,
			targets:  im.deps.Manufacturers,
			mappings: im.deps.ProductManufacturers,
		},
	}
}

type pairKey struct {
	productID int64
	targetID  int64
}

// associationStage returns the stage that maps each row's product to the
// ids listed in a.column. Ids already mapped are skipped, as are ids of
// targets that do not exist.
func (im *Importer) associationStage(a association) stageFunc {
	return func(ctx context.Context, bc *batchContext, rows []*Row) error {
		batch, err := a.mappings.BeginBatch(ctx)
		if err != nil {
			return fmt.Errorf("begin %s mapping batch: %w", a.kind, err)
		}
		defer rollback(ctx, batch)

		pending := make(map[pairKey]bool)
		targets := make(map[int64]bool)
		var last *domain.ProductMapping

		for _, row := range rows {
			ids, err := row.IntList(a.column)
			if err != nil {
				bc.result.AddWarning(err.Error(), row.Index(), a.column)
				continue
			}

			productID := row.Entity.ID
			for _, id := range ids {
				targetID := int64(id)
				key := pairKey{productID, targetID}
				if pending[key] {
					continue
				}

				mapped, err := a.mappings.Exists(ctx, productID, targetID)
				if err != nil {
					bc.result.AddWarning(fmt.Sprintf("Cannot check %s %d: %v", a.kind, id, err), row.Index(), a.column)
					continue
				}
				if mapped {
					continue
				}

				exists, ok := targets[targetID]
				if !ok {
					exists, err = a.targets.Exists(ctx, targetID)
					if err != nil {
						bc.result.AddWarning(fmt.Sprintf("Cannot check %s %d: %v", a.kind, id, err), row.Index(), a.column)
						continue
					}
					targets[targetID] = exists
				}
				if !exists {
					bc.logger.DebugContext(ctx, "skipping unknown association target",
						slog.String("kind", string(a.kind)),
						slog.Int64("target_id", targetID),
						slog.Int("row", row.Index()),
					)
					continue
				}

				m := &domain.ProductMapping{
					Kind:         a.kind,
					ProductID:    productID,
					TargetID:     targetID,
					DisplayOrder: 1,
				}
				if err := batch.Insert(ctx, m); err != nil {
					bc.result.AddWarning(fmt.Sprintf("Cannot map %s %d: %v", a.kind, id, err), row.Index(), a.column)
					continue
				}
				pending[key] = true
				last = m
			}
		}

		n, err := batch.Commit(ctx)
		if err != nil {
			return fmt.Errorf("commit %s mappings: %w", a.kind, err)
		}
		bc.logger.DebugContext(ctx, "mappings committed", slog.String("kind", string(a.kind)), slog.Int("writes", n))

		if last != nil {
			im.notifyInserted(ctx, bc, last)
		}
		return nil
	}
}
