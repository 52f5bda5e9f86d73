package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/utafrali/catalogimporter/internal/domain"
	"github.com/utafrali/catalogimporter/internal/repository"
	apperrors "github.com/utafrali/catalogimporter/pkg/errors"
)

const msgNameRequired = "The 'Name' field is required for new products. Skipping row."

// processProducts resolves, converts and writes the product of every row.
// Every row starts transient and only becomes durable once the batch commits.
func (im *Importer) processProducts(ctx context.Context, bc *batchContext, rows []*Row) error {
	batch, err := im.deps.Products.BeginBatch(ctx)
	if err != nil {
		for _, row := range rows {
			row.IsTransient = true
		}
		return fmt.Errorf("begin product batch: %w", err)
	}
	defer rollback(ctx, batch)

	now := im.now().UTC()
	hasName := bc.seg.HasColumn("Name")
	hasStores := bc.seg.HasColumn("StoreIds")

	var lastInserted, lastUpdated *domain.Product
	staged := make([]*Row, 0, len(rows))
	written := newStagedProducts()

	for _, row := range rows {
		row.IsTransient = true

		p, err := im.resolveProduct(ctx, bc.culture, written, row)
		if err != nil {
			bc.result.AddError(fmt.Sprintf("Cannot look up product: %v", err), row.Index(), "")
			continue
		}
		if p == nil {
			if !hasName {
				bc.result.AddError(msgNameRequired, row.Index(), "Name")
				continue
			}
			p = &domain.Product{}
			row.IsNew = true
		} else if hasName {
			row.NameChanged = !strings.EqualFold(p.Name, row.Value("Name"))
		}
		row.Entity = p

		applyFields(row, p, bc.culture, bc.result)
		if row.IsNew && p.CreatedOnUtc.IsZero() {
			p.CreatedOnUtc = now
		}
		p.UpdatedOnUtc = now

		if row.IsNew {
			err = batch.Insert(ctx, p)
		} else {
			err = batch.Update(ctx, p)
		}
		if err != nil {
			bc.result.AddError(fmt.Sprintf("Cannot save product: %v", err), row.Index(), "")
			bc.logger.DebugContext(ctx, "product write failed",
				slog.Int("row", row.Index()),
				slog.Any("error", err),
			)
			continue
		}

		if hasStores {
			im.saveStoreMappings(ctx, bc, batch, row)
		}

		written.put(p)
		staged = append(staged, row)
		if row.IsNew {
			lastInserted = p
		} else {
			lastUpdated = p
		}
	}

	n, err := batch.Commit(ctx)
	if err != nil {
		return fmt.Errorf("commit products: %w", err)
	}
	for _, row := range staged {
		row.IsTransient = false
	}
	bc.logger.DebugContext(ctx, "products committed",
		slog.Int("rows", len(staged)),
		slog.Int("writes", n),
	)

	if lastInserted != nil {
		im.notifyInserted(ctx, bc, lastInserted)
	}
	if lastUpdated != nil {
		im.notifyUpdated(ctx, bc, lastUpdated)
	}
	return nil
}

// resolveProduct finds the product a row refers to by Id, then Sku, then
// Gtin. For each key the products written earlier in the batch are checked
// before the repository. It returns nil when no candidate key matches.
func (im *Importer) resolveProduct(ctx context.Context, c *Culture, written *stagedProducts, row *Row) (*domain.Product, error) {
	if v := row.Value("Id"); v != "" {
		if id, err := c.ParseInt64(v); err == nil && id > 0 {
			if p, ok := written.id(id); ok {
				return p, nil
			}
			if p, err := found(im.deps.Products.GetByID(ctx, id)); p != nil || err != nil {
				return p, err
			}
		}
	}

	if sku := row.Value("Sku"); sku != "" {
		if p, ok := written.sku(sku); ok {
			return p, nil
		}
		if p, err := found(im.deps.Products.GetBySku(ctx, sku)); p != nil || err != nil {
			return p, err
		}
	}

	if gtin := row.Value("Gtin"); gtin != "" {
		if p, ok := written.gtin(gtin); ok {
			return p, nil
		}
		if p, err := found(im.deps.Products.GetByGtin(ctx, gtin)); p != nil || err != nil {
			return p, err
		}
	}
	return nil, nil
}

// found turns a not-found lookup into (nil, nil).
func found(p *domain.Product, err error) (*domain.Product, error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (im *Importer) saveStoreMappings(ctx context.Context, bc *batchContext, batch repository.ProductBatch, row *Row) {
	ids, err := row.IntList("StoreIds")
	if err != nil {
		bc.result.AddWarning(err.Error(), row.Index(), "StoreIds")
		return
	}
	if len(ids) == 0 {
		return
	}
	if err := batch.SaveStoreMappings(ctx, row.Entity.ID, ids); err != nil {
		bc.result.AddWarning(fmt.Sprintf("Cannot save store mappings: %v", err), row.Index(), "StoreIds")
	}
}
