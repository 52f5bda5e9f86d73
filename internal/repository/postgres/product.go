package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/catalogimporter/internal/domain"
	"github.com/utafrali/catalogimporter/internal/repository"
	"github.com/utafrali/catalogimporter/pkg/database"
	apperrors "github.com/utafrali/catalogimporter/pkg/errors"
)

// productColumn pairs a products column with the field it is read into and written from.
type productColumn struct {
	name string
	ref  func(p *domain.Product) any
}

var productColumns = []productColumn{
	{"product_type_id", func(p *domain.Product) any { return &p.ProductTypeID }},
	{"parent_grouped_product_id", func(p *domain.Product) any { return &p.ParentGroupedProductID }},
	{"visible_individually", func(p *domain.Product) any { return &p.VisibleIndividually }},
	{"name", func(p *domain.Product) any { return &p.Name }},
	{"short_description", func(p *domain.Product) any { return &p.ShortDescription }},
	{"full_description", func(p *domain.Product) any { return &p.FullDescription }},
	{"admin_comment", func(p *domain.Product) any { return &p.AdminComment }},
	{"product_template_id", func(p *domain.Product) any { return &p.ProductTemplateID }},
	{"show_on_home_page", func(p *domain.Product) any { return &p.ShowOnHomePage }},
	{"home_page_display_order", func(p *domain.Product) any { return &p.HomePageDisplayOrder }},
	{"meta_keywords", func(p *domain.Product) any { return &p.MetaKeywords }},
	{"meta_description", func(p *domain.Product) any { return &p.MetaDescription }},
	{"meta_title", func(p *domain.Product) any { return &p.MetaTitle }},
	{"allow_customer_reviews", func(p *domain.Product) any { return &p.AllowCustomerReviews }},
	{"published", func(p *domain.Product) any { return &p.Published }},
	{"sku", func(p *domain.Product) any { return &p.Sku }},
	{"manufacturer_part_number", func(p *domain.Product) any { return &p.ManufacturerPartNumber }},
	{"gtin", func(p *domain.Product) any { return &p.Gtin }},
	{"is_gift_card", func(p *domain.Product) any { return &p.IsGiftCard }},
	{"gift_card_type_id", func(p *domain.Product) any { return &p.GiftCardTypeID }},
	{"require_other_products", func(p *domain.Product) any { return &p.RequireOtherProducts }},
	{"required_product_ids", func(p *domain.Product) any { return &p.RequiredProductIDs }},
	{"automatically_add_required", func(p *domain.Product) any { return &p.AutomaticallyAddRequired }},
	{"is_download", func(p *domain.Product) any { return &p.IsDownload }},
	{"download_id", func(p *domain.Product) any { return &p.DownloadID }},
	{"unlimited_downloads", func(p *domain.Product) any { return &p.UnlimitedDownloads }},
	{"max_number_of_downloads", func(p *domain.Product) any { return &p.MaxNumberOfDownloads }},
	{"download_expiration_days", func(p *domain.Product) any { return &p.DownloadExpirationDays }},
	{"download_activation_type_id", func(p *domain.Product) any { return &p.DownloadActivationTypeID }},
	{"has_sample_download", func(p *domain.Product) any { return &p.HasSampleDownload }},
	{"sample_download_id", func(p *domain.Product) any { return &p.SampleDownloadID }},
	{"has_user_agreement", func(p *domain.Product) any { return &p.HasUserAgreement }},
	{"user_agreement_text", func(p *domain.Product) any { return &p.UserAgreementText }},
	{"is_recurring", func(p *domain.Product) any { return &p.IsRecurring }},
	{"recurring_cycle_length", func(p *domain.Product) any { return &p.RecurringCycleLength }},
	{"recurring_cycle_period_id", func(p *domain.Product) any { return &p.RecurringCyclePeriodID }},
	{"recurring_total_cycles", func(p *domain.Product) any { return &p.RecurringTotalCycles }},
	{"is_ship_enabled", func(p *domain.Product) any { return &p.IsShipEnabled }},
	{"is_free_shipping", func(p *domain.Product) any { return &p.IsFreeShipping }},
	{"additional_shipping_charge", func(p *domain.Product) any { return &p.AdditionalShippingCharge }},
	{"is_tax_exempt", func(p *domain.Product) any { return &p.IsTaxExempt }},
	{"tax_category_id", func(p *domain.Product) any { return &p.TaxCategoryID }},
	{"manage_inventory_method_id", func(p *domain.Product) any { return &p.ManageInventoryMethodID }},
	{"stock_quantity", func(p *domain.Product) any { return &p.StockQuantity }},
	{"display_stock_availability", func(p *domain.Product) any { return &p.DisplayStockAvailability }},
	{"display_stock_quantity", func(p *domain.Product) any { return &p.DisplayStockQuantity }},
	{"min_stock_quantity", func(p *domain.Product) any { return &p.MinStockQuantity }},
	{"low_stock_activity_id", func(p *domain.Product) any { return &p.LowStockActivityID }},
	{"notify_admin_for_quantity_below", func(p *domain.Product) any { return &p.NotifyAdminForQuantityBelow }},
	{"backorder_mode_id", func(p *domain.Product) any { return &p.BackorderModeID }},
	{"allow_back_in_stock_subscriptions", func(p *domain.Product) any { return &p.AllowBackInStockSubscriptions }},
	{"order_minimum_quantity", func(p *domain.Product) any { return &p.OrderMinimumQuantity }},
	{"order_maximum_quantity", func(p *domain.Product) any { return &p.OrderMaximumQuantity }},
	{"allowed_quantities", func(p *domain.Product) any { return &p.AllowedQuantities }},
	{"disable_buy_button", func(p *domain.Product) any { return &p.DisableBuyButton }},
	{"disable_wishlist_button", func(p *domain.Product) any { return &p.DisableWishlistButton }},
	{"available_for_pre_order", func(p *domain.Product) any { return &p.AvailableForPreOrder }},
	{"call_for_price", func(p *domain.Product) any { return &p.CallForPrice }},
	{"price", func(p *domain.Product) any { return &p.Price }},
	{"old_price", func(p *domain.Product) any { return &p.OldPrice }},
	{"product_cost", func(p *domain.Product) any { return &p.ProductCost }},
	{"special_price", func(p *domain.Product) any { return &p.SpecialPrice }},
	{"special_price_start_date_time_utc", func(p *domain.Product) any { return &p.SpecialPriceStartDateTimeUtc }},
	{"special_price_end_date_time_utc", func(p *domain.Product) any { return &p.SpecialPriceEndDateTimeUtc }},
	{"customer_enters_price", func(p *domain.Product) any { return &p.CustomerEntersPrice }},
	{"minimum_customer_entered_price", func(p *domain.Product) any { return &p.MinimumCustomerEnteredPrice }},
	{"maximum_customer_entered_price", func(p *domain.Product) any { return &p.MaximumCustomerEnteredPrice }},
	{"weight", func(p *domain.Product) any { return &p.Weight }},
	{"length", func(p *domain.Product) any { return &p.Length }},
	{"width", func(p *domain.Product) any { return &p.Width }},
	{"height", func(p *domain.Product) any { return &p.Height }},
	{"delivery_time_id", func(p *domain.Product) any { return &p.DeliveryTimeID }},
	{"base_price_enabled", func(p *domain.Product) any { return &p.BasePriceEnabled }},
	{"base_price_measure_unit", func(p *domain.Product) any { return &p.BasePriceMeasureUnit }},
	{"base_price_amount", func(p *domain.Product) any { return &p.BasePriceAmount }},
	{"base_price_base_amount", func(p *domain.Product) any { return &p.BasePriceBaseAmount }},
	{"available_start_date_time_utc", func(p *domain.Product) any { return &p.AvailableStartDateTimeUtc }},
	{"available_end_date_time_utc", func(p *domain.Product) any { return &p.AvailableEndDateTimeUtc }},
	{"limited_to_stores", func(p *domain.Product) any { return &p.LimitedToStores }},
	{"display_order", func(p *domain.Product) any { return &p.DisplayOrder }},
	{"created_on_utc", func(p *domain.Product) any { return &p.CreatedOnUtc }},
	{"updated_on_utc", func(p *domain.Product) any { return &p.UpdatedOnUtc }},
}

var (
	productColumnNames = func() []string {
		names := make([]string, len(productColumns))
		for i, c := range productColumns {
			names[i] = c.name
		}
		return names
	}()

	selectProductSQL = "SELECT id, " + strings.Join(productColumnNames, ", ") + " FROM products"

	insertProductSQL = fmt.Sprintf("INSERT INTO products (%s) VALUES (%s) RETURNING id",
		strings.Join(productColumnNames, ", "), placeholders(1, len(productColumns)))

	updateProductSQL = fmt.Sprintf("UPDATE products SET %s WHERE id = $%d",
		assignments(productColumnNames, 1), len(productColumns)+1)
)

// productFields returns pointers to every mapped field of p in column order.
func productFields(p *domain.Product) []any {
	out := make([]any, len(productColumns))
	for i, c := range productColumns {
		out[i] = c.ref(p)
	}
	return out
}

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	db database.DBTX
}

var _ repository.ProductRepository = (*ProductRepository)(nil)

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(db database.DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	return r.getOne(ctx, "GetProductByID", selectProductSQL+" WHERE id = $1", id)
}

// GetBySku retrieves the oldest product carrying the given SKU.
func (r *ProductRepository) GetBySku(ctx context.Context, sku string) (*domain.Product, error) {
	return r.getOne(ctx, "GetProductBySku", selectProductSQL+" WHERE sku = $1 ORDER BY id LIMIT 1", sku)
}

// GetByGtin retrieves the oldest product carrying the given GTIN.
func (r *ProductRepository) GetByGtin(ctx context.Context, gtin string) (*domain.Product, error) {
	return r.getOne(ctx, "GetProductByGtin", selectProductSQL+" WHERE gtin = $1 ORDER BY id LIMIT 1", gtin)
}

func (r *ProductRepository) getOne(ctx context.Context, op, query string, arg any) (p *domain.Product, err error) {
	ctx, end := database.TraceQuery(ctx, op, query)
	defer func() { end(err) }()

	p = &domain.Product{}
	dest := append([]any{&p.ID}, productFields(p)...)
	if err := r.db.QueryRow(ctx, query, arg).Scan(dest...); err != nil {
		return nil, notFound(err, "get product")
	}
	return p, nil
}

// BeginBatch opens a transaction for product writes.
func (r *ProductRepository) BeginBatch(ctx context.Context) (repository.ProductBatch, error) {
	b, err := database.BeginBatch(ctx, r.db)
	if err != nil {
		return nil, err
	}
	return &productBatch{Batch: b}, nil
}

type productBatch struct {
	*database.Batch
}

func (b *productBatch) Insert(ctx context.Context, p *domain.Product) error {
	return b.Stage(ctx, func(q pgx.Tx) error {
		var id int64
		if err := q.QueryRow(ctx, insertProductSQL, productFields(p)...).Scan(&id); err != nil {
			if isUniqueViolation(err) {
				return apperrors.AlreadyExists("product", "sku", p.Sku)
			}
			return fmt.Errorf("insert product: %w", err)
		}
		p.ID = id
		return nil
	})
}

func (b *productBatch) Update(ctx context.Context, p *domain.Product) error {
	return b.Stage(ctx, func(q pgx.Tx) error {
		args := append(productFields(p), p.ID)
		tag, err := q.Exec(ctx, updateProductSQL, args...)
		if err != nil {
			return fmt.Errorf("update product: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.NotFound("product", fmt.Sprint(p.ID))
		}
		return nil
	})
}

const (
	deleteStoreMappingsSQL = `
		DELETE FROM store_mappings
		WHERE entity_id = $1 AND entity_name = $2 AND NOT (store_id = ANY($3))`

	insertStoreMappingSQL = `
		INSERT INTO store_mappings (entity_id, entity_name, store_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (entity_id, entity_name, store_id) DO NOTHING`
)

func (b *productBatch) SaveStoreMappings(ctx context.Context, productID int64, storeIDs []int) error {
	return b.Stage(ctx, func(q pgx.Tx) error {
		if _, err := q.Exec(ctx, deleteStoreMappingsSQL, productID, domain.ProductEntityName, storeIDs); err != nil {
			return fmt.Errorf("delete store mappings: %w", err)
		}
		for _, storeID := range storeIDs {
			if _, err := q.Exec(ctx, insertStoreMappingSQL, productID, domain.ProductEntityName, storeID); err != nil {
				return fmt.Errorf("insert store mapping: %w", err)
			}
		}
		return nil
	})
}
