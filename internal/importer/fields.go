package importer

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/utafrali/catalogimporter/internal/domain"
	"github.com/utafrali/catalogimporter/pkg/validator"
)

// productField copies one column onto one product field.
type productField interface {
	column() string
	apply(r *Row, p *domain.Product, c *Culture) error
}

// field is a typed entry of the product field table.
type field[T any] struct {
	name  string
	ref   func(p *domain.Product) *T
	parse func(c *Culture, s string) (T, error)
	def   T
	rule  string
}

func (f field[T]) column() string { return f.name }

// apply assigns the converted cell to the field. An absent column leaves an
// existing product untouched and gives a new one the default. A blank or
// NULL cell resets the field to its default. On error an existing product
// keeps its prior value and a new one gets the default.
func (f field[T]) apply(r *Row, p *domain.Product, c *Culture) error {
	raw, present := r.Raw(f.name)
	if !present {
		if r.IsNew {
			*f.ref(p) = f.def
		}
		return nil
	}

	v := strings.TrimSpace(raw)
	if v == "" || isNullLiteral(v) {
		*f.ref(p) = f.def
		return nil
	}

	val, err := f.parse(c, v)
	if err == nil && f.rule != "" {
		err = validator.Var(val, f.rule)
	}
	if err != nil {
		if r.IsNew {
			*f.ref(p) = f.def
		}
		return err
	}
	*f.ref(p) = val
	return nil
}

func text(name string, ref func(*domain.Product) *string) productField {
	return field[string]{
		name:  name,
		ref:   ref,
		parse: func(_ *Culture, s string) (string, error) { return s, nil },
	}
}

func integer(name string, ref func(*domain.Product) *int, def int) productField {
	return field[int]{name: name, ref: ref, parse: (*Culture).ParseInt, def: def}
}

// quantity is an integer that must not be negative.
func quantity(name string, ref func(*domain.Product) *int, def int) productField {
	return field[int]{name: name, ref: ref, parse: (*Culture).ParseInt, def: def, rule: "gte=0"}
}

func integer64(name string, ref func(*domain.Product) *int64) productField {
	return field[int64]{name: name, ref: ref, parse: (*Culture).ParseInt64}
}

func boolean(name string, ref func(*domain.Product) *bool, def bool) productField {
	return field[bool]{name: name, ref: ref, parse: (*Culture).ParseBool, def: def}
}

// money is a non-negative decimal amount.
func money(name string, ref func(*domain.Product) *decimal.Decimal, def int64) productField {
	return field[decimal.Decimal]{
		name:  name,
		ref:   ref,
		parse: (*Culture).ParseDecimal,
		def:   decimal.NewFromInt(def),
		rule:  "gte=0",
	}
}

func nullMoney(name string, ref func(*domain.Product) *decimal.NullDecimal) productField {
	return field[decimal.NullDecimal]{
		name: name,
		ref:  ref,
		parse: func(c *Culture, s string) (decimal.NullDecimal, error) {
			d, err := c.ParseDecimal(s)
			if err != nil {
				return decimal.NullDecimal{}, err
			}
			return decimal.NewNullDecimal(d), nil
		},
		rule: "gte=0",
	}
}

func timestamp(name string, ref func(*domain.Product) *time.Time) productField {
	return field[time.Time]{name: name, ref: ref, parse: (*Culture).ParseTime}
}

func date(name string, ref func(*domain.Product) **time.Time) productField {
	return field[*time.Time]{
		name: name,
		ref:  ref,
		parse: func(c *Culture, s string) (*time.Time, error) {
			t, err := c.ParseTime(s)
			if err != nil {
				return nil, err
			}
			return &t, nil
		},
	}
}

func optInt(name string, ref func(*domain.Product) **int) productField {
	return field[*int]{
		name: name,
		ref:  ref,
		parse: func(c *Culture, s string) (*int, error) {
			v, err := c.ParseInt(s)
			if err != nil {
				return nil, err
			}
			return &v, nil
		},
	}
}

// zeroToNull stores nil for values that are not positive. Unparsable values
// are treated the same way.
func zeroToNull(name string, ref func(*domain.Product) **int) productField {
	return field[*int]{
		name: name,
		ref:  ref,
		parse: func(c *Culture, s string) (*int, error) {
			v, err := c.ParseInt(s)
			if err != nil || v <= 0 {
				return nil, nil
			}
			return &v, nil
		},
	}
}

func zeroToNull64(name string, ref func(*domain.Product) **int64) productField {
	return field[*int64]{
		name: name,
		ref:  ref,
		parse: func(c *Culture, s string) (*int64, error) {
			v, err := c.ParseInt64(s)
			if err != nil || v <= 0 {
				return nil, nil
			}
			return &v, nil
		},
	}
}

// productFields is the product field table, applied in order.
var productFields = []productField{
	text("Sku", func(p *domain.Product) *string { return &p.Sku }),
	text("Gtin", func(p *domain.Product) *string { return &p.Gtin }),
	text("ManufacturerPartNumber", func(p *domain.Product) *string { return &p.ManufacturerPartNumber }),
	integer("ProductTypeId", func(p *domain.Product) *int { return &p.ProductTypeID }, int(domain.ProductTypeSimple)),
	integer64("ParentGroupedProductId", func(p *domain.Product) *int64 { return &p.ParentGroupedProductID }),
	boolean("VisibleIndividually", func(p *domain.Product) *bool { return &p.VisibleIndividually }, true),
	text("Name", func(p *domain.Product) *string { return &p.Name }),
	text("ShortDescription", func(p *domain.Product) *string { return &p.ShortDescription }),
	text("FullDescription", func(p *domain.Product) *string { return &p.FullDescription }),
	text("AdminComment", func(p *domain.Product) *string { return &p.AdminComment }),
	integer("ProductTemplateId", func(p *domain.Product) *int { return &p.ProductTemplateID }, 0),
	boolean("ShowOnHomePage", func(p *domain.Product) *bool { return &p.ShowOnHomePage }, false),
	integer("HomePageDisplayOrder", func(p *domain.Product) *int { return &p.HomePageDisplayOrder }, 0),
	text("MetaKeywords", func(p *domain.Product) *string { return &p.MetaKeywords }),
	text("MetaDescription", func(p *domain.Product) *string { return &p.MetaDescription }),
	text("MetaTitle", func(p *domain.Product) *string { return &p.MetaTitle }),
	boolean("AllowCustomerReviews", func(p *domain.Product) *bool { return &p.AllowCustomerReviews }, true),
	boolean("Published", func(p *domain.Product) *bool { return &p.Published }, true),

	boolean("IsGiftCard", func(p *domain.Product) *bool { return &p.IsGiftCard }, false),
	integer("GiftCardTypeId", func(p *domain.Product) *int { return &p.GiftCardTypeID }, 0),
	boolean("RequireOtherProducts", func(p *domain.Product) *bool { return &p.RequireOtherProducts }, false),
	text("RequiredProductIds", func(p *domain.Product) *string { return &p.RequiredProductIDs }),
	boolean("AutomaticallyAddRequiredProducts", func(p *domain.Product) *bool { return &p.AutomaticallyAddRequired }, false),

	boolean("IsDownload", func(p *domain.Product) *bool { return &p.IsDownload }, false),
	integer64("DownloadId", func(p *domain.Product) *int64 { return &p.DownloadID }),
	boolean("UnlimitedDownloads", func(p *domain.Product) *bool { return &p.UnlimitedDownloads }, true),
	quantity("MaxNumberOfDownloads", func(p *domain.Product) *int { return &p.MaxNumberOfDownloads }, 10),
	optInt("DownloadExpirationDays", func(p *domain.Product) **int { return &p.DownloadExpirationDays }),
	integer("DownloadActivationTypeId", func(p *domain.Product) *int { return &p.DownloadActivationTypeID }, 1),
	boolean("HasSampleDownload", func(p *domain.Product) *bool { return &p.HasSampleDownload }, false),
	zeroToNull64("SampleDownloadId", func(p *domain.Product) **int64 { return &p.SampleDownloadID }),
	boolean("HasUserAgreement", func(p *domain.Product) *bool { return &p.HasUserAgreement }, false),
	text("UserAgreementText", func(p *domain.Product) *string { return &p.UserAgreementText }),

	boolean("IsRecurring", func(p *domain.Product) *bool { return &p.IsRecurring }, false),
	quantity("RecurringCycleLength", func(p *domain.Product) *int { return &p.RecurringCycleLength }, 100),
	integer("RecurringCyclePeriodId", func(p *domain.Product) *int { return &p.RecurringCyclePeriodID }, 0),
	quantity("RecurringTotalCycles", func(p *domain.Product) *int { return &p.RecurringTotalCycles }, 10),
	boolean("IsShipEnabled", func(p *domain.Product) *bool { return &p.IsShipEnabled }, true),
	boolean("IsFreeShipping", func(p *domain.Product) *bool { return &p.IsFreeShipping }, false),
	money("AdditionalShippingCharge", func(p *domain.Product) *decimal.Decimal { return &p.AdditionalShippingCharge }, 0),
	boolean("IsTaxExempt", func(p *domain.Product) *bool { return &p.IsTaxExempt }, false),
	integer("TaxCategoryId", func(p *domain.Product) *int { return &p.TaxCategoryID }, 1),
	integer("ManageInventoryMethodId", func(p *domain.Product) *int { return &p.ManageInventoryMethodID }, 0),
	quantity("StockQuantity", func(p *domain.Product) *int { return &p.StockQuantity }, 10000),
	boolean("DisplayStockAvailability", func(p *domain.Product) *bool { return &p.DisplayStockAvailability }, false),
	boolean("DisplayStockQuantity", func(p *domain.Product) *bool { return &p.DisplayStockQuantity }, false),
	quantity("MinStockQuantity", func(p *domain.Product) *int { return &p.MinStockQuantity }, 0),
	integer("LowStockActivityId", func(p *domain.Product) *int { return &p.LowStockActivityID }, 0),
	quantity("NotifyAdminForQuantityBelow", func(p *domain.Product) *int { return &p.NotifyAdminForQuantityBelow }, 1),
	integer("BackorderModeId", func(p *domain.Product) *int { return &p.BackorderModeID }, 0),
	boolean("AllowBackInStockSubscriptions", func(p *domain.Product) *bool { return &p.AllowBackInStockSubscriptions }, false),
	quantity("OrderMinimumQuantity", func(p *domain.Product) *int { return &p.OrderMinimumQuantity }, 1),
	quantity("OrderMaximumQuantity", func(p *domain.Product) *int { return &p.OrderMaximumQuantity }, 10000),
	text("AllowedQuantities", func(p *domain.Product) *string { return &p.AllowedQuantities }),
	boolean("DisableBuyButton", func(p *domain.Product) *bool { return &p.DisableBuyButton }, false),
	boolean("DisableWishlistButton", func(p *domain.Product) *bool { return &p.DisableWishlistButton }, false),
	boolean("AvailableForPreOrder", func(p *domain.Product) *bool { return &p.AvailableForPreOrder }, false),
	boolean("CallForPrice", func(p *domain.Product) *bool { return &p.CallForPrice }, false),

	money("Price", func(p *domain.Product) *decimal.Decimal { return &p.Price }, 0),
	money("OldPrice", func(p *domain.Product) *decimal.Decimal { return &p.OldPrice }, 0),
	money("ProductCost", func(p *domain.Product) *decimal.Decimal { return &p.ProductCost }, 0),
	nullMoney("SpecialPrice", func(p *domain.Product) *decimal.NullDecimal { return &p.SpecialPrice }),
	date("SpecialPriceStartDateTimeUtc", func(p *domain.Product) **time.Time { return &p.SpecialPriceStartDateTimeUtc }),
	date("SpecialPriceEndDateTimeUtc", func(p *domain.Product) **time.Time { return &p.SpecialPriceEndDateTimeUtc }),
	boolean("CustomerEntersPrice", func(p *domain.Product) *bool { return &p.CustomerEntersPrice }, false),
	money("MinimumCustomerEnteredPrice", func(p *domain.Product) *decimal.Decimal { return &p.MinimumCustomerEnteredPrice }, 0),
	money("MaximumCustomerEnteredPrice", func(p *domain.Product) *decimal.Decimal { return &p.MaximumCustomerEnteredPrice }, 1000),

	money("Weight", func(p *domain.Product) *decimal.Decimal { return &p.Weight }, 0),
	money("Length", func(p *domain.Product) *decimal.Decimal { return &p.Length }, 0),
	money("Width", func(p *domain.Product) *decimal.Decimal { return &p.Width }, 0),
	money("Height", func(p *domain.Product) *decimal.Decimal { return &p.Height }, 0),
	zeroToNull("DeliveryTimeId", func(p *domain.Product) **int { return &p.DeliveryTimeID }),
	boolean("BasePriceEnabled", func(p *domain.Product) *bool { return &p.BasePriceEnabled }, false),
	text("BasePriceMeasureUnit", func(p *domain.Product) *string { return &p.BasePriceMeasureUnit }),
	nullMoney("BasePriceAmount", func(p *domain.Product) *decimal.NullDecimal { return &p.BasePriceAmount }),
	optInt("BasePriceBaseAmount", func(p *domain.Product) **int { return &p.BasePriceBaseAmount }),

	date("AvailableStartDateTimeUtc", func(p *domain.Product) **time.Time { return &p.AvailableStartDateTimeUtc }),
	date("AvailableEndDateTimeUtc", func(p *domain.Product) **time.Time { return &p.AvailableEndDateTimeUtc }),
	boolean("LimitedToStores", func(p *domain.Product) *bool { return &p.LimitedToStores }, false),
	integer("DisplayOrder", func(p *domain.Product) *int { return &p.DisplayOrder }, 0),
	timestamp("CreatedOnUtc", func(p *domain.Product) *time.Time { return &p.CreatedOnUtc }),
}

// applyFields runs the field table against a row. A failing field is
// recorded as a warning and does not stop the remaining fields.
func applyFields(r *Row, p *domain.Product, c *Culture, result *Result) {
	for _, f := range productFields {
		if err := f.apply(r, p, c); err != nil {
			msg := fmt.Sprintf("Cannot apply value %q: %v", r.Value(f.column()), err)
			r.addFieldError(f.column(), msg)
			result.AddWarning(msg, r.Index(), f.column())
		}
	}
}
