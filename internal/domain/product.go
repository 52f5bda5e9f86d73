package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductType identifies how a product is sold.
type ProductType int

const (
	ProductTypeSimple  ProductType = 5
	ProductTypeGrouped ProductType = 10
	ProductTypeBundle  ProductType = 15
)

// Product entity names used by url records, localized properties and store mappings.
const ProductEntityName = "Product"

// Product is a catalog product.
type Product struct {
	ID                     int64
	ProductTypeID          int
	ParentGroupedProductID int64
	VisibleIndividually    bool
	Name                   string
	ShortDescription       string
	FullDescription        string
	AdminComment           string
	ProductTemplateID      int
	ShowOnHomePage         bool
	HomePageDisplayOrder   int
	MetaKeywords           string
	MetaDescription        string
	MetaTitle              string
	AllowCustomerReviews   bool
	Published              bool
	Sku                    string
	ManufacturerPartNumber string
	Gtin                   string

	IsGiftCard               bool
	GiftCardTypeID           int
	RequireOtherProducts     bool
	RequiredProductIDs       string
	AutomaticallyAddRequired bool

	IsDownload               bool
	DownloadID               int64
	UnlimitedDownloads       bool
	MaxNumberOfDownloads     int
	DownloadExpirationDays   *int
	DownloadActivationTypeID int
	HasSampleDownload        bool
	SampleDownloadID         *int64
	HasUserAgreement         bool
	UserAgreementText        string

	IsRecurring                   bool
	RecurringCycleLength          int
	RecurringCyclePeriodID        int
	RecurringTotalCycles          int
	IsShipEnabled                 bool
	IsFreeShipping                bool
	AdditionalShippingCharge      decimal.Decimal
	IsTaxExempt                   bool
	TaxCategoryID                 int
	ManageInventoryMethodID       int
	StockQuantity                 int
	DisplayStockAvailability      bool
	DisplayStockQuantity          bool
	MinStockQuantity              int
	LowStockActivityID            int
	NotifyAdminForQuantityBelow   int
	BackorderModeID               int
	AllowBackInStockSubscriptions bool
	OrderMinimumQuantity          int
	OrderMaximumQuantity          int
	AllowedQuantities             string
	DisableBuyButton              bool
	DisableWishlistButton         bool
	AvailableForPreOrder          bool
	CallForPrice                  bool

	Price                        decimal.Decimal
	OldPrice                     decimal.Decimal
	ProductCost                  decimal.Decimal
	SpecialPrice                 decimal.NullDecimal
	SpecialPriceStartDateTimeUtc *time.Time
	SpecialPriceEndDateTimeUtc   *time.Time
	CustomerEntersPrice          bool
	MinimumCustomerEnteredPrice  decimal.Decimal
	MaximumCustomerEnteredPrice  decimal.Decimal

	Weight               decimal.Decimal
	Length               decimal.Decimal
	Width                decimal.Decimal
	Height               decimal.Decimal
	DeliveryTimeID       *int
	BasePriceEnabled     bool
	BasePriceMeasureUnit string
	BasePriceAmount      decimal.NullDecimal
	BasePriceBaseAmount  *int

	AvailableStartDateTimeUtc *time.Time
	AvailableEndDateTimeUtc   *time.Time
	LimitedToStores           bool
	DisplayOrder              int

	CreatedOnUtc time.Time
	UpdatedOnUtc time.Time
}

// GetID implements Entity.
func (p *Product) GetID() int64 { return p.ID }

// EntityName implements Entity.
func (p *Product) EntityName() string { return ProductEntityName }
