package domain

// Category is a product category. The importer only needs to know whether one exists.
type Category struct {
	ID        int64
	Name      string
	Published bool
	Deleted   bool
}

// Manufacturer is a product manufacturer.
type Manufacturer struct {
	ID        int64
	Name      string
	Published bool
	Deleted   bool
}

// MappingKind distinguishes the product association tables.
type MappingKind string

const (
	MappingCategory     MappingKind = "category"
	MappingManufacturer MappingKind = "manufacturer"
)

// ProductMapping links a product to a category or a manufacturer.
type ProductMapping struct {
	ID                int64
	Kind              MappingKind
	ProductID         int64
	TargetID          int64
	IsFeaturedProduct bool
	DisplayOrder      int
}

// GetID implements Entity.
func (m *ProductMapping) GetID() int64 { return m.ID }

// EntityName implements Entity.
func (m *ProductMapping) EntityName() string {
	if m.Kind == MappingManufacturer {
		return "ProductManufacturer"
	}
	return "ProductCategory"
}

// StoreMapping limits an entity to a store.
type StoreMapping struct {
	ID         int64
	EntityID   int64
	EntityName string
	StoreID    int
}
