package domain

import "time"

// MaxPictureSize is the largest picture the importer accepts (10 MB).
const MaxPictureSize = 10 << 20

// Picture is a stored image binary.
type Picture struct {
	ID          int64
	MimeType    string
	SeoFilename string
	Fingerprint string
	Size        int64
	StorageKey  string
	URL         string
	IsNew       bool
	CreatedAt   time.Time
}

// GetID implements Entity.
func (p *Picture) GetID() int64 { return p.ID }

// EntityName implements Entity.
func (p *Picture) EntityName() string { return "Picture" }

// ProductPicture links a picture to a product.
type ProductPicture struct {
	ID           int64
	ProductID    int64
	PictureID    int64
	DisplayOrder int
}

// GetID implements Entity.
func (pp *ProductPicture) GetID() int64 { return pp.ID }

// EntityName implements Entity.
func (pp *ProductPicture) EntityName() string { return "ProductPicture" }
