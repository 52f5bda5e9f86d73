package domain

// UrlRecord maps a slug to an entity. An entity keeps its old slugs as
// inactive records so that previously published URLs can be redirected.
type UrlRecord struct {
	ID         int64
	EntityID   int64
	EntityName string
	Slug       string
	IsActive   bool
	LanguageID int
}
