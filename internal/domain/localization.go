package domain

// Language is a storefront language.
type Language struct {
	ID              int
	Name            string
	LanguageCulture string
	UniqueSeoCode   string
	Published       bool
	DisplayOrder    int
}

// LocalizedProperty holds the translation of one entity field into one language.
type LocalizedProperty struct {
	ID             int64
	EntityID       int64
	LanguageID     int
	LocaleKeyGroup string
	LocaleKey      string
	LocaleValue    string
}
