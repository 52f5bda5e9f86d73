package domain

// Entity is implemented by every persisted catalog object the importer touches.
type Entity interface {
	GetID() int64
	EntityName() string
}
