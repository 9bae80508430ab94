package types

import (
	"context"
	"errors"
)

// Collection names. Each names one persisted JSON array.
const (
	CollectionActive  = "recipes"
	CollectionDeleted = "deleted_recipes"
)

// Collections lists both collections in load order.
var Collections = []string{CollectionActive, CollectionDeleted}

// Store reads and writes whole collections of recipes. Implementations
// overwrite the backing resource on Save; there is no merge.
type Store interface {
	// Load returns every recipe in the collection, in stored order.
	// A missing resource is an empty collection, not an error.
	Load(ctx context.Context, collection string) ([]*Recipe, error)

	// Save replaces the collection with recipes.
	Save(ctx context.Context, collection string, recipes []*Recipe) error

	// Close releases backend resources. Idempotent.
	Close() error
}

// Store errors.
var (
	ErrUnknownCollection = errors.New("unknown collection")
	ErrStoreClosed       = errors.New("store is closed")
)

// ValidCollection reports whether name is one of the standard collections.
func ValidCollection(name string) bool {
	return name == CollectionActive || name == CollectionDeleted
}

// StateForCollection returns the recipe state stored in the named collection.
func StateForCollection(name string) string {
	if name == CollectionDeleted {
		return StateDeleted
	}
	return StateActive
}

// CollectionForState is the inverse of StateForCollection.
func CollectionForState(state string) string {
	if state == StateDeleted {
		return CollectionDeleted
	}
	return CollectionActive
}
