// Package engine implements the document store backing the Celerix Guard.
package engine

import "errors"

var (
	// ErrNotFound is returned when no document matches a lookup.
	ErrNotFound = errors.New("document not found")
	// ErrExists is returned when inserting a document whose ID is taken.
	ErrExists = errors.New("document already exists")
)

// DocumentStore is the persistence collaborator for governed records.
// The guard performs uniqueness checks through FindOne and hands admitted
// write-sets to Insert/Update; implementations must apply a write-set
// atomically so a record is never partially persisted.
type DocumentStore interface {
	// Get retrieves one document by ID.
	Get(collection, id string) (map[string]any, error)

	// FindOne returns the first document whose attributes match every
	// entry of the filter, along with its ID.
	FindOne(collection string, filter map[string]any) (string, map[string]any, error)

	// Insert stores a new document under the given ID.
	Insert(collection, id string, attrs map[string]any) error

	// Update merges the attribute set into an existing document.
	// A nil value unsets the attribute.
	Update(collection, id string, attrs map[string]any) error

	// Delete removes a document.
	Delete(collection, id string) error

	// List returns every document in the collection, keyed by ID.
	List(collection string) (map[string]map[string]any, error)
}
