package engine

import "fmt"

// Migrate copies every document of the named collections from a source
// store into a destination store. This covers both directions:
// - Embedded -> Remote (the "upgrade")
// - Remote -> Embedded (the "backup/offline")
func Migrate(src, dst DocumentStore, collections ...string) error {
	for _, collection := range collections {
		docs, err := src.List(collection)
		if err != nil {
			return fmt.Errorf("failed to list collection %s: %w", collection, err)
		}
		for id, doc := range docs {
			if err := dst.Insert(collection, id, doc); err != nil {
				return fmt.Errorf("failed to insert document %s in destination: %w", id, err)
			}
		}
	}
	return nil
}
