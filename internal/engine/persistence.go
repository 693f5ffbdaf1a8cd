package engine

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// Persistence handles the disk I/O for the MemStore.
type Persistence struct {
	DataDir string
	mu      sync.Mutex // Protects concurrent writes to the filesystem
}

// NewPersistence initializes a persistence handler.
func NewPersistence(dir string) (*Persistence, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Persistence{DataDir: dir}, nil
}

// SaveCollection writes a single collection's documents to a JSON file
// atomically: the data lands in a temp file first, then an atomic rename
// swaps it in, so a crash leaves either the old file or the new one.
func (p *Persistence) SaveCollection(collection string, docs map[string]map[string]any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	filePath := filepath.Join(p.DataDir, fmt.Sprintf("%s.json", collection))
	tempPath := filePath + ".tmp"

	bytes, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(tempPath, bytes, 0644); err != nil {
		return err
	}

	return os.Rename(tempPath, filePath)
}

// LoadAll returns all collection data found in the data directory.
func (p *Persistence) LoadAll() (map[string]map[string]map[string]any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	allData := make(map[string]map[string]map[string]any)

	files, err := os.ReadDir(p.DataDir)
	if err != nil {
		return nil, err
	}

	for _, file := range files {
		if filepath.Ext(file.Name()) != ".json" {
			continue
		}
		collection := file.Name()[:len(file.Name())-5] // Strip .json

		content, err := os.ReadFile(filepath.Join(p.DataDir, file.Name()))
		if err != nil {
			log.Printf("Warning: Could not read collection file %s: %v", file.Name(), err)
			continue // Skip corrupted/unreadable files
		}

		var docs map[string]map[string]any
		if err := json.Unmarshal(content, &docs); err != nil {
			log.Printf("Warning: Could not unmarshal collection data from %s: %v", file.Name(), err)
			continue
		}
		allData[collection] = docs
	}
	return allData, nil
}
