package engine

import (
	"sync"
)

// MemStore is the thread-safe in-memory document engine.
type MemStore struct {
	mu sync.RWMutex
	// Structure: [collection][id][attribute]value
	data      map[string]map[string]map[string]any
	persister *Persistence
	wg        sync.WaitGroup
}

// NewMemStore initializes a store.
// It accepts existing data (from LoadAll) and a persister.
func NewMemStore(initialData map[string]map[string]map[string]any, p *Persistence) *MemStore {
	if initialData == nil {
		initialData = make(map[string]map[string]map[string]any)
	}
	return &MemStore{
		data:      initialData,
		persister: p,
	}
}

// Wait waits for all background persistence tasks to complete.
func (m *MemStore) Wait() {
	m.wg.Wait()
}

func (m *MemStore) Get(collection, id string) (map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.data[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyDoc(doc), nil
}

func (m *MemStore) FindOne(collection string, filter map[string]any) (string, map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for id, doc := range m.data[collection] {
		if matches(doc, filter) {
			return id, copyDoc(doc), nil
		}
	}
	return "", nil, ErrNotFound
}

func (m *MemStore) Insert(collection, id string, attrs map[string]any) error {
	m.mu.Lock()
	if _, ok := m.data[collection][id]; ok {
		m.mu.Unlock()
		return ErrExists
	}
	if m.data[collection] == nil {
		m.data[collection] = make(map[string]map[string]any)
	}
	m.data[collection][id] = copyDoc(attrs)

	snapshot := m.copyCollection(collection)
	m.mu.Unlock()

	m.persist(collection, snapshot)
	return nil
}

func (m *MemStore) Update(collection, id string, attrs map[string]any) error {
	m.mu.Lock()
	doc, ok := m.data[collection][id]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	for k, v := range attrs {
		if v == nil {
			delete(doc, k)
			continue
		}
		doc[k] = v
	}

	snapshot := m.copyCollection(collection)
	m.mu.Unlock()

	m.persist(collection, snapshot)
	return nil
}

func (m *MemStore) Delete(collection, id string) error {
	m.mu.Lock()
	if c, ok := m.data[collection]; ok {
		delete(c, id)
	}
	snapshot := m.copyCollection(collection)
	m.mu.Unlock()

	m.persist(collection, snapshot)
	return nil
}

func (m *MemStore) List(collection string) (map[string]map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.copyCollection(collection), nil
}

// persist saves a collection snapshot in the background.
func (m *MemStore) persist(collection string, snapshot map[string]map[string]any) {
	if m.persister == nil {
		return
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.persister.SaveCollection(collection, snapshot)
	}()
}

// copyCollection creates a deep copy of a collection's documents.
// It MUST be called while holding m.mu.Lock or m.mu.RLock.
func (m *MemStore) copyCollection(collection string) map[string]map[string]any {
	original, ok := m.data[collection]
	if !ok {
		return map[string]map[string]any{}
	}
	out := make(map[string]map[string]any, len(original))
	for id, doc := range original {
		out[id] = copyDoc(doc)
	}
	return out
}

func copyDoc(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}

func matches(doc, filter map[string]any) bool {
	for k, want := range filter {
		if doc[k] != want {
			return false
		}
	}
	return len(filter) > 0
}
