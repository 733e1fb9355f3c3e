package store

// MemoryStore keeps the document in memory only. Data is lost on restart.
// Safe for concurrent use.
type MemoryStore struct {
	document
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{document: newDocument(nil)}
}

// Sync is a no-op; there is no backing medium.
func (m *MemoryStore) Sync() error {
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}
