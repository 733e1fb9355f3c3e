package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// JsonFileStore mirrors the document to a single JSON file.
//
// Layout:
//
//	{
//	  "friends": [ {"id": 1, ...}, ... ]
//	}
type JsonFileStore struct {
	document
	flushMu sync.Mutex
	path    string
}

// NewJsonFileStore loads path if it exists. A missing file yields an empty
// document and nothing is created until the first Sync. Content that is not
// a JSON object is an error.
func NewJsonFileStore(path string) (*JsonFileStore, error) {
	values, err := loadDocumentFile(path)
	if err != nil {
		return nil, err
	}
	return &JsonFileStore{document: newDocument(values), path: path}, nil
}

func loadDocumentFile(path string) (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var values map[string]json.RawMessage
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return values, nil
}

func (s *JsonFileStore) Sync() error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	b, err := json.MarshalIndent(s.snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(s.path, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}

func (s *JsonFileStore) Close() error {
	return nil
}
