package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SqliteStore mirrors the document to a SQLite database, one row per key.
//
// Tables:
//
//	document(key, value)  PRIMARY KEY (key)
type SqliteStore struct {
	document
	flushMu sync.Mutex
	db      *sql.DB
}

// NewSqliteStore opens (or creates) the database at dbPath and loads every
// row into memory. A row whose value is not valid JSON is an error.
func NewSqliteStore(dbPath string) (*SqliteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS document (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, err
	}
	values, err := loadRows(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &SqliteStore{document: newDocument(values), db: db}, nil
}

func loadRows(db *sql.DB) (map[string]json.RawMessage, error) {
	rows, err := db.Query("SELECT key, value FROM document")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	values := make(map[string]json.RawMessage)
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, err
		}
		if !json.Valid([]byte(raw)) {
			return nil, fmt.Errorf("key %q: value is not valid JSON", key)
		}
		values[key] = json.RawMessage(raw)
	}
	return values, rows.Err()
}

func (s *SqliteStore) Sync() error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO document (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for key, value := range s.snapshot() {
		if _, err := stmt.Exec(key, string(value)); err != nil {
			tx.Rollback()
			return fmt.Errorf("write %q: %w", key, err)
		}
	}
	return tx.Commit()
}

func (s *SqliteStore) Close() error {
	return s.db.Close()
}
