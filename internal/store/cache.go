// Package store caches parsed ground records between training epochs so a
// restarted epoch reads the already-grounded form instead of re-grounding
// every query. SQLite keeps the cache durable across runs; a bounded
// in-memory memo keeps parsed graph instances for repeated shapes.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Cache is the durable ground-record cache, keyed by query text.
type Cache struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open initializes the SQLite cache at path, creating the directory and
// schema as needed.
func Open(path string, logger *zap.Logger) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}
	c := &Cache{db: db, logger: logger}
	if err := c.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Cache) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS ground_records (
		query      TEXT PRIMARY KEY,
		record     TEXT NOT NULL,
		node_text  TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("create ground_records table: %w", err)
	}
	return nil
}

// Put stores or replaces the record and node-text mapping for query.
func (c *Cache) Put(query, record string, nodeText []string) error {
	encoded, err := json.Marshal(nodeText)
	if err != nil {
		return fmt.Errorf("encode node text: %w", err)
	}
	_, err = c.db.Exec(
		`INSERT INTO ground_records (query, record, node_text) VALUES (?, ?, ?)
		 ON CONFLICT(query) DO UPDATE SET record = excluded.record, node_text = excluded.node_text`,
		query, record, string(encoded))
	if err != nil {
		return fmt.Errorf("store ground record for %q: %w", query, err)
	}
	return nil
}

// Get returns the cached record and node text for query; ok is false on a
// miss.
func (c *Cache) Get(query string) (record string, nodeText []string, ok bool, err error) {
	var encoded string
	err = c.db.QueryRow(
		`SELECT record, node_text FROM ground_records WHERE query = ?`, query).
		Scan(&record, &encoded)
	if err == sql.ErrNoRows {
		return "", nil, false, nil
	}
	if err != nil {
		return "", nil, false, fmt.Errorf("load ground record for %q: %w", query, err)
	}
	if err := json.Unmarshal([]byte(encoded), &nodeText); err != nil {
		return "", nil, false, fmt.Errorf("decode node text for %q: %w", query, err)
	}
	return record, nodeText, true, nil
}

// Count returns the number of cached records.
func (c *Cache) Count() (int, error) {
	var n int
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM ground_records`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Close releases the database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}
