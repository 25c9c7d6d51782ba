package sqlite

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite database connection with thread-safe access.
type DB struct {
	conn *sql.DB
	mu   sync.RWMutex
}

// New creates and initializes a new SQLite database connection.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// migrate creates the necessary tables if they don't exist.
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS products (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		price REAL NOT NULL,
		weight REAL NOT NULL DEFAULT 0,
		barcode TEXT,
		image_path TEXT
	);

	CREATE TABLE IF NOT EXISTS purchases (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		receipt TEXT NOT NULL UNIQUE,
		timestamp DATETIME NOT NULL,
		total_amount REAL NOT NULL,
		payment_method TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS purchase_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		purchase_id INTEGER NOT NULL,
		label TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		unit_price REAL NOT NULL,
		subtotal REAL NOT NULL,
		FOREIGN KEY (purchase_id) REFERENCES purchases(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS evidence (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		receipt TEXT NOT NULL,
		filename TEXT NOT NULL UNIQUE,
		filepath TEXT NOT NULL,
		filesize INTEGER DEFAULT 0,
		timestamp DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS evidence_detections (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		evidence_id INTEGER NOT NULL,
		label TEXT NOT NULL,
		x1 INTEGER DEFAULT 0,
		y1 INTEGER DEFAULT 0,
		x2 INTEGER DEFAULT 0,
		y2 INTEGER DEFAULT 0,
		confidence REAL DEFAULT 0,
		FOREIGN KEY (evidence_id) REFERENCES evidence(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_purchases_timestamp ON purchases(timestamp);
	CREATE INDEX IF NOT EXISTS idx_purchase_items_purchase_id ON purchase_items(purchase_id);
	CREATE INDEX IF NOT EXISTS idx_evidence_receipt ON evidence(receipt);
	CREATE INDEX IF NOT EXISTS idx_evidence_detections_evidence_id ON evidence_detections(evidence_id);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying database connection for use by repositories.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Lock acquires a write lock.
func (db *DB) Lock() {
	db.mu.Lock()
}

// Unlock releases the write lock.
func (db *DB) Unlock() {
	db.mu.Unlock()
}

// RLock acquires a read lock.
func (db *DB) RLock() {
	db.mu.RLock()
}

// RUnlock releases the read lock.
func (db *DB) RUnlock() {
	db.mu.RUnlock()
}
