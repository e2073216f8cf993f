package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"danang-green/config"

	"github.com/apex/log"
	_ "github.com/go-sql-driver/mysql"
)

// Database is the MySQL backend of the durable mirror
type Database struct {
	db *sql.DB
}

// NewDatabase opens MySQL and waits for it with exponential backoff until ctx expires
func NewDatabase(ctx context.Context, cfg *config.Config) (*Database, error) {
	db, err := sql.Open("mysql", cfg.DB.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	waitInterval := 1 * time.Second
	for {
		err := db.PingContext(ctx)
		if err == nil {
			break
		}
		log.Warnf("Database connection failed, retrying in %v: %v", waitInterval, err)
		select {
		case <-ctx.Done():
			db.Close()
			return nil, fmt.Errorf("database not reachable: %w", err)
		case <-time.After(waitInterval):
		}
		if waitInterval < 30*time.Second {
			waitInterval *= 2 // Exponential backoff: 1s, 2s, 4s, 8s, ...
		}
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	return New(db), nil
}

// New wraps an already open handle
func New(db *sql.DB) *Database {
	return &Database{db: db}
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}

// CreateKVTable creates the kv_entries table if it doesn't exist
func (d *Database) CreateKVTable(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS kv_entries (
		k VARCHAR(191) NOT NULL PRIMARY KEY,
		v LONGBLOB NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	)`

	if _, err := d.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create kv_entries table: %w", err)
	}

	log.Info("kv_entries table created/verified successfully")
	return nil
}

// Get returns the value stored under key. ok is false when the key is absent.
func (d *Database) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var v []byte
	err := d.db.QueryRowContext(ctx, "SELECT v FROM kv_entries WHERE k = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return v, true, nil
}

// Set upserts the value under key
func (d *Database) Set(ctx context.Context, key string, value []byte) error {
	_, err := d.db.ExecContext(ctx,
		"INSERT INTO kv_entries (k, v) VALUES (?, ?) ON DUPLICATE KEY UPDATE v = VALUES(v)",
		key, value)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}
