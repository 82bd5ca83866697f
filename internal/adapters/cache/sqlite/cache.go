package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bnema/offline-session-cli/internal/domain"
	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

// Cache stores one table per collection, named records_<collection>. Rows
// keep the order of the last remote list through the position column.
type Cache struct {
	db *sql.DB
}

func Open(path string) (*Cache, error) {
	if path == "" {
		return nil, errors.New("cache path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	db, err := sql.Open(driverName, path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping cache: %w", err)
	}

	return &Cache{db: db}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// ReplaceAll swaps the rows of collection for records in one transaction.
// Duplicate ids fail the whole replace and keep the previous rows.
func (c *Cache) ReplaceAll(ctx context.Context, collection domain.CollectionKey, records []domain.CachedRecord) error {
	if err := collection.Validate(); err != nil {
		return &domain.StorageError{Op: "replace", Collection: collection, Err: err}
	}

	if err := c.replaceAll(ctx, collection, records); err != nil {
		return &domain.StorageError{Op: "replace", Collection: collection, Err: err}
	}

	return nil
}

func (c *Cache) replaceAll(ctx context.Context, collection domain.CollectionKey, records []domain.CachedRecord) (err error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	table := tableName(collection)
	if _, err = tx.ExecContext(ctx, createTableSQL(table)); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("delete rows: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO "+table+
		" (position, id, title, description, image_url, created_at, updated_at, cached_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, record := range records {
		_, err = stmt.ExecContext(ctx,
			i,
			record.ID,
			record.Title,
			record.Description,
			record.ImageURL,
			formatTime(record.CreatedAt),
			formatTime(record.UpdatedAt),
			formatTime(record.CachedAt),
		)
		if err != nil {
			return fmt.Errorf("insert %q: %w", record.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

func (c *Cache) GetAll(ctx context.Context, collection domain.CollectionKey) ([]domain.CachedRecord, error) {
	if err := collection.Validate(); err != nil {
		return nil, &domain.StorageError{Op: "read", Collection: collection, Err: err}
	}

	records, err := c.getAll(ctx, collection)
	if err != nil {
		return nil, &domain.StorageError{Op: "read", Collection: collection, Err: err}
	}

	return records, nil
}

func (c *Cache) getAll(ctx context.Context, collection domain.CollectionKey) ([]domain.CachedRecord, error) {
	table := tableName(collection)
	if _, err := c.db.ExecContext(ctx, createTableSQL(table)); err != nil {
		return nil, fmt.Errorf("create table: %w", err)
	}

	rows, err := c.db.QueryContext(ctx,
		"SELECT id, title, description, image_url, created_at, updated_at, cached_at FROM "+table+" ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	records := []domain.CachedRecord{}
	for rows.Next() {
		var (
			record                         domain.CachedRecord
			createdAt, updatedAt, cachedAt string
		)
		if err := rows.Scan(&record.ID, &record.Title, &record.Description, &record.ImageURL, &createdAt, &updatedAt, &cachedAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if record.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("record %q created_at: %w", record.ID, err)
		}
		if record.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, fmt.Errorf("record %q updated_at: %w", record.ID, err)
		}
		if record.CachedAt, err = parseTime(cachedAt); err != nil {
			return nil, fmt.Errorf("record %q cached_at: %w", record.ID, err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}

	return records, nil
}

// tableName is only called with a validated key, so it cannot carry quotes
// or separators.
func tableName(collection domain.CollectionKey) string {
	return `"records_` + string(collection) + `"`
}

func createTableSQL(table string) string {
	return "CREATE TABLE IF NOT EXISTS " + table + ` (
	position INTEGER NOT NULL,
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	image_url TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL DEFAULT '',
	updated_at TEXT NOT NULL DEFAULT '',
	cached_at TEXT NOT NULL
)`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, raw)
}
