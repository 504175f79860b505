// Package cache holds collected posts for the lifetime of the process. The
// backing database is an in-memory SQLite instance: nothing is persisted
// across restarts, and refresh is an explicit caller-triggered operation.
package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ibeckermayer/stash4me/internal/types"
)

// Cache is a per-platform post cache. Safe for concurrent use through the
// underlying database handle.
type Cache struct {
	db *sql.DB
}

// New creates an empty in-memory cache.
func New() (*Cache, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, err
	}
	// A single connection keeps every statement on the same in-memory
	// database; the pool would otherwise open fresh empty ones.
	db.SetMaxOpenConns(1)

	c := &Cache{db: db}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return c, nil
}

// Close releases the database.
func (c *Cache) Close() error {
	return c.db.Close()
}

func (c *Cache) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS posts (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		platform TEXT NOT NULL,
		id TEXT NOT NULL,
		payload TEXT NOT NULL,
		fetched_at DATETIME NOT NULL,
		UNIQUE(platform, id)
	);

	CREATE INDEX IF NOT EXISTS idx_posts_platform ON posts(platform);
	`

	_, err := c.db.Exec(schema)
	return err
}

// Replace swaps the cached posts for a platform with a fresh collection,
// preserving the given order.
func (c *Cache) Replace(platform types.Platform, posts []types.SavedPost) error {
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM posts WHERE platform = ?`, string(platform)); err != nil {
		return err
	}

	now := time.Now().UTC()
	for _, p := range posts {
		payload, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("failed to encode post %s: %w", p.ID, err)
		}
		if _, err := tx.Exec(
			`INSERT INTO posts (platform, id, payload, fetched_at) VALUES (?, ?, ?, ?)`,
			string(platform), p.ID, string(payload), now,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Get returns the cached posts for a platform in first-seen order. An empty
// slice means a cold cache.
func (c *Cache) Get(platform types.Platform) ([]types.SavedPost, error) {
	rows, err := c.db.Query(`SELECT payload FROM posts WHERE platform = ? ORDER BY seq`, string(platform))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []types.SavedPost
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var p types.SavedPost
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}

	return posts, rows.Err()
}

// Count returns the number of cached posts for a platform.
func (c *Cache) Count(platform types.Platform) (int, error) {
	var n int
	err := c.db.QueryRow(`SELECT COUNT(*) FROM posts WHERE platform = ?`, string(platform)).Scan(&n)
	return n, err
}

// Clear drops the cached posts for a platform.
func (c *Cache) Clear(platform types.Platform) error {
	_, err := c.db.Exec(`DELETE FROM posts WHERE platform = ?`, string(platform))
	return err
}
