// Package cache persists recent channel messages in a local SQLite
// database so a reopened channel paints instantly while the server
// history loads.
package cache

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/adamavenir/office/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id         TEXT NOT NULL,
	channel    TEXT NOT NULL,
	sender     TEXT NOT NULL,
	parent_id  TEXT,
	content    TEXT NOT NULL,
	msg_type   TEXT NOT NULL,
	created_at TEXT NOT NULL,
	PRIMARY KEY (channel, id)
);
CREATE INDEX IF NOT EXISTS idx_messages_channel_created
	ON messages (channel, created_at);
`

const timeLayout = "2006-01-02T15:04:05.000Z"

// Cache wraps the message database. Safe for concurrent use.
type Cache struct {
	db *sql.DB
}

// Open opens (or creates) the cache database at path.
func Open(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Cache{db: db}, nil
}

// Close releases the database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Put stores one message. Messages already cached are left alone.
func (c *Cache) Put(channel string, msg types.Message) error {
	_, err := c.db.Exec(
		`INSERT OR IGNORE INTO messages (id, channel, sender, parent_id, content, msg_type, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, channel, msg.Sender, parentOrNil(msg), msg.Content, string(msg.MsgType),
		msg.CreatedAt.UTC().Format(timeLayout),
	)
	return err
}

// Replace swaps the cached history for one channel in a transaction.
func (c *Cache) Replace(channel string, msgs []types.Message) error {
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM messages WHERE channel = ?`, channel); err != nil {
		return err
	}
	stmt, err := tx.Prepare(
		`INSERT OR IGNORE INTO messages (id, channel, sender, parent_id, content, msg_type, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, msg := range msgs {
		if _, err := stmt.Exec(
			msg.ID, channel, msg.Sender, parentOrNil(msg), msg.Content, string(msg.MsgType),
			msg.CreatedAt.UTC().Format(timeLayout),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Messages returns up to limit cached messages for a channel, oldest
// first. With more than limit cached, the newest win.
func (c *Cache) Messages(channel string, limit int) ([]types.Message, error) {
	rows, err := c.db.Query(
		`SELECT id, sender, parent_id, content, msg_type, created_at
		 FROM messages WHERE channel = ?
		 ORDER BY created_at DESC, id DESC LIMIT ?`, channel, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Message
	for rows.Next() {
		var m types.Message
		var parent sql.NullString
		var created string
		if err := rows.Scan(&m.ID, &m.Sender, &parent, &m.Content, &m.MsgType, &created); err != nil {
			return nil, err
		}
		m.Channel = channel
		if parent.Valid {
			p := parent.String
			m.ParentID = &p
		}
		if at, err := time.Parse(timeLayout, created); err == nil {
			m.CreatedAt = at
		} else if at, err := time.Parse(time.RFC3339Nano, created); err == nil {
			m.CreatedAt = at
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// query returned newest first; flip to timeline order
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Clear drops the cached history for one channel.
func (c *Cache) Clear(channel string) error {
	_, err := c.db.Exec(`DELETE FROM messages WHERE channel = ?`, channel)
	return err
}

func parentOrNil(msg types.Message) any {
	if msg.ParentID == nil || *msg.ParentID == "" {
		return nil
	}
	return *msg.ParentID
}
