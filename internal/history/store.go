// Package history records what the scrobbler did with each watch
// session in a local SQLite database.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	_ "modernc.org/sqlite"

	"scrobble/internal/identify"
	"scrobble/internal/pagemeta"
	"scrobble/internal/services/trakt"
)

//go:embed schema.sql
var schemaSQL string

const schemaVersion = 1

// Recorded actions.
const (
	ActionScrobbleStarted   = "scrobble_started"
	ActionSkippedLowScore   = "skipped_low_confidence"
	ActionNotFoundOnCatalog = "not_found_on_catalog"
)

// Entry is one history record.
type Entry struct {
	ID             int64                    `json:"id"`
	CreatedAt      time.Time                `json:"created_at"`
	Action         string                   `json:"action"`
	Title          string                   `json:"title"`
	MediaType      string                   `json:"media_type"`
	Confidence     int                      `json:"confidence"`
	Page           pagemeta.Context         `json:"page"`
	Identification *identify.Identification `json:"identification,omitempty"`
	MediaItem      *trakt.MediaItem         `json:"media_item,omitempty"`
}

// Store wraps the history database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at path and brings the
// schema up to the expected version.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)",
		url.PathEscape(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply history schema: %w", err)
	}
	if err := ensureVersion(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func ensureVersion(db *sql.DB) error {
	var version int
	err := db.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&version)
	switch {
	case err == sql.ErrNoRows:
		if _, err := db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, schemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case version != schemaVersion:
		return fmt.Errorf("history database has schema version %d, expected %d", version, schemaVersion)
	default:
		return nil
	}
}

// Append inserts an entry. A zero CreatedAt is filled with the
// current time.
func (s *Store) Append(ctx context.Context, e Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	page, err := json.Marshal(e.Page)
	if err != nil {
		return fmt.Errorf("encode page context: %w", err)
	}
	ident, err := marshalPtr(e.Identification)
	if err != nil {
		return fmt.Errorf("encode identification: %w", err)
	}
	item, err := marshalPtr(e.MediaItem)
	if err != nil {
		return fmt.Errorf("encode media item: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO history (created_at, action, title, media_type, confidence, page_context, identification, media_item)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.CreatedAt.Format(time.RFC3339Nano), e.Action, e.Title, e.MediaType, e.Confidence,
		string(page), string(ident), string(item))
	if err != nil {
		return fmt.Errorf("append history entry: %w", err)
	}
	return nil
}

// List returns the most recent entries, newest first. limit <= 0
// means 50.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, action, title, media_type, confidence, page_context, identification, media_item
		 FROM history ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			createdAt string
			page      string
			ident     string
			item      string
		)
		if err := rows.Scan(&e.ID, &createdAt, &e.Action, &e.Title, &e.MediaType, &e.Confidence, &page, &ident, &item); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			e.CreatedAt = ts
		}
		if err := json.Unmarshal([]byte(page), &e.Page); err != nil {
			return nil, fmt.Errorf("decode page context: %w", err)
		}
		if ident != "" && ident != "{}" && ident != "null" {
			var id identify.Identification
			if err := json.Unmarshal([]byte(ident), &id); err != nil {
				return nil, fmt.Errorf("decode identification: %w", err)
			}
			e.Identification = &id
		}
		if item != "" && item != "{}" && item != "null" {
			var mi trakt.MediaItem
			if err := json.Unmarshal([]byte(item), &mi); err != nil {
				return nil, fmt.Errorf("decode media item: %w", err)
			}
			e.MediaItem = &mi
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune keeps the newest keep entries and deletes the rest.
func (s *Store) Prune(ctx context.Context, keep int) error {
	if keep <= 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM history WHERE id NOT IN (SELECT id FROM history ORDER BY id DESC LIMIT ?)`, keep)
	if err != nil {
		return fmt.Errorf("prune history: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func marshalPtr[T any](p *T) ([]byte, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p)
}
