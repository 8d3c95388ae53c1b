// Package store is the server-side manifest store: folders, manifest
// entries, registered clients and the recent-deletes window, all backed by
// a single sqlite database.
package store

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

const schema = `
CREATE TABLE IF NOT EXISTS sync_folders (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL UNIQUE,
    api_key    TEXT NOT NULL UNIQUE,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS sync_files (
    id         TEXT NOT NULL UNIQUE,
    folder_id  TEXT NOT NULL REFERENCES sync_folders(id) ON DELETE CASCADE,
    path       TEXT NOT NULL,
    name       TEXT NOT NULL,
    mime_type  TEXT NOT NULL,
    size       INTEGER NOT NULL,
    checksum   TEXT NOT NULL,
    version    INTEGER NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (folder_id, path)
);

CREATE INDEX IF NOT EXISTS idx_sync_files_id ON sync_files(id);

CREATE TABLE IF NOT EXISTS sync_clients (
    id           TEXT PRIMARY KEY,
    folder_id    TEXT NOT NULL REFERENCES sync_folders(id) ON DELETE CASCADE,
    device_name  TEXT NOT NULL,
    last_sync_at TIMESTAMP,
    created_at   TIMESTAMP NOT NULL,
    UNIQUE (folder_id, device_name)
);

CREATE TABLE IF NOT EXISTS recent_deletes (
    folder_id  TEXT NOT NULL REFERENCES sync_folders(id) ON DELETE CASCADE,
    path       TEXT NOT NULL,
    deleted_at TIMESTAMP NOT NULL,
    PRIMARY KEY (folder_id, path)
);

CREATE INDEX IF NOT EXISTS idx_recent_deletes_at ON recent_deletes(folder_id, deleted_at);
`

type Store struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
