package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/foldsync/foldsync/internal/wire"
)

var ErrFileNotFound = errors.New("file not found")

// ListFiles returns the full manifest for a folder, ordered by path.
func (s *Store) ListFiles(ctx context.Context, folderID string) ([]wire.SyncFile, error) {
	var files []wire.SyncFile
	err := s.db.SelectContext(ctx, &files,
		`SELECT * FROM sync_files WHERE folder_id = ? ORDER BY path`, folderID)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return files, nil
}

func (s *Store) GetFileByID(ctx context.Context, folderID, fileID string) (*wire.SyncFile, error) {
	var file wire.SyncFile
	err := s.db.GetContext(ctx, &file,
		`SELECT * FROM sync_files WHERE folder_id = ? AND id = ?`, folderID, fileID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get file by id: %w", err)
	}
	return &file, nil
}

func (s *Store) GetFileByPath(ctx context.Context, folderID, path string) (*wire.SyncFile, error) {
	var file wire.SyncFile
	err := s.db.GetContext(ctx, &file,
		`SELECT * FROM sync_files WHERE folder_id = ? AND path = ?`, folderID, path)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get file by path: %w", err)
	}
	return &file, nil
}

// UpsertFile commits a manifest entry after its blob has been written.
// On an existing path the version is bumped and the blob id replaced; the
// prior blob id is returned so the caller can discard the orphaned blob.
// Any recent-delete tombstone for the path is cleared, because the path
// now exists again by explicit client action.
func (s *Store) UpsertFile(ctx context.Context, file *wire.SyncFile) (prevBlobID string, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	var existing wire.SyncFile
	err = tx.GetContext(ctx, &existing,
		`SELECT * FROM sync_files WHERE folder_id = ? AND path = ?`, file.FolderID, file.Path)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		file.Version = 1
		file.CreatedAt = now
		file.UpdatedAt = now
		_, err = tx.ExecContext(ctx,
			`INSERT INTO sync_files (id, folder_id, path, name, mime_type, size, checksum, version, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			file.ID, file.FolderID, file.Path, file.Name, file.MimeType,
			file.Size, file.Checksum, file.Version, file.CreatedAt, file.UpdatedAt,
		)
		if err != nil {
			return "", fmt.Errorf("insert file: %w", err)
		}
	case err != nil:
		return "", fmt.Errorf("query existing file: %w", err)
	default:
		prevBlobID = existing.ID
		file.Version = existing.Version + 1
		file.CreatedAt = existing.CreatedAt
		file.UpdatedAt = now
		_, err = tx.ExecContext(ctx,
			`UPDATE sync_files SET id = ?, name = ?, mime_type = ?, size = ?, checksum = ?, version = ?, updated_at = ?
			 WHERE folder_id = ? AND path = ?`,
			file.ID, file.Name, file.MimeType, file.Size, file.Checksum,
			file.Version, file.UpdatedAt, file.FolderID, file.Path,
		)
		if err != nil {
			return "", fmt.Errorf("update file: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM recent_deletes WHERE folder_id = ? AND path = ?`, file.FolderID, file.Path)
	if err != nil {
		return "", fmt.Errorf("clear recent delete: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit upsert: %w", err)
	}
	return prevBlobID, nil
}

// DeleteFile removes the manifest entry and records a recent-delete so
// other clients that still hold the file learn about the deletion instead
// of resurrecting it. Returns the removed entry for blob cleanup.
func (s *Store) DeleteFile(ctx context.Context, folderID, path string) (*wire.SyncFile, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	var file wire.SyncFile
	err = tx.GetContext(ctx, &file,
		`SELECT * FROM sync_files WHERE folder_id = ? AND path = ?`, folderID, path)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query file for delete: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM sync_files WHERE folder_id = ? AND path = ?`, folderID, path); err != nil {
		return nil, fmt.Errorf("delete file: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO recent_deletes (folder_id, path, deleted_at) VALUES (?, ?, ?)`,
		folderID, path, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("record recent delete: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit delete: %w", err)
	}
	return &file, nil
}
