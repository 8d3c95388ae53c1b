package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/foldsync/foldsync/internal/wire"
)

var ErrFolderNotFound = errors.New("folder not found")

// CreateFolder provisions a folder with a fresh api key.
func (s *Store) CreateFolder(ctx context.Context, name string) (*wire.SyncFolder, error) {
	now := time.Now().UTC()
	folder := &wire.SyncFolder{
		ID:        uuid.NewString(),
		Name:      name,
		APIKey:    uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sync_folders (id, name, api_key, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		folder.ID, folder.Name, folder.APIKey, folder.CreatedAt, folder.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert folder: %w", err)
	}
	return folder, nil
}

func (s *Store) GetFolder(ctx context.Context, id string) (*wire.SyncFolder, error) {
	var folder wire.SyncFolder
	err := s.db.GetContext(ctx, &folder, `SELECT * FROM sync_folders WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFolderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get folder: %w", err)
	}
	return &folder, nil
}

func (s *Store) GetFolderByAPIKey(ctx context.Context, apiKey string) (*wire.SyncFolder, error) {
	var folder wire.SyncFolder
	err := s.db.GetContext(ctx, &folder, `SELECT * FROM sync_folders WHERE api_key = ?`, apiKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFolderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get folder by api key: %w", err)
	}
	return &folder, nil
}

func (s *Store) ListFolders(ctx context.Context) ([]wire.SyncFolder, error) {
	var folders []wire.SyncFolder
	if err := s.db.SelectContext(ctx, &folders, `SELECT * FROM sync_folders ORDER BY name`); err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	return folders, nil
}
