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

var ErrClientNotFound = errors.New("client not found")

// RegisterClient is idempotent per (folder, device_name): re-registering
// the same device returns the existing record.
func (s *Store) RegisterClient(ctx context.Context, folderID, deviceName string) (*wire.SyncClient, error) {
	var existing wire.SyncClient
	err := s.db.GetContext(ctx, &existing,
		`SELECT * FROM sync_clients WHERE folder_id = ? AND device_name = ?`, folderID, deviceName)
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("query client: %w", err)
	}

	client := &wire.SyncClient{
		ID:         uuid.NewString(),
		FolderID:   folderID,
		DeviceName: deviceName,
		CreatedAt:  time.Now().UTC(),
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sync_clients (id, folder_id, device_name, created_at) VALUES (?, ?, ?, ?)`,
		client.ID, client.FolderID, client.DeviceName, client.CreatedAt,
	)
	if err != nil {
		// lost the race to a concurrent registration of the same device
		if getErr := s.db.GetContext(ctx, &existing,
			`SELECT * FROM sync_clients WHERE folder_id = ? AND device_name = ?`, folderID, deviceName); getErr == nil {
			return &existing, nil
		}
		return nil, fmt.Errorf("insert client: %w", err)
	}
	return client, nil
}

func (s *Store) GetClient(ctx context.Context, folderID, clientID string) (*wire.SyncClient, error) {
	var client wire.SyncClient
	err := s.db.GetContext(ctx, &client,
		`SELECT * FROM sync_clients WHERE folder_id = ? AND id = ?`, folderID, clientID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrClientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	return &client, nil
}

// TouchClientSync records the time of the client's latest diff query.
// Observability only; manifest authority never depends on it.
func (s *Store) TouchClientSync(ctx context.Context, folderID, clientID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sync_clients SET last_sync_at = ? WHERE folder_id = ? AND id = ?`,
		time.Now().UTC(), folderID, clientID)
	if err != nil {
		return fmt.Errorf("touch client: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrClientNotFound
	}
	return nil
}
