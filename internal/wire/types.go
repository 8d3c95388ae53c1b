// Package wire holds the types exchanged between the sync agent and the
// server. The same structs back the server's manifest store rows, so the
// manifest entry a client receives is exactly what the server persisted.
package wire

import "time"

// FileStatus is the client's view of one local file, sent to the status
// (diff) endpoint. ModifiedAt is advisory and only used as a tiebreak.
type FileStatus struct {
	Path       string    `json:"path"`
	Checksum   string    `json:"checksum"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}

// SyncFile is a server manifest entry. Version is bumped on every upsert
// and is strictly increasing per (folder_id, path). ID addresses the blob
// and is replaced on every upsert so a manifest entry always points at a
// blob with the declared size and checksum.
type SyncFile struct {
	ID        string    `json:"id" db:"id"`
	FolderID  string    `json:"folder_id" db:"folder_id"`
	Path      string    `json:"path" db:"path"`
	Name      string    `json:"name" db:"name"`
	MimeType  string    `json:"mime_type" db:"mime_type"`
	Size      int64     `json:"size" db:"size"`
	Checksum  string    `json:"checksum" db:"checksum"`
	Version   int64     `json:"version" db:"version"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// SyncClient is a device registration within a folder.
type SyncClient struct {
	ID         string     `json:"id" db:"id"`
	FolderID   string     `json:"folder_id" db:"folder_id"`
	DeviceName string     `json:"device_name" db:"device_name"`
	LastSyncAt *time.Time `json:"last_sync_at,omitempty" db:"last_sync_at"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

// SyncFolder is the replication unit. The api key is the sole bearer
// credential for the folder.
type SyncFolder struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	APIKey    string    `json:"api_key" db:"api_key"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// SyncDiff is the three-way diff returned by the status endpoint.
// Upload: paths the client must push. Download: manifest entries the client
// must fetch. Delete: paths the client must remove locally (server-driven
// deletions within the recent-deletes window).
type SyncDiff struct {
	Upload   []string   `json:"upload"`
	Download []SyncFile `json:"download"`
	Delete   []string   `json:"delete"`
}

// Empty reports the steady state: nothing to transfer on either side.
func (d *SyncDiff) Empty() bool {
	return len(d.Upload) == 0 && len(d.Download) == 0 && len(d.Delete) == 0
}

type RegisterClientRequest struct {
	DeviceName string `json:"deviceName" binding:"required"`
}

type StatusRequest struct {
	ClientID string       `json:"clientId" binding:"required"`
	Files    []FileStatus `json:"files"`
}

type DeleteResponse struct {
	Deleted bool   `json:"deleted"`
	Path    string `json:"path"`
}
