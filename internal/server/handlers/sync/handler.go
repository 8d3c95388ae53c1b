// Package sync implements the folder sync endpoints: client registration,
// the status (diff) exchange, file upload/download, and explicit deletes.
package sync

import (
	"time"

	"github.com/foldsync/foldsync/internal/server/blob"
	"github.com/foldsync/foldsync/internal/server/store"
)

type Handler struct {
	store  *store.Store
	blobs  *blob.Store
	window time.Duration
}

// New builds the sync handler. window is the recent-deletes retention used
// during diff computation; <= 0 keeps tombstones forever.
func New(s *store.Store, b *blob.Store, window time.Duration) *Handler {
	return &Handler{
		store:  s,
		blobs:  b,
		window: window,
	}
}
