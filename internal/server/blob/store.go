// Package blob is a filesystem-backed byte store addressed by blob id.
// It is deliberately independent of the manifest store so uploads can be
// ordered explicitly: blob first, manifest entry last.
package blob

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/foldsync/foldsync/internal/utils"
)

var ErrBlobNotFound = errors.New("blob not found")

type Store struct {
	root string
}

// PutResult reports what was actually written: the checksum and size are
// computed server-side while streaming, never trusted from the client.
type PutResult struct {
	Size     int64
	Checksum string
}

func NewStore(root string) (*Store, error) {
	if err := utils.EnsureDir(root); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &Store{root: root}, nil
}

// blobPath shards blobs by the first two id characters to keep directory
// fan-out bounded.
func (s *Store) blobPath(id string) string {
	if len(id) < 2 {
		return filepath.Join(s.root, id)
	}
	return filepath.Join(s.root, id[:2], id)
}

// Put streams body into the store under id, hashing as it writes. The blob
// is written to a temp sibling and renamed, so a crashed upload never
// leaves a readable partial blob.
func (s *Store) Put(id string, body io.Reader) (*PutResult, error) {
	dest := s.blobPath(id)
	if err := utils.EnsureParent(dest); err != nil {
		return nil, fmt.Errorf("ensure blob dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".blob-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create temp blob: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	hash := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, hash), body)
	if err != nil {
		return nil, fmt.Errorf("write blob: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		return nil, fmt.Errorf("sync blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close blob: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return nil, fmt.Errorf("commit blob: %w", err)
	}

	success = true
	return &PutResult{
		Size:     size,
		Checksum: hex.EncodeToString(hash.Sum(nil)),
	}, nil
}

// Open returns a reader over the blob bytes.
func (s *Store) Open(id string) (io.ReadCloser, error) {
	f, err := os.Open(s.blobPath(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrBlobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return f, nil
}

func (s *Store) Exists(id string) bool {
	return utils.FileExists(s.blobPath(id))
}

// Delete removes the blob. Missing blobs are not an error; deletion is
// best-effort cleanup after a manifest commit.
func (s *Store) Delete(id string) error {
	err := os.Remove(s.blobPath(id))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}
