package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foldsync/foldsync/internal/wire"
)

const testKey = "test-api-key"

// fakeServer speaks just enough of the server protocol for the client.
func fakeServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	authed := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-API-Key") != testKey {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{
					"code": "E_AUTH_INVALID_KEY", "error": "invalid api key",
				})
				return
			}
			next(w, r)
		}
	}

	mux.HandleFunc("GET /api/folder", authed(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(wire.SyncFolder{ID: "folder-1", Name: "shared"})
	}))
	mux.HandleFunc("POST /api/sync/folder-1/clients", authed(func(w http.ResponseWriter, r *http.Request) {
		var req wire.RegisterClientRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		json.NewEncoder(w).Encode(wire.SyncClient{ID: "client-1", DeviceName: req.DeviceName})
	}))
	mux.HandleFunc("POST /api/sync/folder-1/status", authed(func(w http.ResponseWriter, r *http.Request) {
		var req wire.StatusRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.NotNil(t, req.Files, "files must be an array, never null")
		json.NewEncoder(w).Encode(wire.SyncDiff{
			Upload:   []string{"up.txt"},
			Download: []wire.SyncFile{},
			Delete:   []string{},
		})
	}))
	mux.HandleFunc("POST /api/sync/folder-1/files/{path...}", authed(func(w http.ResponseWriter, r *http.Request) {
		_, _, err := r.FormFile("file")
		require.NoError(t, err)
		json.NewEncoder(w).Encode(wire.SyncFile{Path: r.PathValue("path"), Version: 1})
	}))
	mux.HandleFunc("GET /api/sync/folder-1/files/blob-1/blob", authed(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("blob bytes"))
	}))
	mux.HandleFunc("DELETE /api/sync/folder-1/files/{path...}", authed(func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("path") != "known.txt" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{
				"code": "E_FILE_NOT_FOUND", "error": "no such file",
			})
			return
		}
		json.NewEncoder(w).Encode(wire.DeleteResponse{Deleted: true, Path: "known.txt"})
	}))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newConnected(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	c := New(server.URL, testKey)
	require.NoError(t, c.Connect(context.Background()))
	require.Equal(t, "folder-1", c.FolderID())
	return c
}

func TestConnectBadKey(t *testing.T) {
	server := fakeServer(t)

	c := New(server.URL, "wrong-key")
	err := c.Connect(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRegister(t *testing.T) {
	c := newConnected(t, fakeServer(t))

	client, err := c.Register(context.Background(), "laptop")
	require.NoError(t, err)
	assert.Equal(t, "client-1", client.ID)
	assert.Equal(t, "laptop", client.DeviceName)
}

func TestStatus(t *testing.T) {
	c := newConnected(t, fakeServer(t))

	result, err := c.Status(context.Background(), "client-1", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"up.txt"}, result.Upload)
}

func TestUpload(t *testing.T) {
	c := newConnected(t, fakeServer(t))

	localPath := filepath.Join(t.TempDir(), "up.txt")
	require.NoError(t, os.WriteFile(localPath, []byte("payload"), 0o644))

	file, err := c.Upload(context.Background(), "sub/up.txt", localPath)
	require.NoError(t, err)
	assert.Equal(t, "sub/up.txt", file.Path)
	assert.EqualValues(t, 1, file.Version)
}

func TestUploadMissingLocalFile(t *testing.T) {
	c := newConnected(t, fakeServer(t))

	_, err := c.Upload(context.Background(), "gone.txt",
		filepath.Join(t.TempDir(), "gone.txt"))
	assert.Error(t, err)
}

func TestDownloadBlob(t *testing.T) {
	c := newConnected(t, fakeServer(t))

	destPath := filepath.Join(t.TempDir(), "down.bin")
	require.NoError(t, c.DownloadBlob(context.Background(), "blob-1", destPath))

	got, err := os.ReadFile(destPath)
	require.NoError(t, err)
	assert.Equal(t, "blob bytes", string(got))
}

func TestDelete(t *testing.T) {
	c := newConnected(t, fakeServer(t))

	require.NoError(t, c.Delete(context.Background(), "known.txt"))

	err := c.Delete(context.Background(), "unknown.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEscapePath(t *testing.T) {
	assert.Equal(t, "a/b%20c/d.txt", escapePath("a/b c/d.txt"))
	assert.Equal(t, "plain.txt", escapePath("plain.txt"))
}
