package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foldsync/foldsync/internal/db"
	"github.com/foldsync/foldsync/internal/server/blob"
	syncH "github.com/foldsync/foldsync/internal/server/handlers/sync"
	"github.com/foldsync/foldsync/internal/server/store"
	"github.com/foldsync/foldsync/internal/wire"
)

type testServer struct {
	http   http.Handler
	store  *store.Store
	folder *wire.SyncFolder
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	sqlDB, err := db.NewSqliteDB(db.WithPath(":memory:"), db.WithMaxOpenConns(1))
	require.NoError(t, err)

	manifestStore, err := store.New(sqlDB)
	require.NoError(t, err)
	t.Cleanup(func() { manifestStore.Close() })

	blobStore, err := blob.NewStore(filepath.Join(t.TempDir(), "blobs"))
	require.NoError(t, err)

	folder, err := manifestStore.CreateFolder(context.Background(), "shared")
	require.NoError(t, err)

	handler := syncH.New(manifestStore, blobStore, 24*time.Hour)
	return &testServer{
		http:   SetupRoutes(manifestStore, handler),
		store:  manifestStore,
		folder: folder,
	}
}

func (ts *testServer) do(t *testing.T, method, target, apiKey string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, body)
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	w := httptest.NewRecorder()
	ts.http.ServeHTTP(w, req)
	return w
}

func (ts *testServer) doJSON(t *testing.T, method, target string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return ts.do(t, method, target, ts.folder.APIKey, bytes.NewReader(body), "application/json")
}

func (ts *testServer) upload(t *testing.T, relPath, content string) wire.SyncFile {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(relPath))
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	w := ts.do(t, http.MethodPost,
		fmt.Sprintf("/api/sync/%s/files/%s", ts.folder.ID, relPath),
		ts.folder.APIKey, &buf, mw.FormDataContentType())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var file wire.SyncFile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &file))
	return file
}

func (ts *testServer) register(t *testing.T, deviceName string) wire.SyncClient {
	t.Helper()

	w := ts.doJSON(t, http.MethodPost,
		fmt.Sprintf("/api/sync/%s/clients", ts.folder.ID),
		wire.RegisterClientRequest{DeviceName: deviceName})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var client wire.SyncClient
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &client))
	return client
}

func (ts *testServer) status(t *testing.T, clientID string, files []wire.FileStatus) wire.SyncDiff {
	t.Helper()

	w := ts.doJSON(t, http.MethodPost,
		fmt.Sprintf("/api/sync/%s/status", ts.folder.ID),
		wire.StatusRequest{ClientID: clientID, Files: files})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result wire.SyncDiff
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	return result
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t)

	target := fmt.Sprintf("/api/sync/%s/status", ts.folder.ID)

	w := ts.do(t, http.MethodPost, target, "", nil, "application/json")
	assert.Equal(t, http.StatusUnauthorized, w.Code, "missing key")

	w = ts.do(t, http.MethodPost, target, "wrong-key", nil, "application/json")
	assert.Equal(t, http.StatusUnauthorized, w.Code, "wrong key")

	w = ts.do(t, http.MethodPost, "/api/sync/no-such-folder/status",
		ts.folder.APIKey, nil, "application/json")
	assert.Equal(t, http.StatusUnauthorized, w.Code, "unknown folder looks like a bad key")
}

func TestFolderDiscovery(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/folder", ts.folder.APIKey, nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var folder wire.SyncFolder
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &folder))
	assert.Equal(t, ts.folder.ID, folder.ID)
	assert.Empty(t, folder.APIKey, "key is never echoed back")

	w = ts.do(t, http.MethodGet, "/api/folder", "bogus", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUploadDownloadRoundTrip(t *testing.T) {
	ts := newTestServer(t)
	content := "round trip payload"

	file := ts.upload(t, "docs/notes.txt", content)
	assert.Equal(t, "docs/notes.txt", file.Path)
	assert.EqualValues(t, 1, file.Version)
	assert.EqualValues(t, len(content), file.Size)
	assert.NotEmpty(t, file.Checksum)

	w := ts.do(t, http.MethodGet,
		fmt.Sprintf("/api/sync/%s/files/%s/blob", ts.folder.ID, file.ID),
		ts.folder.APIKey, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, content, w.Body.String())
	assert.Equal(t, file.Checksum, w.Header().Get("ETag"))
}

func TestUploadBumpsVersion(t *testing.T) {
	ts := newTestServer(t)

	first := ts.upload(t, "a.txt", "v1")
	second := ts.upload(t, "a.txt", "v2")

	assert.EqualValues(t, 2, second.Version)
	assert.NotEqual(t, first.ID, second.ID, "blob id is replaced on overwrite")

	// the replaced blob id no longer resolves
	w := ts.do(t, http.MethodGet,
		fmt.Sprintf("/api/sync/%s/files/%s/blob", ts.folder.ID, first.ID),
		ts.folder.APIKey, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUploadRejectsBadPath(t *testing.T) {
	ts := newTestServer(t)

	for _, relPath := range []string{"../escape.txt", "a//b.txt", "a/./b.txt"} {
		w := ts.do(t, http.MethodPost,
			fmt.Sprintf("/api/sync/%s/files/%s", ts.folder.ID, relPath),
			ts.folder.APIKey, nil, "application/json")
		assert.Equal(t, http.StatusBadRequest, w.Code, relPath)
	}
}

func TestStatusDiffFlow(t *testing.T) {
	ts := newTestServer(t)
	client := ts.register(t, "laptop")

	file := ts.upload(t, "shared.txt", "server copy")

	// empty local tree: the server file comes down
	result := ts.status(t, client.ID, nil)
	require.Len(t, result.Download, 1)
	assert.Equal(t, "shared.txt", result.Download[0].Path)
	assert.Empty(t, result.Delete)

	// matching local state: steady state
	result = ts.status(t, client.ID, []wire.FileStatus{{
		Path:       "shared.txt",
		Checksum:   file.Checksum,
		Size:       file.Size,
		ModifiedAt: file.UpdatedAt,
	}})
	assert.True(t, result.Empty())

	// a path the server has never seen goes up
	result = ts.status(t, client.ID, []wire.FileStatus{
		{Path: "shared.txt", Checksum: file.Checksum, ModifiedAt: file.UpdatedAt},
		{Path: "new.txt", Checksum: "abc", ModifiedAt: time.Now().UTC()},
	})
	assert.Equal(t, []string{"new.txt"}, result.Upload)
}

func TestStatusRequiresRegisteredClient(t *testing.T) {
	ts := newTestServer(t)

	w := ts.doJSON(t, http.MethodPost,
		fmt.Sprintf("/api/sync/%s/status", ts.folder.ID),
		wire.StatusRequest{ClientID: "ghost"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDeletePropagation(t *testing.T) {
	ts := newTestServer(t)
	client := ts.register(t, "laptop")

	file := ts.upload(t, "doomed.txt", "bytes")

	w := ts.do(t, http.MethodDelete,
		fmt.Sprintf("/api/sync/%s/files/doomed.txt", ts.folder.ID),
		ts.folder.APIKey, nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp wire.DeleteResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Deleted)
	assert.Equal(t, "doomed.txt", resp.Path)

	// another client still holding an old copy is told to delete it
	result := ts.status(t, client.ID, []wire.FileStatus{{
		Path:       "doomed.txt",
		Checksum:   file.Checksum,
		ModifiedAt: file.UpdatedAt,
	}})
	assert.Equal(t, []string{"doomed.txt"}, result.Delete)
	assert.Empty(t, result.Download)

	// deleting again is a 404, the manifest entry is gone
	w = ts.do(t, http.MethodDelete,
		fmt.Sprintf("/api/sync/%s/files/doomed.txt", ts.folder.ID),
		ts.folder.APIKey, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/healthz", "", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}
