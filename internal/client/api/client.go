// Package api is the agent-side HTTP client for the folder sync endpoints.
package api

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/imroc/req/v3"

	"github.com/foldsync/foldsync/internal/utils"
	"github.com/foldsync/foldsync/internal/version"
	"github.com/foldsync/foldsync/internal/wire"
)

type Client struct {
	http     *req.Client
	folderID string
}

// New builds a client for the given server. The api key authenticates
// every request; the folder id is discovered on Connect.
func New(apiURL, apiKey string) *Client {
	client := req.C().
		SetBaseURL(strings.TrimRight(apiURL, "/")).
		SetUserAgent("foldsync/" + version.Version).
		SetCommonHeader("X-API-Key", apiKey).
		SetCommonErrorResult(&APIError{}).
		SetCommonRetryCount(3).
		SetCommonRetryBackoffInterval(1*time.Second, 4*time.Second).
		SetCommonRetryCondition(func(resp *req.Response, err error) bool {
			return err != nil || resp.GetStatusCode() >= 500
		})

	return &Client{http: client}
}

// Connect resolves the folder this api key is scoped to. Must be called
// before any folder-rooted operation.
func (c *Client) Connect(ctx context.Context) error {
	var folder wire.SyncFolder
	resp, err := c.http.R().
		SetContext(ctx).
		SetSuccessResult(&folder).
		Get("/api/folder")

	if err := handleAPIError(resp, err, "folder discovery"); err != nil {
		return err
	}

	c.folderID = folder.ID
	return nil
}

func (c *Client) FolderID() string {
	return c.folderID
}

// Register registers this device with the folder. Idempotent per device
// name: the server returns the existing id on repeat calls.
func (c *Client) Register(ctx context.Context, deviceName string) (*wire.SyncClient, error) {
	var client wire.SyncClient
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(&wire.RegisterClientRequest{DeviceName: deviceName}).
		SetSuccessResult(&client).
		Post(c.folderURL("clients"))

	if err := handleAPIError(resp, err, "register client"); err != nil {
		return nil, err
	}
	return &client, nil
}

// Status posts the local tree view and returns the server's diff.
func (c *Client) Status(ctx context.Context, clientID string, files []wire.FileStatus) (*wire.SyncDiff, error) {
	if files == nil {
		files = []wire.FileStatus{}
	}

	var result wire.SyncDiff
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(&wire.StatusRequest{ClientID: clientID, Files: files}).
		SetSuccessResult(&result).
		Post(c.folderURL("status"))

	if err := handleAPIError(resp, err, "status"); err != nil {
		return nil, err
	}
	return &result, nil
}

// Upload streams the local file to the server as multipart and returns the
// committed manifest entry. Transfers are not auto-retried: the engine owns
// retry policy for them.
func (c *Client) Upload(ctx context.Context, relPath, localPath string) (*wire.SyncFile, error) {
	if !utils.FileExists(localPath) {
		return nil, fmt.Errorf("upload %q: local file missing", relPath)
	}

	var file wire.SyncFile
	resp, err := c.http.R().
		SetContext(ctx).
		SetRetryCount(0).
		SetFile("file", localPath).
		SetSuccessResult(&file).
		Post(c.folderURL("files/" + escapePath(relPath)))

	if err := handleAPIError(resp, err, "upload "+relPath); err != nil {
		return nil, err
	}
	return &file, nil
}

// DownloadBlob streams the blob for fileID into destPath. The caller is
// responsible for integrity verification and the atomic rename.
func (c *Client) DownloadBlob(ctx context.Context, fileID, destPath string) error {
	resp, err := c.http.R().
		DisableAutoReadResponse().
		SetContext(ctx).
		SetRetryCount(0).
		SetOutputFile(destPath).
		Get(c.folderURL("files/" + url.PathEscape(fileID) + "/blob"))

	return handleAPIError(resp, err, "download "+fileID)
}

// Delete removes the path from the server manifest and records the
// deletion for other clients.
func (c *Client) Delete(ctx context.Context, relPath string) error {
	var result wire.DeleteResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetSuccessResult(&result).
		Delete(c.folderURL("files/" + escapePath(relPath)))

	return handleAPIError(resp, err, "delete "+relPath)
}

func (c *Client) folderURL(suffix string) string {
	return fmt.Sprintf("/api/sync/%s/%s", c.folderID, suffix)
}

// escapePath escapes each path segment while keeping the separators.
func escapePath(relPath string) string {
	segments := strings.Split(relPath, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}
