package sync

import (
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/foldsync/foldsync/internal/server/handlers/api"
	"github.com/foldsync/foldsync/internal/server/middlewares"
	"github.com/foldsync/foldsync/internal/utils"
	"github.com/foldsync/foldsync/internal/wire"
)

// Upload handles POST /files/*path: multipart file body. The blob is
// streamed to the blob store first (checksum and size computed while
// writing), the manifest entry committed last, so a crash in between
// leaves at most an orphaned blob, never a manifest entry without bytes.
func (h *Handler) Upload(ctx *gin.Context) {
	folder := middlewares.FolderFromContext(ctx)

	relPath := strings.TrimPrefix(ctx.Param("path"), "/")
	if err := wire.ValidatePath(relPath); err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidPath,
			fmt.Errorf("path %q: %w", relPath, err))
		return
	}

	formFile, err := ctx.FormFile("file")
	if err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest,
			fmt.Errorf("form file: %w", err))
		return
	}

	body, err := formFile.Open()
	if err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest,
			fmt.Errorf("open form file: %w", err))
		return
	}
	defer body.Close()

	blobID := uuid.NewString()
	put, err := h.blobs.Put(blobID, body)
	if err != nil {
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeBlobPutFailed,
			fmt.Errorf("store blob: %w", err))
		return
	}

	file := &wire.SyncFile{
		ID:       blobID,
		FolderID: folder.ID,
		Path:     relPath,
		Name:     path.Base(relPath),
		MimeType: utils.DetectContentType(relPath),
		Size:     put.Size,
		Checksum: put.Checksum,
	}

	prevBlobID, err := h.store.UpsertFile(ctx.Request.Context(), file)
	if err != nil {
		// manifest not committed, drop the freshly written blob
		h.blobs.Delete(blobID)
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeInternalError,
			fmt.Errorf("upsert manifest: %w", err))
		return
	}

	if prevBlobID != "" && prevBlobID != blobID {
		if err := h.blobs.Delete(prevBlobID); err != nil {
			slog.Warn("cleanup replaced blob", "blob", prevBlobID, "error", err)
		}
	}

	slog.Info("file upload", "folder", folder.ID, "path", relPath,
		"version", file.Version, "size", humanize.Bytes(uint64(put.Size)))
	ctx.PureJSON(http.StatusOK, file)
}
