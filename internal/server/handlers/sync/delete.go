package sync

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/foldsync/foldsync/internal/server/handlers/api"
	"github.com/foldsync/foldsync/internal/server/middlewares"
	"github.com/foldsync/foldsync/internal/server/store"
	"github.com/foldsync/foldsync/internal/wire"
)

// Delete handles DELETE /files/*path: removes the manifest entry, records
// a recent-delete tombstone and discards the blob asynchronously.
func (h *Handler) Delete(ctx *gin.Context) {
	folder := middlewares.FolderFromContext(ctx)

	relPath := strings.TrimPrefix(ctx.Param("path"), "/")
	if err := wire.ValidatePath(relPath); err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidPath,
			fmt.Errorf("path %q: %w", relPath, err))
		return
	}

	file, err := h.store.DeleteFile(ctx.Request.Context(), folder.ID, relPath)
	if err != nil {
		if errors.Is(err, store.ErrFileNotFound) {
			api.AbortWithError(ctx, http.StatusNotFound, api.CodeFileNotFound,
				fmt.Errorf("no file at %q", relPath))
			return
		}
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeInternalError, err)
		return
	}

	blobID := file.ID
	go func() {
		if err := h.blobs.Delete(blobID); err != nil {
			slog.Warn("delete blob", "blob", blobID, "error", err)
		}
	}()

	slog.Info("file delete", "folder", folder.ID, "path", relPath)
	ctx.PureJSON(http.StatusOK, wire.DeleteResponse{
		Deleted: true,
		Path:    relPath,
	})
}
