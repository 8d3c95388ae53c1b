package sync

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/foldsync/foldsync/internal/server/blob"
	"github.com/foldsync/foldsync/internal/server/handlers/api"
	"github.com/foldsync/foldsync/internal/server/middlewares"
	"github.com/foldsync/foldsync/internal/server/store"
)

// DownloadBlob handles GET /files/:file_id/blob: streams the blob bytes
// with Content-Length from the manifest and the checksum as ETag.
func (h *Handler) DownloadBlob(ctx *gin.Context) {
	folder := middlewares.FolderFromContext(ctx)
	fileID := ctx.Param("file_id")

	file, err := h.store.GetFileByID(ctx.Request.Context(), folder.ID, fileID)
	if err != nil {
		if errors.Is(err, store.ErrFileNotFound) {
			api.AbortWithError(ctx, http.StatusNotFound, api.CodeFileNotFound,
				fmt.Errorf("no file with id %q", fileID))
			return
		}
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeInternalError, err)
		return
	}

	body, err := h.blobs.Open(file.ID)
	if err != nil {
		if errors.Is(err, blob.ErrBlobNotFound) {
			api.AbortWithError(ctx, http.StatusNotFound, api.CodeFileNotFound,
				fmt.Errorf("blob missing for file %q", fileID))
			return
		}
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeBlobGetFailed, err)
		return
	}
	defer body.Close()

	ctx.Header("ETag", file.Checksum)
	ctx.DataFromReader(http.StatusOK, file.Size, file.MimeType, body, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", file.Name),
	})
}
