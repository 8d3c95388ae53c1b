package sync

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/foldsync/foldsync/internal/server/diff"
	"github.com/foldsync/foldsync/internal/server/handlers/api"
	"github.com/foldsync/foldsync/internal/server/middlewares"
	"github.com/foldsync/foldsync/internal/server/store"
	"github.com/foldsync/foldsync/internal/wire"
)

// Status handles POST /status: the client posts its full tree view and
// receives the upload/download/delete diff against the manifest.
func (h *Handler) Status(ctx *gin.Context) {
	folder := middlewares.FolderFromContext(ctx)

	var req wire.StatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest,
			fmt.Errorf("bind request: %w", err))
		return
	}

	for _, status := range req.Files {
		if err := wire.ValidatePath(status.Path); err != nil {
			api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidPath,
				fmt.Errorf("path %q: %w", status.Path, err))
			return
		}
	}

	if _, err := h.store.GetClient(ctx.Request.Context(), folder.ID, req.ClientID); err != nil {
		if errors.Is(err, store.ErrClientNotFound) {
			api.AbortWithError(ctx, http.StatusUnauthorized, api.CodeAuthUnknownClient,
				fmt.Errorf("unknown client %q", req.ClientID))
			return
		}
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeInternalError, err)
		return
	}

	files, err := h.store.ListFiles(ctx.Request.Context(), folder.ID)
	if err != nil {
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeInternalError, err)
		return
	}

	recentDeletes, err := h.store.RecentDeletes(ctx.Request.Context(), folder.ID, h.window)
	if err != nil {
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeInternalError, err)
		return
	}

	result := diff.Compute(diff.ManifestByPath(files), req.Files, recentDeletes)

	if err := h.store.TouchClientSync(ctx.Request.Context(), folder.ID, req.ClientID); err != nil {
		slog.Warn("touch client sync", "folder", folder.ID, "client", req.ClientID, "error", err)
	}

	ctx.PureJSON(http.StatusOK, result)
}
