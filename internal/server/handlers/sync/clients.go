package sync

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/foldsync/foldsync/internal/server/handlers/api"
	"github.com/foldsync/foldsync/internal/server/middlewares"
	"github.com/foldsync/foldsync/internal/wire"
)

// RegisterClient handles POST /clients. Idempotent per (folder, device):
// repeated registrations return the existing client id.
func (h *Handler) RegisterClient(ctx *gin.Context) {
	folder := middlewares.FolderFromContext(ctx)

	var req wire.RegisterClientRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest,
			fmt.Errorf("bind request: %w", err))
		return
	}

	client, err := h.store.RegisterClient(ctx.Request.Context(), folder.ID, req.DeviceName)
	if err != nil {
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeInternalError,
			fmt.Errorf("register client: %w", err))
		return
	}

	ctx.PureJSON(http.StatusOK, client)
}

// GetFolder handles GET /api/folder: resolves the folder from the api
// key alone, so a freshly-configured agent can discover its folder id.
func (h *Handler) GetFolder(ctx *gin.Context) {
	apiKey := ctx.GetHeader(middlewares.APIKeyHeader)
	if apiKey == "" {
		api.AbortWithError(ctx, http.StatusUnauthorized, api.CodeAuthInvalidKey,
			fmt.Errorf("missing %s header", middlewares.APIKeyHeader))
		return
	}
	folder, err := h.store.GetFolderByAPIKey(ctx.Request.Context(), apiKey)
	if err != nil {
		api.AbortWithError(ctx, http.StatusUnauthorized, api.CodeAuthInvalidKey,
			fmt.Errorf("invalid api key"))
		return
	}
	// never echo the key back
	folder.APIKey = ""
	ctx.PureJSON(http.StatusOK, folder)
}
