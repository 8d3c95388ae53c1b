package middlewares

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/foldsync/foldsync/internal/server/handlers/api"
	"github.com/foldsync/foldsync/internal/server/store"
	"github.com/foldsync/foldsync/internal/wire"
)

const (
	APIKeyHeader     = "X-API-Key"
	FolderContextKey = "folder"
)

// FolderAuth authenticates a request against the folder named in the URL.
// The api key is the sole bearer credential: it must exist and belong to
// the :folder_id in the path.
func FolderAuth(s *store.Store) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		apiKey := ctx.GetHeader(APIKeyHeader)
		if apiKey == "" {
			api.AbortWithError(ctx, http.StatusUnauthorized, api.CodeAuthInvalidKey,
				errors.New("missing X-API-Key header"))
			return
		}

		folderID := ctx.Param("folder_id")
		folder, err := s.GetFolder(ctx.Request.Context(), folderID)
		if err != nil {
			// unknown folder and bad key are indistinguishable on purpose
			api.AbortWithError(ctx, http.StatusUnauthorized, api.CodeAuthInvalidKey,
				errors.New("invalid api key"))
			return
		}

		if subtle.ConstantTimeCompare([]byte(folder.APIKey), []byte(apiKey)) != 1 {
			api.AbortWithError(ctx, http.StatusUnauthorized, api.CodeAuthInvalidKey,
				errors.New("invalid api key"))
			return
		}

		ctx.Set(FolderContextKey, folder)
		ctx.Next()
	}
}

// FolderFromContext returns the folder set by FolderAuth.
func FolderFromContext(ctx *gin.Context) *wire.SyncFolder {
	v, ok := ctx.Get(FolderContextKey)
	if !ok {
		return nil
	}
	folder, _ := v.(*wire.SyncFolder)
	return folder
}
