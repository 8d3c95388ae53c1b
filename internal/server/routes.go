package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	slogGin "github.com/samber/slog-gin"

	syncH "github.com/foldsync/foldsync/internal/server/handlers/sync"
	"github.com/foldsync/foldsync/internal/server/middlewares"
	"github.com/foldsync/foldsync/internal/server/store"
	"github.com/foldsync/foldsync/internal/version"
)

func SetupRoutes(s *store.Store, handler *syncH.Handler) http.Handler {
	r := gin.New()
	r.MaxMultipartMemory = 8 << 20 // 8 MiB

	httpLogger := slog.Default().WithGroup("http")
	r.Use(slogGin.NewWithConfig(httpLogger, slogGin.Config{
		DefaultLevel:     slog.LevelInfo,
		ClientErrorLevel: slog.LevelWarn,
		ServerErrorLevel: slog.LevelError,
		WithRequestID:    true,
	}))
	r.Use(gin.Recovery())
	r.Use(gzip.Gzip(gzip.BestSpeed))
	r.Use(cors.Default())

	r.GET("/", func(ctx *gin.Context) {
		ctx.String(http.StatusOK, "foldsync-server "+version.Detailed())
	})
	r.GET("/healthz", func(ctx *gin.Context) {
		ctx.PureJSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// folder discovery by api key, used by agents before they know the id
	r.GET("/api/folder", handler.GetFolder)

	folder := r.Group("/api/sync/:folder_id")
	folder.Use(middlewares.FolderAuth(s))
	{
		folder.POST("/clients", handler.RegisterClient)
		folder.POST("/status", handler.Status)
		folder.POST("/files/*path", handler.Upload)
		folder.GET("/files/:file_id/blob", handler.DownloadBlob)
		folder.DELETE("/files/*path", handler.Delete)
	}

	r.NoRoute(func(ctx *gin.Context) {
		ctx.PureJSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	r.NoMethod(func(ctx *gin.Context) {
		ctx.PureJSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
	})

	return r.Handler()
}

func init() {
	gin.SetMode(gin.ReleaseMode)
}
