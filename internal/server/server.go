package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/foldsync/foldsync/internal/db"
	"github.com/foldsync/foldsync/internal/server/blob"
	syncH "github.com/foldsync/foldsync/internal/server/handlers/sync"
	"github.com/foldsync/foldsync/internal/server/store"
)

const pruneInterval = time.Hour

type Server struct {
	config *Config
	server *http.Server
	store  *store.Store
	blobs  *blob.Store
}

func New(config *Config) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	sqlDB, err := db.NewSqliteDB(db.WithPath(config.DBPath()))
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	manifestStore, err := store.New(sqlDB)
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("init store: %w", err)
	}

	blobStore, err := blob.NewStore(config.BlobDir())
	if err != nil {
		manifestStore.Close()
		return nil, fmt.Errorf("init blob store: %w", err)
	}

	handler := syncH.New(manifestStore, blobStore, config.RecentDeleteWindow)

	return &Server{
		config: config,
		store:  manifestStore,
		blobs:  blobStore,
		server: &http.Server{
			Addr:    config.HTTP.Addr,
			Handler: SetupRoutes(manifestStore, handler),
		},
	}, nil
}

// Store exposes the manifest store for admin commands (folder provisioning).
func (s *Server) Store() *store.Store {
	return s.store
}

func (s *Server) Start(ctx context.Context) error {
	slog.Info("foldsync server start", "addr", s.config.HTTP.Addr)
	defer slog.Info("foldsync server stop")

	go s.pruneLoop(ctx)

	errCh := make(chan error, 1)
	go func() {
		if err := s.runHTTPServer(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	return s.Stop(context.Background())
}

func (s *Server) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return s.store.Close()
}

func (s *Server) runHTTPServer() error {
	if s.config.HTTP.CertFile != "" && s.config.HTTP.KeyFile != "" {
		slog.Info("server listening (tls)", "addr", s.config.HTTP.Addr)
		return s.server.ListenAndServeTLS(s.config.HTTP.CertFile, s.config.HTTP.KeyFile)
	}
	slog.Info("server listening", "addr", s.config.HTTP.Addr)
	return s.server.ListenAndServe()
}

// pruneLoop drops expired recent-delete tombstones. With a non-positive
// window tombstones are persistent and the loop does nothing.
func (s *Server) pruneLoop(ctx context.Context) {
	if s.config.RecentDeleteWindow <= 0 {
		return
	}

	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.store.PruneRecentDeletes(ctx, s.config.RecentDeleteWindow)
			if err != nil {
				slog.Error("prune recent deletes", "error", err)
			} else if n > 0 {
				slog.Info("pruned recent deletes", "count", n)
			}
		}
	}
}
