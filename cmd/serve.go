package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"time"

	"imgedit-backend/internal/assets"
	"imgedit-backend/internal/handler"
	"imgedit-backend/internal/service"
	"imgedit-backend/internal/storage"
	"imgedit-backend/internal/worker"
	"imgedit-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the image editor web server",
		Example: `  # Start on the configured port (8000 by default)
  imgedit serve

  # Start on a custom port with the Qwen provider
  IMGEDIT_MODEL_PROVIDER=qwen imgedit serve --port 9000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cfg.Log.Level != "debug" {
				gin.SetMode(gin.ReleaseMode)
			}

			interpreter, err := newInterpreter(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			images := storage.NewTempImages(cfg.Storage.TempDir(), path.Join("/static", cfg.Storage.TempSubdir))
			if err := images.Init(); err != nil {
				return err
			}
			sessions := storage.NewMemoryStorage(cfg.Session.TTL)

			pool := worker.NewPool(cfg.Worker.PoolSize,
				worker.WithQueueSize(cfg.Worker.QueueSize),
				worker.WithJobTimeout(cfg.Worker.JobTimeout),
			)
			defer pool.Close()

			editService := service.NewEditService(sessions, images, interpreter, pool)
			router := handler.NewRouter(cfg,
				handler.NewImageHandler(editService),
				handler.NewStaticHandler(cfg.Assets.IndexFile, cfg.Assets.FaviconFile,
					assets.NewScriptCache(cfg.Assets.ScriptSource, cfg.Assets.ScriptBundle)),
			)

			server := &http.Server{
				Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
				Handler:        router,
				ReadTimeout:    cfg.Server.ReadTimeout,
				WriteTimeout:   cfg.Server.WriteTimeout,
				MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
			}

			serverErr := make(chan error, 1)
			go func() {
				logger.Infof("server listening on http://localhost:%d", cfg.Server.Port)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			select {
			case <-cmd.Context().Done():
				logger.Info("shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					logger.Errorf("server shutdown failed: %v", err)
					return err
				}
				logger.Info("server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8000, "port to listen on, overrides server.port")

	return cmd
}
