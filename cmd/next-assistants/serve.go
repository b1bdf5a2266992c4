package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ashwinyue/next-assistants/internal/handler"
	"github.com/ashwinyue/next-assistants/internal/router"
)

func serveCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			ctx := cmd.Context()

			a, err := loadApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			svc, err := a.services(ctx)
			if err != nil {
				a.logger.Error("failed to init services", zap.Error(err))
				return err
			}
			defer svc.Close()

			gin.SetMode(a.cfg.Server.Mode)
			r := router.SetupRouter(handler.NewHandlers(svc, a.logger.Named("handler")), a.cfg.Auth.JWTSecret, a.logger.Named("http"))

			srv := &http.Server{
				Addr:         a.cfg.Server.GetAddr(),
				Handler:      r,
				ReadTimeout:  time.Duration(a.cfg.Server.ReadTimeout) * time.Second,
				WriteTimeout: time.Duration(a.cfg.Server.WriteTimeout) * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("server starting", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					a.logger.Error("server error", zap.Error(err))
					return err
				}
			case <-ctx.Done():
			}

			a.logger.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}
