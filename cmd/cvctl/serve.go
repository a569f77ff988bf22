package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"cvbuilder/internal/bootstrap"
	"cvbuilder/internal/shared/server"
)

func serveCmd() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if port != "" {
				cfg.Port = port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := bootstrap.Build(ctx, cfg)
			if err != nil {
				return fmt.Errorf("bootstrap: %w", err)
			}
			srv := &http.Server{Addr: server.Addr(cfg.Port), Handler: app.Router}
			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()
			fmt.Fprintf(cmd.OutOrStdout(), "listening on %s\n", srv.Addr)

			var serveErr error
			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					serveErr = err
				}
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
			return errors.Join(serveErr, app.Close(shutdownCtx))
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (default $PORT or 8080)")
	return cmd
}
