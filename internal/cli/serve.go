package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/curzel-it/battld/internal/api"
	"github.com/curzel-it/battld/internal/config"
	"github.com/curzel-it/battld/internal/factory"
)

func newServeCmd() *cobra.Command {
	var addr, storageType string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the game server",
		Long: `Run the HTTP API, the /ws realtime endpoint and /metrics.

Settings come from BATTLD_* environment variables, read after an optional
.env file in the working directory. BATTLD_JWT_SECRET is required.`,
		// The server needs no client token
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load()
			if err != nil {
				return err
			}
			if addr != "" {
				settings.Addr = addr
			}
			if storageType != "" {
				settings.Storage = storageType
			}
			if err := settings.Validate(); err != nil {
				return err
			}

			logger, err := settings.Logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, settings, logger)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (env: BATTLD_ADDR)")
	cmd.Flags().StringVar(&storageType, "storage", "", "Storage backend: memory, redis, sqlite (env: BATTLD_STORAGE)")

	return cmd
}

// serve runs the server until ctx is done
func serve(ctx context.Context, settings config.Config, logger *slog.Logger) error {
	app, err := factory.New(factory.ConfigFrom(settings, logger))
	if err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("close application", slog.String("error", err.Error()))
		}
	}()

	router := api.NewRouter(api.RouterConfig{
		Logger:       logger,
		AuthService:  app.AuthService,
		StatsService: app.StatsService,
		Metrics:      app.Metrics,
		WSHandler:    app.WSHandler,
	})

	serverCfg := api.DefaultServerConfig()
	serverCfg.Addr = settings.Addr
	server := api.NewServer(router, serverCfg, logger)
	server.OnShutdown(app.WSHandler.Shutdown)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started",
		slog.String("addr", server.Addr()),
		slog.String("storage", settings.Storage),
	)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		return server.Shutdown(context.Background())
	}
}
