package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"beer-quiz-service/internal/app"
	"beer-quiz-service/internal/config"
	transport "beer-quiz-service/internal/transport/http"
	"beer-quiz-service/pkg/logger"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	log := logger.Named("server")

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, false); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}

	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	records, err := b.recordStore()
	if err != nil {
		return err
	}
	gateway := app.NewResponseGateway(records, app.GatewayOptions{
		AllowedDomain: cfg.Quiz.AllowedDomain,
		FailClosed:    cfg.Quiz.FailClosed,
	}, logger.Get())
	controller := app.NewController(gateway, cfg.Quiz.AllowedDomain, logger.Get())
	service := app.NewQuizService(b.sessionStore(), b.contentRepository(), controller, app.ServiceOptions{
		CommandTimeout: config.TTLDuration(cfg.Quiz.StoreTimeout, 5*time.Second),
	}, logger.Get())

	if _, err := service.Content(ctx); err != nil {
		return err
	}

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           transport.NewRouter(service, logger.Get()),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info(ctx, "starting quiz service",
			logger.String("addr", server.Addr),
			logger.String("store", cfg.Store.Driver),
			logger.String("content", cfg.Quiz.ContentSource),
			logger.Bool("redis", cfg.Redis.Addr != ""),
			logger.Bool("fail_closed", cfg.Quiz.FailClosed))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "failed to start server", logger.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info(ctx, "shutting down server")
	case <-ctx.Done():
		log.Info(ctx, "context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
