package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/phrazzld/taskqueue/internal/config"
	"github.com/phrazzld/taskqueue/internal/platform/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newServeCmd(v *viper.Viper, cfgFile *string) *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the processing loop",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), v, *cfgFile)
		},
	}

	serveCmd.Flags().Int("port", config.DefaultPort, "HTTP listen port")
	serveCmd.Flags().Duration("shutdown-timeout", 10*time.Second, "graceful shutdown timeout")
	serveCmd.Flags().String("timezone", config.DefaultTimezone, "IANA time zone for task timestamps")
	serveCmd.Flags().String("duplicate-policy", config.DefaultDuplicatePolicy,
		"what to do with a task ID that is already registered: reject | overwrite")

	bindFlag(v, "server.port", serveCmd.Flags(), "port")
	bindFlag(v, "server.shutdown_timeout", serveCmd.Flags(), "shutdown-timeout")
	bindFlag(v, "queue.timezone", serveCmd.Flags(), "timezone")
	bindFlag(v, "queue.duplicate_policy", serveCmd.Flags(), "duplicate-policy")

	return serveCmd
}

func runServe(ctx context.Context, v *viper.Viper, cfgFile string) error {
	cfg, err := config.LoadFrom(v, cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	log.Info("configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"timezone", cfg.Queue.Timezone,
		"duplicate_policy", cfg.Queue.DuplicatePolicy)

	app, err := newApplication(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.Port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", cfg.Server.Port, err)
	}

	if err := app.run(ctx, ln); err != nil {
		log.Error("taskqueue stopped with error", slog.Any("error", err))
		return err
	}
	return nil
}
