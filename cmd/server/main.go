package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"studio-booking/internal/app"
	"studio-booking/internal/config"
	"studio-booking/internal/logging"
	"studio-booking/internal/server"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "studio-booking",
		Short:         "Hourly studio booking backed by a shared Google Calendar",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  runServe,
	})
	root.AddCommand(&cobra.Command{
		Use:   "check-config",
		Short: "Validate configuration and calendar access",
		RunE:  runCheckConfig,
	})

	availability := &cobra.Command{
		Use:   "availability",
		Short: "Print the busy hours of a date",
		RunE:  runAvailability,
	}
	availability.Flags().String("date", "", "date in YYYY-MM-DD")
	_ = availability.MarkFlagRequired("date")
	root.AddCommand(availability)

	return root
}

// bootstrap loads configuration and builds the App with its backends. The
// returned func releases backend connections and flushes the logger.
func bootstrap(ctx context.Context) (*app.App, config.Config, *zap.Logger, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, config.Config{}, nil, nil, err
	}
	logger, err := logging.New(!cfg.IsDevelopment(), cfg.LogLevel)
	if err != nil {
		return nil, config.Config{}, nil, nil, err
	}

	cal, err := app.NewCalendar(ctx, cfg)
	if err != nil {
		_ = logger.Sync()
		return nil, config.Config{}, nil, nil, err
	}
	locker, closeLocker, err := app.NewDateLocker(ctx, cfg.Lock)
	if err != nil {
		_ = logger.Sync()
		return nil, config.Config{}, nil, nil, err
	}

	logger.Info("configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("calendar_backend", cfg.CalendarBackend),
		zap.String("calendar_id", cfg.Google.CalendarID),
		zap.String("timezone", cfg.Studio.TimeZone),
		zap.String("lock_backend", cfg.Lock.Backend),
	)

	cleanup := func() {
		closeLocker()
		_ = logger.Sync()
	}
	return app.New(cal, cfg, locker, logger), cfg, logger, cleanup, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, cfg, logger, cleanup, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	return server.Run(ctx, server.NewRouter(a, cfg, logger), cfg.Port, logger)
}

func runCheckConfig(cmd *cobra.Command, _ []string) error {
	a, _, _, cleanup, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	d := a.Diagnose(cmd.Context())
	if err := printJSON(cmd, d); err != nil {
		return err
	}
	if d.Status != "success" {
		return fmt.Errorf("configuration check failed")
	}
	return nil
}

func runAvailability(cmd *cobra.Command, _ []string) error {
	date, _ := cmd.Flags().GetString("date")

	a, _, _, cleanup, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	busy, err := a.BusySlots(cmd.Context(), date)
	if err != nil {
		return err
	}
	return printJSON(cmd, busy)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
