package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"access-reconcile-service/internal/domain/entity"
	"access-reconcile-service/internal/infrastructure/config"
	"access-reconcile-service/internal/interface/httpapi"
	"access-reconcile-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "access-reconcile",
		Short:         "Reconcile building lock access with the owner register",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(syncCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(locksCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads configuration and creates the logger every command shares
func setup() (*config.Config, *logger.ZapLogger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, logger.NewLoggerWithLevel(cfg.LogLevel), nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func syncCmd() *cobra.Command {
	var dryRun, showAccess bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one sync and print the run report",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			if dryRun {
				cfg.Storage.Sinks = nil
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			a, err := buildApp(ctx, cfg, prometheus.NewRegistry(), log)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			report, runErr := a.orchestrator.Run(ctx)
			if report != nil {
				if err := renderSummary(cmd.OutOrStdout(), report); err != nil {
					return err
				}
			}
			if runErr != nil {
				return runErr
			}

			if showAccess {
				if last := a.orchestrator.LastRun(); last != nil {
					return renderAccess(cmd.OutOrStdout(), last.Registry)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "fetch and reconcile without writing to any sink")
	cmd.Flags().BoolVar(&showAccess, "access", false, "print every holder with the locks they can open")
	return cmd
}

func serveCmd() *cobra.Command {
	var runOnStart bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and run syncs on a schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(cfg, log, runOnStart)
		},
	}

	cmd.Flags().BoolVar(&runOnStart, "run-on-start", false, "start a sync as soon as the server is up")
	return cmd
}

func serve(cfg *config.Config, log logger.Logger, runOnStart bool) error {
	log.Info("Starting access reconcile service", "version", cfg.AppVersion)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := buildApp(ctx, cfg, prometheus.DefaultRegisterer, log)
	if err != nil {
		return err
	}

	syncJob := func() {
		if _, err := a.orchestrator.Run(ctx); err != nil && !errors.Is(err, entity.ErrRunInProgress) {
			log.Error("Scheduled sync failed", "error", err)
		}
	}

	scheduler := cron.New(
		cron.WithSeconds(),
		cron.WithChain(
			cron.SkipIfStillRunning(cron.DefaultLogger),
			cron.Recover(cron.DefaultLogger),
		),
	)
	if _, err := scheduler.AddFunc(cfg.SyncSchedule, syncJob); err != nil {
		a.Close(ctx)
		return fmt.Errorf("invalid sync schedule %q: %w", cfg.SyncSchedule, err)
	}
	scheduler.Start()
	log.Info("Sync scheduled", "schedule", cfg.SyncSchedule)

	if runOnStart {
		go syncJob()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	api := httpapi.NewAPI(ctx, a.orchestrator, a.normalizer, prometheus.DefaultGatherer, cfg.AppVersion, log)
	api.RegisterRoutes(router)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start HTTP server in a goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info("Received signal", "signal", sig)

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
	}

	cancel()

	// Wait for running syncs to observe cancellation
	stopped := make(chan struct{})
	go func() {
		<-scheduler.Stop().Done()
		api.Wait()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-shutdownCtx.Done():
		log.Warn("Sync did not stop before the shutdown deadline")
	}

	a.Close(shutdownCtx)
	log.Info("Access reconcile service stopped")
	return nil
}

func locksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "locks",
		Short: "List the locks the sync would read",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, cancel := signalContext()
			defer cancel()

			// Only the lock API is needed here
			cfg.Storage.Sinks = nil
			a, err := buildApp(ctx, cfg, prometheus.NewRegistry(), log)
			if err != nil {
				return err
			}

			locks, err := a.orchestrator.ResolveLocks(ctx)
			if err != nil {
				return err
			}
			return renderLocks(cmd.OutOrStdout(), locks)
		},
	}
}
