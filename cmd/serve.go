package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/logging"
	"github.com/kozaktomas/face-attendance/internal/web"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the Face Attendance API server.
Kiosks call /api/v1/faces/verify with a kiosk token; enrolment, cache and
health endpoints require a manager token (see "token issue").`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().Bool("no-warmup", false, "Skip building the encoding cache at startup")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host
}

// startPruneScheduler runs template pruning on the configured cron schedule.
// Returns nil when no schedule or no template limit is set.
func startPruneScheduler(svc *attendance.Service, cfg config.RecognitionConfig, log logrus.FieldLogger) (*gocron.Scheduler, error) {
	if cfg.PruneSchedule == "" || cfg.MaxTemplates <= 0 {
		return nil, nil
	}

	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	_, err := s.Cron(cfg.PruneSchedule).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), constants.StoreTimeout)
		defer cancel()
		if _, err := svc.Prune(ctx, cfg.MaxTemplates); err != nil {
			logging.SystemError(log, "prune", err, nil)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid FACE_PRUNE_SCHEDULE %q: %w", cfg.PruneSchedule, err)
	}
	s.StartAsync()
	return s, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	log := logging.New(cfg.Log)

	if cfg.Auth.JWTSecret == "" {
		return errors.New("AUTH_JWT_SECRET environment variable is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fmt.Printf("Connecting to PostgreSQL database...\n")
	b, err := openBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.Close()

	if !mustGetBool(cmd, "no-warmup") {
		if n, err := b.service.RefreshCache(ctx); err != nil {
			fmt.Printf("Warning: failed to build encoding cache: %v\n", err)
		} else {
			fmt.Printf("Encoding cache built with %d employees\n", n)
		}
	}

	if b.broadcaster != nil {
		go b.broadcaster.Listen(ctx, b.cache)
		fmt.Printf("Listening for cache invalidations on %s\n", cfg.Redis.Channel)
	}
	if b.publisher != nil {
		fmt.Printf("Publishing attendance events to queue %s\n", cfg.RabbitMQ.Queue)
	}

	scheduler, err := startPruneScheduler(b.service, cfg.Recognition, log)
	if err != nil {
		return err
	}
	if scheduler != nil {
		fmt.Printf("Template pruning scheduled (%s, keep %d)\n", cfg.Recognition.PruneSchedule, cfg.Recognition.MaxTemplates)
		defer scheduler.Stop()
	}

	port, host := resolveServeHostPort(cmd)
	server := web.NewServer(cfg, port, host, b.service, b.checker, log)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Face Attendance API on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
