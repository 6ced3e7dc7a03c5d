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

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/photo-variator/internal/config"
	"github.com/fpang/photo-variator/internal/jobs"
	"github.com/fpang/photo-variator/internal/logging"
	"github.com/fpang/photo-variator/internal/s3util"
	"github.com/fpang/photo-variator/internal/server"
	"github.com/fpang/photo-variator/internal/variation"
)

// Build-time version identity, injected via -ldflags.
var commitHash = "dev"

// CLI flags
var portFlag string

var rootCmd = &cobra.Command{
	Use:   "variator-web",
	Short: "HTTP API for photo variation batches",
	Long: `Variator Web starts a local HTTP server exposing the variation engine.
Upload a photo, poll the batch while it renders, preview outputs as they
appear and download the finished zip.

Examples:
  variator-web
  variator-web --port 9090
  VARIATOR_S3_BUCKET=my-bucket variator-web`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().StringVar(&portFlag, "port", "", "Port to listen on (default from config: 8080)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) {
	logging.Init()
	initStart := time.Now()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if portFlag != "" {
		cfg.Port = portFlag
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var publisher server.ArchivePublisher
	if cfg.S3Bucket != "" {
		store, err := s3util.New(ctx, cfg.S3Bucket, cfg.PresignExpiry)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialise S3 archive store")
		}
		publisher = store
	}

	mgr := jobs.NewManager(variation.NewGenerator(cfg.GeneratorOptions()), jobs.Options{
		TTL:     cfg.JobTTL,
		Surface: "web",
	})
	go mgr.RunSweeper(ctx, time.Minute)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server.New(cfg, mgr, publisher, commitHash).Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logging.NewStartupLogger("variator-web").
		Version(commitHash).
		InitDuration(time.Since(initStart)).
		S3Bucket("archives", cfg.S3Bucket).
		Feature("strictModes", cfg.StrictModes).
		Feature("s3Archives", publisher != nil).
		Config("port", cfg.Port).
		Config("defaultMode", cfg.Mode).
		Config("maxCount", fmt.Sprint(cfg.MaxCount)).
		Config("jobTTL", cfg.JobTTL.String()).
		Log()

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		log.Info().Msg("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("port", cfg.Port).Msg("Starting web server")
	fmt.Printf("\n  Variator API: http://localhost:%s/api/health\n\n", cfg.Port)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
