package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/chronoface/internal/ai"
	"github.com/kozaktomas/chronoface/internal/config"
	"github.com/kozaktomas/chronoface/internal/detect"
	"github.com/kozaktomas/chronoface/internal/pipeline"
	"github.com/kozaktomas/chronoface/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the Chronoface web server.
The API drives photo scans, streams run progress, serves the face review
surface and renders collages.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides CHRONOFACE_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides CHRONOFACE_HOST)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if port := mustGetInt(cmd, "port"); port != 0 {
		cfg.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Host = host
	}
	if err := cfg.EnsureDirs(); err != nil {
		return err
	}

	client := detect.NewClient(cfg.Detect.URL)
	manager := pipeline.NewManager(cfg, client)

	provider, err := ai.NewFromConfig(cmd.Context(), cfg)
	if err != nil {
		if !errors.Is(err, ai.ErrNoProvider) {
			return err
		}
		log.Info().Msg("no AI provider configured, name suggestions disabled")
		provider = nil
	} else {
		log.Info().Str("provider", provider.Name()).Msg("AI name suggestions enabled")
	}

	server := web.NewServer(cfg, manager, provider)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
