package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/qnagen/internal/server"
)

var serverPort int

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the HTTP generation API",
	Long:  `Starts the qnagen HTTP server exposing POST /api/generate, the usage log endpoints, /healthz and /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = serverPort
		}

		srv := server.New(server.Config{
			Port:     port,
			AllowAll: cfg.Server.AllowAllCORS,
		}, a.db, a.orchestrator)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Fprintf(os.Stderr, "qnagen server v%s starting on port %d\n", Version, port)
		fmt.Fprintf(os.Stderr, "  Provider:  %s (lite=%s, premium=%s)\n", cfg.Provider, cfg.Models.Lite, cfg.Models.Premium)
		fmt.Fprintf(os.Stderr, "  Usage log: %s\n", a.db.Path())

		return serve(ctx, srv, 30*time.Second)
	},
}

// httpService is the part of server.Server that serve drives.
type httpService interface {
	Start() error
	Shutdown(ctx context.Context) error
}

// serve runs srv until ctx is done, then shuts it down. It returns only
// after Shutdown has finished, so in-flight runs complete before the
// caller closes the usage writer.
func serve(ctx context.Context, srv httpService, grace time.Duration) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		fmt.Fprintln(os.Stderr, "\nShutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("server shutdown", "error", err)
		}
	}()

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-done
	return nil
}

func init() {
	serverCmd.Flags().IntVar(&serverPort, "port", 8080, "Port to listen on (overrides server.port)")
	rootCmd.AddCommand(serverCmd)
}
