package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tradia/signals/internal/api"
	"github.com/tradia/signals/internal/api/handlers"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the REST API server",
	Long: `Starts the HTTP API serving signals, outcomes and statistics.

Endpoints:
  GET /health
  GET /api/signals/latest
  GET /api/signals/top5
  GET /api/signals/day?date=YYYY-MM-DD
  GET /api/signals/search?ticker=AAPL
  GET /api/signals/{id}
  GET /api/signals/{id}/checks
  GET /api/outcomes/open
  GET /api/stats/summary

Example:
  go run ./cmd/tradia api --port 8080`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (overrides PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	signalHandler := handlers.NewSignalHandler(a.signals, a.outcomes, a.log)
	statsHandler := handlers.NewStatsHandler(a.stats, a.log)
	router := api.NewRouter(signalHandler, statsHandler, a.log)
	server := api.New(a.cfg, a.log, router)

	go func() {
		if err := server.Start(); err != nil {
			a.log.WithError(err).Fatal("failed to start server")
		}
	}()

	a.log.WithField("port", a.cfg.Port).Info("API server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return nil
}
