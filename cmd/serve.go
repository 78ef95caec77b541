package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/jon4hz/evoting/internal/api"
	"github.com/jon4hz/evoting/internal/engine"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the eVoting server",
	Long:  `Start the eVoting HTTP server and the background jobs.`,
	Example: `evoting serve --config config.yml
evoting serve -c /path/to/config.yml --log-level debug
`,
	Run: startServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func startServer(cmd *cobra.Command, _ []string) {
	cfg, db, err := loadDatabase()
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close() //nolint:errcheck

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	engine, err := engine.New(cfg, db)
	if err != nil {
		log.Fatalf("failed to create engine: %v", err)
	}
	defer engine.Close() //nolint:errcheck

	if err := engine.EnsureBootstrapAdmin(ctx); err != nil {
		log.Fatalf("failed to create bootstrap admin: %v", err)
	}

	server, err := api.New(cfg, engine, log.GetLevel() == log.DebugLevel)
	if err != nil {
		log.Fatalf("failed to create API server: %v", err)
	}

	// Start the engine in a goroutine
	go func() {
		if err := engine.Run(ctx); err != nil {
			log.Error("engine error", "error", err)
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Info("starting API server", "listen", cfg.Listen)
		if err := server.Run(ctx); err != nil {
			log.Error("API server error", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	log.Info("evoting started successfully")
	select {
	case <-c:
		log.Info("shutting down gracefully...")
	case <-done:
	}

	cancel()
	<-done
}
