package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jobtrail/jobtrail/internal/config"
	"github.com/jobtrail/jobtrail/internal/di"
	"github.com/jobtrail/jobtrail/internal/scanner"
	"github.com/jobtrail/jobtrail/internal/session"
	"github.com/jobtrail/jobtrail/internal/store"
	"go.uber.org/zap"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	cfg *config.Config,
	sched *scanner.Scheduler,
	registry *session.Registry,
	st *store.SQLStore,
) error {
	defer logger.Sync()

	scannerCfg := cfg.GetScanner()

	// Scanning begins as soon as the credential layer registers a
	// session's mailbox handle.
	registry.OnRegister(func(sessionID string) {
		sched.Start(sessionID, scannerCfg.Query, scannerCfg.MaxResults)
	})

	logger.Info("jobtrail started, waiting for sessions",
		zap.String("query", scannerCfg.Query),
		zap.Int("max_results", scannerCfg.MaxResults))

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Shutting down...")

	sched.StopAll()

	if err := st.Close(); err != nil {
		logger.Error("Failed to close store", zap.Error(err))
	}

	logger.Info("Shutdown complete")
	return nil
}
