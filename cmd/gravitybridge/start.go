package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/kagebridge/gravitybridge/internal/config"
	"github.com/kagebridge/gravitybridge/internal/paths"
	"github.com/kagebridge/gravitybridge/internal/repo"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the bridge daemon in the foreground",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStart(false)
	},
}

// runStart acquires the single-instance lock, builds the daemon, and blocks
// until a shutdown signal arrives. withDashboard additionally attaches the
// tui status dashboard in this same process (the `open` subcommand's body).
func runStart(withDashboard bool) error {
	log.SetPrefix("[gravitybridge] ")
	log.SetOutput(os.Stderr)

	lockPath := filepath.Join(paths.GetGlobalDir(), "gravitybridge.lock")
	if err := paths.EnsureDir(filepath.Dir(lockPath)); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	fileLock := flock.New(lockPath)
	locked, err := fileLock.TryLock()
	if err != nil {
		return fmt.Errorf("start: acquiring lock %s: %w", lockPath, err)
	}
	if !locked {
		return fmt.Errorf("start: another gravitybridge instance is already running (lock held at %s)", lockPath)
	}
	defer fileLock.Unlock()

	store, err := config.NewStore()
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	fileRepo, err := repo.NewFileRepository()
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}

	d := newDaemon(store.Get(), fileRepo, log.Default())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutting down...")
		cancel()
	}()

	if withDashboard {
		return runWithDashboard(ctx, d)
	}
	return d.Run(ctx)
}
