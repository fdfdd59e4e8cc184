package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kagebridge/gravitybridge/internal/cdp"
	"github.com/kagebridge/gravitybridge/internal/config"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Probe configured discovery ports and report target availability",
	RunE:  runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	store, err := config.NewStore()
	if err != nil {
		return fmt.Errorf("doctor: %w", err)
	}
	settings := store.Get()
	ports := settings.Discovery.Ports
	if len(ports) == 0 {
		ports = cdp.DefaultPorts
	}

	ctx := context.Background()
	found := false
	for _, port := range ports {
		targets, err := cdp.DiscoverTargets(ctx, port)
		if err != nil {
			fmt.Printf("port %d: unreachable (%v)\n", port, err)
			continue
		}
		fmt.Printf("port %d: %d target(s)\n", port, len(targets))
		for _, t := range targets {
			fmt.Printf("  - %s %q %s\n", t.Kind, t.Title, t.URL)
		}
		if len(targets) > 0 {
			found = true
		}
	}

	if !found {
		fmt.Fprintln(os.Stderr, "doctor: no reachable debug targets on any configured port")
		os.Exit(1)
	}
	return nil
}
