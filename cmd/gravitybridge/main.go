// Command gravitybridge bridges a Discord or Telegram channel to a running
// desktop assistant's chrome-devtools-protocol debug endpoint (spec.md §6).
// It exposes four subcommands: setup, start, doctor, open.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "gravitybridge",
	Short: "Bridge a chat channel to a desktop assistant over CDP",
}

func main() {
	rootCmd.AddCommand(setupCmd, startCmd, doctorCmd, openCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
