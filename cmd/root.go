// Package cmd implements the amrfleet CLI: serve runs the full system,
// run posts a test run against an already-running instance.
package cmd

import (
	"github.com/spf13/cobra"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "amrfleet",
	Short: "Deterministic AMR fleet simulator and dispatcher",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (YAML or JSON)")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }
