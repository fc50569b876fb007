package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "rategate",
	Short: "Rategate - client-side admission control for venue APIs",
	Long: `Rategate enforces exchange venue rate limits on the client side.

It loads a venue rule file describing limit categories and their windows,
tracks usage across request, weight, and order dimensions, and admits or
rejects calls before they reach the venue.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "rategate.yaml", "venue rule file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
