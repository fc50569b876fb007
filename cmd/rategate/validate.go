package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"markethq/rategate/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a venue rule file",
	Long: `Load a venue rule file, apply defaults, and check it for problems.

All validation errors are reported at once, not just the first.

Examples:
  # Validate the default rule file
  rategate validate

  # Validate a specific file
  rategate validate --config examples/binance-spot.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	venue, err := config.Load(cfgFile)
	if err != nil {
		var verr config.ValidationError
		if errors.As(err, &verr) {
			fmt.Printf("✗ %s: %d problem(s)\n\n", cfgFile, len(verr.Errors))
			for _, fe := range verr.Errors {
				fmt.Printf("  %s: %s\n", fe.Field, fe.Message)
			}
			return fmt.Errorf("validation failed")
		}
		return fmt.Errorf("failed to load %s: %w", cfgFile, err)
	}

	fmt.Printf("✓ %s is valid\n\n", cfgFile)
	fmt.Printf("Venue:            %s\n", venue.Venue)
	fmt.Printf("Reconcile policy: %s\n", venue.ReconcilePolicy)
	fmt.Printf("Categories:       %d\n", len(venue.Categories))
	fmt.Printf("Path rules:       %d\n", len(venue.Rules))
	fmt.Printf("Header rules:     %d\n", len(venue.Headers))
	if len(venue.Tiers) > 0 {
		fmt.Printf("Tier tables:      %d\n", len(venue.Tiers))
	}

	if verbose {
		fmt.Println()
		for _, cat := range venue.Categories {
			fmt.Printf("category %s:\n", cat.Name)
			for _, w := range cat.Windows {
				fmt.Printf("  %-7s %-4s capacity=%d window=%s kind=%s\n",
					w.Dimension, w.Label, w.Capacity, w.Duration, w.Kind)
			}
		}
	}

	return nil
}
