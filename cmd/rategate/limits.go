package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"markethq/rategate/pkg/config"
	"markethq/rategate/pkg/limits"
)

var limitsFlags struct {
	tier int
}

var limitsCmd = &cobra.Command{
	Use:   "limits",
	Short: "Show the effective limits a rule file grants",
	Long: `Build the category registry from a rule file and print the effective
capacity of every window, after tier tables are applied.

Examples:
  # Base tier limits
  rategate limits --config examples/binance-spot.yaml

  # Limits at VIP tier 2
  rategate limits --config examples/kucoin-futures.yaml --tier 2`,
	RunE: runLimits,
}

func init() {
	rootCmd.AddCommand(limitsCmd)

	limitsCmd.Flags().IntVar(&limitsFlags.tier, "tier", -1, "account tier to apply (-1 uses the rule file's tier)")
}

func runLimits(cmd *cobra.Command, args []string) error {
	venue, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", cfgFile, err)
	}

	reg, err := limits.NewRegistry(venue)
	if err != nil {
		return fmt.Errorf("failed to build registry: %w", err)
	}

	if limitsFlags.tier >= 0 {
		if err := reg.SetTier(limitsFlags.tier); err != nil {
			return err
		}
	}

	fmt.Printf("Venue: %s (tier %d)\n\n", reg.Venue(), reg.Tier())

	reporter := limits.NewReporter(reg)
	for _, snap := range reporter.All() {
		fmt.Printf("category %s:\n", snap.Category)
		for _, w := range snap.Windows {
			fmt.Printf("  %-7s %-4s limit=%d\n", w.Dimension, w.Label, w.Limit)
		}
		fmt.Println()
	}

	return nil
}
