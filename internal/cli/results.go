package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lpforge/lpforge/internal/experiment"
	"github.com/lpforge/lpforge/internal/stats"
	"github.com/lpforge/lpforge/internal/store"
)

var resultsCmd = &cobra.Command{
	Use:   "results <componentID>",
	Short: "Show A/B test results for a component",
	Long:  `Show detailed results including conversion rates, confidence intervals, and the significance verdict.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runResults,
}

func init() {
	rootCmd.AddCommand(resultsCmd)
}

func runResults(cmd *cobra.Command, args []string) error {
	componentID := args[0]

	return withStore(func(s *store.SQLiteStore) error {
		ctx := context.Background()

		component, err := s.GetComponent(ctx, componentID)
		if err != nil {
			if err == store.ErrNotFound {
				return fmt.Errorf("component '%s' not found", componentID)
			}
			return fmt.Errorf("failed to get component: %w", err)
		}

		ev, err := experiment.Recompute(ctx, s, componentID)
		if err != nil {
			return fmt.Errorf("failed to compute results: %w", err)
		}

		result, err := s.GetTestResult(ctx, componentID)
		if err != nil && err != store.ErrNotFound {
			return fmt.Errorf("failed to load test result: %w", err)
		}

		fmt.Printf("COMPONENT: %s (%s)\n", component.ID, component.Type)
		fmt.Printf("PAGE: %s\n", component.LPID)
		fmt.Println()

		fmt.Println("VARIANT  VISITORS  CONVERSIONS  RATE     95% CI")
		fmt.Println(strings.Repeat("─", 60))
		printVariantRow("a", ev.VariantA, ev.WinningVariant)
		printVariantRow("b", ev.VariantB, ev.WinningVariant)
		fmt.Println()

		fmt.Printf("Improvement: %+.1f%%  Confidence: %.1f%%\n", ev.ImprovementPct, ev.ConfidencePct)

		switch {
		case ev.IsSignificant && ev.WinningVariant != "":
			fmt.Printf("Verdict: significant, variant \"%s\" wins\n", ev.WinningVariant)
		case ev.WinningVariant != "":
			fmt.Printf("Verdict: variant \"%s\" is leading (needs %d conversions per variant)\n",
				ev.WinningVariant, stats.MinConversions)
		default:
			fmt.Println("Verdict: not enough data to determine a winner")
		}

		if result != nil && result.Applied {
			fmt.Printf("Winner applied to production at %s\n", result.AppliedAt.Format("2006-01-02 15:04"))
		}

		return nil
	})
}

func printVariantRow(letter string, v stats.VariantAggregate, winner string) {
	indicator := ""
	if letter == winner {
		indicator = " ← LEADING"
	}

	lower, upper := stats.WilsonInterval(v.Conversions, v.Visitors, 0.95)
	ciStr := fmt.Sprintf("[%.1f%%, %.1f%%]", lower*100, upper*100)
	if v.Visitors == 0 {
		ciStr = "N/A"
	}

	fmt.Printf("%-7s  %-8d  %-11d  %-7s  %s%s\n",
		letter, v.Visitors, v.Conversions, formatPercent(v.Rate), ciStr, indicator)
}

func formatPercent(rate float64) string {
	if rate == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.2f%%", rate*100)
}
