package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lpforge/lpforge/internal/experiment"
	"github.com/lpforge/lpforge/internal/store"
)

func init() {
	rootCmd.AddCommand(newWinnerCmd())
}

func newWinnerCmd() *cobra.Command {
	var variantLetter string

	cmd := &cobra.Command{
		Use:   "winner <componentID>",
		Short: "Apply the winning variant to production",
		Long: `Apply the winning variant of a component's A/B test: the losing
variant's content is overwritten with the winner's. One-way, no rollback.

The test must have crossed the significance gate, and the variant you pass
must be the decided winner.

Example:
  lpforge winner 3f6c... --variant b`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			componentID := args[0]

			if variantLetter != store.VariantA && variantLetter != store.VariantB {
				return fmt.Errorf("invalid variant %q (must be a or b)", variantLetter)
			}

			return withStore(func(s *store.SQLiteStore) error {
				ctx := context.Background()

				variant, err := s.GetVariantByLetter(ctx, componentID, variantLetter)
				if err != nil {
					return fmt.Errorf("variant %q not found for component %s", variantLetter, componentID)
				}

				result, err := experiment.ApplyWinner(ctx, s, componentID, variant.ID)
				if errors.Is(err, experiment.ErrNoWinner) {
					return fmt.Errorf("test has no significant winner yet; run 'lpforge results %s'", componentID)
				}
				if errors.Is(err, experiment.ErrWrongVariant) {
					return fmt.Errorf("variant %q is not the decided winner", variantLetter)
				}
				if err != nil {
					return fmt.Errorf("failed to apply winner: %w", err)
				}

				fmt.Printf("Applied winner for component %s: variant %q\n", componentID, result.WinningVariant)
				fmt.Println("The losing variant's content now matches the winner.")
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&variantLetter, "variant", "v", "", "winning variant letter (required)")
	cmd.MarkFlagRequired("variant")

	return cmd
}
