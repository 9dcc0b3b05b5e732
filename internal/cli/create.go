package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lpforge/lpforge/internal/store"
)

func init() {
	rootCmd.AddCommand(newCreateCmd())
}

func newCreateCmd() *cobra.Command {
	var (
		ownerEmail    string
		componentType string
		lpID          string
		position      int
		htmlA         string
		htmlB         string
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a landing page, or a component on an existing page",
		Long: `Create a landing page owned by a user, or (with --lp) an A/B-tested
component with two variants.

Examples:
  lpforge create "Spring launch" --owner you@example.com
  lpforge create hero --lp <lpID> --type hero --html-a hero_a.html --html-b hero_b.html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			return withStore(func(s *store.SQLiteStore) error {
				ctx := context.Background()

				if lpID == "" {
					if ownerEmail == "" {
						return fmt.Errorf("--owner is required when creating a landing page")
					}
					owner, err := s.GetUserByEmail(ctx, ownerEmail)
					if err != nil {
						return fmt.Errorf("owner not found: %s", ownerEmail)
					}
					lp, err := s.CreateLandingPage(ctx, owner.ID, name, "")
					if err != nil {
						return fmt.Errorf("failed to create landing page: %w", err)
					}
					fmt.Printf("Created landing page '%s' (%s)\n", lp.Name, lp.ID)
					return nil
				}

				if componentType == "" {
					componentType = name
				}

				contentA, err := readFileOr(htmlA, "")
				if err != nil {
					return err
				}
				contentB, err := readFileOr(htmlB, contentA)
				if err != nil {
					return err
				}

				component, err := s.CreateComponent(ctx, lpID, componentType, position, nil)
				if err != nil {
					return fmt.Errorf("failed to create component: %w", err)
				}
				if _, err := s.CreateVariant(ctx, component.ID, store.VariantA, contentA, "", ""); err != nil {
					return fmt.Errorf("failed to create variant a: %w", err)
				}
				if _, err := s.CreateVariant(ctx, component.ID, store.VariantB, contentB, "", ""); err != nil {
					return fmt.Errorf("failed to create variant b: %w", err)
				}

				fmt.Printf("Created component '%s' (%s) on page %s with variants a/b\n", componentType, component.ID, lpID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&ownerEmail, "owner", "", "owner email (when creating a page)")
	cmd.Flags().StringVar(&lpID, "lp", "", "landing page id (when creating a component)")
	cmd.Flags().StringVar(&componentType, "type", "", "component type (hero, cta, ...)")
	cmd.Flags().IntVar(&position, "position", 0, "render position")
	cmd.Flags().StringVar(&htmlA, "html-a", "", "file with variant a HTML")
	cmd.Flags().StringVar(&htmlB, "html-b", "", "file with variant b HTML")

	return cmd
}

func readFileOr(path, fallback string) (string, error) {
	if path == "" {
		return fallback, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}
