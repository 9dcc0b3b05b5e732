package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lpforge/lpforge/internal/store"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List landing pages",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	return withStore(func(s *store.SQLiteStore) error {
		ctx := context.Background()

		pages, err := s.ListLandingPages(ctx, "")
		if err != nil {
			return fmt.Errorf("failed to list pages: %w", err)
		}

		if len(pages) == 0 {
			fmt.Println("No landing pages yet. Create one with: lpforge create <name> --owner <email>")
			return nil
		}

		fmt.Println("ID                                    NAME                STATUS     COMPONENTS  CREATED")
		fmt.Println(strings.Repeat("─", 96))

		for _, lp := range pages {
			components, err := s.ListComponents(ctx, lp.ID)
			if err != nil {
				return fmt.Errorf("failed to list components: %w", err)
			}

			name := lp.Name
			if len(name) > 18 {
				name = name[:15] + "..."
			}

			fmt.Printf("%s  %-18s  %-9s  %-10d  %s\n",
				lp.ID,
				name,
				lp.Status,
				len(components),
				lp.CreatedAt.Format("2006-01-02"),
			)
		}

		return nil
	})
}
