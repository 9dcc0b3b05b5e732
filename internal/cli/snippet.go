package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lpforge/lpforge/internal/store"
)

func init() {
	rootCmd.AddCommand(newSnippetCmd())
}

func newSnippetCmd() *cobra.Command {
	var serverURL string

	cmd := &cobra.Command{
		Use:   "snippet <lpID>",
		Short: "Print the embed snippet for a landing page",
		Long: `Print the script tag and bootstrap object to embed on a page that
should be tracked by lpforge.

Example:
  lpforge snippet 3f6c... --server https://lp.example.com`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lpID := args[0]

			return withStore(func(s *store.SQLiteStore) error {
				lp, err := s.GetLandingPage(context.Background(), lpID)
				if err != nil {
					return fmt.Errorf("landing page '%s' not found", lpID)
				}

				fmt.Printf("Embed snippet for '%s':\n\n", lp.Name)
				fmt.Printf(`<script>
  window.lpforge = {
    lpId: %q,
    sessionId: /* sessionId from GET %s/api/public/lp/%s */
  };
</script>
<script src=%q defer></script>
`, lp.ID, serverURL, lp.ID, serverURL+"/lp.js")
				fmt.Println()
				fmt.Println("Mark testable sections with data-lp-component / data-lp-variant attributes.")
				fmt.Println("Call window.lpforgeConvert(componentId, variant) on your conversion action.")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "public server URL")

	return cmd
}
