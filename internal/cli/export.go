package cli

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/lpforge/lpforge/internal/store"
)

func init() {
	rootCmd.AddCommand(newExportCmd())
}

func newExportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export <lpID>",
		Short: "Export a page's raw event log as CSV",
		Long: `Export every tracked event for a landing page as CSV, for analysis
outside lpforge.

Example:
  lpforge export 3f6c... -o events.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lpID := args[0]

			return withStore(func(s *store.SQLiteStore) error {
				events, err := s.ListEvents(context.Background(), lpID)
				if err != nil {
					return fmt.Errorf("failed to load events: %w", err)
				}

				out := os.Stdout
				if output != "" {
					f, err := os.Create(output)
					if err != nil {
						return fmt.Errorf("failed to create %s: %w", output, err)
					}
					defer f.Close()
					out = f
				}

				w := csv.NewWriter(out)
				defer w.Flush()

				if err := w.Write([]string{"id", "session_id", "component_id", "variant", "event_type", "payload", "created_at"}); err != nil {
					return err
				}
				for _, e := range events {
					record := []string{
						strconv.FormatInt(e.ID, 10),
						e.SessionID,
						e.ComponentID,
						e.Variant,
						e.EventType,
						string(e.Payload),
						e.CreatedAt.Format(time.RFC3339),
					}
					if err := w.Write(record); err != nil {
						return err
					}
				}

				if output != "" {
					fmt.Printf("Exported %d events to %s\n", len(events), output)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")

	return cmd
}
