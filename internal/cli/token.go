package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lpforge/lpforge/internal/auth"
	"github.com/lpforge/lpforge/internal/store"
)

func init() {
	rootCmd.AddCommand(newTokenCmd())
}

func newTokenCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an API token for a user",
		Long: `Mint a bearer token for the dashboard / API.

Example:
  lpforge token --user you@example.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.JWTSecret == "" {
				return fmt.Errorf("no JWT secret configured (set auth.jwt_secret or LPFORGE_JWT_SECRET)")
			}

			return withStore(func(s *store.SQLiteStore) error {
				user, err := s.GetUserByEmail(context.Background(), email)
				if err != nil {
					return fmt.Errorf("user not found: %s", email)
				}

				token, err := auth.IssueToken(cfg.JWTSecret, user.ID, user.Email, cfg.TokenTTL)
				if err != nil {
					return fmt.Errorf("failed to issue token: %w", err)
				}

				fmt.Println(token)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&email, "user", "u", "", "user email (required)")
	cmd.MarkFlagRequired("user")

	return cmd
}
