package cli

import (
	"context"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/lpforge/lpforge/internal/auth"
	"github.com/lpforge/lpforge/internal/store"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Set up the workspace interactively",
	Long: `Create the owner account and the first landing page, then print an
API token for the dashboard.

Example:
  lpforge init`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.JWTSecret == "" {
		return fmt.Errorf("no JWT secret configured (set auth.jwt_secret or LPFORGE_JWT_SECRET)")
	}

	emailPrompt := promptui.Prompt{
		Label: "Owner email",
		Validate: func(input string) error {
			if input == "" {
				return fmt.Errorf("email is required")
			}
			return nil
		},
	}
	email, err := emailPrompt.Run()
	if err != nil {
		return err
	}

	namePrompt := promptui.Prompt{Label: "Owner name"}
	name, err := namePrompt.Run()
	if err != nil {
		return err
	}

	passwordPrompt := promptui.Prompt{
		Label: "Password",
		Mask:  '*',
		Validate: func(input string) error {
			if len(input) < 8 {
				return fmt.Errorf("password must be at least 8 characters")
			}
			return nil
		},
	}
	password, err := passwordPrompt.Run()
	if err != nil {
		return err
	}

	pagePrompt := promptui.Prompt{Label: "First landing page name", Default: "My landing page"}
	pageName, err := pagePrompt.Run()
	if err != nil {
		return err
	}

	return withStore(func(s *store.SQLiteStore) error {
		ctx := context.Background()

		if _, err := s.GetUserByEmail(ctx, email); err == nil {
			return fmt.Errorf("user %s already exists", email)
		}

		hash, err := auth.HashPassword(password, cfg.BcryptCost)
		if err != nil {
			return err
		}

		user, err := s.CreateUser(ctx, email, name, hash, "owner")
		if err != nil {
			return fmt.Errorf("failed to create owner: %w", err)
		}

		lp, err := s.CreateLandingPage(ctx, user.ID, pageName, "")
		if err != nil {
			return fmt.Errorf("failed to create landing page: %w", err)
		}

		token, err := auth.IssueToken(cfg.JWTSecret, user.ID, user.Email, cfg.TokenTTL)
		if err != nil {
			return fmt.Errorf("failed to issue token: %w", err)
		}

		fmt.Printf("\nCreated owner '%s' and landing page '%s' (%s)\n", user.Email, lp.Name, lp.ID)
		fmt.Printf("\nAPI token:\n  %s\n", token)
		fmt.Println("\nStart the server with: lpforge serve")
		return nil
	})
}
