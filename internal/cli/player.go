package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/curzel-it/battld/internal/api/request"
	"github.com/curzel-it/battld/internal/api/response"
)

func newPlayerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "player",
		Short: "Player account commands",
	}

	cmd.AddCommand(newPlayerAuthCmd("register", "Register a new player account", "/api/v1/players/register"))
	cmd.AddCommand(newPlayerAuthCmd("login", "Login with an existing account", "/api/v1/players/login"))
	cmd.AddCommand(newPlayerMeCmd())

	return cmd
}

// newPlayerAuthCmd builds register and login, which differ only by endpoint
func newPlayerAuthCmd(use, short, path string) *cobra.Command {
	var name, secret string

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := request.RegisterRequest{Name: name, Secret: secret}
			var result response.AuthResponse

			if err := client.Post(path, req, &result); err != nil {
				return err
			}

			// Save token
			if err := cfg.SaveToken(result.Token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Player name (required)")
	cmd.Flags().StringVar(&secret, "secret", "", "Player secret (required)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("secret")

	return cmd
}

func newPlayerMeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show current player info",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Player

			if err := client.Get("/api/v1/players/me", &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
}
