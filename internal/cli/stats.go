package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/curzel-it/battld/internal/api/response"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats [player-id]",
		Short: "Show a player's match record (defaults to you)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var playerID string
			if len(args) == 1 {
				playerID = args[0]
			} else {
				var me response.Player
				if err := client.Get("/api/v1/players/me", &me); err != nil {
					return err
				}
				playerID = me.ID
			}

			var result response.Stats
			if err := client.Get("/api/v1/players/"+url.PathEscape(playerID)+"/stats", &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
}

func newLeaderboardCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the best players by score",
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive")
			}

			var result response.Leaderboard
			if err := client.Get(fmt.Sprintf("/api/v1/leaderboard?limit=%d", limit), &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Number of players to show")

	return cmd
}
