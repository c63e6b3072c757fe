package main

import (
	"fmt"

	"github.com/attyx/assistant/internal/chat"
	"github.com/spf13/cobra"
)

func newSessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List known chat sessions, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			client, err := chat.NewClient(chat.Options{
				ServerURL: cfg.Client.ServerURL,
				Token:     cfg.Client.Token,
				UserID:    cfg.Client.UserID,
			})
			if err != nil {
				return err
			}
			defer client.Close()

			sessions := client.Sessions(cmd.Context())
			if len(sessions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No sessions yet")
				return nil
			}
			for _, s := range sessions {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %q\n",
					s.ID, s.CreatedAt.Local().Format("2006-01-02 15:04"), s.Title)
			}
			return nil
		},
	}
}
