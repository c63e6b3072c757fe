package main

import (
	"github.com/attyx/assistant/internal/chat"
	"github.com/attyx/assistant/internal/tui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

func newTUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Full-screen terminal chat client",
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

			program := tea.NewProgram(tui.New(client), tea.WithAltScreen())
			_, err = program.Run()
			return err
		},
	}
}
