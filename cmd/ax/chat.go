package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/attyx/assistant/internal/chat"
	"github.com/spf13/cobra"
)

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Line-mode chat client",
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

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Session %s. Type a message, /help for commands\n", client.SessionID())

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			go printUpdates(ctx, client, out)

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				if strings.HasPrefix(line, "/") {
					if quit := runChatCommand(ctx, client, out, line); quit {
						return nil
					}
					continue
				}
				go func(text string) {
					if err := client.Submit(ctx, text); err != nil {
						// The error is already in the ledger as a system
						// message; nothing more to do here.
						_ = err
					}
				}(line)
			}
			return scanner.Err()
		},
	}
}

// runChatCommand handles slash commands. Returns true on /quit.
func runChatCommand(ctx context.Context, client *chat.Client, out io.Writer, line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/q":
		return true
	case "/new":
		id := client.NewSession(ctx)
		fmt.Fprintf(out, "New session %s\n", id)
	case "/switch":
		if len(fields) < 2 {
			fmt.Fprintln(out, "usage: /switch <session-id>")
			break
		}
		client.Switch(ctx, fields[1])
		fmt.Fprintf(out, "Switched to %s\n", fields[1])
	case "/sessions":
		for _, s := range client.Sessions(ctx) {
			fmt.Fprintf(out, "%s  %q\n", s.ID, s.Title)
		}
	case "/view":
		fmt.Fprintf(out, "Current view: %s\n", client.Views().Current())
	case "/help":
		fmt.Fprintln(out, "/new  /switch <id>  /sessions  /view  /quit")
	default:
		fmt.Fprintf(out, "Unknown command %s\n", fields[0])
	}
	return false
}

// printUpdates tails the ledger, printing messages as they arrive. A
// shrink means the session switched and the transcript restarts.
func printUpdates(ctx context.Context, client *chat.Client, out io.Writer) {
	seen := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-client.Updates():
			msgs := client.Ledger().Messages()
			if len(msgs) < seen {
				seen = 0
			}
			for _, msg := range msgs[seen:] {
				printMessage(out, msg)
			}
			seen = len(msgs)
		}
	}
}

func printMessage(out io.Writer, msg chat.Message) {
	prefix := "assistant"
	switch msg.Role {
	case chat.RoleUser:
		prefix = "you"
	case chat.RoleSystem:
		prefix = "system"
	}
	suffix := ""
	switch msg.Status {
	case chat.StatusSending:
		suffix = " (sending...)"
	case chat.StatusError:
		suffix = " (failed)"
	}
	fmt.Fprintf(out, "[%s] %s%s\n", prefix, msg.Content, suffix)
}
