package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/attyx/assistant/internal/config"
	"github.com/attyx/assistant/internal/db"
	"github.com/attyx/assistant/internal/feed"
	"github.com/attyx/assistant/internal/server"
	"github.com/attyx/assistant/internal/store"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the assistant server (proxy, store, realtime feed)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			conn, err := openStore(cfg)
			if err != nil {
				return err
			}
			if err := db.AutoMigrate(conn); err != nil {
				return err
			}

			broker := feed.NewBroker()
			st, err := store.New(conn, broker)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return server.Start(ctx, server.StartOpts{
				Store:  st,
				Broker: broker,
				Config: cfg,
				Out:    cmd.OutOrStdout(),
			})
		},
	}
}

// loadConfig reads the --config file, falling back to defaults when the
// file does not exist.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.Default(), nil
	}
	return config.Load(path)
}

// openStore connects to the configured message store backend.
func openStore(cfg *config.Config) (*gorm.DB, error) {
	switch cfg.Store.Driver {
	case "mysql":
		return db.Connect(cfg.Store.Host, cfg.Store.Port, cfg.Store.Database)
	case "sqlite":
		return db.ConnectSQLite(cfg.Store.Path)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
