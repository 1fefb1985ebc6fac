package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lorewarden/lorewarden/internal/config"
	"github.com/lorewarden/lorewarden/internal/log"
	"github.com/lorewarden/lorewarden/internal/session"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List stored chat sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSessions()
	},
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
}

func runSessions() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store, err := session.Open(cfg.StorePath, log.NewNop())
	if err != nil {
		return err
	}
	defer store.Close()

	infos, err := store.List(context.Background())
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}

	if len(infos) == 0 {
		fmt.Println("No stored sessions.")
		return nil
	}

	fmt.Printf("%-36s  %s\n", "CHAT ID", "MESSAGES")
	for _, info := range infos {
		fmt.Printf("%-36s  %d\n", info.ID, info.MessageCount)
	}
	return nil
}
