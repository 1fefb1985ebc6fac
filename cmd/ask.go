package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var askChatID string

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the agent a one-shot question",
	Long: `Ask sends a single question and prints the answer. Pass --chat with a
previously printed chat id to continue a conversation.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askChatID, "chat", "", "existing chat id to continue")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	rt, err := setup(ctx)
	if err != nil {
		return err
	}
	defer rt.close()

	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return fmt.Errorf("question is empty")
	}

	turn, err := rt.agent.Send(ctx, askChatID, question)
	if err != nil {
		return fmt.Errorf("generating answer: %w", err)
	}

	fmt.Println(turn.Answer)
	fmt.Println()
	fmt.Printf("chat id: %s (pass --chat %s to continue)\n", turn.ChatID, turn.ChatID)
	return nil
}
