package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tsubouchi/vn-offshore-apiserver/internal/cli/client"
	"github.com/tsubouchi/vn-offshore-apiserver/internal/cli/config"
	"github.com/tsubouchi/vn-offshore-apiserver/internal/cli/types"
	"github.com/tsubouchi/vn-offshore-apiserver/internal/cli/ui"
)

var (
	askLanguage string
	askSession  string
)

// askCmd is the ask command
var askCmd = &cobra.Command{
	Use:   "ask <message>",
	Short: "ask the concierge a one-shot question",
	Long: `Send a single question to the concierge endpoint and print the reply
together with the detected intent and suggested follow-up questions.

Pass --session to continue an earlier session, so the concierge keeps
the conversation context.`,
	Example: `  # Ask in the configured language
  $ assistctl ask "料金について教えてください"

  # Ask in English
  $ assistctl ask -l en "How does vendor registration work?"

  # Continue a session
  $ assistctl ask --session 9f1c...d2 "What about support?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askLanguage, "language", "l", "", "Reply language: ja, en, vi (defaults to configured language)")
	askCmd.Flags().StringVar(&askSession, "session", "", "Session ID to continue")

	askCmd.SilenceUsage = true
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		ui.PrintError("failed to load config: %v", err)
		return fmt.Errorf("config load failed")
	}

	language := askLanguage
	if language == "" {
		language = cfg.Language
	}

	apiClient, err := client.NewAPIClient(cfg.Server)
	if err != nil {
		ui.PrintError("failed to create client: %v", err)
		return fmt.Errorf("client creation failed")
	}

	req := &types.ConciergeRequest{
		Message:   strings.Join(args, " "),
		SessionID: askSession,
		Language:  language,
		Metadata:  map[string]string{"page": "cli"},
	}

	resp, err := apiClient.Ask(ctx, req)
	if err != nil {
		ui.PrintErrorBox("Ask Failed", err.Error())
		return fmt.Errorf("ask failed")
	}

	fmt.Println(resp.Response)
	fmt.Println()
	ui.PrintInfo("intent: %s, session: %s", resp.Intent, resp.SessionID)
	if len(resp.QuickReplies) > 0 {
		ui.PrintBold("Suggested follow-ups:")
		for _, r := range resp.QuickReplies {
			fmt.Printf("  • %s\n", r)
		}
	}

	return nil
}
