package commands

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tsubouchi/vn-offshore-apiserver/internal/cli/client"
	"github.com/tsubouchi/vn-offshore-apiserver/internal/cli/config"
	"github.com/tsubouchi/vn-offshore-apiserver/internal/cli/tui"
	"github.com/tsubouchi/vn-offshore-apiserver/internal/cli/ui"
)

// chatCmd is the chat command
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "start interactive chat with the assistant",
	Long: `Start an interactive chat session with the marketplace assistant.

The reply streams into the terminal word by word. Earlier turns of the
session are sent along as context, so follow-up questions work.`,
	Example: `  # Start interactive chat
  $ assistctl chat

  # Keyboard controls:
  • Enter sends the typed message
  • Esc quits the session`,
	RunE: runChat,
}

func init() {
	chatCmd.SilenceUsage = true
}

func runChat(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		ui.PrintError("unexpected argument: %s", args[0])
		fmt.Println("\nRun 'assistctl chat' to start interactive session.")
		return fmt.Errorf("invalid arguments")
	}

	cfg, err := config.Load()
	if err != nil {
		ui.PrintError("failed to load config: %v", err)
		return fmt.Errorf("config load failed")
	}

	apiClient, err := client.NewAPIClient(cfg.Server)
	if err != nil {
		ui.PrintError("failed to create client: %v", err)
		return fmt.Errorf("client creation failed")
	}

	conversationID := uuid.New().String()
	program := tui.NewChatProgram(apiClient, conversationID, cfg.UserID, cfg.CompanyID)
	if err := program.Run(); err != nil {
		return fmt.Errorf("failed to run chat TUI: %w", err)
	}

	return nil
}
