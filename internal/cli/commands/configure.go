package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/tsubouchi/vn-offshore-apiserver/internal/cli/client"
	"github.com/tsubouchi/vn-offshore-apiserver/internal/cli/config"
	"github.com/tsubouchi/vn-offshore-apiserver/internal/cli/ui"
)

// configureCmd is the configure command
var configureCmd = &cobra.Command{
	Use:   "configure [server]",
	Short: "configure server address and reply language",
	Long: `Configure the CLI and save settings locally.

Settings are stored in ~/.assistctl/config.json and used automatically
for all subsequent commands.

If server is not provided, you are prompted for it.`,
	Example: `  # Interactive configuration
  $ assistctl configure

  # Point at a custom server
  $ assistctl configure http://api.example.com:8080`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigure,
}

func init() {
	configureCmd.SilenceUsage = true
}

func runConfigure(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		ui.PrintError("failed to load config: %v", err)
		return fmt.Errorf("config load failed")
	}

	// 1. Server from positional argument, or prompt with current value as default
	if len(args) > 0 {
		cfg.Server = args[0]
	} else {
		prompt := &survey.Input{
			Message: "Server:",
			Default: cfg.Server,
		}
		if err := survey.AskOne(prompt, &cfg.Server, survey.WithValidator(survey.Required)); err != nil {
			ui.PrintError("failed to read server: %v", err)
			return fmt.Errorf("input failed")
		}
	}

	// 2. Reply language
	langPrompt := &survey.Select{
		Message: "Reply language:",
		Options: []string{"ja", "en", "vi"},
		Default: cfg.Language,
	}
	if err := survey.AskOne(langPrompt, &cfg.Language); err != nil {
		ui.PrintError("failed to read language: %v", err)
		return fmt.Errorf("input failed")
	}

	// 3. Optional identifiers attached to chat requests
	userPrompt := &survey.Input{
		Message: "User ID (optional):",
		Default: cfg.UserID,
	}
	if err := survey.AskOne(userPrompt, &cfg.UserID); err != nil {
		ui.PrintError("failed to read user id: %v", err)
		return fmt.Errorf("input failed")
	}

	// 4. Verify the server answers
	apiClient, err := client.NewAPIClient(cfg.Server)
	if err != nil {
		ui.PrintError("invalid server: %v", err)
		return fmt.Errorf("client creation failed")
	}

	ui.PrintInfo("Checking %s...", cfg.Server)
	reachable := true
	if err := apiClient.Ping(ctx); err != nil {
		reachable = false
		ui.PrintWarning("server not reachable: %v", err)
	}

	// 5. Save config to local file
	if err := cfg.Save(); err != nil {
		ui.PrintError("failed to save config: %v", err)
		return fmt.Errorf("config save failed")
	}

	configPath, _ := config.GetConfigPath()
	content := fmt.Sprintf(`Server:        %s
Language:      %s
Config saved:  %s`,
		cfg.Server,
		cfg.Language,
		configPath,
	)
	ui.PrintSuccessBox("✓ Configuration Saved", content)

	if reachable {
		fmt.Println()
		ui.PrintInfo("You can now use the following commands:")
		ui.PrintBold("  assistctl chat            # Interactive streaming chat")
		ui.PrintBold("  assistctl ask <message>   # One-shot concierge question")
	}

	return nil
}
