package cmd

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/llm-playground/llm-playground/internal/tui/playground"
	"github.com/llm-playground/llm-playground/internal/ui"
)

const playgroundKeys = `Keyboard shortcuts:
  Enter        - Send message
  Ctrl+J       - Insert newline
  Tab          - Switch between input and sampling settings
  ←/→          - Adjust the selected setting (pushed after a pause)
  Ctrl+T       - Toggle streaming
  Ctrl+S       - Save the transcript as markdown
  Ctrl+L       - Clear conversation
  Esc, Ctrl+C  - Quit`

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive multi-turn playground",
	Long: `Start the playground TUI showing the whole conversation.

Examples:
  llm-playground chat
  llm-playground chat --endpoint gpu-box:8000
  llm-playground chat --path /chat --log-file /tmp/playground.log

` + playgroundKeys,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPlayground(cmd, playground.ModeChat)
	},
}

var completeCmd = &cobra.Command{
	Use:     "complete",
	Aliases: []string{"completions"},
	Short:   "Start the playground showing only the latest exchange",
	Long: `Start the playground TUI in completions mode: each message is shown
with its reply only, as in a single-prompt completion tool.

` + playgroundKeys,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPlayground(cmd, playground.ModeCompletions)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(completeCmd)
}

func runPlayground(cmd *cobra.Command, mode playground.Mode) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, true)
	if err != nil {
		return err
	}
	rt, err := newRuntime(cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()
	// The TUI still starts when the toggle fails; the first send reports
	// an unreachable backend.
	_ = rt.syncStreaming(cmd.Context())

	model := playground.New(playground.Options{
		Session:  rt.session,
		Mode:     mode,
		Params:   rt.pusher,
		Toggler:  rt.client,
		Styles:   ui.NewStyles(os.Stdout),
		Logger:   logger,
		Endpoint: cfg.WebsocketURL(),
	})

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run playground: %w", err)
	}
	return nil
}
