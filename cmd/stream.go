package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/llm-playground/llm-playground/internal/exitcode"
	"github.com/llm-playground/llm-playground/internal/params"
	"github.com/llm-playground/llm-playground/internal/ui"
)

var streamCmd = &cobra.Command{
	Use:       "stream <on|off>",
	Short:     "Switch the backend between streamed and complete replies",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		on, err := ui.ParseToggle(args[0])
		if err != nil {
			return exitcode.BadUsage(err.Error())
		}
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg, false)
		if err != nil {
			return err
		}
		defer logger.Sync()

		client := params.NewClient(cfg.HTTPBaseURL(), params.WithLogger(logger))
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()
		if err := client.SetStreaming(ctx, on); err != nil {
			return exitcode.Unavailable(fmt.Sprintf("Failed to set streaming mode: %v", err))
		}

		styles := ui.NewStyles(cmd.OutOrStdout())
		fmt.Fprintln(cmd.OutOrStdout(), styles.FormatResult(true, "streaming "+args[0]))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(streamCmd)
}
