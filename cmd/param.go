package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/llm-playground/llm-playground/internal/exitcode"
	"github.com/llm-playground/llm-playground/internal/params"
)

var paramCmd = &cobra.Command{
	Use:   "param",
	Short: "List or set sampling parameters on the backend",
}

var paramListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the sampling parameters and their ranges",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listParams(cmd.OutOrStdout())
	},
}

var paramSetCmd = &cobra.Command{
	Use:   "set <name> <value>",
	Short: "Send one sampling parameter to the backend",
	Long: `Send one sampling parameter to the backend immediately.
Values outside the allowed range are clamped and snapped to the step.

Examples:
  llm-playground param set temperature 0.7
  llm-playground param set top_k 40
  llm-playground param set "Maximum Output Tokens" 1024`,
	Args:              cobra.ExactArgs(2),
	ValidArgsFunction: ParamNameCompletion,
	RunE: func(cmd *cobra.Command, args []string) error {
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

		p, value, err := setParam(ctx, client, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s set to %s\n", p.Label, p.Format(value))
		return nil
	},
}

func init() {
	paramCmd.AddCommand(paramListCmd)
	paramCmd.AddCommand(paramSetCmd)
	rootCmd.AddCommand(paramCmd)
}

func listParams(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tLABEL\tDEFAULT\tRANGE\tSTEP")
	for _, p := range params.Table {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s-%s\t%s\n",
			p.Name, p.Label, p.Format(p.Default), p.Format(p.Min), p.Format(p.Max), p.Format(p.Step))
	}
	return tw.Flush()
}

// setParam validates name and raw, then sends the clamped value.
func setParam(ctx context.Context, client *params.Client, name, raw string) (params.Param, float64, error) {
	p, ok := params.Lookup(name)
	if !ok {
		msg := fmt.Sprintf("unknown parameter %q", name)
		if suggestions := params.Suggest(name); len(suggestions) > 0 {
			msg += fmt.Sprintf(" (did you mean %s?)", strings.Join(suggestions, ", "))
		}
		return params.Param{}, 0, exitcode.BadUsage(msg)
	}
	value, err := p.Parse(raw)
	if err != nil {
		return p, 0, exitcode.BadUsage(fmt.Sprintf("invalid value %q for %s", raw, p.Name))
	}
	if err := client.SetSamplingParam(ctx, p.Name, value); err != nil {
		return p, value, exitcode.Unavailable(fmt.Sprintf("Failed to set %s parameter: %v", p.Label, err))
	}
	return p, value, nil
}
