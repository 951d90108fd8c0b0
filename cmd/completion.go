package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/llm-playground/llm-playground/internal/params"
)

// ParamNameCompletion completes the parameter name of `param set`.
func ParamNameCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var names []string
	for _, p := range params.Table {
		if strings.HasPrefix(p.Name, strings.ToLower(toComplete)) {
			names = append(names, p.Name+"\t"+p.Label)
		}
	}
	if len(names) == 0 && toComplete != "" {
		names = params.Suggest(toComplete)
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}
