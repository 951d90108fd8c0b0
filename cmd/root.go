package cmd

import (
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/spf13/cobra"

	"github.com/llm-playground/llm-playground/internal/exitcode"
)

var (
	configFile  string
	endpointArg string
	pathArg     string
	secureArg   bool
	logLevelArg string
	logFileArg  string
	cpuProfile  string
	memProfile  string

	cpuProfileFile *os.File
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Config file (default $XDG_CONFIG_HOME/llm-playground/config.yaml)")
	flags.StringVarP(&endpointArg, "endpoint", "e", "", "Backend host:port, overrides backend.endpoint")
	flags.StringVar(&pathArg, "path", "", "Socket path on the backend, e.g. /completions or /chat")
	flags.BoolVar(&secureArg, "secure", false, "Use wss:// and https:// for the backend")
	flags.StringVar(&logLevelArg, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&logFileArg, "log-file", "", "Write logs to this file")
	flags.StringVar(&cpuProfile, "cpuprofile", "", "Write CPU profile to file")
	flags.StringVar(&memProfile, "memprofile", "", "Write memory profile to file")
}

var rootCmd = &cobra.Command{
	Use:   "llm-playground",
	Short: "Terminal playground for a streaming text-generation backend",
	Long: `llm-playground talks to an inference backend over a websocket, streams
replies token by token, and pushes sampling parameters to it.

Examples:
  llm-playground chat                          # multi-turn playground
  llm-playground complete                      # single-exchange view
  llm-playground ask "Write a haiku about Go"  # stream one reply to stdout
  llm-playground param set temperature 0.7
  llm-playground stream off
  llm-playground config init`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return startProfiling()
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return stopProfiling()
	},
}

func startProfiling() error {
	if cpuProfile != "" {
		f, err := os.Create(cpuProfile)
		if err != nil {
			return err
		}
		cpuProfileFile = f
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			return err
		}
	}
	return nil
}

func stopProfiling() error {
	if cpuProfileFile != nil {
		pprof.StopCPUProfile()
		cpuProfileFile.Close()
		cpuProfileFile = nil
	}
	if memProfile != "" {
		f, err := os.Create(memProfile)
		if err != nil {
			return err
		}
		defer f.Close()
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			return err
		}
	}
	return nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitcode.Code(err))
	}
}
