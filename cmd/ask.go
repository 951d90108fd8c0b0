package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/llm-playground/llm-playground/internal/exitcode"
	"github.com/llm-playground/llm-playground/internal/session"
	"github.com/llm-playground/llm-playground/internal/ui"
)

var (
	askTimeout  time.Duration
	askNoStream bool
)

var askCmd = &cobra.Command{
	Use:   "ask <message>",
	Short: "Send one message and stream the reply to stdout",
	Long: `Send a single message to the backend and print the reply as it arrives.

Exit codes: 3 when the backend cannot be reached, 4 when it reports an error.

Examples:
  llm-playground ask "What is the capital of France?"
  llm-playground ask --no-stream "Summarize TCP in one line"
  echo "Explain goroutines" | llm-playground ask -`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().DurationVar(&askTimeout, "timeout", 2*time.Minute, "Give up waiting for the reply after this long")
	askCmd.Flags().BoolVar(&askNoStream, "no-stream", false, "Request one complete reply instead of a token stream")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	message := strings.Join(args, " ")
	if message == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		message = string(data)
	}
	if strings.TrimSpace(message) == "" {
		return exitcode.BadUsage("message must not be empty")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if askNoStream {
		cfg.Stream = false
	}
	logger, err := newLogger(cfg, false)
	if err != nil {
		return err
	}
	rt, err := newRuntime(cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, askTimeout)
	defer cancel()

	if err := rt.syncStreaming(ctx); err != nil {
		return exitcode.Unavailable(fmt.Sprintf("Failed to set streaming mode: %v", err))
	}

	styles := ui.NewStyles(os.Stderr)
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		styles = ui.NewStyles(io.Discard)
	}
	return streamReply(ctx, rt.session, message, cmd.OutOrStdout(), styles)
}

// asker is the part of a session streamReply needs.
type asker interface {
	Submit(text string) error
	Snapshot() session.State
	Updates() <-chan struct{}
}

// streamReply submits message and copies assistant text to w as it grows.
// It returns when the turn finishes, with an exitcode error on failure.
func streamReply(ctx context.Context, s asker, message string, w io.Writer, styles *ui.Styles) error {
	start := len(s.Snapshot().Turns)
	if err := s.Submit(message); err != nil {
		return fmt.Errorf("submit: %w", err)
	}

	written := 0
	for {
		st := s.Snapshot()
		written += writeNew(w, st.Turns, start+1, written)

		switch {
		case st.Status == session.StatusErrored && st.Failure != nil:
			if written > 0 {
				fmt.Fprintln(w)
			}
			msg := st.Failure.Message
			if st.Failure.Kind.Unavailable() {
				return exitcode.Unavailable(styles.Error.Render(msg))
			}
			return exitcode.Backend(styles.Error.Render(msg))
		case st.Status == session.StatusIdle && !st.Delivering:
			fmt.Fprintln(w)
			return nil
		}

		select {
		case _, ok := <-s.Updates():
			if !ok {
				return exitcode.Cancel()
			}
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return exitcode.Unavailable("timed out waiting for the reply")
			}
			return exitcode.Cancel()
		}
	}
}

// writeNew writes the part of the assistant text after index from that has
// not been written yet and returns how many bytes it wrote.
func writeNew(w io.Writer, turns session.Conversation, from, written int) int {
	var b strings.Builder
	for i := from; i < len(turns); i++ {
		if turns[i].Role == session.RoleAssistant {
			b.WriteString(turns[i].Content)
		}
	}
	text := b.String()
	if len(text) <= written {
		return 0
	}
	n, _ := io.WriteString(w, text[written:])
	return n
}
