package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/llm-playground/llm-playground/internal/config"
)

// getTTY opens the controlling terminal so prompts survive redirected stdio.
func getTTY() (*os.File, error) {
	return os.OpenFile("/dev/tty", os.O_RDWR, 0)
}

// SetupAnswers are the values collected by the setup wizard.
type SetupAnswers struct {
	Endpoint string
	Secure   bool
	Path     string
	Stream   bool
}

// Apply copies the answers onto cfg.
func (a SetupAnswers) Apply(cfg *config.Config) {
	cfg.Backend.Endpoint = strings.TrimSpace(a.Endpoint)
	cfg.Backend.Secure = a.Secure
	cfg.Backend.Path = a.Path
	cfg.Stream = a.Stream
}

func validateEndpoint(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("endpoint is required")
	}
	if strings.ContainsAny(s, " \t") {
		return fmt.Errorf("endpoint must not contain spaces")
	}
	return nil
}

// SetupForm builds the huh form that edits answers in place.
func SetupForm(answers *SetupAnswers) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Backend endpoint").
				Description("host:port of the inference server").
				Placeholder("localhost:8000").
				Validate(validateEndpoint).
				Value(&answers.Endpoint),
			huh.NewConfirm().
				Title("Use TLS (wss/https)?").
				Value(&answers.Secure),
			huh.NewSelect[string]().
				Title("Conversation socket").
				Options(
					huh.NewOption("Completions - one exchange per message (/completions)", "/completions"),
					huh.NewOption("Chat - multi-turn history (/chat)", "/chat"),
				).
				Value(&answers.Path),
			huh.NewConfirm().
				Title("Stream replies token by token?").
				Value(&answers.Stream),
		),
	)
}

// RunSetupWizard asks for the backend settings, saves them to path (the
// default location when empty) and returns the saved path.
func RunSetupWizard(current *config.Config, path string) (string, error) {
	var out io.Writer = os.Stderr
	answers := SetupAnswers{
		Endpoint: current.Backend.Endpoint,
		Secure:   current.Backend.Secure,
		Path:     current.Backend.Path,
		Stream:   current.Stream,
	}
	form := SetupForm(&answers)

	if tty, err := getTTY(); err == nil {
		defer tty.Close()
		out = tty
		form = form.WithInput(tty).WithOutput(tty)
	}
	fmt.Fprint(out, "Let's point llm-playground at your backend.\n\n")

	if err := form.Run(); err != nil {
		return "", err
	}

	cfg := *current
	answers.Apply(&cfg)
	saved, err := config.Save(&cfg, path)
	if err != nil {
		return "", fmt.Errorf("failed to save config: %w", err)
	}
	fmt.Fprintf(out, "Config saved to %s\n\n", saved)
	return saved, nil
}
