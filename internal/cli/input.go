package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
)

// ErrNoInput is returned when neither arguments nor piped stdin carry text.
var ErrNoInput = errors.New("no input: pass text as arguments or pipe it on stdin")

// readInput joins args with spaces, or reads stdin when there are no args
// and stdin is not a terminal. Piped input keeps its content except for one
// trailing newline.
func readInput(args []string, stdin io.Reader, interactive bool) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if interactive || stdin == nil {
		return "", ErrNoInput
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	text := strings.TrimSuffix(strings.TrimSuffix(string(data), "\n"), "\r")
	if strings.TrimSpace(text) == "" {
		return "", ErrNoInput
	}
	return text, nil
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// StdinIsTerminal reports whether os.Stdin is attached to a terminal.
func StdinIsTerminal() bool {
	return isTerminal(os.Stdin)
}

// pickTemplate shows a select list with current preselected.
func pickTemplate(names []string, current string) (string, error) {
	if len(names) == 0 {
		return "", errors.New("no templates to pick from")
	}
	choice := current
	options := make([]huh.Option[string], 0, len(names))
	for _, n := range names {
		options = append(options, huh.NewOption(n, n).Selected(n == current))
	}
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Template").
				Options(options...).
				Value(&choice),
		),
	).Run()
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", fmt.Errorf("template selection aborted")
		}
		return "", fmt.Errorf("picking template: %w", err)
	}
	return choice, nil
}
