// Package notify copies results to the clipboard and raises desktop
// notifications. Both are best effort.
package notify

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/atotto/clipboard"
)

// Clipboard writes text to the system clipboard.
type Clipboard interface {
	Copy(text string) error
}

// Notifier shows a desktop notification.
type Notifier interface {
	Notify(ctx context.Context, title, message string) error
}

// SystemClipboard uses the platform clipboard utilities.
type SystemClipboard struct{}

func (SystemClipboard) Copy(text string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("clipboard unsupported on this system")
	}
	return clipboard.WriteAll(text)
}

// DesktopNotifier shells out to osascript on macOS and notify-send elsewhere.
type DesktopNotifier struct {
	// Command overrides the platform default; used by tests.
	Command func(ctx context.Context, title, message string) *exec.Cmd
}

func (n DesktopNotifier) Notify(ctx context.Context, title, message string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	build := n.Command
	if build == nil {
		build = platformCommand
	}
	cmd := build(ctx, title, truncate(message, 200))
	if cmd == nil {
		return fmt.Errorf("notifications unsupported on %s", runtime.GOOS)
	}
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", cmd.Path, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func platformCommand(ctx context.Context, title, message string) *exec.Cmd {
	switch runtime.GOOS {
	case "darwin":
		script := fmt.Sprintf("display notification %s with title %s", appleQuote(message), appleQuote(title))
		return exec.CommandContext(ctx, "osascript", "-e", script)
	case "linux", "freebsd", "openbsd", "netbsd":
		return exec.CommandContext(ctx, "notify-send", "--app-name=gems", title, message)
	default:
		return nil
	}
}

func appleQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

// truncate shortens s to at most n runes on a single line.
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// Noop satisfies both interfaces and does nothing.
type Noop struct{}

func (Noop) Copy(string) error                            { return nil }
func (Noop) Notify(context.Context, string, string) error { return nil }
