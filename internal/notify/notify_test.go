package notify

import (
	"context"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDesktopNotifier_RunsCommand(t *testing.T) {
	var gotTitle, gotMsg string
	n := DesktopNotifier{Command: func(ctx context.Context, title, message string) *exec.Cmd {
		gotTitle, gotMsg = title, message
		return exec.CommandContext(ctx, "true")
	}}

	require.NoError(t, n.Notify(context.Background(), "gems", "line one\nline two"))
	assert.Equal(t, "gems", gotTitle)
	assert.Equal(t, "line one line two", gotMsg)
}

func TestDesktopNotifier_CommandFailure(t *testing.T) {
	n := DesktopNotifier{Command: func(ctx context.Context, _, _ string) *exec.Cmd {
		return exec.CommandContext(ctx, "false")
	}}
	assert.Error(t, n.Notify(context.Background(), "t", "m"))
}

func TestDesktopNotifier_Unsupported(t *testing.T) {
	n := DesktopNotifier{Command: func(context.Context, string, string) *exec.Cmd { return nil }}
	assert.Error(t, n.Notify(context.Background(), "t", "m"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	long := strings.Repeat("é", 20)
	out := truncate(long, 10)
	assert.Equal(t, 10, len([]rune(out)))
	assert.True(t, strings.HasSuffix(out, "…"))
}

func TestAppleQuote(t *testing.T) {
	assert.Equal(t, `"say \"hi\" \\ bye"`, appleQuote(`say "hi" \ bye`))
}

func TestNoop(t *testing.T) {
	assert.NoError(t, Noop{}.Copy("x"))
	assert.NoError(t, Noop{}.Notify(context.Background(), "t", "m"))
}
