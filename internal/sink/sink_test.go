package sink

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestParseViewer(t *testing.T) {
	tests := []struct {
		in   string
		kind Kind
		argv []string
	}{
		{"", KindTerminal, nil},
		{"terminal", KindTerminal, nil},
		{"TUI", KindTUI, nil},
		{"none", KindNone, nil},
		{"glow -p -", KindViewer, []string{"glow", "-p", "-"}},
		{"  less  ", KindViewer, []string{"less"}},
	}
	for _, tt := range tests {
		kind, argv := ParseViewer(tt.in)
		assert.Equal(t, tt.kind, kind, tt.in)
		assert.Equal(t, tt.argv, argv, tt.in)
	}
	assert.Equal(t, "viewer", KindViewer.String())
}

type closeCounter struct {
	bytes.Buffer
	closes int
	err    error
}

func (c *closeCounter) Close() error {
	c.closes++
	return nil
}

func (c *closeCounter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	return c.Buffer.Write(p)
}

func TestTee_WritesAllAndClosesOnce(t *testing.T) {
	a, b := &closeCounter{}, &closeCounter{}
	tee := Tee(a, b)

	_, err := tee.Write([]byte("one "))
	require.NoError(t, err)
	_, err = tee.Write([]byte("two"))
	require.NoError(t, err)

	require.NoError(t, tee.Close())
	require.NoError(t, tee.Close())

	assert.Equal(t, "one two", a.String())
	assert.Equal(t, "one two", b.String())
	assert.Equal(t, 1, a.closes)
	assert.Equal(t, 1, b.closes)
}

func TestTee_ErrorStillWritesOthers(t *testing.T) {
	bad := &closeCounter{err: errors.New("disk full")}
	good := &closeCounter{}

	_, err := Tee(bad, good).Write([]byte("x"))
	assert.Error(t, err)
	assert.Equal(t, "x", good.String())
}

func TestWriterSink(t *testing.T) {
	var buf bytes.Buffer
	s := NewWriter(&buf)
	_, err := s.Write([]byte("hi"))
	require.NoError(t, err)
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
	assert.Equal(t, "hi", buf.String())

	_, err = Discard().Write([]byte("gone"))
	assert.NoError(t, err)
}

func TestFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.md")
	s, err := NewFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, s.Path())

	_, err = s.Write([]byte("## Result\n"))
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.Write([]byte("late"))
	assert.ErrorIs(t, err, os.ErrClosed)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "## Result\n", string(data))
}

func TestViewerSink_DetachedClose(t *testing.T) {
	out := filepath.Join(t.TempDir(), "viewer.txt")
	v, err := StartViewer([]string{"sh", "-c", "cat > " + out}, zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = v.Write([]byte("hello "))
	require.NoError(t, err)
	_, err = v.Write([]byte("viewer"))
	require.NoError(t, err)

	require.NoError(t, v.Close())
	require.NoError(t, v.Close())

	select {
	case <-v.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("viewer did not exit")
	}
	assert.NoError(t, v.Err())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "hello viewer", string(data))

	_, err = v.Write([]byte("late"))
	assert.ErrorIs(t, err, os.ErrClosed)
}

func TestViewerSink_ViewerExitsEarly(t *testing.T) {
	v, err := StartViewer([]string{"true"}, nil)
	require.NoError(t, err)

	// Keep writing until the pipe breaks; the sink must swallow it.
	chunk := []byte(strings.Repeat("x", 64*1024))
	for i := 0; i < 16; i++ {
		_, err := v.Write(chunk)
		require.NoError(t, err)
	}
	require.NoError(t, v.Close())
	<-v.Done()
}

func TestStartViewer_Errors(t *testing.T) {
	_, err := StartViewer(nil, nil)
	assert.Error(t, err)

	_, err = StartViewer([]string{"definitely-not-a-real-viewer-binary"}, nil)
	assert.Error(t, err)
}
