package service

import (
	"fmt"
	"io"

	"github.com/CJHwong/gems.sh/internal/sink"
	"go.uber.org/zap"
)

// SinkOpener creates the display sink for one invocation. onQuit is called
// if the user closes an interactive viewer before the stream ends.
type SinkOpener func(title string, onQuit func()) (sink.Sink, error)

// NewSinkOpener selects the display surface from the output_viewer setting
// and tees it with the transcript file at transcriptPath.
func NewSinkOpener(outputViewer, transcriptPath string, stdout io.Writer, logger *zap.Logger) SinkOpener {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(title string, onQuit func()) (sink.Sink, error) {
		file, err := sink.NewFile(transcriptPath)
		if err != nil {
			return nil, err
		}

		kind, argv := sink.ParseViewer(outputViewer)
		var display sink.Sink
		switch kind {
		case sink.KindTUI:
			display = sink.StartTUI(title, onQuit)
		case sink.KindNone:
			display = sink.Discard()
		case sink.KindViewer:
			v, err := sink.StartViewer(argv, logger)
			if err != nil {
				file.Close()
				return nil, fmt.Errorf("output_viewer: %w", err)
			}
			display = v
		default:
			display = sink.NewWriter(stdout)
		}
		logger.Debug("display sink selected",
			zap.Stringer("kind", kind),
			zap.String("transcript", transcriptPath))

		// The file goes first so a viewer that fails mid-stream still leaves
		// a complete transcript.
		return sink.Tee(file, display), nil
	}
}
