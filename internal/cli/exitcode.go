package cli

import (
	"context"
	"errors"

	"github.com/CJHwong/gems.sh/internal/llm"
)

// ExitInterrupted is the status for a run stopped by SIGINT or by quitting
// the viewer early.
const ExitInterrupted = 130

// ExitCode maps an error returned by the root command onto a process exit
// status. Network failures keep their numeric code.
func ExitCode(err error) int {
	var netErr *llm.NetworkError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &netErr):
		if netErr.Code > 0 && netErr.Code < 256 {
			return netErr.Code
		}
		return 1
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	default:
		return 1
	}
}
