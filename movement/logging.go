package movement

import (
	"fmt"
	"io"
)

// logWriter is the destination for human-readable narration log output.
var logWriter io.Writer

// SetLogWriter sets the log output destination for Logf.
func SetLogWriter(w io.Writer) {
	logWriter = w
}

// Logf writes a formatted narration log line, independent of the
// structured slog output telemetry.TickStats/PerfStats.LogStats emit.
func Logf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if logWriter != nil {
		fmt.Fprintln(logWriter, msg)
	} else {
		fmt.Println(msg)
	}
}
