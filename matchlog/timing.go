package matchlog

import (
	"fmt"
	"os"
	"time"
)

// TimingWriter writes the single-line IFFT-time summary the FFT detector
// produces at shutdown.
type TimingWriter struct {
	path string
}

// NewTimingWriter records the path a later call to Write will create (or
// truncate) and write to. The file is not touched until Write is called,
// since the total only becomes known at shutdown. An empty path disables
// the timing log, returning a nil *TimingWriter.
func NewTimingWriter(path string) *TimingWriter {
	if path == "" {
		return nil
	}
	return &TimingWriter{path: path}
}

// Write writes the single summary line. A nil *TimingWriter is a legal no-op.
func (t *TimingWriter) Write(total time.Duration) error {
	if t == nil {
		return nil
	}
	line := fmt.Sprintf("total IFFT time: %s\n", total)
	return os.WriteFile(t.path, []byte(line), 0o644)
}
