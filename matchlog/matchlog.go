// Package matchlog implements the optional match-log and timing-log files,
// plus a supplemental zstd-compressed raw-window capture for offline
// verification. Writer and Capture log write failures to stderr and demote
// themselves to an inert no-op for the rest of the block's life rather than
// propagating them to the caller - the same treatment other optional
// subsystems in this codebase give a non-fatal I/O error, so a missed log
// line never takes the hot path down with it. TimingWriter, which writes
// once at shutdown, returns its write error instead.
package matchlog

import (
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
)

// Writer appends "<absolute_index>,<protocol_name>" records to a match-log
// file, created-or-truncated at construction.
type Writer struct {
	file    *os.File
	runID   string
	healthy bool
}

// NewWriter opens path for append-only writes, truncating any existing
// content. runID is kept on the Writer and read back through RunID; it is
// not written into the records or the file name. If runID is empty, a fresh
// UUID is generated.
func NewWriter(path string, runID string) (*Writer, error) {
	if runID == "" {
		runID = uuid.NewString()
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("matchlog: opening %s: %w", path, err)
	}
	return &Writer{file: f, runID: runID, healthy: true}, nil
}

// RunID returns the run identifier this writer tags (nothing) with -
// callers that want per-run correlation read it back for their own logs.
func (w *Writer) RunID() string {
	if w == nil {
		return ""
	}
	return w.runID
}

// LogMatch appends one match record. A nil *Writer is a legal no-op.
func (w *Writer) LogMatch(absoluteIndex int, protocolName string) {
	if w == nil || !w.healthy {
		return
	}
	if _, err := fmt.Fprintf(w.file, "%d,%s\n", absoluteIndex, protocolName); err != nil {
		log.Printf("matchlog: write failed, disabling match logging: %v", err)
		w.healthy = false
	}
}

// Close releases the underlying file. A nil *Writer is a legal no-op.
func (w *Writer) Close() error {
	if w == nil || w.file == nil {
		return nil
	}
	return w.file.Close()
}
