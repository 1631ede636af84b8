package matchlog

import (
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"os"

	"github.com/cwsl/protodetect/protocol"
	"github.com/klauspost/compress/zstd"
)

// captureMagic identifies a capture record, a magic-prefixed framing
// scheme modeled on other binary packet formats in this codebase.
const captureMagic uint16 = 0x4350 // "CP" - Capture

// captureRecordHeaderSize is the fixed prefix before each zstd-compressed
// payload: magic(2) + absoluteIndex(8) + protocolNameLen(2) + compressedLen(4).
const captureRecordHeaderSize = 2 + 8 + 2 + 4

// Capture archives the raw window around each detected protocol switch into
// a single zstd-compressed append file, for offline verification. This
// supplements the flat-text match log with the actual samples that
// triggered the match, trading a little CPU for a much smaller on-disk
// footprint than storing raw windows directly.
type Capture struct {
	file    *os.File
	encoder *zstd.Encoder
	healthy bool
}

// NewCapture opens path for append-only zstd-compressed window capture.
func NewCapture(path string) (*Capture, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("matchlog: opening capture file %s: %w", path, err)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("matchlog: creating zstd encoder: %w", err)
	}
	return &Capture{file: f, encoder: enc, healthy: true}, nil
}

// Record appends one compressed window. A nil *Capture is a legal no-op.
func (c *Capture) Record(absoluteIndex int, protocolName string, window []protocol.Sample) {
	if c == nil || !c.healthy {
		return
	}

	raw := make([]byte, len(window)*8)
	for i, s := range window {
		binary.LittleEndian.PutUint32(raw[i*8:], math.Float32bits(real(s)))
		binary.LittleEndian.PutUint32(raw[i*8+4:], math.Float32bits(imag(s)))
	}
	compressed := c.encoder.EncodeAll(raw, nil)

	header := make([]byte, captureRecordHeaderSize+len(protocolName))
	binary.LittleEndian.PutUint16(header[0:], captureMagic)
	binary.LittleEndian.PutUint64(header[2:], uint64(absoluteIndex))
	binary.LittleEndian.PutUint16(header[10:], uint16(len(protocolName)))
	binary.LittleEndian.PutUint32(header[12:], uint32(len(compressed)))
	copy(header[captureRecordHeaderSize:], protocolName)

	if _, err := c.file.Write(header); err != nil {
		log.Printf("matchlog: capture write failed, disabling capture: %v", err)
		c.healthy = false
		return
	}
	if _, err := c.file.Write(compressed); err != nil {
		log.Printf("matchlog: capture write failed, disabling capture: %v", err)
		c.healthy = false
	}
}

// Close releases the underlying file and encoder. A nil *Capture is a
// legal no-op.
func (c *Capture) Close() error {
	if c == nil {
		return nil
	}
	if c.encoder != nil {
		c.encoder.Close()
	}
	if c.file != nil {
		return c.file.Close()
	}
	return nil
}
