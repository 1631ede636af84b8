package matchlog

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwsl/protodetect/protocol"
)

func TestCaptureRecordRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.bin")
	c, err := NewCapture(path)
	require.NoError(t, err)

	window := []protocol.Sample{1 + 2i, -3 + 0.5i, 0}
	c.Record(1234, "zc", window)
	require.NoError(t, c.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(raw), captureRecordHeaderSize)

	assert.Equal(t, captureMagic, binary.LittleEndian.Uint16(raw[0:]))
	assert.Equal(t, uint64(1234), binary.LittleEndian.Uint64(raw[2:]))
	nameLen := binary.LittleEndian.Uint16(raw[10:])
	assert.Equal(t, "zc", string(raw[captureRecordHeaderSize:captureRecordHeaderSize+int(nameLen)]))

	compressedLen := binary.LittleEndian.Uint32(raw[12:])
	compressed := raw[captureRecordHeaderSize+int(nameLen):]
	require.Len(t, compressed, int(compressedLen))

	dec, err := zstd.NewReader(nil)
	require.NoError(t, err)
	defer dec.Close()
	decoded, err := dec.DecodeAll(compressed, nil)
	require.NoError(t, err)

	require.Len(t, decoded, len(window)*8)
	for i, s := range window {
		re := math.Float32frombits(binary.LittleEndian.Uint32(decoded[i*8:]))
		im := math.Float32frombits(binary.LittleEndian.Uint32(decoded[i*8+4:]))
		assert.Equal(t, real(s), re)
		assert.Equal(t, imag(s), im)
	}
}

func TestCaptureDemotesToNoOpOnWriteFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.bin")
	c, err := NewCapture(path)
	require.NoError(t, err)
	require.NoError(t, c.file.Close())

	c.Record(0, "zc", []protocol.Sample{1})
	assert.False(t, c.healthy)
}
