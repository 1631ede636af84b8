package main

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/cwsl/protodetect/protocol"
)

// readIQFile reads a file of little-endian float32 I/Q pairs (the
// file-persisted sample form) into a slice of samples.
func readIQFile(path string) ([]protocol.Sample, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(raw)%8 != 0 {
		return nil, fmt.Errorf("%s: length %d is not a multiple of 8 bytes (float32 I + float32 Q)", path, len(raw))
	}
	samples := make([]protocol.Sample, len(raw)/8)
	for i := range samples {
		re := math.Float32frombits(binary.LittleEndian.Uint32(raw[i*8:]))
		im := math.Float32frombits(binary.LittleEndian.Uint32(raw[i*8+4:]))
		samples[i] = protocol.Sample(complex(re, im))
	}
	return samples, nil
}

// iqWriter appends little-endian float32 I/Q pairs to an output file,
// one per protocol lane.
type iqWriter struct {
	file *os.File
}

func newIQWriter(path string) (*iqWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return &iqWriter{file: f}, nil
}

func (w *iqWriter) write(samples []protocol.Sample) error {
	if len(samples) == 0 {
		return nil
	}
	buf := make([]byte, len(samples)*8)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(buf[i*8:], math.Float32bits(real(s)))
		binary.LittleEndian.PutUint32(buf[i*8+4:], math.Float32bits(imag(s)))
	}
	_, err := w.file.Write(buf)
	return err
}

func (w *iqWriter) Close() error {
	return w.file.Close()
}
