// Package protocol holds the immutable data model shared by the time-domain
// and FFT-accelerated detectors: constant-amplitude reference sequences,
// protocol definitions built from them, and the normalized cross-correlation
// primitive both detectors use to score a candidate window.
package protocol

import (
	"fmt"
	"math"
)

// Sample is a 32-bit-float complex baseband sample (I/Q).
type Sample = complex64

// Sequence is an immutable constant-amplitude reference sequence (sync or
// discriminator). Its norm is precomputed once at construction and never
// recomputed; a Sequence is safe to share read-only across work cycles and
// goroutines.
type Sequence struct {
	Data      []Sample
	Threshold float32
	norm      float32
}

// NewSequence builds a Sequence and precomputes its Euclidean norm.
func NewSequence(data []Sample, threshold float32) (Sequence, error) {
	if len(data) == 0 {
		return Sequence{}, fmt.Errorf("protocol: sequence must not be empty")
	}
	return Sequence{
		Data:      data,
		Threshold: threshold,
		norm:      euclideanNorm(data),
	}, nil
}

// Norm returns the precomputed Euclidean norm sqrt(sum |data[i]|^2).
func (s Sequence) Norm() float32 {
	return s.norm
}

// Len returns the number of samples in the sequence.
func (s Sequence) Len() int {
	return len(s.Data)
}

func euclideanNorm(data []Sample) float32 {
	var sumSq float64
	for _, v := range data {
		r, i := float64(real(v)), float64(imag(v))
		sumSq += r*r + i*i
	}
	return float32(math.Sqrt(sumSq))
}
