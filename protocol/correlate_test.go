package protocol

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorrelateSelfMatchIsOne(t *testing.T) {
	data := []Sample{1 + 0i, 0 + 1i, -1 + 0i, 0 - 1i}
	seq, err := NewSequence(data, 0.7)
	require.NoError(t, err)

	rho := Correlate(data, seq)
	assert.InDelta(t, 1.0, rho, 1e-5)
}

func TestCorrelateBoundedByOne(t *testing.T) {
	zc, err := GenerateZadoffChu(11, 64, 0)
	require.NoError(t, err)
	seq, err := NewSequence(zc, 0.65)
	require.NoError(t, err)

	window := make([]Sample, len(zc))
	copy(window, zc)
	// Perturb the window so it is not an exact match, and check the bound
	// |rho(w,s)| <= 1 still holds up to floating-point error.
	window[3] += 0.3 + 0.1i
	window[10] -= 0.2i

	rho := Correlate(window, seq)
	assert.LessOrEqual(t, math.Abs(float64(rho)), 1.0+1e-4)
}

func TestCorrelateZeroNormIsZero(t *testing.T) {
	zeros := make([]Sample, 8)
	seq, err := NewSequence([]Sample{1, 1, 1, 1, 1, 1, 1, 1}, 0.5)
	require.NoError(t, err)

	rho := Correlate(zeros, seq)
	assert.Equal(t, float32(0), rho)
}

func TestCorrelatePhaseRotationReducesRealPart(t *testing.T) {
	data := []Sample{1, 1, 1, 1}
	seq, err := NewSequence(data, 0.5)
	require.NoError(t, err)

	// A 90-degree phase rotation should drive Re(rho) toward zero even
	// though |rho| is unchanged; this is the coherent-detection behavior
	// that rejects phase-rotated matches.
	rotated := make([]Sample, len(data))
	for i, v := range data {
		rotated[i] = v * complex64(complex(0, 1))
	}
	rho := Correlate(rotated, seq)
	assert.InDelta(t, 0.0, rho, 1e-5)
}
