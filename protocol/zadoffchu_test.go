package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateZadoffChuConstantAmplitude(t *testing.T) {
	seq, err := GenerateZadoffChu(17, 64, 0)
	require.NoError(t, err)
	require.Len(t, seq, 64)

	for _, v := range seq {
		mag := real(v)*real(v) + imag(v)*imag(v)
		assert.InDelta(t, 1.0, mag, 1e-5)
	}
}

func TestGenerateZadoffChuRejectsNonCoprime(t *testing.T) {
	_, err := GenerateZadoffChu(4, 64, 0)
	assert.Error(t, err)
}

func TestGenerateZadoffChuRejectsOutOfRangeRoot(t *testing.T) {
	_, err := GenerateZadoffChu(0, 64, 0)
	assert.Error(t, err)

	_, err = GenerateZadoffChu(64, 64, 0)
	assert.Error(t, err)
}

func TestGenerateZadoffChuDistinctRootsAreLowCorrelation(t *testing.T) {
	a, err := GenerateZadoffChu(11, 64, 0)
	require.NoError(t, err)
	b, err := GenerateZadoffChu(17, 64, 0)
	require.NoError(t, err)

	seqB, err := NewSequence(b, 0.65)
	require.NoError(t, err)

	rho := Correlate(a, seqB)
	assert.Less(t, rho, float32(0.3))
}
