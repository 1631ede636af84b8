package main

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cwsl/protodetect/protocol"
)

func TestChannelNoiseMatchesTargetSNR(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	samples := make([]protocol.Sample, 20000)
	for i := range samples {
		samples[i] = 1 + 0i
	}
	signalPower := 1.0

	const snrDB = 10
	channelNoise(samples, snrDB, rng)

	var residualPower float64
	for _, s := range samples {
		dr := float64(real(s)) - 1
		di := float64(imag(s))
		residualPower += dr*dr + di*di
	}
	residualPower /= float64(len(samples))

	gotSNR := 10 * math.Log10(signalPower/residualPower)
	assert.InDelta(t, snrDB, gotSNR, 1.5)
}

func TestChannelNoiseNoOpOnEmptyInput(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	var samples []protocol.Sample
	channelNoise(samples, 10, rng)
	assert.Empty(t, samples)
}

func TestOutDirPath(t *testing.T) {
	assert.Equal(t, "zc.iq", outDirPath("", "zc"))
	assert.Equal(t, "zc.iq", outDirPath(".", "zc"))
	assert.Equal(t, "out/zc.iq", outDirPath("out", "zc"))
	assert.Equal(t, "out/zc.iq", outDirPath("out/", "zc"))
}
