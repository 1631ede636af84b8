package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustSeq(t *testing.T, data []Sample, threshold float32) Sequence {
	t.Helper()
	seq, err := NewSequence(data, threshold)
	require.NoError(t, err)
	return seq
}

func TestValidateProtocolFamilyRejectsEmpty(t *testing.T) {
	err := ValidateProtocolFamily(nil)
	assert.Error(t, err)
}

func TestValidateProtocolFamilyRejectsMismatchedLengths(t *testing.T) {
	a, err := NewProtocol("a",
		mustSeq(t, make([]Sample, 8), 1),
		[]Sequence{mustSeq(t, make([]Sample, 4), 1)})
	require.NoError(t, err)

	b, err := NewProtocol("b",
		mustSeq(t, make([]Sample, 8), 1),
		[]Sequence{mustSeq(t, make([]Sample, 5), 1)})
	require.NoError(t, err)

	err = ValidateProtocolFamily([]Protocol{a, b})
	assert.Error(t, err)
}

func TestValidateProtocolFamilyAcceptsMatchingFamily(t *testing.T) {
	a, err := NewProtocol("a",
		mustSeq(t, make([]Sample, 8), 1),
		[]Sequence{mustSeq(t, make([]Sample, 4), 1)})
	require.NoError(t, err)

	b, err := NewProtocol("b",
		mustSeq(t, make([]Sample, 8), 1),
		[]Sequence{mustSeq(t, make([]Sample, 4), 1)})
	require.NoError(t, err)

	require.NoError(t, ValidateProtocolFamily([]Protocol{a, b}))
	assert.Equal(t, 8, PreambleLen([]Protocol{a, b}))
}

func TestNewProtocolRequiresName(t *testing.T) {
	_, err := NewProtocol("", mustSeq(t, make([]Sample, 4), 1), []Sequence{mustSeq(t, make([]Sample, 2), 1)})
	assert.Error(t, err)
}

func TestNewProtocolRequiresDiscriminator(t *testing.T) {
	_, err := NewProtocol("x", mustSeq(t, make([]Sample, 4), 1), nil)
	assert.Error(t, err)
}
