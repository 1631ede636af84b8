package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwsl/protodetect/inserter"
	"github.com/cwsl/protodetect/protocol"
	"github.com/cwsl/protodetect/streamio"
)

func TestPortSourcePeekReindexesTagsRelativeToWindow(t *testing.T) {
	samples := make([]protocol.Sample, 10)
	ps := &portSource{
		samples: samples,
		tags:    []streamio.TaggedIndex{{Index: 6, Tag: streamio.NamedUsizeTag("burst", 4)}},
	}

	in := ps.peek(5)
	assert.Len(t, in.Samples, 5)
	assert.Empty(t, in.Tags)
	assert.False(t, in.Finished)

	ps.advance(5)
	in = ps.peek(5)
	require.Len(t, in.Tags, 1)
	assert.Equal(t, 1, in.Tags[0].Index)
	assert.True(t, in.Finished)
}

func TestPortSourceAdvanceNeverOverrunsBuffer(t *testing.T) {
	ps := &portSource{samples: make([]protocol.Sample, 4)}
	ps.advance(100)
	assert.Equal(t, 4, ps.cursor)
	assert.Empty(t, ps.peek(10).Samples)
}

func TestNewSyntheticSourcesPhaseOffsetsPorts(t *testing.T) {
	ports := []inserter.Port{{Name: "a", TriggerName: "ta"}, {Name: "b", TriggerName: "tb"}}
	sources := newSyntheticSources(ports, 1000, 5000)

	require.Len(t, sources, 2)
	a := sources["a"]
	b := sources["b"]
	require.NotEmpty(t, a.tags)
	require.NotEmpty(t, b.tags)
	assert.NotEqual(t, a.tags[0].Index, b.tags[0].Index)
	assert.Equal(t, syntheticPacketLen, a.tags[0].Tag.Value)
}
