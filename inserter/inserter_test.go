package inserter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwsl/protodetect/protocol"
	"github.com/cwsl/protodetect/streamio"
)

func TestInserterSinglePortSplicesPaddedPreamble(t *testing.T) {
	seqData := make([]protocol.Sample, 63)
	for i := range seqData {
		seqData[i] = 1 + 0i
	}
	seq, err := protocol.NewSequence(seqData, 0.65)
	require.NoError(t, err)

	ins, err := New([]Port{{Name: "zc", TriggerName: "burst", Sequence: seq}}, 10, 10)
	require.NoError(t, err)

	source := make([]protocol.Sample, 300)
	for i := range source {
		source[i] = -1 - 1i
	}
	in := streamio.Input{
		Samples: source,
		Tags:    []streamio.TaggedIndex{{Index: 0, Tag: streamio.NamedUsizeTag("burst", 100)}},
	}
	out := &streamio.Output{Samples: make([]protocol.Sample, 1000)}

	totalOut := 0
	for totalOut < 183 {
		_, produced, _ := ins.Work(map[string]streamio.Input{"zc": in}, out)
		totalOut += produced
		if produced == 0 {
			break
		}
		// Only the first Work call should see the tag, so later calls get
		// the same samples with the tag cleared.
		in.Tags = nil
	}

	samples := out.Samples[:totalOut]
	for i := 0; i < 10; i++ {
		assert.Zero(t, samples[i], "front pad at %d", i)
	}
	for i := 10; i < 73; i++ {
		assert.Equal(t, protocol.Sample(1+0i), samples[i])
	}
	for i := 73; i < 83; i++ {
		assert.Zero(t, samples[i], "back pad at %d", i)
	}
	for i := 83; i < 183; i++ {
		assert.Equal(t, protocol.Sample(-1-1i), samples[i])
	}
}

func TestInserterFairnessRotatesPortOrder(t *testing.T) {
	seqData := []protocol.Sample{1, 1, 1, 1}
	seq, err := protocol.NewSequence(seqData, 0.65)
	require.NoError(t, err)

	ins, err := New([]Port{
		{Name: "a", TriggerName: "burst", Sequence: seq},
		{Name: "b", TriggerName: "burst", Sequence: seq},
	}, 0, 0)
	require.NoError(t, err)

	inA := streamio.Input{
		Samples: make([]protocol.Sample, 20),
		Tags:    []streamio.TaggedIndex{{Index: 0, Tag: streamio.NamedUsizeTag("burst", 5)}},
	}
	inB := streamio.Input{
		Samples: make([]protocol.Sample, 20),
		Tags:    []streamio.TaggedIndex{{Index: 0, Tag: streamio.NamedUsizeTag("burst", 5)}},
	}
	// Room for the 4-sample preamble only, so the 5-sample burst body is
	// still pending and the port stays active after this call.
	out := &streamio.Output{Samples: make([]protocol.Sample, 4)}

	ins.Work(map[string]streamio.Input{"a": inA, "b": inB}, out)
	name, active := ins.CurrentPort()
	require.True(t, active)
	assert.Equal(t, "a", name, "port declaration order wins the first scan")
	assert.Equal(t, []int{1, 0}, ins.portOrder, "the served port moves to the back of port order")
}

func TestInserterFinishesWhenAllInputsDrained(t *testing.T) {
	seq, err := protocol.NewSequence([]protocol.Sample{1, 1}, 0.65)
	require.NoError(t, err)
	ins, err := New([]Port{{Name: "zc", TriggerName: "burst", Sequence: seq}}, 0, 0)
	require.NoError(t, err)

	in := streamio.Input{Samples: nil, Finished: true}
	out := &streamio.Output{Samples: make([]protocol.Sample, 10)}

	_, _, finished := ins.Work(map[string]streamio.Input{"zc": in}, out)
	assert.True(t, finished)
}
