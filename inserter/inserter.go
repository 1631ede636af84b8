// Package inserter implements the MultiPortInserter: it watches N tagged
// input lanes for a per-port trigger tag, splices that port's padded
// preamble in front of the tagged burst, copies the burst body through,
// and merges everything onto one output lane. It is the test/generation-
// side counterpart to detector and detectorfft, built around the same
// state-machine style those two use for their own modal lane tracking.
package inserter

import (
	"fmt"

	"github.com/cwsl/protodetect/metrics"
	"github.com/cwsl/protodetect/protocol"
	"github.com/cwsl/protodetect/streamio"
)

// Port names one input lane, the NamedUsize tag name that triggers a burst
// on it, and the (unpadded) preamble sequence to splice in front of each
// triggered burst.
type Port struct {
	Name        string
	TriggerName string
	Sequence    protocol.Sequence
}

// Option configures an Inserter at construction.
type Option func(*Inserter)

// WithMetrics attaches a Prometheus collector. Pass nil to disable.
func WithMetrics(m *metrics.Collector) Option {
	return func(ins *Inserter) { ins.metrics = m }
}

// Inserter is the MultiPortInserter block. It is not safe for
// concurrent use: one owning goroutine per block.
type Inserter struct {
	ports   []Port
	padded  [][]protocol.Sample
	metrics *metrics.Collector

	// currentPort is the index into ports currently being drained, or -1
	// when the block is searching (idle/scanning for a trigger tag).
	currentPort          int
	insertingSequence    bool
	sequenceIndex        int
	packetLength         int
	consumedInput        int
	insertionIndex       int
	samplesAfterSequence int
	portOrder            []int
}

// New builds an Inserter. padFront and padBack zero samples are prepended
// and appended to every port's sequence at construction.
func New(ports []Port, padFront, padBack int, opts ...Option) (*Inserter, error) {
	if len(ports) == 0 {
		return nil, fmt.Errorf("inserter: at least one port is required")
	}
	seen := make(map[string]bool, len(ports))
	padded := make([][]protocol.Sample, len(ports))
	order := make([]int, len(ports))
	for i, p := range ports {
		if p.Name == "" {
			return nil, fmt.Errorf("inserter: port %d has an empty name", i)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("inserter: duplicate port name %q", p.Name)
		}
		seen[p.Name] = true

		seq := make([]protocol.Sample, padFront+p.Sequence.Len()+padBack)
		copy(seq[padFront:], p.Sequence.Data)
		padded[i] = seq
		order[i] = i
	}

	ins := &Inserter{
		ports:       ports,
		padded:      padded,
		currentPort: -1,
		portOrder:   order,
	}
	for _, opt := range opts {
		opt(ins)
	}
	return ins, nil
}

// CurrentPort returns the name of the port currently being drained, and
// false when the block is searching for a trigger tag.
func (ins *Inserter) CurrentPort() (name string, active bool) {
	if ins.currentPort == -1 {
		return "", false
	}
	return ins.ports[ins.currentPort].Name, true
}

// allFinishedAndEmpty reports whether every input lane is both exhausted
// and reports no further samples.
func allFinishedAndEmpty(ins map[string]streamio.Input, ports []Port) bool {
	for _, p := range ports {
		in, ok := ins[p.Name]
		if !ok {
			return false
		}
		if !in.Finished || len(in.Samples) > 0 {
			return false
		}
	}
	return true
}

// scan looks for the first pending trigger tag across ports, in port_order,
// and if found latches the burst-local state and rotates that port to the
// back of port_order for round-robin fairness.
func (ins *Inserter) scan(inputs map[string]streamio.Input) {
	for pos, portIdx := range ins.portOrder {
		port := ins.ports[portIdx]
		in, ok := inputs[port.Name]
		if !ok {
			continue
		}
		index, length, found := in.FindNamedUsize(port.TriggerName)
		if !found {
			continue
		}

		ins.currentPort = portIdx
		ins.insertingSequence = true
		ins.sequenceIndex = 0
		ins.packetLength = length
		ins.consumedInput = 0
		ins.insertionIndex = index
		ins.samplesAfterSequence = 0

		ins.portOrder = append(ins.portOrder[:pos], ins.portOrder[pos+1:]...)
		ins.portOrder = append(ins.portOrder, portIdx)
		return
	}
}

// Work runs one work cycle. consumed reports samples consumed
// per input port name; produced reports samples written to the single
// output lane.
func (ins *Inserter) Work(inputs map[string]streamio.Input, out *streamio.Output) (consumed map[string]int, produced int, finished bool) {
	consumed = make(map[string]int, len(ins.ports))

	if allFinishedAndEmpty(inputs, ins.ports) {
		finished = true
		return
	}

	if ins.currentPort == -1 {
		ins.scan(inputs)
	}

	if ins.currentPort == -1 {
		return
	}

	port := ins.ports[ins.currentPort]
	in := inputs[port.Name]
	input := in.Samples
	output := out.Samples
	inputConsumed := 0
	outputProduced := 0

	if ins.consumedInput < ins.insertionIndex {
		preInsertion := min(ins.insertionIndex-ins.consumedInput, len(input), len(output))
		copy(output[:preInsertion], input[:preInsertion])
		inputConsumed += preInsertion
		outputProduced += preInsertion
		ins.consumedInput += preInsertion
	}

	if ins.insertingSequence {
		sequence := ins.padded[ins.currentPort]
		toInsert := len(sequence) - ins.sequenceIndex
		dataInserted := min(toInsert, len(output)-outputProduced)
		copy(output[outputProduced:outputProduced+dataInserted], sequence[ins.sequenceIndex:ins.sequenceIndex+dataInserted])
		outputProduced += dataInserted
		ins.sequenceIndex += dataInserted
		ins.insertingSequence = ins.sequenceIndex < len(sequence)
		if !ins.insertingSequence {
			ins.sequenceIndex = 0
		}
	}

	if !ins.insertingSequence {
		remainingToCopy := ins.packetLength - ins.samplesAfterSequence
		dataToCopy := min(len(input)-inputConsumed, remainingToCopy, len(output)-outputProduced)
		copy(output[outputProduced:outputProduced+dataToCopy], input[inputConsumed:inputConsumed+dataToCopy])
		inputConsumed += dataToCopy
		outputProduced += dataToCopy
		ins.samplesAfterSequence += dataToCopy

		if ins.samplesAfterSequence >= ins.packetLength {
			ins.metrics.ObserveBurstInserted(port.Name)
			ins.currentPort = -1
			ins.insertingSequence = false
			ins.sequenceIndex = 0
			ins.packetLength = 0
			ins.consumedInput = 0
			ins.insertionIndex = 0
			ins.samplesAfterSequence = 0
		}
	}

	consumed[port.Name] = inputConsumed
	produced = outputProduced
	return
}
