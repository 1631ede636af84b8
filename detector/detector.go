// Package detector implements the time-domain ProtocolDetector: a sliding
// normalized cross-correlation against each protocol's full preamble
// (sync || discriminator), switching the active output lane on the first
// protocol that matches.
package detector

import (
	"fmt"
	"log"

	"github.com/cwsl/protodetect/matchlog"
	"github.com/cwsl/protodetect/metrics"
	"github.com/cwsl/protodetect/protocol"
	"github.com/cwsl/protodetect/streamio"
)

// Option configures a Detector at construction.
type Option func(*Detector)

// WithMatchLog attaches a match-log writer. Pass nil to disable.
func WithMatchLog(w *matchlog.Writer) Option {
	return func(d *Detector) { d.matchLog = w }
}

// WithMetrics attaches a Prometheus collector. Pass nil to disable.
func WithMetrics(m *metrics.Collector) Option {
	return func(d *Detector) { d.metrics = m }
}

// WithDebug enables verbose per-correlation logging, mirroring the
// teacher's debug_enabled-gated log.Printf conditionals.
func WithDebug(enabled bool) Option {
	return func(d *Detector) { d.debug = enabled }
}

// WithCapture attaches a raw-window capture sink. Pass nil to disable.
func WithCapture(c *matchlog.Capture) Option {
	return func(d *Detector) { d.capture = c }
}

// Detector is the time-domain ProtocolDetector block. A *Detector is not
// safe for concurrent use: each instance expects a single owning goroutine.
type Detector struct {
	protocols   []protocol.Protocol
	testChains  [][]protocol.Sequence
	preambleLen int

	currentProtocol int
	absoluteIndex   int

	matchLog *matchlog.Writer
	capture  *matchlog.Capture
	metrics  *metrics.Collector
	debug    bool
}

// New builds a time-domain Detector. sync is an optional shared sync
// sequence; when non-nil it is prepended to each protocol's discriminators
// to build the per-protocol match chain. When sync is nil, each protocol's
// discriminators are assumed to already include any sync prefix the caller
// wants tested.
func New(protocols []protocol.Protocol, sync *protocol.Sequence, opts ...Option) (*Detector, error) {
	if err := protocol.ValidateProtocolFamily(protocols); err != nil {
		return nil, fmt.Errorf("detector: %w", err)
	}

	chains := make([][]protocol.Sequence, len(protocols))
	chainLen := -1
	for i, p := range protocols {
		var chain []protocol.Sequence
		if sync != nil {
			chain = append(chain, *sync)
		}
		chain = append(chain, p.Discriminators...)

		total := 0
		for _, seq := range chain {
			total += seq.Len()
		}
		if chainLen == -1 {
			chainLen = total
		} else if total != chainLen {
			return nil, fmt.Errorf("detector: protocol %q match-chain length %d does not match %d", p.Name, total, chainLen)
		}
		if total != p.FullPreamble.Len() {
			return nil, fmt.Errorf("detector: protocol %q match-chain length %d does not match its full preamble length %d", p.Name, total, p.FullPreamble.Len())
		}
		chains[i] = chain
	}

	d := &Detector{
		protocols:   protocols,
		testChains:  chains,
		preambleLen: protocol.PreambleLen(protocols),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// CurrentProtocol returns the name of the protocol samples are currently
// being routed to.
func (d *Detector) CurrentProtocol() string {
	return d.protocols[d.currentProtocol].Name
}

// AbsoluteIndex returns the count of input samples consumed since
// construction. Used for logging and event correlation only.
func (d *Detector) AbsoluteIndex() int {
	return d.absoluteIndex
}

func (d *Detector) minOutputLen(outs map[string]*streamio.Output) int {
	min := -1
	for _, p := range d.protocols {
		out, ok := outs[p.Name]
		if !ok {
			return 0
		}
		if min == -1 || len(out.Samples) < min {
			min = len(out.Samples)
		}
	}
	if min == -1 {
		return 0
	}
	return min
}

// matchAt tests whether the window starting at index i in input matches
// protocol p's chain, short-circuiting on the first sub-correlation below
// threshold.
func (d *Detector) matchAt(input []protocol.Sample, i, p int) bool {
	offset := 0
	for _, seq := range d.testChains[p] {
		l := seq.Len()
		if i+offset+l > len(input) {
			return false
		}
		window := input[i+offset : i+offset+l]
		rho := protocol.Correlate(window, seq)
		if d.debug {
			log.Printf("detector: protocol=%s offset=%d rho=%.4f threshold=%.4f", d.protocols[p].Name, offset, rho, seq.Threshold)
		}
		if rho < seq.Threshold {
			return false
		}
		offset += l
	}
	return true
}

type hit struct {
	protoIdx int
	index    int
}

// Work runs one work cycle. It returns the number of
// input samples consumed this cycle, how many of those samples were
// produced onto each protocol's output lane, and whether the block has now
// finished (input exhausted and fully drained).
func (d *Detector) Work(in streamio.Input, outs map[string]*streamio.Output) (consumed int, produced map[string]int, finished bool) {
	L := d.preambleLen
	minOut := d.minOutputLen(outs)

	maxProcess := len(in.Samples) - L + 1
	if minOut < maxProcess {
		maxProcess = minOut
	}
	maxProcess--
	if maxProcess < 0 {
		maxProcess = 0
	}

	matches := []hit{{d.currentProtocol, 0}}
	for i := 0; i < maxProcess; i++ {
		for p := range d.protocols {
			if !d.matchAt(in.Samples, i, p) {
				continue
			}
			if p != d.currentProtocol {
				matches = append(matches, hit{p, i})
				d.currentProtocol = p
			}
			break
		}
	}
	matches = append(matches, hit{d.currentProtocol, maxProcess})

	produced = make(map[string]int, len(d.protocols))
	for i := 0; i+1 < len(matches); i++ {
		protoIdx := matches[i].protoIdx
		start, end := matches[i].index, matches[i+1].index
		if end == start {
			continue
		}
		name := d.protocols[protoIdx].Name
		out := outs[name]
		offset := produced[name]

		if i > 0 {
			prevName := d.protocols[matches[i-1].protoIdx].Name
			out.AttachTag(offset, streamio.StringTag(name+" Start"))
			log.Printf("detector: switching from %s to %s at absolute index %d",
				prevName, name, d.absoluteIndex+start)
			d.matchLog.LogMatch(d.absoluteIndex+start, name)
			d.metrics.ObserveLaneSwitch(name)
			if window := in.Samples[start:min(start+d.preambleLen, len(in.Samples))]; len(window) > 0 {
				d.capture.Record(d.absoluteIndex+start, name, window)
			}
		}

		copy(out.Samples[offset:offset+(end-start)], in.Samples[start:end])
		produced[name] += end - start
	}

	total := 0
	for _, n := range produced {
		total += n
	}
	if total != maxProcess {
		panic(fmt.Sprintf("detector: invariant violation: routed %d samples but consumed %d", total, maxProcess))
	}
	for name, n := range produced {
		d.metrics.ObserveSamplesRouted(name, n)
	}

	d.absoluteIndex += maxProcess
	consumed = maxProcess

	if in.Finished {
		remaining := in.Samples[maxProcess:]
		if len(remaining) == 0 {
			finished = true
			return
		}
		name := d.protocols[d.currentProtocol].Name
		if out, ok := outs[name]; ok && len(out.Samples) > produced[name] {
			out.Samples[produced[name]] = remaining[0]
			produced[name]++
			d.metrics.ObserveSamplesRouted(name, 1)
			d.absoluteIndex++
			consumed++
		}
	}
	return
}
