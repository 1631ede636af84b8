// Package detectorfft implements the FFT-accelerated ProtocolDetectorFFT: it
// locates the sync sequence via frequency-domain correlation on overlapping
// windows, then confirms the protocol with a short time-domain correlation
// against the winning candidate's discriminator. It exists to drop the
// sync-search cost from O(N*L_sync) to roughly O(N*log(L_sync)); the
// detector package next door carries the brute-force, time-domain-only
// sibling of this block.
package detectorfft

import (
	"fmt"
	"log"
	"math"
	"time"

	"gonum.org/v1/gonum/dsp/fourier"

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

// WithTimingLog attaches the IFFT timing-summary writer. Pass nil
// to disable.
func WithTimingLog(w *matchlog.TimingWriter) Option {
	return func(d *Detector) { d.timingLog = w }
}

// WithMetrics attaches a Prometheus collector. Pass nil to disable.
func WithMetrics(m *metrics.Collector) Option {
	return func(d *Detector) { d.metrics = m }
}

// WithDebug enables verbose per-correlation logging.
func WithDebug(enabled bool) Option {
	return func(d *Detector) { d.debug = enabled }
}

// WithCapture attaches a raw-window capture sink. Pass nil to disable.
func WithCapture(c *matchlog.Capture) Option {
	return func(d *Detector) { d.capture = c }
}

// Detector is the FFT-accelerated ProtocolDetectorFFT block. Every protocol
// registered with it must carry exactly one discriminator sequence, and all
// discriminators must share one even length L_disc. A *Detector
// is not safe for concurrent use.
type Detector struct {
	sync       protocol.Sequence
	syncCoeffs []complex128
	fft        *fourier.CmplxFFT
	window     int // W = 2*L_sync
	step       int // L_sync

	protocols []protocol.Protocol
	discLen   int

	currentProtocol int
	absoluteIndex   int
	totalIFFTTime   time.Duration

	matchLog  *matchlog.Writer
	timingLog *matchlog.TimingWriter
	capture   *matchlog.Capture
	metrics   *metrics.Collector
	debug     bool
}

// New builds an FFT-accelerated Detector around sync and protocols.
func New(sync protocol.Sequence, protocols []protocol.Protocol, opts ...Option) (*Detector, error) {
	if len(protocols) == 0 {
		return nil, fmt.Errorf("detectorfft: at least one protocol is required")
	}
	firstDiscs := protocols[0].Discriminators
	if len(firstDiscs) != 1 {
		return nil, fmt.Errorf("detectorfft: protocol %q must carry exactly one discriminator, has %d", protocols[0].Name, len(firstDiscs))
	}
	L := firstDiscs[0].Len()
	if L%2 != 0 {
		return nil, fmt.Errorf("detectorfft: discriminator length %d must be even", L)
	}
	for _, p := range protocols[1:] {
		if len(p.Discriminators) != 1 {
			return nil, fmt.Errorf("detectorfft: protocol %q must carry exactly one discriminator, has %d", p.Name, len(p.Discriminators))
		}
		if p.Discriminators[0].Len() != L {
			return nil, fmt.Errorf("detectorfft: protocol %q discriminator length %d does not match %d", p.Name, p.Discriminators[0].Len(), L)
		}
	}

	W := 2 * sync.Len()
	fft := fourier.NewCmplxFFT(W)
	padded := make([]complex128, W)
	for i, s := range sync.Data {
		padded[i] = complex(float64(real(s)), float64(imag(s)))
	}
	syncCoeffs := fft.Coefficients(nil, padded)

	d := &Detector{
		sync:       sync,
		syncCoeffs: syncCoeffs,
		fft:        fft,
		window:     W,
		step:       sync.Len(),
		protocols:  protocols,
		discLen:    L,
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
// construction.
func (d *Detector) AbsoluteIndex() int {
	return d.absoluteIndex
}

// Close flushes the IFFT timing summary. Safe to call once at
// shutdown; a nil timing-log writer makes this a no-op.
func (d *Detector) Close() error {
	return d.timingLog.Write(d.totalIFFTTime)
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

// syncWindowNorms returns sqrt(sum |window[j..j+L_sync]|^2) for
// j in [0, L_sync), using an O(1)-per-step rolling sum of squared
// magnitudes rather than recomputing each window's norm from scratch. The
// rolling accumulator is scoped to a single Work call: carrying it across
// calls would require reconciling the lookahead the FFT windows keep past
// the consumed boundary with each call's fresh input view, which is more
// bookkeeping than the accumulator saves.
func syncWindowNorms(window []protocol.Sample, lsync int) []float32 {
	norms := make([]float32, lsync)

	var sum float64
	for _, s := range window[:lsync] {
		r, i := float64(real(s)), float64(imag(s))
		sum += r*r + i*i
	}
	norms[0] = float32(math.Sqrt(sum))

	for j := 1; j < lsync; j++ {
		out := window[j-1]
		in := window[j-1+lsync]
		or, oi := float64(real(out)), float64(imag(out))
		ir, ii := float64(real(in)), float64(imag(in))
		sum = sum - (or*or + oi*oi) + (ir*ir + ii*ii)
		if sum < 0 {
			sum = 0
		}
		norms[j] = float32(math.Sqrt(sum))
	}
	return norms
}

// syncCorrelate runs the FFT-domain correlation of window against the sync
// sequence, normalized per-position by norms, and returns the first
// position whose correlation clears the sync threshold.
func (d *Detector) syncCorrelate(window []protocol.Sample, norms []float32) (hit int, found bool) {
	buf := make([]complex128, d.window)
	for i, s := range window {
		buf[i] = complex(float64(real(s)), float64(imag(s)))
	}
	coeffs := d.fft.Coefficients(nil, buf)
	for i, c := range coeffs {
		coeffs[i] = c * cmplxConj(d.syncCoeffs[i])
	}

	start := time.Now()
	corr := d.fft.Sequence(nil, coeffs)
	elapsed := time.Since(start)
	d.totalIFFTTime += elapsed
	d.metrics.ObserveIFFTDuration(elapsed)

	syncNorm := float64(d.sync.Norm())
	for j := 0; j < d.sync.Len(); j++ {
		if norms[j] == 0 {
			continue
		}
		normalized := real(corr[j]) / (float64(norms[j]) * syncNorm * float64(d.window))
		if d.debug {
			log.Printf("detectorfft: j=%d rho=%.4f threshold=%.4f", j, normalized, d.sync.Threshold)
		}
		if float32(normalized) >= d.sync.Threshold {
			return j, true
		}
	}
	return 0, false
}

func cmplxConj(c complex128) complex128 {
	return complex(real(c), -imag(c))
}

// matchDiscriminator tests each protocol's discriminator against
// input[start:start+L_disc] in declaration order, returning the index of
// the first match.
func (d *Detector) matchDiscriminator(input []protocol.Sample, start int) (protoIdx int, found bool) {
	if start+d.discLen > len(input) {
		return 0, false
	}
	window := input[start : start+d.discLen]
	for p, proto := range d.protocols {
		seq := proto.Discriminators[0]
		rho := protocol.Correlate(window, seq)
		if d.debug {
			log.Printf("detectorfft: protocol=%s rho=%.4f threshold=%.4f", proto.Name, rho, seq.Threshold)
		}
		if rho >= seq.Threshold {
			return p, true
		}
	}
	return 0, false
}

type hit struct {
	protoIdx int
	index    int
}

// Work runs one work cycle. It mirrors detector.Detector.Work's
// contract: returns samples consumed, samples produced per protocol lane,
// and whether the block has finished.
func (d *Detector) Work(in streamio.Input, outs map[string]*streamio.Output) (consumed int, produced map[string]int, finished bool) {
	W := d.window
	minOut := d.minOutputLen(outs)

	maxProcess := len(in.Samples) - int(math.Ceil(1.5*float64(W))) + 1
	if alt := minOut - W + 1; alt < maxProcess {
		maxProcess = alt
	}
	maxProcess--
	if maxProcess < 0 {
		maxProcess = 0
	}

	matches := []hit{{d.currentProtocol, 0}}
	i := 0
	for i < maxProcess {
		window := in.Samples[i : i+W]
		norms := syncWindowNorms(window, d.sync.Len())

		if hitOffset, ok := d.syncCorrelate(window, norms); ok {
			d.metrics.ObserveSyncHit()
			seqStart := i + hitOffset + d.sync.Len()
			if protoIdx, ok := d.matchDiscriminator(in.Samples, seqStart); ok {
				name := d.protocols[protoIdx].Name
				absIdx := d.absoluteIndex + i + hitOffset
				if protoIdx != d.currentProtocol {
					log.Printf("detectorfft: switching from %s to %s at absolute index %d",
						d.protocols[d.currentProtocol].Name, name, absIdx)
				}
				d.matchLog.LogMatch(absIdx, name)
				matches = append(matches, hit{protoIdx, i + hitOffset})
				d.currentProtocol = protoIdx
			} else {
				d.metrics.ObserveSyncDiscarded()
			}
		}
		i += d.step
	}
	matches = append(matches, hit{d.currentProtocol, i})

	produced = make(map[string]int, len(d.protocols))
	for idx := 0; idx+1 < len(matches); idx++ {
		start, end := matches[idx].index, matches[idx+1].index
		if end <= start {
			continue
		}
		name := d.protocols[matches[idx].protoIdx].Name
		out := outs[name]
		offset := produced[name]

		if idx > 0 && matches[idx-1].protoIdx != matches[idx].protoIdx {
			out.AttachTag(offset, streamio.StringTag(name+" Start"))
			d.metrics.ObserveLaneSwitch(name)
			windowLen := d.sync.Len() + d.discLen
			if window := in.Samples[start:min(start+windowLen, len(in.Samples))]; len(window) > 0 {
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
	if total != i {
		panic(fmt.Sprintf("detectorfft: invariant violation: routed %d samples but scanned %d", total, i))
	}
	for name, n := range produced {
		d.metrics.ObserveSamplesRouted(name, n)
	}

	d.absoluteIndex += total
	consumed = total

	if in.Finished {
		remaining := in.Samples[total:]
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
