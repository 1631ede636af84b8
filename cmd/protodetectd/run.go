package main

import (
	"log"
	"math/rand"
	"strings"

	"github.com/cwsl/protodetect/eventbus"
	"github.com/cwsl/protodetect/inserter"
	"github.com/cwsl/protodetect/protocol"
	"github.com/cwsl/protodetect/streamio"
)

// run is the top-level driving loop: it round-trips samples from sources
// through the inserter, a noisy channel, a ring buffer, and the detector,
// standing in for the flowgraph a full runtime would wire, minus the
// actual PHY blocks on either end.
func run(
	ins *inserter.Inserter,
	det laneDetector,
	protocolNames []string,
	sources map[string]*portSource,
	outWriters map[string]*iqWriter,
	publisher *eventbus.Publisher,
	snrDB float32,
	stop <-chan struct{},
) {
	ring := streamio.NewRingBuffer(ringCap)
	rng := rand.New(rand.NewSource(2))
	insertBuf := make([]protocol.Sample, chunkSize)

	detOuts := make(map[string]*streamio.Output, len(protocolNames))
	for _, name := range protocolNames {
		detOuts[name] = &streamio.Output{Samples: make([]protocol.Sample, chunkSize)}
	}

	insFinished := false
	idleCycles := 0

	for {
		select {
		case <-stop:
			return
		default:
		}

		if !insFinished {
			inputs := make(map[string]streamio.Input, len(sources))
			for name, src := range sources {
				inputs[name] = src.peek(chunkSize)
			}

			consumedMap, produced, finished := ins.Work(inputs, &streamio.Output{Samples: insertBuf})
			for name, n := range consumedMap {
				sources[name].advance(n)
			}
			insFinished = finished

			if produced > 0 {
				channelNoise(insertBuf[:produced], snrDB, rng)
				if n := ring.TryWrite(insertBuf[:produced]); n < produced {
					log.Printf("protodetectd: ring buffer backpressure, dropped %d samples", produced-n)
				}
			}
			if insFinished {
				ring.SetFinished()
			}
		}

		peeked := ring.Peek(chunkSize)
		absBefore := det.AbsoluteIndex()
		tagCounts := make(map[string]int, len(detOuts))
		for name, out := range detOuts {
			tagCounts[name] = len(out.Tags)
		}

		in := streamio.Input{Samples: peeked, Finished: ring.Finished()}
		consumed, producedMap, detFinished := det.Work(in, detOuts)
		ring.Consume(consumed)

		for name, out := range detOuts {
			n := producedMap[name]
			if n > 0 {
				if err := outWriters[name].write(out.Samples[:n]); err != nil {
					log.Printf("protodetectd: writing %s output: %v", name, err)
				}
			}
			for _, t := range out.Tags[tagCounts[name]:] {
				if t.Tag.Kind != streamio.TagKindString {
					continue
				}
				switchedTo := strings.TrimSuffix(t.Tag.Text, " Start")
				publisher.PublishSwitch(switchedTo, absBefore+t.Index)
			}
			out.Tags = out.Tags[:0]
		}

		if detFinished {
			return
		}

		if consumed == 0 && len(peeked) == 0 && !insFinished {
			idleCycles++
			if idleCycles > 10_000_000 {
				log.Println("protodetectd: no forward progress, aborting")
				return
			}
			continue
		}
		idleCycles = 0
	}
}
