package main

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"github.com/cwsl/protodetect/inserter"
	"github.com/cwsl/protodetect/protocol"
	"github.com/cwsl/protodetect/streamio"
)

// syntheticPacketLen is the fixed burst length the built-in generator
// tags on each port.
const syntheticPacketLen = 2000

// portSource holds one inserter input lane's full, pre-generated sample
// buffer and trigger tags, and hands out bounded windows of it the way a
// ring-buffer-backed runtime would feed a block's Input view.
type portSource struct {
	samples []protocol.Sample
	tags    []streamio.TaggedIndex
	cursor  int
}

// peek returns the next up-to-n samples without advancing the cursor;
// callers call advance once they know how much the inserter actually
// consumed this cycle.
func (ps *portSource) peek(n int) streamio.Input {
	end := min(ps.cursor+n, len(ps.samples))
	window := ps.samples[ps.cursor:end]

	var tags []streamio.TaggedIndex
	for _, t := range ps.tags {
		if t.Index >= ps.cursor && t.Index < end {
			tags = append(tags, streamio.TaggedIndex{Index: t.Index - ps.cursor, Tag: t.Tag})
		}
	}
	return streamio.Input{Samples: window, Tags: tags, Finished: end >= len(ps.samples)}
}

func (ps *portSource) advance(n int) {
	ps.cursor = min(ps.cursor+n, len(ps.samples))
}

// newSyntheticSources builds one portSource per port filled with low-level
// noise and periodic trigger-tagged bursts, phase-offset across ports so
// they do not all fire in lockstep, giving each inserter port its own
// independent burst-generating input stream.
func newSyntheticSources(ports []inserter.Port, interval, total int) map[string]*portSource {
	rng := rand.New(rand.NewSource(1))
	sources := make(map[string]*portSource, len(ports))
	for i, p := range ports {
		samples := make([]protocol.Sample, total)
		for j := range samples {
			samples[j] = protocol.Sample(complex(float32(rng.NormFloat64())*0.05, float32(rng.NormFloat64())*0.05))
		}

		var tags []streamio.TaggedIndex
		phase := (interval / max(len(ports), 1)) * i
		for start := phase + interval; start+syntheticPacketLen < total; start += interval {
			tags = append(tags, streamio.TaggedIndex{Index: start, Tag: streamio.NamedUsizeTag(p.TriggerName, syntheticPacketLen)})
		}
		sources[p.Name] = &portSource{samples: samples, tags: tags}
	}
	return sources
}

// loadFileSources reads "<dir>/<port>.iq" (little-endian I/Q) and an
// optional "<dir>/<port>.triggers" side file (lines of "index length") for
// each configured port.
func loadFileSources(dir string, ports []inserter.Port) (map[string]*portSource, error) {
	sources := make(map[string]*portSource, len(ports))
	for _, p := range ports {
		samples, err := readIQFile(dir + "/" + p.Name + ".iq")
		if err != nil {
			return nil, err
		}
		tags, err := readTriggerFile(dir+"/"+p.Name+".triggers", p.TriggerName)
		if err != nil {
			return nil, err
		}
		sources[p.Name] = &portSource{samples: samples, tags: tags}
	}
	return sources, nil
}

func readTriggerFile(path, triggerName string) ([]streamio.TaggedIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	defer f.Close()

	var tags []streamio.TaggedIndex
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("%s: malformed trigger line %q", path, line)
		}
		index, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		length, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		tags = append(tags, streamio.TaggedIndex{Index: index, Tag: streamio.NamedUsizeTag(triggerName, length)})
	}
	return tags, scanner.Err()
}
