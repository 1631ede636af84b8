// Command protodetectd drives the inserter and detector blocks end to end
// against a synthetic multi-protocol source or pre-recorded I/Q files
// (minus any actual WiFi/LoRa/Zigbee PHY, which stays out of scope). It is
// demo/integration wiring around the detection core, not part of the core
// itself.
package main

import (
	"flag"
	"log"
	"math"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cwsl/protodetect/config"
	"github.com/cwsl/protodetect/eventbus"
	"github.com/cwsl/protodetect/matchlog"
	"github.com/cwsl/protodetect/metrics"
	"github.com/cwsl/protodetect/protocol"
	"github.com/cwsl/protodetect/streamio"
)

const (
	chunkSize   = 4096
	ringCap     = 65536
	burstInterval = 30000
)

// laneDetector is satisfied by both detector.Detector and
// detectorfft.Detector; cmd/protodetectd drives whichever one the config
// selects through the same loop.
type laneDetector interface {
	Work(in streamio.Input, outs map[string]*streamio.Output) (consumed int, produced map[string]int, finished bool)
	CurrentProtocol() string
	AbsoluteIndex() int
}

func main() {
	configFile := flag.String("config", "protodetect.yaml", "Path to configuration file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	inDir := flag.String("in-dir", "", "Directory of <port>.iq + <port>.triggers files (default: synthetic generator)")
	outDir := flag.String("out-dir", ".", "Directory to write <protocol>.iq output files")
	snrDB := flag.Float64("snr-db", 30, "Channel SNR in dB applied between the inserter and the detector")
	numSamples := flag.Int("num-samples", 2_000_000, "Total samples to run through the synthetic generator")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("protodetectd: loading config: %v", err)
	}
	if *debug {
		cfg.Detector.Debug = true
		cfg.DetectorFFT.Debug = true
	}

	coll := setupMetrics(cfg.Metrics)
	matchWriter, capture := setupMatchLog(cfg.MatchLog)
	defer matchWriter.Close()
	defer capture.Close()
	publisher := setupEventBus(cfg.MQTT)
	defer publisher.Close()

	ports, err := cfg.Inserter.Build()
	if err != nil {
		log.Fatalf("protodetectd: building inserter ports: %v", err)
	}
	ins, err := config.BuildInserter(cfg.Inserter, insOptsFor(coll)...)
	if err != nil {
		log.Fatalf("protodetectd: building inserter: %v", err)
	}

	det, protocolNames, err := buildDetector(cfg, matchWriter, capture, coll)
	if err != nil {
		log.Fatalf("protodetectd: building detector: %v", err)
	}
	if closer, ok := det.(interface{ Close() error }); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				log.Printf("protodetectd: closing detector: %v", err)
			}
		}()
	}

	outWriters := make(map[string]*iqWriter, len(protocolNames))
	for _, name := range protocolNames {
		w, err := newIQWriter(outDirPath(*outDir, name))
		if err != nil {
			log.Fatalf("protodetectd: opening output for %s: %v", name, err)
		}
		outWriters[name] = w
		defer w.Close()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	stop := make(chan struct{})
	go func() {
		<-sigChan
		log.Println("protodetectd: shutting down")
		close(stop)
	}()

	var sources map[string]*portSource
	if *inDir != "" {
		sources, err = loadFileSources(*inDir, ports)
	} else {
		sources = newSyntheticSources(ports, burstInterval, *numSamples)
	}
	if err != nil {
		log.Fatalf("protodetectd: loading input sources: %v", err)
	}

	run(ins, det, protocolNames, sources, outWriters, publisher, float32(*snrDB), stop)
}

func setupMetrics(mc config.MetricsConfig) *metrics.Collector {
	if !mc.Enabled {
		return nil
	}
	coll := metrics.New(prometheus.DefaultRegisterer)
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		log.Printf("protodetectd: serving metrics on %s", mc.Listen)
		if err := http.ListenAndServe(mc.Listen, mux); err != nil {
			log.Printf("protodetectd: metrics server stopped: %v", err)
		}
	}()
	return coll
}

func setupMatchLog(mc config.MatchLogConfig) (*matchlog.Writer, *matchlog.Capture) {
	var writer *matchlog.Writer
	if mc.Enabled {
		w, err := matchlog.NewWriter(mc.Path, mc.RunID)
		if err != nil {
			log.Fatalf("protodetectd: opening match log: %v", err)
		}
		writer = w
	}
	var capture *matchlog.Capture
	if mc.CaptureEnabled {
		c, err := matchlog.NewCapture(mc.CapturePath)
		if err != nil {
			log.Fatalf("protodetectd: opening capture file: %v", err)
		}
		capture = c
	}
	return writer, capture
}

func setupEventBus(mc config.MQTTConfig) *eventbus.Publisher {
	if !mc.Enabled {
		return nil
	}
	pub, err := eventbus.NewPublisher(mc.Broker, mc.ClientID, mc.Topic)
	if err != nil {
		log.Printf("protodetectd: mqtt connect failed, continuing without event bus: %v", err)
		return nil
	}
	return pub
}

func outDirPath(dir, protocolName string) string {
	if dir == "" || dir == "." {
		return protocolName + ".iq"
	}
	return strings.TrimSuffix(dir, "/") + "/" + protocolName + ".iq"
}

// channelNoise adds complex Gaussian noise to samples at the configured
// SNR, standing in for the noisy channel between the inserter and the
// detector.
func channelNoise(samples []protocol.Sample, snrDB float32, rng *rand.Rand) {
	if len(samples) == 0 {
		return
	}
	var power float64
	for _, s := range samples {
		r, i := float64(real(s)), float64(imag(s))
		power += r*r + i*i
	}
	power /= float64(len(samples))
	if power == 0 {
		power = 1
	}
	noisePower := power / math.Pow(10, float64(snrDB)/10)
	stddev := math.Sqrt(noisePower / 2)
	for i, s := range samples {
		re := float32(rng.NormFloat64() * stddev)
		im := float32(rng.NormFloat64() * stddev)
		samples[i] = s + protocol.Sample(complex(re, im))
	}
}
