package main

import (
	"fmt"

	"github.com/cwsl/protodetect/config"
	"github.com/cwsl/protodetect/detector"
	"github.com/cwsl/protodetect/detectorfft"
	"github.com/cwsl/protodetect/inserter"
	"github.com/cwsl/protodetect/matchlog"
	"github.com/cwsl/protodetect/metrics"
)

func insOptsFor(coll *metrics.Collector) []inserter.Option {
	return []inserter.Option{inserter.WithMetrics(coll)}
}

// buildDetector constructs whichever detector variant cfg.Mode selects and
// returns it behind the laneDetector interface, along with the protocol
// names it will route samples to (used to open one output file per lane).
func buildDetector(cfg *config.Config, matchWriter *matchlog.Writer, capture *matchlog.Capture, coll *metrics.Collector) (laneDetector, []string, error) {
	switch cfg.Mode {
	case "time":
		names := make([]string, len(cfg.Detector.Protocols))
		for i, p := range cfg.Detector.Protocols {
			names[i] = p.Name
		}
		d, err := config.BuildDetector(cfg.Detector,
			detector.WithMatchLog(matchWriter),
			detector.WithCapture(capture),
			detector.WithMetrics(coll),
		)
		if err != nil {
			return nil, nil, err
		}
		return d, names, nil

	case "fft":
		names := make([]string, len(cfg.DetectorFFT.Protocols))
		for i, p := range cfg.DetectorFFT.Protocols {
			names[i] = p.Name
		}
		timingLog := matchlog.NewTimingWriter(cfg.DetectorFFT.TimingLogFile)
		d, err := config.BuildDetectorFFT(cfg.DetectorFFT,
			detectorfft.WithMatchLog(matchWriter),
			detectorfft.WithTimingLog(timingLog),
			detectorfft.WithCapture(capture),
			detectorfft.WithMetrics(coll),
		)
		if err != nil {
			return nil, nil, err
		}
		return d, names, nil

	default:
		return nil, nil, fmt.Errorf("unknown mode %q", cfg.Mode)
	}
}
