// Package config loads the YAML construction parameters for a
// protodetectd instance: a top-level Config validated before anything
// else starts. Every sub-struct here follows the same nesting convention:
// plain exported fields, yaml tags matching the field's snake_case name,
// and a handful of load-time defaults applied after unmarshal because a
// zero value and an absent field are indistinguishable to yaml.Unmarshal.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cwsl/protodetect/detector"
	"github.com/cwsl/protodetect/detectorfft"
	"github.com/cwsl/protodetect/inserter"
	"github.com/cwsl/protodetect/protocol"
)

// Config is the top-level configuration for a protodetectd instance.
type Config struct {
	// Mode selects which detector variant cmd/protodetectd builds:
	// "time" (detector.Detector) or "fft" (detectorfft.Detector).
	Mode        string            `yaml:"mode"`
	Detector    DetectorConfig    `yaml:"detector,omitempty"`
	DetectorFFT DetectorFFTConfig `yaml:"detector_fft,omitempty"`
	Inserter    InserterConfig    `yaml:"inserter"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	MatchLog    MatchLogConfig    `yaml:"match_log"`
}

// SequenceConfig describes one constant-amplitude reference sequence,
// either as literal I/Q data or as Zadoff-Chu generation parameters.
// Exactly one of Data or ZadoffChu must be set.
type SequenceConfig struct {
	Data      [][2]float32     `yaml:"data,omitempty"`
	ZadoffChu *ZadoffChuConfig `yaml:"zadoff_chu,omitempty"`
	Threshold float32          `yaml:"threshold"`
}

// ZadoffChuConfig parameterizes protocol.GenerateZadoffChu.
type ZadoffChuConfig struct {
	Root   uint32 `yaml:"root"`
	Length uint32 `yaml:"length"`
	Q      int    `yaml:"q"`
}

// Build resolves a SequenceConfig into a protocol.Sequence, generating the
// underlying samples from ZadoffChu if Data was not given literally.
func (sc SequenceConfig) Build() (protocol.Sequence, error) {
	var data []protocol.Sample
	switch {
	case len(sc.Data) > 0:
		data = make([]protocol.Sample, len(sc.Data))
		for i, pair := range sc.Data {
			data[i] = protocol.Sample(complex(pair[0], pair[1]))
		}
	case sc.ZadoffChu != nil:
		samples, err := protocol.GenerateZadoffChu(sc.ZadoffChu.Root, sc.ZadoffChu.Length, sc.ZadoffChu.Q)
		if err != nil {
			return protocol.Sequence{}, fmt.Errorf("config: generating zadoff-chu sequence: %w", err)
		}
		data = samples
	default:
		return protocol.Sequence{}, fmt.Errorf("config: sequence must set either data or zadoff_chu")
	}
	return protocol.NewSequence(data, sc.Threshold)
}

// ProtocolConfig describes one protocol family member.
type ProtocolConfig struct {
	Name           string           `yaml:"name"`
	FullPreamble   SequenceConfig   `yaml:"full_preamble"`
	Discriminators []SequenceConfig `yaml:"discriminators"`
}

// Build resolves a ProtocolConfig into a protocol.Protocol.
func (pc ProtocolConfig) Build() (protocol.Protocol, error) {
	full, err := pc.FullPreamble.Build()
	if err != nil {
		return protocol.Protocol{}, fmt.Errorf("config: protocol %q full_preamble: %w", pc.Name, err)
	}
	discs := make([]protocol.Sequence, len(pc.Discriminators))
	for i, dc := range pc.Discriminators {
		seq, err := dc.Build()
		if err != nil {
			return protocol.Protocol{}, fmt.Errorf("config: protocol %q discriminator %d: %w", pc.Name, i, err)
		}
		discs[i] = seq
	}
	return protocol.NewProtocol(pc.Name, full, discs)
}

func buildProtocols(configs []ProtocolConfig) ([]protocol.Protocol, error) {
	protocols := make([]protocol.Protocol, len(configs))
	for i, pc := range configs {
		p, err := pc.Build()
		if err != nil {
			return nil, err
		}
		protocols[i] = p
	}
	return protocols, nil
}

// DetectorConfig configures the time-domain detector.Detector. Sync is the
// optional shared sync sequence detector.New prepends to every protocol's
// discriminator chain; leave it nil when each protocol's discriminators
// already include any sync prefix.
type DetectorConfig struct {
	Sync      *SequenceConfig  `yaml:"sync,omitempty"`
	Protocols []ProtocolConfig `yaml:"protocols"`
	Debug     bool             `yaml:"debug"`
	LogFile   string           `yaml:"log_file,omitempty"`
}

// Build resolves the optional sync sequence and protocol family for the
// time-domain detector.
func (dc DetectorConfig) Build() (*protocol.Sequence, []protocol.Protocol, error) {
	if len(dc.Protocols) == 0 {
		return nil, nil, fmt.Errorf("config: detector.protocols must not be empty")
	}
	protocols, err := buildProtocols(dc.Protocols)
	if err != nil {
		return nil, nil, err
	}
	if dc.Sync == nil {
		return nil, protocols, nil
	}
	sync, err := dc.Sync.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("config: detector.sync: %w", err)
	}
	return &sync, protocols, nil
}

// DetectorFFTConfig configures the FFT-accelerated detectorfft.Detector.
type DetectorFFTConfig struct {
	Sync          SequenceConfig   `yaml:"sync"`
	Protocols     []ProtocolConfig `yaml:"protocols"`
	Debug         bool             `yaml:"debug"`
	LogFile       string           `yaml:"log_file,omitempty"`
	TimingLogFile string           `yaml:"timing_log_file,omitempty"`
}

// Build resolves the sync sequence and protocol family for the FFT
// detector.
func (dc DetectorFFTConfig) Build() (protocol.Sequence, []protocol.Protocol, error) {
	if len(dc.Protocols) == 0 {
		return protocol.Sequence{}, nil, fmt.Errorf("config: detector_fft.protocols must not be empty")
	}
	sync, err := dc.Sync.Build()
	if err != nil {
		return protocol.Sequence{}, nil, fmt.Errorf("config: detector_fft.sync: %w", err)
	}
	protocols, err := buildProtocols(dc.Protocols)
	if err != nil {
		return protocol.Sequence{}, nil, err
	}
	return sync, protocols, nil
}

// PortConfig describes one MultiPortInserter lane.
type PortConfig struct {
	Name        string         `yaml:"name"`
	TriggerName string         `yaml:"trigger_name"`
	Sequence    SequenceConfig `yaml:"sequence"`
}

// InserterConfig configures the inserter.Inserter.
type InserterConfig struct {
	Ports    []PortConfig `yaml:"ports"`
	PadFront int          `yaml:"pad_front"`
	PadBack  int          `yaml:"pad_back"`
}

// Build resolves the port table for the inserter.
func (ic InserterConfig) Build() ([]inserter.Port, error) {
	if len(ic.Ports) == 0 {
		return nil, fmt.Errorf("config: inserter.ports must not be empty")
	}
	ports := make([]inserter.Port, len(ic.Ports))
	for i, pc := range ic.Ports {
		seq, err := pc.Sequence.Build()
		if err != nil {
			return nil, fmt.Errorf("config: inserter port %q sequence: %w", pc.Name, err)
		}
		ports[i] = inserter.Port{Name: pc.Name, TriggerName: pc.TriggerName, Sequence: seq}
	}
	return ports, nil
}

// MetricsConfig controls the optional Prometheus /metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen,omitempty"`
}

// MQTTTLSConfig holds TLS settings for the MQTT event-bus connection. They
// are parsed but not applied: the publisher always connects without TLS.
type MQTTTLSConfig struct {
	Enabled    bool   `yaml:"enabled"`
	CACert     string `yaml:"ca_cert"`
	ClientCert string `yaml:"client_cert"`
	ClientKey  string `yaml:"client_key"`
}

// MQTTConfig controls the optional switch-event publisher.
type MQTTConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Broker   string        `yaml:"broker"`
	ClientID string        `yaml:"client_id"`
	Topic    string        `yaml:"topic"`
	TLS      MQTTTLSConfig `yaml:"tls"`
}

// MatchLogConfig controls the match-log file, the optional zstd raw-window
// capture, and the run identifier tagging records from this instance.
type MatchLogConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Path           string `yaml:"path,omitempty"`
	RunID          string `yaml:"run_id,omitempty"`
	CaptureEnabled bool   `yaml:"capture_enabled"`
	CapturePath    string `yaml:"capture_path,omitempty"`
}

// Load reads and parses a YAML config file, applies defaults, and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Mode == "" {
		c.Mode = "time"
	}
	if c.MatchLog.Path == "" {
		c.MatchLog.Path = "matches.log"
	}
	if c.MatchLog.CapturePath == "" {
		c.MatchLog.CapturePath = "matches.capture.zst"
	}
	if c.DetectorFFT.TimingLogFile == "" {
		c.DetectorFFT.TimingLogFile = "ifft_timing.log"
	}
	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		c.Metrics.Listen = ":9090"
	}
	if c.MQTT.Enabled && c.MQTT.Topic == "" {
		c.MQTT.Topic = "protodetect/switches"
	}
	if c.MQTT.Enabled && c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "protodetectd"
	}
}

// Validate checks the configuration is internally consistent:
// required-field checks returned as plain errors, never panics.
func (c *Config) Validate() error {
	switch c.Mode {
	case "time":
		if len(c.Detector.Protocols) == 0 {
			return fmt.Errorf("mode %q requires detector.protocols", c.Mode)
		}
	case "fft":
		if len(c.DetectorFFT.Protocols) == 0 {
			return fmt.Errorf("mode %q requires detector_fft.protocols", c.Mode)
		}
	default:
		return fmt.Errorf("mode must be \"time\" or \"fft\", got %q", c.Mode)
	}
	if len(c.Inserter.Ports) == 0 {
		return fmt.Errorf("inserter.ports must not be empty")
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt.enabled is true")
	}
	return nil
}

// BuildDetector resolves DetectorConfig and constructs a detector.Detector.
func BuildDetector(dc DetectorConfig, opts ...detector.Option) (*detector.Detector, error) {
	sync, protocols, err := dc.Build()
	if err != nil {
		return nil, err
	}
	if dc.Debug {
		opts = append(opts, detector.WithDebug(true))
	}
	return detector.New(protocols, sync, opts...)
}

// BuildDetectorFFT resolves DetectorFFTConfig and constructs a
// detectorfft.Detector.
func BuildDetectorFFT(dc DetectorFFTConfig, opts ...detectorfft.Option) (*detectorfft.Detector, error) {
	sync, protocols, err := dc.Build()
	if err != nil {
		return nil, err
	}
	if dc.Debug {
		opts = append(opts, detectorfft.WithDebug(true))
	}
	return detectorfft.New(sync, protocols, opts...)
}

// BuildInserter resolves InserterConfig and constructs an
// inserter.Inserter.
func BuildInserter(ic InserterConfig, opts ...inserter.Option) (*inserter.Inserter, error) {
	ports, err := ic.Build()
	if err != nil {
		return nil, err
	}
	return inserter.New(ports, ic.PadFront, ic.PadBack, opts...)
}
