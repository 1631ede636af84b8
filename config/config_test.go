package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
mode: time
detector:
  protocols:
    - name: zc
      full_preamble:
        threshold: 0.65
        zadoff_chu: {root: 11, length: 16, q: 0}
      discriminators:
        - threshold: 0.65
          zadoff_chu: {root: 11, length: 16, q: 0}
    - name: lora
      full_preamble:
        threshold: 0.65
        zadoff_chu: {root: 13, length: 16, q: 0}
      discriminators:
        - threshold: 0.65
          zadoff_chu: {root: 13, length: 16, q: 0}
inserter:
  pad_front: 4
  pad_back: 4
  ports:
    - name: zc
      trigger_name: burst
      sequence:
        threshold: 0.65
        zadoff_chu: {root: 11, length: 16, q: 0}
`

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "protodetect.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadParsesAndValidatesSampleConfig(t *testing.T) {
	path := writeTempConfig(t, sampleYAML)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "time", cfg.Mode)
	assert.Len(t, cfg.Detector.Protocols, 2)
	assert.Equal(t, "matches.log", cfg.MatchLog.Path)
}

func TestLoadRejectsDefaultTimeModeWithoutDetectorProtocols(t *testing.T) {
	path := writeTempConfig(t, `
inserter:
  ports:
    - name: zc
      trigger_name: burst
      sequence: {threshold: 0.65, data: [[1, 0]]}
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsEmptyInserterPorts(t *testing.T) {
	path := writeTempConfig(t, `
mode: time
detector:
  protocols:
    - name: zc
      full_preamble: {threshold: 0.65, data: [[1, 0]]}
      discriminators:
        - {threshold: 0.65, data: [[1, 0]]}
inserter: {}
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestBuildDetectorFromSampleConfig(t *testing.T) {
	path := writeTempConfig(t, sampleYAML)
	cfg, err := Load(path)
	require.NoError(t, err)

	d, err := BuildDetector(cfg.Detector)
	require.NoError(t, err)
	assert.Equal(t, "zc", d.CurrentProtocol())
}

func TestBuildInserterFromSampleConfig(t *testing.T) {
	path := writeTempConfig(t, sampleYAML)
	cfg, err := Load(path)
	require.NoError(t, err)

	ins, err := BuildInserter(cfg.Inserter)
	require.NoError(t, err)
	_, active := ins.CurrentPort()
	assert.False(t, active)
}

func TestSequenceConfigRequiresDataOrZadoffChu(t *testing.T) {
	sc := SequenceConfig{Threshold: 0.5}
	_, err := sc.Build()
	assert.Error(t, err)
}
