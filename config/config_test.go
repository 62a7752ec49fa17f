package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "radio.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
radio:
  i2c_bus: "I2C0"
  default_frequency: 100.5
  volume:
    default: 4
audio:
  recording:
    sample_rate: 24000
    bitrate_kbps: 96
logging:
  level: debug
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "I2C0", cfg.Radio.I2CBus)
	assert.InDelta(t, 100.5, cfg.Radio.DefaultFrequency, 0.001)
	assert.Equal(t, 4, cfg.Radio.Volume.Default)
	assert.Equal(t, 24000, cfg.Audio.Recording.SampleRate)
	assert.Equal(t, 96, cfg.Audio.Recording.BitrateKbps)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// untouched values keep their defaults
	assert.Equal(t, uint16(0x10), cfg.Radio.I2CAddress)
	assert.Equal(t, "radio_{timestamp}_{frequency}MHz.ogg", cfg.Audio.FileNaming.Pattern)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tt := []struct {
		desc   string
		mutate func(*Config)
	}{
		{"frequency below band", func(c *Config) { c.Radio.FrequencyRange.Min = 76.0 }},
		{"default frequency outside range", func(c *Config) { c.Radio.DefaultFrequency = 120.0 }},
		{"volume above hardware max", func(c *Config) { c.Radio.Volume.Max = 31 }},
		{"default volume outside range", func(c *Config) { c.Radio.Volume.Default = -1 }},
		{"unsupported sample rate", func(c *Config) { c.Audio.Recording.SampleRate = 44100 }},
		{"too many channels", func(c *Config) { c.Audio.Recording.Channels = 6 }},
		{"bitrate out of range", func(c *Config) { c.Audio.Recording.BitrateKbps = 0 }},
	}
	for _, tc := range tt {
		t.Run(tc.desc, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateVolumeMinMax(t *testing.T) {
	cfg := Default()
	cfg.Radio.Volume.Min = 10
	cfg.Radio.Volume.Max = 5
	assert.Error(t, cfg.Validate())
}
