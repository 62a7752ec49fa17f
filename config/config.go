// Package config loads the radio's yaml configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the application configuration.
type Config struct {
	Radio   Radio   `yaml:"radio"`
	Audio   Audio   `yaml:"audio"`
	Logging Logging `yaml:"logging"`
}

// Radio contains the tuner hardware and band settings.
type Radio struct {
	I2CBus           string         `yaml:"i2c_bus"`   // periph bus name, e.g. "I2C1"
	I2CAddress       uint16         `yaml:"i2c_address"`
	ResetPin         string         `yaml:"reset_pin"` // periph GPIO name, e.g. "GPIO23"
	DefaultFrequency float64        `yaml:"default_frequency"`
	FrequencyRange   FrequencyRange `yaml:"frequency_range"`
	Volume           VolumeRange    `yaml:"volume"`
	SeekThreshold    uint8          `yaml:"seek_threshold"`
	RDSEnabled       bool           `yaml:"rds_enabled"`
}

// FrequencyRange bounds tunable frequencies in MHz.
type FrequencyRange struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// VolumeRange bounds the volume setting.
type VolumeRange struct {
	Min     int `yaml:"min"`
	Max     int `yaml:"max"`
	Default int `yaml:"default"`
}

// Audio contains the recorder settings.
type Audio struct {
	Recording  Recording  `yaml:"recording"`
	FileNaming FileNaming `yaml:"file_naming"`
}

// Recording configures capture and compression.
type Recording struct {
	SampleRate      int    `yaml:"sample_rate"`
	Channels        int    `yaml:"channels"`
	BitrateKbps     int    `yaml:"bitrate_kbps"`
	OutputDirectory string `yaml:"output_directory"`
}

// FileNaming configures recording file names. Pattern supports {timestamp}
// and {frequency} placeholders; TimestampFormat is an strftime format.
type FileNaming struct {
	Pattern         string `yaml:"pattern"`
	TimestampFormat string `yaml:"timestamp_format"`
}

// Logging configures log output.
type Logging struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Radio: Radio{
			I2CBus:           "I2C1",
			I2CAddress:       0x10,
			ResetPin:         "GPIO23",
			DefaultFrequency: 96.8,
			FrequencyRange:   FrequencyRange{Min: 87.5, Max: 108.0},
			Volume:           VolumeRange{Min: 0, Max: 15, Default: 8},
			SeekThreshold:    20,
			RDSEnabled:       true,
		},
		Audio: Audio{
			Recording: Recording{
				SampleRate:      48000,
				Channels:        1,
				BitrateKbps:     64,
				OutputDirectory: "recordings",
			},
			FileNaming: FileNaming{
				Pattern:         "radio_{timestamp}_{frequency}MHz.ogg",
				TimestampFormat: "%Y%m%d_%H%M%S",
			},
		},
		Logging: Logging{Level: "info"},
	}
}

// Load reads a yaml configuration file on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks range sanity.
func (c Config) Validate() error {
	r := c.Radio
	if r.FrequencyRange.Min < 87.5 || r.FrequencyRange.Max > 108.0 ||
		r.FrequencyRange.Min >= r.FrequencyRange.Max {
		return fmt.Errorf("config: frequency range %.1f-%.1f outside 87.5-108.0",
			r.FrequencyRange.Min, r.FrequencyRange.Max)
	}
	if r.DefaultFrequency < r.FrequencyRange.Min || r.DefaultFrequency > r.FrequencyRange.Max {
		return fmt.Errorf("config: default frequency %.1f outside range", r.DefaultFrequency)
	}
	if r.Volume.Min < 0 || r.Volume.Max > 15 || r.Volume.Min > r.Volume.Max {
		return fmt.Errorf("config: volume range %d-%d outside 0-15", r.Volume.Min, r.Volume.Max)
	}
	if r.Volume.Default < r.Volume.Min || r.Volume.Default > r.Volume.Max {
		return fmt.Errorf("config: default volume %d outside range", r.Volume.Default)
	}
	a := c.Audio.Recording
	if a.SampleRate != 8000 && a.SampleRate != 12000 && a.SampleRate != 16000 &&
		a.SampleRate != 24000 && a.SampleRate != 48000 {
		return fmt.Errorf("config: sample rate %d not supported by the encoder", a.SampleRate)
	}
	if a.Channels != 1 && a.Channels != 2 {
		return fmt.Errorf("config: %d channels, want 1 or 2", a.Channels)
	}
	if a.BitrateKbps < 6 || a.BitrateKbps > 510 {
		return fmt.Errorf("config: bitrate %d kbps outside 6-510", a.BitrateKbps)
	}
	return nil
}
