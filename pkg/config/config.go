package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Signal   SignalConfig   `yaml:"signal"`
	ADC      ADCConfig      `yaml:"adc"`
	Sampling SamplingConfig `yaml:"sampling"`
	Report   ReportConfig   `yaml:"report"`
	Serial   SerialConfig   `yaml:"serial"`
	Mock     MockConfig     `yaml:"mock"`
	Monitor  MonitorConfig  `yaml:"monitor"`
}

// SignalConfig describes the expected test signal.
type SignalConfig struct {
	FrequencyHz  float64 `yaml:"frequency_hz"`
	AmplitudeVpp float64 `yaml:"amplitude_vpp"`
	DCOffset     float64 `yaml:"dc_offset"`
}

// ADCConfig contains the converter scale.
type ADCConfig struct {
	VRef    float64 `yaml:"vref"`
	MaxCode uint16  `yaml:"max_code"`
}

// SamplingConfig contains acquisition parameters.
type SamplingConfig struct {
	RateHz         int           `yaml:"rate_hz"`
	Samples        int           `yaml:"samples"`
	Timeout        time.Duration `yaml:"timeout"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	CollectGarbage *bool         `yaml:"collect_garbage"` // nil means default (true)
	Timestamps     *bool         `yaml:"timestamps"`      // nil means default (true), false selects the basic variant
}

// ReportConfig contains report output settings.
type ReportConfig struct {
	Path      string `yaml:"path"`       // Jitter report (timestamped runs)
	BasicPath string `yaml:"basic_path"` // Sample listing (runs without timestamps)
	MaxRows   int    `yaml:"max_rows"`   // Samples listed in the jitter report
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// MockConfig contains simulated device configuration.
type MockConfig struct {
	NoiseLevel float64 `yaml:"noise_level"` // Gaussian noise sigma (V)
	Seed       int64   `yaml:"seed"`
}

// MonitorConfig contains capture history settings.
type MonitorConfig struct {
	History int `yaml:"history"` // Number of analyzed captures kept
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Signal: SignalConfig{
			FrequencyHz:  200,
			AmplitudeVpp: 1.2,
			DCOffset:     1.6,
		},
		ADC: ADCConfig{
			VRef:    3.3,
			MaxCode: 65535,
		},
		Sampling: SamplingConfig{
			RateHz:         2000, // 10x the signal frequency
			Samples:        512,
			Timeout:        5 * time.Second,
			PollInterval:   time.Millisecond,
			CollectGarbage: boolPtr(true),
			Timestamps:     boolPtr(true),
		},
		Report: ReportConfig{
			Path:      "reporte_jitter.txt",
			BasicPath: "senal_muestreada.txt",
			MaxRows:   100,
		},
		Serial: SerialConfig{
			Port:     "/dev/ttyACM0", // "COM3" on Windows
			BaudRate: 115200,
		},
		Mock: MockConfig{
			NoiseLevel: 0.002,
			Seed:       1,
		},
		Monitor: MonitorConfig{
			History: 32,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate rejects values no run can use.
func (c *Config) Validate() error {
	if c.Sampling.RateHz <= 0 {
		return fmt.Errorf("invalid sampling rate: %d Hz", c.Sampling.RateHz)
	}
	if c.Sampling.Samples <= 0 {
		return fmt.Errorf("invalid sample count: %d", c.Sampling.Samples)
	}
	if c.ADC.VRef <= 0 {
		return fmt.Errorf("invalid reference voltage: %g V", c.ADC.VRef)
	}
	return nil
}

// UseTimestamps reports whether runs record per-sample timestamps.
func (c *Config) UseTimestamps() bool {
	return c.Sampling.Timestamps == nil || *c.Sampling.Timestamps
}

// CollectGarbage reports whether a GC pass precedes every run.
func (c *Config) CollectGarbage() bool {
	return c.Sampling.CollectGarbage == nil || *c.Sampling.CollectGarbage
}

// IdealIntervalUS returns the nominal sampling interval in microseconds.
func (c *Config) IdealIntervalUS() uint32 {
	if c.Sampling.RateHz <= 0 {
		return 0
	}
	return uint32(1_000_000 / c.Sampling.RateHz)
}

// Duration returns the nominal length of a run.
func (c *Config) Duration() time.Duration {
	if c.Sampling.RateHz <= 0 {
		return 0
	}
	return time.Duration(c.Sampling.Samples) * time.Second / time.Duration(c.Sampling.RateHz)
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Signal.FrequencyHz == 0 {
		c.Signal.FrequencyHz = def.Signal.FrequencyHz
	}

	if c.ADC.VRef == 0 {
		c.ADC.VRef = def.ADC.VRef
	}
	if c.ADC.MaxCode == 0 {
		c.ADC.MaxCode = def.ADC.MaxCode
	}

	if c.Sampling.RateHz == 0 {
		c.Sampling.RateHz = def.Sampling.RateHz
	}
	if c.Sampling.Samples == 0 {
		c.Sampling.Samples = def.Sampling.Samples
	}
	if c.Sampling.Timeout == 0 {
		c.Sampling.Timeout = def.Sampling.Timeout
	}
	if c.Sampling.PollInterval == 0 {
		c.Sampling.PollInterval = def.Sampling.PollInterval
	}

	if c.Report.Path == "" {
		c.Report.Path = def.Report.Path
	}
	if c.Report.BasicPath == "" {
		c.Report.BasicPath = def.Report.BasicPath
	}
	if c.Report.MaxRows == 0 {
		c.Report.MaxRows = def.Report.MaxRows
	}

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}

	if c.Monitor.History == 0 {
		c.Monitor.History = def.Monitor.History
	}
}

func boolPtr(b bool) *bool {
	return &b
}
