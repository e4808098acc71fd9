package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults applied by Default and by LoadConfig for omitted keys.
const (
	DefaultDataset   = "CIC-IDS-2017"
	DefaultOutputDir = "./output/netflow-categorized/"
	DefaultBatchSize = 1_000_000
	DefaultWorkers   = 1
	DefaultListen    = ":8080"
)

// ErrInvalidConfig marks every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// LogConfig controls the process-wide logger.
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// ClickHouseConfig holds the connection details of the clickhouse sink.
type ClickHouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Table    string `yaml:"table"`
}

// NATSConfig holds the connection details of the nats sink.
type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// SinkConfig defines one output sink. Type selects the implementation
// registered in the factory.
type SinkConfig struct {
	Type       string           `yaml:"type"`
	Enabled    bool             `yaml:"enabled"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	NATS       NATSConfig       `yaml:"nats"`
}

// APIConfig configures nf-api.
type APIConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Dataset   string       `yaml:"dataset"`
	OutputDir string       `yaml:"output_dir"`
	BatchSize int          `yaml:"batch_size"`
	Workers   int          `yaml:"workers"`
	Log       LogConfig    `yaml:"log"`
	Sinks     []SinkConfig `yaml:"sinks"`
	API       APIConfig    `yaml:"api"`
}

// Default returns the configuration used when no file is given: one text
// sink writing into DefaultOutputDir.
func Default() *Config {
	return &Config{
		Dataset:   DefaultDataset,
		OutputDir: DefaultOutputDir,
		BatchSize: DefaultBatchSize,
		Workers:   DefaultWorkers,
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
		Sinks: []SinkConfig{{Type: "text", Enabled: true}},
		API:   APIConfig{ListenAddr: DefaultListen},
	}
}

// LoadConfig reads the configuration from a YAML file and returns a Config struct.
// Keys missing from the file keep their Default values.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}
	cfg.applySinkDefaults()

	return cfg, nil
}

func (c *Config) applySinkDefaults() {
	for i := range c.Sinks {
		s := &c.Sinks[i]
		switch s.Type {
		case "clickhouse":
			if s.ClickHouse.Host == "" {
				s.ClickHouse.Host = "localhost"
			}
			if s.ClickHouse.Port == 0 {
				s.ClickHouse.Port = 9000
			}
			if s.ClickHouse.Database == "" {
				s.ClickHouse.Database = "default"
			}
			if s.ClickHouse.Username == "" {
				s.ClickHouse.Username = "default"
			}
			if s.ClickHouse.Table == "" {
				s.ClickHouse.Table = "netflow_records"
			}
		case "nats":
			if s.NATS.URL == "" {
				s.NATS.URL = "nats://127.0.0.1:4222"
			}
			if s.NATS.SubjectPrefix == "" {
				s.NATS.SubjectPrefix = "cic2nf.flows"
			}
		}
	}
}

// Validate reports the first configuration error found.
func (c *Config) Validate() error {
	if c.Dataset == "" {
		return fmt.Errorf("%w: dataset is required", ErrInvalidConfig)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("%w: output_dir is required", ErrInvalidConfig)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: batch_size must be positive, got %d", ErrInvalidConfig, c.BatchSize)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidConfig, c.Workers)
	}
	enabled := 0
	for i, s := range c.Sinks {
		if s.Type == "" {
			return fmt.Errorf("%w: sinks[%d] has no type", ErrInvalidConfig, i)
		}
		if s.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		return fmt.Errorf("%w: no sink enabled", ErrInvalidConfig)
	}
	return nil
}

// EnabledSinks returns the sink definitions with enabled set.
func (c *Config) EnabledSinks() []SinkConfig {
	var out []SinkConfig
	for _, s := range c.Sinks {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}
