// Package config loads the dashboard configuration from a YAML file.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Sync     SyncConfig     `yaml:"sync"`
	Calendar CalendarConfig `yaml:"calendar"`
	LogFile  string         `yaml:"log_file"`
}

type ServerConfig struct {
	BaseURL string `yaml:"base_url"`
	WSURL   string `yaml:"ws_url"`
	Token   string `yaml:"token"`
}

type SyncConfig struct {
	RetryDelay      time.Duration `yaml:"retry_delay"`
	MutationTimeout time.Duration `yaml:"mutation_timeout"`
	SweepInterval   time.Duration `yaml:"sweep_interval"`
}

// UnmarshalYAML accepts durations as strings ("2s", "500ms"). Omitted
// fields keep whatever value the receiver already holds.
func (s *SyncConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		RetryDelay      string `yaml:"retry_delay"`
		MutationTimeout string `yaml:"mutation_timeout"`
		SweepInterval   string `yaml:"sweep_interval"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	for _, f := range []struct {
		in  string
		out *time.Duration
	}{
		{raw.RetryDelay, &s.RetryDelay},
		{raw.MutationTimeout, &s.MutationTimeout},
		{raw.SweepInterval, &s.SweepInterval},
	} {
		if f.in == "" {
			continue
		}
		d, err := time.ParseDuration(f.in)
		if err != nil {
			return err
		}
		*f.out = d
	}
	return nil
}

type CalendarConfig struct {
	MaxVisiblePerCell int `yaml:"max_visible_per_cell"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL: "http://127.0.0.1:8080",
			WSURL:   "ws://127.0.0.1:8080/ws",
		},
		Sync: SyncConfig{
			RetryDelay:      2 * time.Second,
			MutationTimeout: 30 * time.Second,
			SweepInterval:   5 * time.Second,
		},
		Calendar: CalendarConfig{
			MaxVisiblePerCell: 2,
		},
	}
}

// Load reads the file at path over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
