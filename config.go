package funnel

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the logging configuration, loaded once at construction and
// immutable afterwards. The file format (YAML or JSON) is selected by the
// file extension.
type Config struct {
	Root     RootConfig               `yaml:"root" json:"root"`
	Handlers map[string]HandlerConfig `yaml:"handlers" json:"handlers"`
}

// RootConfig carries the root channel severity and the propagation flag for
// level inheritance along the channel hierarchy.
type RootConfig struct {
	Level     string `yaml:"level" json:"level"`
	Propagate bool   `yaml:"propagate" json:"propagate"`
}

// HandlerConfig describes one sink: its kind tag, severity floor, format
// template, and kind-specific parameters.
type HandlerConfig struct {
	Type        string          `yaml:"type" json:"type"`
	Level       string          `yaml:"level" json:"level"`
	Target      string          `yaml:"target" json:"target"` // stream: stderr (default) or stdout
	Filename    string          `yaml:"filename" json:"filename"`
	Mode        string          `yaml:"mode" json:"mode"` // file: a (default) or w
	Encoding    string          `yaml:"encoding" json:"encoding"`
	MaxBytes    int64           `yaml:"max_bytes" json:"max_bytes"`
	BackupCount int             `yaml:"backup_count" json:"backup_count"`
	When        string          `yaml:"when" json:"when"`
	Interval    int             `yaml:"interval" json:"interval"`
	Formatter   FormatterConfig `yaml:"formatter" json:"formatter"`
}

// FormatterConfig holds the %(key)s line template and the strftime pattern
// used for %(asctime)s.
type FormatterConfig struct {
	Format  string `yaml:"format" json:"format"`
	Datefmt string `yaml:"datefmt" json:"datefmt"`
}

// LoadConfig reads and validates a configuration file. Any failure here is
// fatal at construction; there is no partial fallback for an unreadable or
// malformed file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmtErrorf("failed to read config file '%s': %w", path, err)
	}

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmtErrorf("failed to parse YAML config '%s': %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmtErrorf("failed to parse JSON config '%s': %w", path, err)
		}
	default:
		return nil, fmtErrorf("unsupported config file format: '%s' (use .yaml, .yml, or .json)", filepath.Ext(path))
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills unset fields with the conventional handler defaults.
func (c *Config) applyDefaults() {
	if c.Root.Level == "" {
		c.Root.Level = "INFO"
	}
	for name, hc := range c.Handlers {
		if hc.Type == "" {
			hc.Type = sinkStream
		}
		if hc.Level == "" {
			hc.Level = "INFO"
		}
		if hc.Mode == "" {
			hc.Mode = "a"
		}
		if hc.Encoding == "" {
			hc.Encoding = "utf-8"
		}
		if hc.Type == sinkRotating && hc.MaxBytes <= 0 {
			hc.MaxBytes = 10 * 1024 * 1024
		}
		if hc.BackupCount <= 0 {
			switch hc.Type {
			case sinkRotating:
				hc.BackupCount = 5
			case sinkTimedRotating:
				hc.BackupCount = 7
			}
		}
		if hc.Type == sinkTimedRotating {
			if hc.When == "" {
				hc.When = "h"
			}
			if hc.Interval <= 0 {
				hc.Interval = 1
			}
		}
		c.Handlers[name] = hc
	}
}

// validate rejects configurations that cannot produce a working facade.
// Per-sink runtime failures (bad paths) are deliberately not checked here;
// they surface as SinkError during construction without failing the rest.
func (c *Config) validate() error {
	if _, err := ParseLevel(c.Root.Level); err != nil {
		return fmtErrorf("invalid root level: %w", err)
	}

	for name, hc := range c.Handlers {
		switch hc.Type {
		case sinkStream:
			if hc.Target != "" && hc.Target != "stderr" && hc.Target != "stdout" {
				return fmtErrorf("handler '%s': invalid target '%s' (use stderr or stdout)", name, hc.Target)
			}
		case sinkFile:
			if hc.Mode != "a" && hc.Mode != "w" {
				return fmtErrorf("handler '%s': invalid mode '%s' (use a or w)", name, hc.Mode)
			}
			if hc.Filename == "" {
				return fmtErrorf("handler '%s': file handler requires a filename", name)
			}
		case sinkRotating:
			if hc.Filename == "" {
				return fmtErrorf("handler '%s': rotating handler requires a filename", name)
			}
			if hc.MaxBytes <= 0 {
				return fmtErrorf("handler '%s': max_bytes must be positive: %d", name, hc.MaxBytes)
			}
		case sinkTimedRotating:
			if hc.Filename == "" {
				return fmtErrorf("handler '%s': timed rotating handler requires a filename", name)
			}
			if _, err := rotationInterval(hc.When, hc.Interval); err != nil {
				return fmtErrorf("handler '%s': %w", name, err)
			}
		default:
			return fmtErrorf("handler '%s': unsupported type '%s'", name, hc.Type)
		}

		if _, err := ParseLevel(hc.Level); err != nil {
			return fmtErrorf("handler '%s': %w", name, err)
		}
		if enc := strings.ToLower(hc.Encoding); enc != "utf-8" && enc != "utf8" {
			return fmtErrorf("handler '%s': unsupported encoding '%s' (only utf-8)", name, hc.Encoding)
		}
		if _, err := parseFormat(hc.Formatter.Format, hc.Formatter.Datefmt); err != nil {
			return fmtErrorf("handler '%s': %w", name, err)
		}
	}
	return nil
}
