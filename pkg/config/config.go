package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Config represents the icomwland daemon configuration.
type Config struct {
	Station struct {
		Callsign string `yaml:"callsign"`
		Name     string `yaml:"name"`
	} `yaml:"station"`

	Radio struct {
		Host        string `yaml:"host"`
		ControlPort int    `yaml:"control_port"`
		Username    string `yaml:"username"`
		Password    string `yaml:"password"`
	} `yaml:"radio"`

	Monitor struct {
		TimeoutSeconds       int  `yaml:"timeout_seconds"`
		CheckIntervalSeconds int  `yaml:"check_interval_seconds"`
		AutoReconnect        bool `yaml:"auto_reconnect"`
		MaxAttempts          int  `yaml:"max_attempts"`
		BaseDelayMS          int  `yaml:"base_delay_ms"`
		MaxDelaySeconds      int  `yaml:"max_delay_seconds"`
	} `yaml:"monitor"`

	Audio struct {
		Volume float64 `yaml:"volume"`
	} `yaml:"audio"`

	API struct {
		Port       int    `yaml:"port"`
		UnixSocket string `yaml:"unix_socket"`
	} `yaml:"api"`

	Storage struct {
		DatabasePath string `yaml:"database_path"`
		MaxEvents    int    `yaml:"max_events"`
	} `yaml:"storage"`

	Logging struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		Console    bool   `yaml:"console"`
		Structured bool   `yaml:"structured"`
		MaxSize    int    `yaml:"max_size"`    // megabytes
		MaxBackups int    `yaml:"max_backups"` // number of rotated files kept
		MaxAge     int    `yaml:"max_age"`     // days
		Compress   bool   `yaml:"compress"`
	} `yaml:"logging"`
}

// LoadConfig loads configuration from a YAML file, filling in defaults for
// anything the file leaves zero.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Radio.ControlPort == 0 {
		cfg.Radio.ControlPort = 50001
	}
	if cfg.Monitor.TimeoutSeconds == 0 {
		cfg.Monitor.TimeoutSeconds = 5
	}
	if cfg.Monitor.CheckIntervalSeconds == 0 {
		cfg.Monitor.CheckIntervalSeconds = 1
	}
	if cfg.Monitor.BaseDelayMS == 0 {
		cfg.Monitor.BaseDelayMS = 2000
	}
	if cfg.Monitor.MaxDelaySeconds == 0 {
		cfg.Monitor.MaxDelaySeconds = 30
	}
	if cfg.Audio.Volume == 0 {
		cfg.Audio.Volume = 1.0
	}
	if cfg.API.Port == 0 {
		cfg.API.Port = 8080
	}
	if cfg.API.UnixSocket == "" {
		cfg.API.UnixSocket = "/tmp/icomwland.sock"
	}
	if cfg.Storage.MaxEvents == 0 {
		cfg.Storage.MaxEvents = 10000
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.MaxSize == 0 {
		cfg.Logging.MaxSize = 100
	}
	if cfg.Logging.MaxBackups == 0 {
		cfg.Logging.MaxBackups = 5
	}
	if cfg.Logging.MaxAge == 0 {
		cfg.Logging.MaxAge = 30
	}
}

// Validate checks if the configuration is usable as-is.
func (c *Config) Validate() error {
	if c.Station.Callsign == "" {
		return fmt.Errorf("station callsign is required")
	}
	if c.Radio.Host == "" {
		return fmt.Errorf("radio host is required")
	}
	if c.Radio.Username == "" {
		return fmt.Errorf("radio username is required")
	}
	if c.Radio.Password == "" {
		return fmt.Errorf("radio password is required")
	}
	if c.Monitor.MaxAttempts < 0 {
		return fmt.Errorf("monitor max_attempts cannot be negative")
	}
	return nil
}

// MonitorTimeout returns the configured health-check staleness threshold.
func (c *Config) MonitorTimeout() time.Duration {
	return time.Duration(c.Monitor.TimeoutSeconds) * time.Second
}

// MonitorCheckInterval returns the configured health-monitor tick period.
func (c *Config) MonitorCheckInterval() time.Duration {
	return time.Duration(c.Monitor.CheckIntervalSeconds) * time.Second
}

// MonitorBaseDelay returns the reconnect loop's starting backoff delay.
func (c *Config) MonitorBaseDelay() time.Duration {
	return time.Duration(c.Monitor.BaseDelayMS) * time.Millisecond
}

// MonitorMaxDelay returns the reconnect loop's backoff ceiling.
func (c *Config) MonitorMaxDelay() time.Duration {
	return time.Duration(c.Monitor.MaxDelaySeconds) * time.Second
}
