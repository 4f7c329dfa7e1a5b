package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "icomwland-config-test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	t.Run("Valid Config", func(t *testing.T) {
		configContent := `
station:
  callsign: "K3DEP"
  name: "shack"

radio:
  host: "192.168.1.50"
  control_port: 50001
  username: "admin"
  password: "secret"

monitor:
  timeout_seconds: 5
  check_interval_seconds: 1
  auto_reconnect: true
  base_delay_ms: 2000
  max_delay_seconds: 30

storage:
  database_path: "/tmp/icomwland.db"
  max_events: 5000

logging:
  level: "debug"
  file: "/var/log/icomwland.log"
`
		configPath := filepath.Join(tempDir, "valid.yaml")
		if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
			t.Fatalf("Failed to write config file: %v", err)
		}

		cfg, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if cfg.Station.Callsign != "K3DEP" {
			t.Errorf("Expected callsign K3DEP, got %s", cfg.Station.Callsign)
		}
		if cfg.Radio.Host != "192.168.1.50" {
			t.Errorf("Expected host 192.168.1.50, got %s", cfg.Radio.Host)
		}
		if cfg.Radio.ControlPort != 50001 {
			t.Errorf("Expected control port 50001, got %d", cfg.Radio.ControlPort)
		}
		if cfg.Storage.MaxEvents != 5000 {
			t.Errorf("Expected max events 5000, got %d", cfg.Storage.MaxEvents)
		}
		if cfg.Logging.Level != "debug" {
			t.Errorf("Expected log level debug, got %s", cfg.Logging.Level)
		}
	})

	t.Run("Config With Defaults", func(t *testing.T) {
		configContent := `
station:
  callsign: "N0ABC"
  name: "field"

radio:
  host: "192.168.1.50"
  username: "admin"
  password: "secret"
`
		configPath := filepath.Join(tempDir, "minimal.yaml")
		if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
			t.Fatalf("Failed to write config file: %v", err)
		}

		cfg, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if cfg.Radio.ControlPort != 50001 {
			t.Errorf("Expected default control port 50001, got %d", cfg.Radio.ControlPort)
		}
		if cfg.Monitor.TimeoutSeconds != 5 {
			t.Errorf("Expected default monitor timeout 5, got %d", cfg.Monitor.TimeoutSeconds)
		}
		if cfg.Monitor.CheckIntervalSeconds != 1 {
			t.Errorf("Expected default check interval 1, got %d", cfg.Monitor.CheckIntervalSeconds)
		}
		if cfg.Monitor.BaseDelayMS != 2000 {
			t.Errorf("Expected default base delay 2000ms, got %d", cfg.Monitor.BaseDelayMS)
		}
		if cfg.Monitor.MaxDelaySeconds != 30 {
			t.Errorf("Expected default max delay 30s, got %d", cfg.Monitor.MaxDelaySeconds)
		}
		if cfg.Audio.Volume != 1.0 {
			t.Errorf("Expected default volume 1.0, got %f", cfg.Audio.Volume)
		}
		if cfg.API.Port != 8080 {
			t.Errorf("Expected default API port 8080, got %d", cfg.API.Port)
		}
		if cfg.API.UnixSocket != "/tmp/icomwland.sock" {
			t.Errorf("Expected default unix socket, got %s", cfg.API.UnixSocket)
		}
		if cfg.Storage.MaxEvents != 10000 {
			t.Errorf("Expected default max events 10000, got %d", cfg.Storage.MaxEvents)
		}
		if cfg.Logging.Level != "info" {
			t.Errorf("Expected default log level info, got %s", cfg.Logging.Level)
		}
	})

	t.Run("File Not Found", func(t *testing.T) {
		_, err := LoadConfig("/nonexistent/path/config.yaml")
		if err == nil {
			t.Error("Expected error for nonexistent file, got nil")
		}
		if !strings.Contains(err.Error(), "failed to read config file") {
			t.Errorf("Expected 'failed to read config file' error, got: %v", err)
		}
	})

	t.Run("Invalid YAML", func(t *testing.T) {
		configContent := `
station:
  callsign: "K3DEP"
  name: [invalid yaml structure
`
		configPath := filepath.Join(tempDir, "invalid.yaml")
		if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
			t.Fatalf("Failed to write config file: %v", err)
		}

		_, err := LoadConfig(configPath)
		if err == nil {
			t.Error("Expected error for invalid YAML, got nil")
		}
		if !strings.Contains(err.Error(), "failed to parse config file") {
			t.Errorf("Expected 'failed to parse config file' error, got: %v", err)
		}
	})

	t.Run("Empty File", func(t *testing.T) {
		configPath := filepath.Join(tempDir, "empty.yaml")
		if err := os.WriteFile(configPath, []byte(""), 0644); err != nil {
			t.Fatalf("Failed to write empty config file: %v", err)
		}

		cfg, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("Expected no error for empty file, got: %v", err)
		}
		if cfg.Radio.ControlPort != 50001 {
			t.Errorf("Expected default control port for empty file, got %d", cfg.Radio.ControlPort)
		}
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		cfg.Station.Callsign = "K3DEP"
		cfg.Radio.Host = "192.168.1.50"
		cfg.Radio.Username = "admin"
		cfg.Radio.Password = "secret"
		return cfg
	}

	t.Run("Valid Config", func(t *testing.T) {
		if err := valid().Validate(); err != nil {
			t.Errorf("Expected no error for valid config, got: %v", err)
		}
	})

	t.Run("Missing Callsign", func(t *testing.T) {
		cfg := valid()
		cfg.Station.Callsign = ""
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), "station callsign is required") {
			t.Errorf("Expected callsign error, got: %v", err)
		}
	})

	t.Run("Missing Host", func(t *testing.T) {
		cfg := valid()
		cfg.Radio.Host = ""
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), "radio host is required") {
			t.Errorf("Expected host error, got: %v", err)
		}
	})

	t.Run("Missing Username", func(t *testing.T) {
		cfg := valid()
		cfg.Radio.Username = ""
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), "radio username is required") {
			t.Errorf("Expected username error, got: %v", err)
		}
	})

	t.Run("Missing Password", func(t *testing.T) {
		cfg := valid()
		cfg.Radio.Password = ""
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), "radio password is required") {
			t.Errorf("Expected password error, got: %v", err)
		}
	})

	t.Run("Negative Max Attempts", func(t *testing.T) {
		cfg := valid()
		cfg.Monitor.MaxAttempts = -1
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), "max_attempts cannot be negative") {
			t.Errorf("Expected max_attempts error, got: %v", err)
		}
	})
}

func TestConfigIntegration(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "icomwland-config-integration")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	configContent := `
station:
  callsign: "K3DEP"
  name: "shack"

radio:
  host: "192.168.1.50"
  control_port: 50001
  username: "admin"
  password: "secret"

monitor:
  max_attempts: 5

logging:
  level: "info"
`
	configPath := filepath.Join(tempDir, "integration.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Failed to validate config: %v", err)
	}
	if cfg.Station.Callsign != "K3DEP" {
		t.Errorf("Expected callsign K3DEP, got %s", cfg.Station.Callsign)
	}
	if cfg.Monitor.MaxAttempts != 5 {
		t.Errorf("Expected max_attempts 5, got %d", cfg.Monitor.MaxAttempts)
	}
	if cfg.MonitorTimeout().Seconds() != 5 {
		t.Errorf("Expected default monitor timeout 5s, got %v", cfg.MonitorTimeout())
	}
	if cfg.MonitorBaseDelay().Milliseconds() != 2000 {
		t.Errorf("Expected default base delay 2000ms, got %v", cfg.MonitorBaseDelay())
	}
}
