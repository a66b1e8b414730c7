package config

import (
	"fmt"
	"sync"
	"time"
)

const (
	// SectionIDDevTools is the identifier for the browser connection section
	SectionIDDevTools = "devtools"

	defaultHost           = "localhost"
	defaultPort           = 9222
	defaultDialect        = "chrome"
	defaultCapacity       = 1000
	defaultCommandTimeout = 30 * time.Second
	defaultLaunchHeadless = true
)

// DevToolsSection holds the defaults used when connecting to a browser.
type DevToolsSection struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	Dialect        string        `yaml:"dialect"`
	Capacity       int           `yaml:"capacity"`
	CommandTimeout time.Duration `yaml:"command_timeout"`
	LaunchHeadless bool          `yaml:"launch_headless"`
	mu             sync.RWMutex
}

// NewDevToolsSection creates a section holding the default connection settings.
func NewDevToolsSection() *DevToolsSection {
	s := &DevToolsSection{}
	s.Reset()
	return s
}

func (s *DevToolsSection) ID() string {
	return SectionIDDevTools
}

func (s *DevToolsSection) Title() string {
	return "Browser Connection"
}

func (s *DevToolsSection) Description() string {
	return "Default debugging endpoint, protocol dialect, record capacity and command timeout."
}

// Data returns the current configuration data.
func (s *DevToolsSection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"host":            s.Host,
		"port":            s.Port,
		"dialect":         s.Dialect,
		"capacity":        s.Capacity,
		"command_timeout": s.CommandTimeout.String(),
		"launch_headless": s.LaunchHeadless,
	}
}

// SetData updates the configuration from the provided data.
func (s *DevToolsSection) SetData(data map[string]interface{}) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range data {
		var err error
		switch key {
		case "host":
			s.Host, err = asString(key, value)
		case "dialect":
			s.Dialect, err = asString(key, value)
		case "port":
			s.Port, err = asInt(key, value)
		case "capacity":
			s.Capacity, err = asInt(key, value)
		case "command_timeout":
			s.CommandTimeout, err = asDuration(key, value)
		case "launch_headless":
			enabled, ok := value.(bool)
			if !ok {
				err = fmt.Errorf("invalid value type for launch_headless: expected bool, got %T", value)
			}
			s.LaunchHeadless = enabled
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Validate validates the current configuration.
func (s *DevToolsSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.Host == "" {
		return fmt.Errorf("host cannot be empty")
	}
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", s.Port)
	}
	if s.Dialect != "chrome" && s.Dialect != "firefox" {
		return fmt.Errorf("dialect must be chrome or firefox, got %q", s.Dialect)
	}
	if s.Capacity < 1 {
		return fmt.Errorf("capacity must be positive, got %d", s.Capacity)
	}
	if s.CommandTimeout < 0 {
		return fmt.Errorf("command_timeout cannot be negative")
	}
	return nil
}

// Reset restores the default settings.
func (s *DevToolsSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Host = defaultHost
	s.Port = defaultPort
	s.Dialect = defaultDialect
	s.Capacity = defaultCapacity
	s.CommandTimeout = defaultCommandTimeout
	s.LaunchHeadless = defaultLaunchHeadless
}

// Endpoint returns the configured host, port and dialect.
func (s *DevToolsSection) Endpoint() (host string, port int, dialect string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Host, s.Port, s.Dialect
}

// GetCapacity returns the per-kind record capacity.
func (s *DevToolsSection) GetCapacity() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Capacity
}

// GetCommandTimeout returns the command timeout. Zero disables it.
func (s *DevToolsSection) GetCommandTimeout() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.CommandTimeout
}

// IsLaunchHeadless reports whether launched browsers run without a window.
func (s *DevToolsSection) IsLaunchHeadless() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.LaunchHeadless
}

func asString(key string, value interface{}) (string, error) {
	str, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("invalid value type for %s: expected string, got %T", key, value)
	}
	return str, nil
}

// asInt accepts the integer shapes produced by YAML and JSON decoding.
func asInt(key string, value interface{}) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("invalid value for %s: %v is not a whole number", key, v)
		}
		return int(v), nil
	default:
		return 0, fmt.Errorf("invalid value type for %s: expected integer, got %T", key, value)
	}
}

// asDuration accepts "5s" style strings or a number of seconds.
func asDuration(key string, value interface{}) (time.Duration, error) {
	switch v := value.(type) {
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
		}
		return d, nil
	case int, int64, float64:
		secs, err := asInt(key, v)
		if err != nil {
			return 0, err
		}
		return time.Duration(secs) * time.Second, nil
	default:
		return 0, fmt.Errorf("invalid value type for %s: expected duration, got %T", key, value)
	}
}
