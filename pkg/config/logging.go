package config

import (
	"fmt"
	"sync"
)

// SectionIDLogging is the identifier for the logging section
const SectionIDLogging = "logging"

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// LoggingSection controls log verbosity.
type LoggingSection struct {
	Level string `yaml:"level"`
	mu    sync.RWMutex
}

// NewLoggingSection creates a section logging at info level.
func NewLoggingSection() *LoggingSection {
	return &LoggingSection{Level: "info"}
}

func (s *LoggingSection) ID() string          { return SectionIDLogging }
func (s *LoggingSection) Title() string       { return "Logging" }
func (s *LoggingSection) Description() string { return "Minimum level written to the log file." }

func (s *LoggingSection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]interface{}{"level": s.Level}
}

func (s *LoggingSection) SetData(data map[string]interface{}) error {
	value, ok := data["level"]
	if !ok {
		return nil
	}
	level, err := asString("level", value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.Level = level
	return nil
}

func (s *LoggingSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !validLogLevels[s.Level] {
		return fmt.Errorf("invalid log level %q: must be debug, info, warn or error", s.Level)
	}
	return nil
}

func (s *LoggingSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Level = "info"
}

// GetLevel returns the configured level name.
func (s *LoggingSection) GetLevel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Level
}
