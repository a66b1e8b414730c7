package config

import (
	"sync"
)

var (
	// globalManager is the singleton configuration manager instance
	globalManager *Manager
	globalMu      sync.Mutex
)

// Initialize creates and initializes the global configuration manager.
// This should be called once at application startup. An empty path uses
// ~/.devbridge/config.yaml; a missing file yields the defaults.
func Initialize(configPath string) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	store, err := NewFileStore(configPath)
	if err != nil {
		return err
	}

	manager := NewManager(store)

	if err := manager.RegisterSection(NewDevToolsSection()); err != nil {
		return err
	}

	if err := manager.RegisterSection(NewLoggingSection()); err != nil {
		return err
	}

	if err := manager.LoadAll(); err != nil {
		return err
	}

	for _, section := range manager.GetSections() {
		if err := section.Validate(); err != nil {
			return err
		}
	}

	globalManager = manager
	return nil
}

// Global returns the global configuration manager.
// Panics if Initialize has not been called.
func Global() *Manager {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalManager == nil {
		panic("config not initialized: call config.Initialize first")
	}

	return globalManager
}

// IsInitialized returns true if the global configuration has been initialized.
func IsInitialized() bool {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalManager != nil
}

// GetDevTools returns the browser connection section from global config.
// Returns nil if config is not initialized.
func GetDevTools() *DevToolsSection {
	if !IsInitialized() {
		return nil
	}

	section, ok := Global().GetSection(SectionIDDevTools)
	if !ok {
		return nil
	}

	devtools, ok := section.(*DevToolsSection)
	if !ok {
		return nil
	}

	return devtools
}

// GetLogging returns the logging section from global config.
// Returns nil if config is not initialized.
func GetLogging() *LoggingSection {
	if !IsInitialized() {
		return nil
	}

	section, ok := Global().GetSection(SectionIDLogging)
	if !ok {
		return nil
	}

	logging, ok := section.(*LoggingSection)
	if !ok {
		return nil
	}

	return logging
}
