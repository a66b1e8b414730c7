package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func resetGlobal(t *testing.T) {
	t.Helper()
	globalMu.Lock()
	globalManager = nil
	globalMu.Unlock()
	t.Cleanup(func() {
		globalMu.Lock()
		globalManager = nil
		globalMu.Unlock()
	})
}

func TestInitialize_Defaults(t *testing.T) {
	resetGlobal(t)

	if GetDevTools() != nil {
		t.Error("GetDevTools should be nil before Initialize")
	}

	if err := Initialize(filepath.Join(t.TempDir(), "config.yaml")); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if !IsInitialized() {
		t.Fatal("Global manager should be initialized")
	}

	devtools := GetDevTools()
	if devtools == nil {
		t.Fatal("devtools section not registered")
	}
	host, port, dialect := devtools.Endpoint()
	if host != "localhost" || port != 9222 || dialect != "chrome" {
		t.Errorf("Unexpected defaults: %s:%d %s", host, port, dialect)
	}
	if devtools.GetCapacity() != 1000 {
		t.Errorf("Expected capacity 1000, got %d", devtools.GetCapacity())
	}
	if GetLogging().GetLevel() != "info" {
		t.Errorf("Expected info level, got %s", GetLogging().GetLevel())
	}
}

func TestInitialize_ReadsFile(t *testing.T) {
	resetGlobal(t)

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `sections:
  devtools:
    port: 6000
    dialect: firefox
    command_timeout: 2s
    launch_headless: false
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	if err := Initialize(configPath); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	devtools := GetDevTools()
	_, port, dialect := devtools.Endpoint()
	if port != 6000 || dialect != "firefox" {
		t.Errorf("Expected 6000/firefox, got %d/%s", port, dialect)
	}
	if devtools.GetCommandTimeout() != 2*time.Second {
		t.Errorf("Expected 2s timeout, got %s", devtools.GetCommandTimeout())
	}
	if devtools.IsLaunchHeadless() {
		t.Error("Expected headless launch to be disabled")
	}
}

func TestInitialize_RejectsInvalidValues(t *testing.T) {
	resetGlobal(t)

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(configPath, []byte("sections:\n  devtools:\n    dialect: safari\n"), 0600)

	if err := Initialize(configPath); err == nil {
		t.Error("Expected error for unknown dialect")
	}
	if IsInitialized() {
		t.Error("Failed Initialize must not install a manager")
	}
}

func TestGlobal_PanicsWhenUninitialized(t *testing.T) {
	resetGlobal(t)

	defer func() {
		if recover() == nil {
			t.Error("Expected panic")
		}
	}()
	Global()
}
