package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// FormatVersion is written to every saved config file. Files with a
// different major version are refused.
const FormatVersion = "1.0"

// Store persists configuration sections, keyed by section ID.
type Store interface {
	Load() error
	Save() error

	// GetSection returns a copy of one section. Unknown sections are empty.
	GetSection(sectionID string) (map[string]interface{}, error)
	SetSection(sectionID string, data map[string]interface{}) error

	GetAll() (map[string]map[string]interface{}, error)
	SetAll(data map[string]map[string]interface{}) error
}

// fileContents is the on-disk layout:
//
//	version: "1.0"
//	sections:
//	  devtools:
//	    port: 9222
type fileContents struct {
	Version  string                            `yaml:"version"`
	Sections map[string]map[string]interface{} `yaml:"sections"`
}

// FileStore keeps sections in a YAML file. Reads and writes go through an
// in-memory copy; nothing touches disk until Load or Save.
type FileStore struct {
	path string

	mu       sync.RWMutex
	sections map[string]map[string]interface{}
	version  string
	dirty    bool
}

// NewFileStore opens the YAML store at path, or ~/.devbridge/config.yaml when
// path is empty. A missing or empty file yields an empty store.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(homeDir, ".devbridge", "config.yaml")
	}

	store := &FileStore{
		path:     path,
		sections: make(map[string]map[string]interface{}),
		version:  FormatVersion,
	}
	if err := store.Load(); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	return store, nil
}

// Load replaces the in-memory sections with the file's contents.
func (s *FileStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.sections = make(map[string]map[string]interface{})
		s.dirty = false
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	var contents fileContents
	if err := yaml.NewDecoder(file).Decode(&contents); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode config file: %w", err)
	}
	if err := checkVersion(contents.Version); err != nil {
		return err
	}

	if contents.Version != "" {
		s.version = contents.Version
	}
	s.sections = copySections(contents.Sections)
	s.dirty = false
	return nil
}

// Save writes the sections to a temporary file beside the target and renames
// it into place.
func (s *FileStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp config file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := writeYAML(tmp, fileContents{Version: s.version, Sections: s.sections}); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp config file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace config file: %w", err)
	}

	s.dirty = false
	return nil
}

func writeYAML(f *os.File, contents fileContents) error {
	encoder := yaml.NewEncoder(f)
	encoder.SetIndent(2)
	if err := encoder.Encode(contents); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("failed to flush config: %w", err)
	}
	return f.Sync()
}

// checkVersion accepts an empty version or one sharing FormatVersion's major.
func checkVersion(version string) error {
	if version == "" {
		return nil
	}
	major, _, _ := strings.Cut(version, ".")
	want, _, _ := strings.Cut(FormatVersion, ".")
	if major != want {
		return fmt.Errorf("unsupported config version %q (expected %s.x)", version, want)
	}
	return nil
}

func (s *FileStore) GetSection(sectionID string) (map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copySection(s.sections[sectionID]), nil
}

func (s *FileStore) SetSection(sectionID string, data map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sections[sectionID] = copySection(data)
	s.dirty = true
	return nil
}

func (s *FileStore) GetAll() (map[string]map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copySections(s.sections), nil
}

func (s *FileStore) SetAll(data map[string]map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sections = copySections(data)
	s.dirty = true
	return nil
}

// IsModified reports unsaved changes.
func (s *FileStore) IsModified() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// Path returns the file backing the store.
func (s *FileStore) Path() string {
	return s.path
}

// copySection returns a shallow copy of one section, never nil.
func copySection(section map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(section))
	for k, v := range section {
		out[k] = v
	}
	return out
}

func copySections(sections map[string]map[string]interface{}) map[string]map[string]interface{} {
	out := make(map[string]map[string]interface{}, len(sections))
	for id, section := range sections {
		out[id] = copySection(section)
	}
	return out
}
