package store

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"prusammu/common/file"
	"prusammu/common/logger"
	"prusammu/mmu"
)

// FileStore is a flat JSON key/value settings store. Writes go through a
// temp-and-rename so a crash cannot corrupt the settings file. It implements
// mmu.Settings.
type FileStore struct {
	mu   sync.Mutex
	path string
	data map[string]interface{}
}

// Defaults is the factory settings table, matching a fresh install.
func Defaults() map[string]interface{} {
	filament := make([]interface{}, mmu.FilamentSlots)
	for i := range filament {
		filament[i] = map[string]interface{}{
			"name":    "",
			"color":   "",
			"enabled": true,
			"id":      i + 1,
		}
	}
	return map[string]interface{}{
		mmu.KeyTimeout:               mmu.DefaultTimeout,
		mmu.KeyUseDefaultFilament:    false,
		mmu.KeyDisplayActiveFilament: true,
		mmu.KeyDefaultFilament:       -1,
		mmu.KeyFilament:              filament,
		mmu.KeyMmuState:              string(mmu.StatusOK),
		mmu.KeyMmuTool:               "",
	}
}

// Open loads the store at path, creating it from defaults when missing.
// Keys absent from an existing file are filled in from the defaults, so
// upgrades that add settings keep working.
func Open(path string) (*FileStore, error) {
	s := &FileStore{path: path, data: Defaults()}

	if !file.Exists(path) {
		logger.Infof("settings store %s missing, writing defaults", path)
		if err := s.Save(); err != nil {
			return nil, err
		}
		return s, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var loaded map[string]interface{}
	if err := json.Unmarshal(content, &loaded); err != nil {
		return nil, fmt.Errorf("settings store %s: %w", path, err)
	}
	for key, value := range loaded {
		s.data[key] = value
	}
	return s, nil
}

func (s *FileStore) Get(key string) (interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.data[key]
	if !ok {
		return nil, fmt.Errorf("no such setting %q", key)
	}
	return value, nil
}

func (s *FileStore) Set(key string, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *FileStore) Save() error {
	s.mu.Lock()
	content, err := json.MarshalIndent(s.data, "", "  ")
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return file.WriteFileWithSync(s.path, content)
}
