// Package storetest provides an in-memory store.Store for tests.
package storetest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"tableflip.dev/wordsmith/pkg/store"
)

// Memory is a store.Store held entirely in memory. Set SaveErr, GetErr or
// SetErr to inject failures; SetErr also fails Delete. Saved holds the last
// saved document.
type Memory struct {
	name string

	mu      sync.Mutex
	values  map[string]json.RawMessage
	saved   map[string]json.RawMessage
	saves   int
	SaveErr error
	GetErr  error
	SetErr  error
}

var _ store.Store = (*Memory)(nil)

// NewMemory returns an empty store with the given name.
func NewMemory(name string) *Memory {
	return &Memory{
		name:   name,
		values: map[string]json.RawMessage{},
		saved:  map[string]json.RawMessage{},
	}
}

func (m *Memory) Name() string { return m.name }

func (m *Memory) Get(key string, v any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return false, m.GetErr
	}
	raw, ok := m.values[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("storetest: decode %s: %w", key, err)
	}
	return true, nil
}

func (m *Memory) Set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return m.SetErr
	}
	m.values[key] = raw
	return nil
}

func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return m.SetErr
	}
	delete(m.values, key)
	return nil
}

func (m *Memory) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m *Memory) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.saved = make(map[string]json.RawMessage, len(m.values))
	for k, v := range m.values {
		m.saved[k] = v
	}
	m.saves++
	return nil
}

// Reload restores the last saved document, discarding unsaved changes. It
// reports whether anything was discarded.
func (m *Memory) Reload() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	changed := len(m.values) != len(m.saved)
	values := make(map[string]json.RawMessage, len(m.saved))
	for k, v := range m.saved {
		if cur, ok := m.values[k]; !ok || !bytes.Equal(cur, v) {
			changed = true
		}
		values[k] = v
	}
	m.values = values
	return changed, nil
}

// Saves reports how many successful saves happened.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// SavedValue decodes key from the last saved document.
func (m *Memory) SavedValue(key string, v any) bool {
	m.mu.Lock()
	raw, ok := m.saved[key]
	m.mu.Unlock()
	if !ok {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

// Seed sets key in both the live and saved documents.
func (m *Memory) Seed(key string, v any) *Memory {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	m.mu.Lock()
	m.values[key] = raw
	m.saved[key] = raw
	m.mu.Unlock()
	return m
}

// SetSaveErr sets the injected save failure under the lock.
func (m *Memory) SetSaveErr(err error) {
	m.mu.Lock()
	m.SaveErr = err
	m.mu.Unlock()
}
