package mocks

import (
	"sync"

	"github.com/stretchr/testify/mock"
)

// MockPreferences is a mock implementation of the store.Preferences interface
type MockPreferences struct {
	mock.Mock
}

func (m *MockPreferences) GetString(key, def string) string {
	args := m.Called(key, def)
	return args.String(0)
}

func (m *MockPreferences) PutString(key, value string) error {
	args := m.Called(key, value)
	return args.Error(0)
}

func (m *MockPreferences) Clear() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockPreferences) Namespace() string {
	args := m.Called()
	return args.String(0)
}

// MemoryPreferences is an in-memory store.Preferences for tests that care about state, not calls.
type MemoryPreferences struct {
	mu     sync.Mutex
	values map[string]string
	Clears int
}

// NewMemoryPreferences returns a store holding values.
func NewMemoryPreferences(values map[string]string) *MemoryPreferences {
	m := &MemoryPreferences{values: make(map[string]string)}
	for k, v := range values {
		m.values[k] = v
	}
	return m
}

func (m *MemoryPreferences) GetString(key, def string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.values[key]; ok {
		return v
	}
	return def
}

func (m *MemoryPreferences) PutString(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryPreferences) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values = make(map[string]string)
	m.Clears++
	return nil
}

func (m *MemoryPreferences) Namespace() string { return "wifi-config" }

// Len returns the number of stored keys.
func (m *MemoryPreferences) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.values)
}
