package utils

import (
	"sync"
)

// OptionalMutex is a mutex that can be switched off for owners that are synchronized
// externally. The zero value is an enabled mutex.
type OptionalMutex struct {
	mutex    sync.Mutex
	disabled bool
}

// NewOptionalMutex returns a mutex that only locks when enabled is true
func NewOptionalMutex(enabled bool) *OptionalMutex {
	return &OptionalMutex{disabled: !enabled}
}

// Enabled reports whether Lock and Unlock take the underlying mutex
func (m *OptionalMutex) Enabled() bool {
	return !m.disabled
}

func (m *OptionalMutex) Lock() {
	if !m.disabled {
		m.mutex.Lock()
	}
}

func (m *OptionalMutex) Unlock() {
	if !m.disabled {
		m.mutex.Unlock()
	}
}
