package testing

import (
	"context"
	"sync"
	"time"

	"github.com/aristath/fundrisk/internal/modules/risk"
)

// MockCorrelationStore is a map-backed session correlation store for testing
type MockCorrelationStore struct {
	mu      sync.RWMutex
	data    map[string]risk.CorrelationMatrix
	loadErr error
	saveErr error
}

// NewMockCorrelationStore creates a new mock correlation store
func NewMockCorrelationStore() *MockCorrelationStore {
	return &MockCorrelationStore{data: make(map[string]risk.CorrelationMatrix)}
}

// SetLoadError sets the error to return from Load
func (m *MockCorrelationStore) SetLoadError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadErr = err
}

// SetSaveError sets the error to return from Save
func (m *MockCorrelationStore) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveErr = err
}

// Load returns the stored matrix, or nil, nil for an unknown session
func (m *MockCorrelationStore) Load(_ context.Context, sessionID string) (*risk.CorrelationMatrix, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	v, ok := m.data[sessionID]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

// Save stores the matrix for the session
func (m *MockCorrelationStore) Save(_ context.Context, sessionID string, v risk.CorrelationMatrix) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.data[sessionID] = v
	return nil
}

// Len returns the number of stored sessions
func (m *MockCorrelationStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// MockRecorder records calculation metrics for testing
type MockRecorder struct {
	mu           sync.Mutex
	calculations int
	correlated   int
	failures     []string
}

// ObserveCalculation counts one successful calculation
func (r *MockRecorder) ObserveCalculation(correlation bool, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calculations++
	if correlation {
		r.correlated++
	}
}

// ObserveFailure records the failure kind
func (r *MockRecorder) ObserveFailure(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, kind)
}

// Calculations returns the number of successful calculations and how many used correlation
func (r *MockRecorder) Calculations() (total, correlated int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calculations, r.correlated
}

// Failures returns the recorded failure kinds in order
func (r *MockRecorder) Failures() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.failures))
	copy(out, r.failures)
	return out
}
