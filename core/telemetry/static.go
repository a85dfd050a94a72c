package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/gridsense/tapctl/core/model"
)

// Static is an in-memory Reader used in tests. Readings are keyed by device
// and signal and returned as-is.
type Static struct {
	mu       sync.RWMutex
	readings map[string]model.Reading
	errs     map[string]error
}

// NewStatic creates an empty static reader.
func NewStatic() *Static {
	return &Static{readings: make(map[string]model.Reading), errs: make(map[string]error)}
}

func key(deviceID, signal string) string { return deviceID + "/" + signal }

// Set stores a reading for the device signal.
func (s *Static) Set(deviceID, signal string, value float64, ts time.Time) {
	s.mu.Lock()
	s.readings[key(deviceID, signal)] = model.Reading{Value: value, Timestamp: ts}
	delete(s.errs, key(deviceID, signal))
	s.mu.Unlock()
}

// Fail makes reads of the device signal return the given error.
func (s *Static) Fail(deviceID, signal string, err error) {
	s.mu.Lock()
	s.errs[key(deviceID, signal)] = err
	s.mu.Unlock()
}

func (s *Static) Latest(_ context.Context, deviceID, signal string) (model.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err, ok := s.errs[key(deviceID, signal)]; ok {
		return model.Reading{}, err
	}
	r, ok := s.readings[key(deviceID, signal)]
	if !ok {
		return model.Reading{}, ErrUnavailable
	}
	return r, nil
}
