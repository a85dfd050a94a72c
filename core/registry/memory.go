package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gridsense/tapctl/core/model"
)

// AuditEntry is one recorded audit line.
type AuditEntry struct {
	Time     time.Time
	DeviceID string
	Action   string
	Detail   string
}

// Memory is an in-memory Registry used in tests and single-node deployments
// without a persistent store.
type Memory struct {
	mu      sync.RWMutex
	devices map[string]model.DeviceConfig
	audit   []AuditEntry
}

// NewMemory creates an empty in-memory registry.
func NewMemory() *Memory {
	return &Memory{devices: make(map[string]model.DeviceConfig)}
}

func (m *Memory) GetConfig(_ context.Context, deviceID string) (model.DeviceConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg, ok := m.devices[deviceID]
	if !ok {
		return model.DeviceConfig{}, ErrNotFound
	}
	return cfg, nil
}

func (m *Memory) ListConfigs(_ context.Context) ([]model.DeviceConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.DeviceConfig, 0, len(m.devices))
	for _, cfg := range m.devices {
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out, nil
}

func (m *Memory) PutConfig(_ context.Context, cfg model.DeviceConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.devices[cfg.DeviceID] = cfg
	m.mu.Unlock()
	return nil
}

func (m *Memory) SetLastCommandTime(_ context.Context, deviceID string, ts time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, ok := m.devices[deviceID]
	if !ok {
		return ErrNotFound
	}
	cfg.LastCommandTime = ts
	m.devices[deviceID] = cfg
	return nil
}

func (m *Memory) AppendAuditEntry(_ context.Context, deviceID, action, detail string) error {
	m.mu.Lock()
	m.audit = append(m.audit, AuditEntry{Time: time.Now(), DeviceID: deviceID, Action: action, Detail: detail})
	m.mu.Unlock()
	return nil
}

// AuditEntries returns a copy of the recorded audit lines.
func (m *Memory) AuditEntries() []AuditEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]AuditEntry, len(m.audit))
	copy(out, m.audit)
	return out
}
