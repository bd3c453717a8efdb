package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/daveminer/dapp-punks/pkg/persistence"
)

// MemoryPersistence is an in-memory implementation of IAllowlistPersistence.
// This implementation is intended for TESTING ONLY.
//
// All data is stored in memory and will be lost when the process exits.
// Thread-safe using sync.RWMutex for concurrent access.
// Deep copies data to prevent external mutation.
type MemoryPersistence struct {
	mu sync.RWMutex

	// Snapshot storage: rootHex -> AllowlistSnapshot
	snapshots map[string]*persistence.AllowlistSnapshot

	// Active root tracking
	activeRoot string

	// Closed flag
	closed bool
}

// NewMemoryPersistence creates a new in-memory persistence layer.
func NewMemoryPersistence() *MemoryPersistence {
	return &MemoryPersistence{
		snapshots: make(map[string]*persistence.AllowlistSnapshot),
	}
}

// SaveSnapshot persists a committed allowlist snapshot.
func (m *MemoryPersistence) SaveSnapshot(snapshot *persistence.AllowlistSnapshot) error {
	if snapshot == nil {
		return fmt.Errorf("cannot save nil AllowlistSnapshot")
	}
	if snapshot.RootHex == "" {
		return fmt.Errorf("cannot save snapshot with empty root")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	// Deep copy to prevent external mutation
	m.snapshots[snapshot.RootHex] = deepCopySnapshot(snapshot)

	return nil
}

// LoadSnapshot retrieves a snapshot by root hex.
func (m *MemoryPersistence) LoadSnapshot(rootHex string) (*persistence.AllowlistSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	snapshot, exists := m.snapshots[rootHex]
	if !exists {
		return nil, nil // Not found is not an error
	}

	return deepCopySnapshot(snapshot), nil
}

// ListSnapshots returns all snapshots sorted by CreatedAt.
func (m *MemoryPersistence) ListSnapshots() ([]*persistence.AllowlistSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	result := make([]*persistence.AllowlistSnapshot, 0, len(m.snapshots))
	for _, snapshot := range m.snapshots {
		result = append(result, deepCopySnapshot(snapshot))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		return result[i].RootHex < result[j].RootHex
	})

	return result, nil
}

// DeleteSnapshot removes a snapshot by root hex.
func (m *MemoryPersistence) DeleteSnapshot(rootHex string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	delete(m.snapshots, rootHex)
	return nil
}

// SetActiveRoot records the currently live root.
func (m *MemoryPersistence) SetActiveRoot(rootHex string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	m.activeRoot = rootHex
	return nil
}

// GetActiveRoot returns the currently live root, or "" if none is set.
func (m *MemoryPersistence) GetActiveRoot() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return "", fmt.Errorf("persistence layer is closed")
	}

	return m.activeRoot, nil
}

// Close shuts down the persistence layer.
func (m *MemoryPersistence) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

// HealthCheck verifies the persistence layer is operational.
func (m *MemoryPersistence) HealthCheck() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return fmt.Errorf("persistence layer is closed")
	}
	return nil
}

// deepCopySnapshot copies a snapshot including its address slice.
func deepCopySnapshot(snapshot *persistence.AllowlistSnapshot) *persistence.AllowlistSnapshot {
	addresses := make([]string, len(snapshot.Addresses))
	copy(addresses, snapshot.Addresses)

	return &persistence.AllowlistSnapshot{
		RootHex:   snapshot.RootHex,
		Addresses: addresses,
		CreatedAt: snapshot.CreatedAt,
		Label:     snapshot.Label,
	}
}

// Ensure MemoryPersistence implements IAllowlistPersistence
var _ persistence.IAllowlistPersistence = (*MemoryPersistence)(nil)
