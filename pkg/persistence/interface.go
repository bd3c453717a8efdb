package persistence

// IAllowlistPersistence defines the interface for persisting committed
// allowlist snapshots across restarts. All implementations must be
// thread-safe as server operations are concurrent.
//
// The interface supports:
// - Snapshot management (save, load, list, delete), keyed by root hex
// - Active root tracking (which commitment is currently live on-chain)
// - Lifecycle management (close, health check)
type IAllowlistPersistence interface {
	// SaveSnapshot persists a committed allowlist keyed by its root.
	// Idempotent: re-saving the same root overwrites.
	SaveSnapshot(snapshot *AllowlistSnapshot) error

	// LoadSnapshot retrieves a snapshot by its 0x-prefixed root hex.
	// Returns nil if the snapshot doesn't exist, error only on storage failure.
	LoadSnapshot(rootHex string) (*AllowlistSnapshot, error)

	// ListSnapshots returns all persisted snapshots sorted by CreatedAt
	// (ascending). Returns empty slice if none exist.
	ListSnapshots() ([]*AllowlistSnapshot, error)

	// DeleteSnapshot removes a snapshot by root hex.
	// Idempotent - returns nil if the snapshot doesn't exist.
	DeleteSnapshot(rootHex string) error

	// SetActiveRoot records which committed root is currently live.
	// An empty string clears the active root.
	SetActiveRoot(rootHex string) error

	// GetActiveRoot returns the currently live root hex.
	// Returns "" if no root has been activated (first run).
	GetActiveRoot() (string, error)

	// Close cleanly shuts down the persistence layer.
	// Idempotent - safe to call multiple times.
	// After Close(), all other operations should return errors.
	Close() error

	// HealthCheck verifies the persistence layer is operational.
	// Returns nil if healthy, error describing the problem if not.
	HealthCheck() error
}
