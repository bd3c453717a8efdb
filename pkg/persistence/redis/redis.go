package redis

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/daveminer/dapp-punks/pkg/persistence"
)

// Key prefixes for namespacing in Redis
const (
	keyPrefixSnapshot    = "allowlist:snapshot:"
	keyActiveRoot        = "allowlist:active:root"
	keySchemaVersion     = "allowlist:metadata:schema_version"
	currentSchemaVersion = "v1"

	// Key set for listing operations (Redis doesn't support prefix iteration natively)
	keySetSnapshots = "allowlist:snapshots:index"

	// operationTimeout bounds individual Redis round-trips
	operationTimeout = 5 * time.Second
)

// RedisPersistence is a production-ready persistence implementation using Redis.
// Provides durable, distributed storage suitable for cloud-native deployments.
type RedisPersistence struct {
	client    *redis.Client
	logger    *zap.Logger
	keyPrefix string // Custom prefix for all keys
	mu        sync.RWMutex
	closed    bool
}

// RedisConfig holds the configuration for connecting to Redis
type RedisConfig struct {
	// Address is the Redis server address (host:port)
	Address string
	// Password is the optional Redis password
	Password string
	// DB is the Redis database number (0-15)
	DB int
	// KeyPrefix is an optional custom prefix for all keys (for multi-tenant
	// setups). If set, it is prepended to every key, e.g. "myapp:" yields
	// keys like "myapp:allowlist:snapshot:0x...".
	KeyPrefix string
}

// NewRedisPersistence creates a new Redis-backed persistence layer.
func NewRedisPersistence(cfg *RedisConfig, logger *zap.Logger) (*RedisPersistence, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}

	opts := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	rp := &RedisPersistence{
		client:    client,
		logger:    logger,
		keyPrefix: cfg.KeyPrefix,
	}

	if err := rp.initSchema(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Sugar().Infow("Redis persistence initialized", "address", cfg.Address, "db", cfg.DB)

	return rp, nil
}

// prefixKey adds the custom key prefix (if configured) to a key
func (r *RedisPersistence) prefixKey(key string) string {
	if r.keyPrefix == "" {
		return key
	}
	return r.keyPrefix + key
}

// initSchema initializes or validates the schema version
func (r *RedisPersistence) initSchema(ctx context.Context) error {
	schemaKey := r.prefixKey(keySchemaVersion)

	existingVersion, err := r.client.Get(ctx, schemaKey).Result()
	if err == redis.Nil {
		return r.client.Set(ctx, schemaKey, currentSchemaVersion, 0).Err()
	}
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if existingVersion != currentSchemaVersion {
		return fmt.Errorf("unsupported schema version: %s (expected: %s)", existingVersion, currentSchemaVersion)
	}
	return nil
}

// opContext returns a bounded context for a single Redis operation
func opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), operationTimeout)
}

// SaveSnapshot persists a committed allowlist snapshot
func (r *RedisPersistence) SaveSnapshot(snapshot *persistence.AllowlistSnapshot) error {
	if snapshot == nil {
		return fmt.Errorf("cannot save nil AllowlistSnapshot")
	}
	if snapshot.RootHex == "" {
		return fmt.Errorf("cannot save snapshot with empty root")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	data, err := persistence.MarshalSnapshot(snapshot)
	if err != nil {
		return err
	}

	ctx, cancel := opContext()
	defer cancel()

	key := r.prefixKey(keyPrefixSnapshot + snapshot.RootHex)
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, key, data, 0)
	pipe.SAdd(ctx, r.prefixKey(keySetSnapshots), snapshot.RootHex)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save snapshot %s: %w", snapshot.RootHex, err)
	}

	return nil
}

// LoadSnapshot retrieves a snapshot by root hex
func (r *RedisPersistence) LoadSnapshot(rootHex string) (*persistence.AllowlistSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	ctx, cancel := opContext()
	defer cancel()

	data, err := r.client.Get(ctx, r.prefixKey(keyPrefixSnapshot+rootHex)).Bytes()
	if err == redis.Nil {
		return nil, nil // Not found is not an error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot %s: %w", rootHex, err)
	}

	return persistence.UnmarshalSnapshot(data)
}

// ListSnapshots returns all snapshots sorted by CreatedAt
func (r *RedisPersistence) ListSnapshots() ([]*persistence.AllowlistSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	ctx, cancel := opContext()
	defer cancel()

	roots, err := r.client.SMembers(ctx, r.prefixKey(keySetSnapshots)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshot index: %w", err)
	}

	snapshots := make([]*persistence.AllowlistSnapshot, 0, len(roots))
	for _, root := range roots {
		data, err := r.client.Get(ctx, r.prefixKey(keyPrefixSnapshot+root)).Bytes()
		if err == redis.Nil {
			// Index entry without a value; skip stale entries
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load snapshot %s: %w", root, err)
		}

		snapshot, err := persistence.UnmarshalSnapshot(data)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}

	sortSnapshots(snapshots)
	return snapshots, nil
}

// DeleteSnapshot removes a snapshot by root hex. Idempotent.
func (r *RedisPersistence) DeleteSnapshot(rootHex string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	ctx, cancel := opContext()
	defer cancel()

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.prefixKey(keyPrefixSnapshot+rootHex))
	pipe.SRem(ctx, r.prefixKey(keySetSnapshots), rootHex)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete snapshot %s: %w", rootHex, err)
	}

	return nil
}

// SetActiveRoot records the currently live root
func (r *RedisPersistence) SetActiveRoot(rootHex string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	ctx, cancel := opContext()
	defer cancel()

	key := r.prefixKey(keyActiveRoot)
	if rootHex == "" {
		if err := r.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("failed to clear active root: %w", err)
		}
		return nil
	}

	if err := r.client.Set(ctx, key, rootHex, 0).Err(); err != nil {
		return fmt.Errorf("failed to set active root: %w", err)
	}
	return nil
}

// GetActiveRoot returns the currently live root, or "" if none is set
func (r *RedisPersistence) GetActiveRoot() (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return "", fmt.Errorf("persistence layer is closed")
	}

	ctx, cancel := opContext()
	defer cancel()

	root, err := r.client.Get(ctx, r.prefixKey(keyActiveRoot)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get active root: %w", err)
	}

	return root, nil
}

// Close shuts down the Redis client. Idempotent.
func (r *RedisPersistence) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	if err := r.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}
	return nil
}

// HealthCheck verifies Redis is reachable
func (r *RedisPersistence) HealthCheck() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	ctx, cancel := opContext()
	defer cancel()

	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

// sortSnapshots orders snapshots by CreatedAt, then root for stability
func sortSnapshots(snapshots []*persistence.AllowlistSnapshot) {
	sort.Slice(snapshots, func(i, j int) bool {
		if snapshots[i].CreatedAt != snapshots[j].CreatedAt {
			return snapshots[i].CreatedAt < snapshots[j].CreatedAt
		}
		return snapshots[i].RootHex < snapshots[j].RootHex
	})
}

// Ensure RedisPersistence implements IAllowlistPersistence
var _ persistence.IAllowlistPersistence = (*RedisPersistence)(nil)
