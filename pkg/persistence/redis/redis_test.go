package redis

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daveminer/dapp-punks/pkg/logger"
	"github.com/daveminer/dapp-punks/pkg/persistence"
)

// getTestRedisAddress returns the Redis address for testing.
// Uses REDIS_TEST_ADDRESS env var if set, otherwise defaults to localhost:6379.
func getTestRedisAddress() string {
	if addr := os.Getenv("REDIS_TEST_ADDRESS"); addr != "" {
		return addr
	}
	return "localhost:6379"
}

// requireRedis skips the test if Redis is not available
func requireRedis(t *testing.T) *RedisPersistence {
	t.Helper()

	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	cfg := &RedisConfig{
		Address: getTestRedisAddress(),
		DB:      15, // Use DB 15 for tests to avoid conflicts
		// Unique prefix per test run so runs don't see each other's keys
		KeyPrefix: fmt.Sprintf("test:%d:", time.Now().UnixNano()),
	}

	rp, err := NewRedisPersistence(cfg, testLogger)
	if err != nil {
		t.Skipf("Redis not available at %s: %v", cfg.Address, err)
		return nil
	}

	t.Cleanup(func() { _ = rp.Close() })
	return rp
}

func sampleSnapshot(root string, createdAt int64) *persistence.AllowlistSnapshot {
	return &persistence.AllowlistSnapshot{
		RootHex: root,
		Addresses: []string{
			"0x5b38da6a701c568545dcfcb03fcb875f56beddc4",
			"0xab8483f64d9c6d1ecf9b849ae677dd3315835cb2",
		},
		CreatedAt: createdAt,
	}
}

func TestNewRedisPersistence_InvalidConfig(t *testing.T) {
	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})

	_, err := NewRedisPersistence(nil, testLogger)
	require.Error(t, err)

	_, err = NewRedisPersistence(&RedisConfig{}, testLogger)
	require.Error(t, err)
}

func TestRedisPersistence_SaveAndLoad(t *testing.T) {
	rp := requireRedis(t)

	snapshot := sampleSnapshot("0xaa", 100)
	require.NoError(t, rp.SaveSnapshot(snapshot))

	loaded, err := rp.LoadSnapshot("0xaa")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, snapshot, loaded)
}

func TestRedisPersistence_Load_NotFound(t *testing.T) {
	rp := requireRedis(t)

	loaded, err := rp.LoadSnapshot("0xmissing")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestRedisPersistence_Save_Invalid(t *testing.T) {
	rp := requireRedis(t)

	require.Error(t, rp.SaveSnapshot(nil))
	require.Error(t, rp.SaveSnapshot(&persistence.AllowlistSnapshot{}))
}

func TestRedisPersistence_ListAndDelete(t *testing.T) {
	rp := requireRedis(t)

	require.NoError(t, rp.SaveSnapshot(sampleSnapshot("0xbb", 200)))
	require.NoError(t, rp.SaveSnapshot(sampleSnapshot("0xaa", 100)))

	list, err := rp.ListSnapshots()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "0xaa", list[0].RootHex)
	assert.Equal(t, "0xbb", list[1].RootHex)

	require.NoError(t, rp.DeleteSnapshot("0xaa"))
	require.NoError(t, rp.DeleteSnapshot("0xaa")) // idempotent

	list, err = rp.ListSnapshots()
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestRedisPersistence_ActiveRoot(t *testing.T) {
	rp := requireRedis(t)

	root, err := rp.GetActiveRoot()
	require.NoError(t, err)
	assert.Equal(t, "", root)

	require.NoError(t, rp.SetActiveRoot("0xaa"))
	root, err = rp.GetActiveRoot()
	require.NoError(t, err)
	assert.Equal(t, "0xaa", root)

	require.NoError(t, rp.SetActiveRoot(""))
	root, err = rp.GetActiveRoot()
	require.NoError(t, err)
	assert.Equal(t, "", root)
}

func TestRedisPersistence_Closed(t *testing.T) {
	rp := requireRedis(t)
	require.NoError(t, rp.Close())

	require.Error(t, rp.SaveSnapshot(sampleSnapshot("0xaa", 100)))
	_, err := rp.LoadSnapshot("0xaa")
	require.Error(t, err)
	require.Error(t, rp.HealthCheck())

	// Close is idempotent
	require.NoError(t, rp.Close())
}
