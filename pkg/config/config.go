package config

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

// Environment variable names for allowlist tooling configuration
const (
	EnvAllowlistFile            = "ALLOWLIST_FILE"
	EnvAllowlistPort            = "ALLOWLIST_PORT"
	EnvAllowlistChainID         = "ALLOWLIST_CHAIN_ID"
	EnvAllowlistRPCURL          = "ALLOWLIST_RPC_URL"
	EnvAllowlistRegistryAddress = "ALLOWLIST_REGISTRY_ADDRESS"
	EnvAllowlistPrivateKey      = "ALLOWLIST_PRIVATE_KEY"
	EnvAllowlistPersistenceType = "ALLOWLIST_PERSISTENCE_TYPE"
	EnvAllowlistBadgerPath      = "ALLOWLIST_BADGER_PATH"
	EnvAllowlistRedisAddress    = "ALLOWLIST_REDIS_ADDRESS"
	EnvAllowlistVerbose         = "ALLOWLIST_VERBOSE"
)

// PersistenceType selects the snapshot storage backend.
type PersistenceType string

func (p PersistenceType) String() string {
	return string(p)
}

const (
	PersistenceTypeMemory PersistenceType = "memory"
	PersistenceTypeBadger PersistenceType = "badger"
	PersistenceTypeRedis  PersistenceType = "redis"
)

// ParsePersistenceType validates a textual persistence type.
func ParsePersistenceType(s string) (PersistenceType, error) {
	switch PersistenceType(s) {
	case PersistenceTypeMemory:
		return PersistenceTypeMemory, nil
	case PersistenceTypeBadger:
		return PersistenceTypeBadger, nil
	case PersistenceTypeRedis:
		return PersistenceTypeRedis, nil
	default:
		return "", fmt.Errorf("unsupported persistence type: %s (supported: memory, badger, redis)", s)
	}
}

type ChainId uint

const (
	ChainId_EthereumMainnet ChainId = 1
	ChainId_EthereumSepolia ChainId = 11155111
	ChainId_EthereumAnvil   ChainId = 31337
)

type ChainName string

const (
	ChainName_EthereumMainnet ChainName = "mainnet"
	ChainName_EthereumSepolia ChainName = "sepolia"
	ChainName_EthereumAnvil   ChainName = "devnet"
)

var ChainIdToName = map[ChainId]ChainName{
	ChainId_EthereumMainnet: ChainName_EthereumMainnet,
	ChainId_EthereumSepolia: ChainName_EthereumSepolia,
	ChainId_EthereumAnvil:   ChainName_EthereumAnvil,
}
var ChainNameToId = map[ChainName]ChainId{
	ChainName_EthereumMainnet: ChainId_EthereumMainnet,
	ChainName_EthereumSepolia: ChainId_EthereumSepolia,
	ChainName_EthereumAnvil:   ChainId_EthereumAnvil,
}

// GetSupportedChainIDsString returns supported chain IDs for CLI help
func GetSupportedChainIDsString() string {
	return fmt.Sprintf("%d (mainnet), %d (sepolia), %d (anvil)",
		ChainId_EthereumMainnet, ChainId_EthereumSepolia, ChainId_EthereumAnvil)
}

// ServerConfig represents the complete configuration for the proof server
type ServerConfig struct {
	// Allowlist input
	AllowlistFile string `json:"allowlist_file"` // Path to the finalized address list

	// HTTP configuration
	Port int `json:"port"`

	// Snapshot persistence
	PersistenceType PersistenceType `json:"persistence_type"`
	BadgerPath      string          `json:"badger_path,omitempty"`
	RedisAddress    string          `json:"redis_address,omitempty"`

	// Operational settings
	Verbose bool `json:"verbose"`
}

// Validate validates the proof server configuration
func (c *ServerConfig) Validate() error {
	if c.AllowlistFile == "" {
		return fmt.Errorf("allowlist file cannot be empty")
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1-65535, got %d", c.Port)
	}

	pt, err := ParsePersistenceType(c.PersistenceType.String())
	if err != nil {
		return err
	}
	c.PersistenceType = pt

	switch c.PersistenceType {
	case PersistenceTypeBadger:
		if c.BadgerPath == "" {
			return fmt.Errorf("badger path cannot be empty when persistence type is badger")
		}
	case PersistenceTypeRedis:
		if c.RedisAddress == "" {
			return fmt.Errorf("redis address cannot be empty when persistence type is redis")
		}
	}

	return nil
}

// CommitConfig holds what is needed to publish a root to the on-chain registry
type CommitConfig struct {
	RpcUrl          string  `json:"rpc_url"`          // Ethereum RPC endpoint
	RegistryAddress string  `json:"registry_address"` // Allowlist registry contract address
	PrivateKey      string  `json:"private_key"`      // Hex-encoded ECDSA key of the submitter
	ChainID         ChainId `json:"chain_id"`
}

// Validate validates the commit configuration
func (cc *CommitConfig) Validate() error {
	var allErrors field.ErrorList

	if cc.RpcUrl == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("rpcUrl"), "rpcUrl is required"))
	}
	if cc.RegistryAddress == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("registryAddress"), "registryAddress is required"))
	} else if !common.IsHexAddress(cc.RegistryAddress) {
		allErrors = append(allErrors, field.Invalid(field.NewPath("registryAddress"), cc.RegistryAddress, "not a valid hex address"))
	}
	if cc.PrivateKey == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("privateKey"), "privateKey is required"))
	}
	if _, exists := ChainIdToName[cc.ChainID]; !exists {
		allErrors = append(allErrors, field.NotSupported(field.NewPath("chainId"), cc.ChainID,
			[]string{
				fmt.Sprintf("%d", ChainId_EthereumMainnet),
				fmt.Sprintf("%d", ChainId_EthereumSepolia),
				fmt.Sprintf("%d", ChainId_EthereumAnvil),
			}))
	}

	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}
