package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/daveminer/dapp-punks/pkg/allowlist"
	"github.com/daveminer/dapp-punks/pkg/config"
	"github.com/daveminer/dapp-punks/pkg/logger"
	"github.com/daveminer/dapp-punks/pkg/merkle"
	"github.com/daveminer/dapp-punks/pkg/persistence"
	badgerPersistence "github.com/daveminer/dapp-punks/pkg/persistence/badger"
	memoryPersistence "github.com/daveminer/dapp-punks/pkg/persistence/memory"
	redisPersistence "github.com/daveminer/dapp-punks/pkg/persistence/redis"
	"github.com/daveminer/dapp-punks/pkg/registry"
	"github.com/daveminer/dapp-punks/pkg/server"
)

func main() {
	fileFlag := &cli.StringFlag{
		Name:     "file",
		Aliases:  []string{"f"},
		Usage:    "Path to the allowlist file (one address per line)",
		EnvVars:  []string{config.EnvAllowlistFile},
		Required: true,
	}

	app := &cli.App{
		Name:  "allowlist",
		Usage: "Merkle allowlist commitment and proof tooling",
		Description: `Builds the merkle commitment over a finalized mint allowlist and produces
inclusion proofs compatible with the on-chain verifier (keccak256, sorted
pairs, double-hashed leaves, odd nodes promoted).

The root is published to the minting contract once; proofs are generated
per address on demand and submitted alongside mint transactions.`,
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "Enable verbose logging",
				EnvVars: []string{config.EnvAllowlistVerbose},
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "root",
				Usage:  "Compute the merkle root of an allowlist file",
				Flags:  []cli.Flag{fileFlag},
				Action: runRoot,
			},
			{
				Name:  "proof",
				Usage: "Generate the inclusion proof for one address",
				Flags: []cli.Flag{
					fileFlag,
					&cli.StringFlag{
						Name:     "address",
						Aliases:  []string{"a"},
						Usage:    "Address to prove",
						Required: true,
					},
				},
				Action: runProof,
			},
			{
				Name:  "verify",
				Usage: "Verify a proof against a root, independent of any allowlist",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "leaf",
						Usage:    "Leaf digest (0x hex)",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "root",
						Usage:    "Expected root digest (0x hex)",
						Required: true,
					},
					&cli.StringSliceFlag{
						Name:  "sibling",
						Usage: "Proof sibling digest (0x hex), repeatable, in leaf-to-root order",
					},
				},
				Action: runVerify,
			},
			{
				Name:  "serve",
				Usage: "Serve the committed root and proofs over HTTP",
				Flags: []cli.Flag{
					fileFlag,
					&cli.IntFlag{
						Name:    "port",
						Aliases: []string{"p"},
						Value:   8000,
						Usage:   "HTTP server port",
						EnvVars: []string{config.EnvAllowlistPort},
					},
					&cli.StringFlag{
						Name:    "persistence-type",
						Value:   "memory",
						Usage:   "Snapshot storage backend: memory, badger or redis",
						EnvVars: []string{config.EnvAllowlistPersistenceType},
					},
					&cli.StringFlag{
						Name:    "badger-path",
						Usage:   "Data directory for the badger backend",
						EnvVars: []string{config.EnvAllowlistBadgerPath},
					},
					&cli.StringFlag{
						Name:    "redis-address",
						Usage:   "host:port of the redis backend",
						EnvVars: []string{config.EnvAllowlistRedisAddress},
					},
				},
				Action: runServe,
			},
			{
				Name:  "commit",
				Usage: "Publish the merkle root to the on-chain registry",
				Flags: []cli.Flag{
					fileFlag,
					&cli.StringFlag{
						Name:    "rpc-url",
						Aliases: []string{"rpc"},
						Value:   "http://localhost:8545",
						Usage:   "Ethereum RPC endpoint URL",
						EnvVars: []string{config.EnvAllowlistRPCURL},
					},
					&cli.StringFlag{
						Name:     "registry",
						Usage:    "Registry contract address",
						EnvVars:  []string{config.EnvAllowlistRegistryAddress},
						Required: true,
					},
					&cli.StringFlag{
						Name:     "private-key",
						Usage:    "Hex-encoded ECDSA key of the contract owner",
						EnvVars:  []string{config.EnvAllowlistPrivateKey},
						Required: true,
					},
					&cli.Uint64Flag{
						Name:    "chain-id",
						Aliases: []string{"chain"},
						Usage:   fmt.Sprintf("Ethereum chain ID: %s", config.GetSupportedChainIDsString()),
						Value:   uint64(config.ChainId_EthereumAnvil),
						EnvVars: []string{config.EnvAllowlistChainID},
					},
				},
				Action: runCommit,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

// newLogger builds the zap logger from the global verbose flag
func newLogger(c *cli.Context) (*zap.Logger, error) {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: c.Bool("verbose")})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return l, nil
}

// buildAllowlist loads and commits the address file
func buildAllowlist(c *cli.Context) (*allowlist.Allowlist, error) {
	addresses, err := allowlist.LoadAddressFile(c.String("file"))
	if err != nil {
		return nil, err
	}

	al, err := allowlist.New(addresses)
	if err != nil {
		return nil, fmt.Errorf("failed to build allowlist: %w", err)
	}
	return al, nil
}

func runRoot(c *cli.Context) error {
	al, err := buildAllowlist(c)
	if err != nil {
		return err
	}

	fmt.Println(al.RootHex())
	return nil
}

// proofOutput is the JSON shape printed by the proof command, matching the
// proof server's response body
type proofOutput struct {
	Address   string   `json:"address"`
	LeafIndex int      `json:"leafIndex"`
	Leaf      string   `json:"leaf"`
	Proof     []string `json:"proof"`
	Root      string   `json:"root"`
}

func runProof(c *cli.Context) error {
	al, err := buildAllowlist(c)
	if err != nil {
		return err
	}

	proof, err := al.ProofFor(c.String("address"))
	if err != nil {
		return err
	}

	addr, err := merkle.NormalizeAddress(c.String("address"))
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(proofOutput{
		Address:   merkle.CanonicalAddressHex(addr),
		LeafIndex: proof.LeafIndex,
		Leaf:      hexutil.Encode(proof.Leaf[:]),
		Proof:     proof.SiblingsHex(),
		Root:      al.RootHex(),
	}, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(string(out))
	return nil
}

// parseDigest decodes a 0x-prefixed 32-byte hex digest
func parseDigest(s string) ([32]byte, error) {
	var digest [32]byte
	b, err := hexutil.Decode(strings.TrimSpace(s))
	if err != nil {
		return digest, fmt.Errorf("invalid digest %q: %w", s, err)
	}
	if len(b) != 32 {
		return digest, fmt.Errorf("invalid digest %q: expected 32 bytes, got %d", s, len(b))
	}
	copy(digest[:], b)
	return digest, nil
}

func runVerify(c *cli.Context) error {
	leaf, err := parseDigest(c.String("leaf"))
	if err != nil {
		return err
	}
	root, err := parseDigest(c.String("root"))
	if err != nil {
		return err
	}

	rawSiblings := c.StringSlice("sibling")
	siblings := make([][32]byte, len(rawSiblings))
	for i, s := range rawSiblings {
		siblings[i], err = parseDigest(s)
		if err != nil {
			return err
		}
	}

	if !merkle.VerifyProof(leaf, siblings, root) {
		return cli.Exit("invalid proof", 1)
	}

	fmt.Println("valid proof")
	return nil
}

// openPersistence builds the snapshot store selected by the config
func openPersistence(cfg *config.ServerConfig, l *zap.Logger) (persistence.IAllowlistPersistence, error) {
	switch cfg.PersistenceType {
	case config.PersistenceTypeBadger:
		return badgerPersistence.NewBadgerPersistence(cfg.BadgerPath, l)
	case config.PersistenceTypeRedis:
		return redisPersistence.NewRedisPersistence(&redisPersistence.RedisConfig{
			Address: cfg.RedisAddress,
		}, l)
	default:
		l.Sugar().Warnw("Using in-memory persistence, snapshots will be lost on restart")
		return memoryPersistence.NewMemoryPersistence(), nil
	}
}

func runServe(c *cli.Context) error {
	l, err := newLogger(c)
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	cfg := &config.ServerConfig{
		AllowlistFile:   c.String("file"),
		Port:            c.Int("port"),
		PersistenceType: config.PersistenceType(c.String("persistence-type")),
		BadgerPath:      c.String("badger-path"),
		RedisAddress:    c.String("redis-address"),
		Verbose:         c.Bool("verbose"),
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	al, err := buildAllowlist(c)
	if err != nil {
		return err
	}

	store, err := openPersistence(cfg, l)
	if err != nil {
		return fmt.Errorf("failed to open persistence: %w", err)
	}
	defer func() { _ = store.Close() }()

	// Record the commitment so proofs can be regenerated after a restart
	// even if the allowlist file changes underneath us
	snapshot := &persistence.AllowlistSnapshot{
		RootHex:   al.RootHex(),
		Addresses: al.Addresses(),
		CreatedAt: time.Now().Unix(),
	}
	if err := store.SaveSnapshot(snapshot); err != nil {
		return fmt.Errorf("failed to save allowlist snapshot: %w", err)
	}
	if err := store.SetActiveRoot(al.RootHex()); err != nil {
		return fmt.Errorf("failed to set active root: %w", err)
	}

	l.Sugar().Infow("Allowlist committed",
		"root", al.RootHex(),
		"addresses", al.Len(),
		"persistence", cfg.PersistenceType.String(),
	)

	srv := server.NewServer(al, server.Config{Port: cfg.Port}, l)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	l.Sugar().Infow("Shutting down", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(ctx)
}

func runCommit(c *cli.Context) error {
	l, err := newLogger(c)
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	cfg := &config.CommitConfig{
		RpcUrl:          c.String("rpc-url"),
		RegistryAddress: c.String("registry"),
		PrivateKey:      c.String("private-key"),
		ChainID:         config.ChainId(c.Uint64("chain-id")),
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	al, err := buildAllowlist(c)
	if err != nil {
		return err
	}

	client, err := ethclient.Dial(cfg.RpcUrl)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", cfg.RpcUrl, err)
	}
	defer client.Close()

	reg, err := registry.NewRegistry(
		client,
		common.HexToAddress(cfg.RegistryAddress),
		cfg.PrivateKey,
		new(big.Int).SetUint64(uint64(cfg.ChainID)),
		l,
	)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	receipt, err := reg.SubmitRoot(ctx, al.Root())
	if err != nil {
		return fmt.Errorf("failed to publish root: %w", err)
	}

	l.Sugar().Infow("Merkle root published",
		"root", al.RootHex(),
		"registry", cfg.RegistryAddress,
		"tx", receipt.TxHash.Hex(),
		"block", receipt.BlockNumber.Uint64(),
	)

	fmt.Println(al.RootHex())
	return nil
}
