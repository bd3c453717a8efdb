package registry

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// registryABI is the fragment of the minting contract this tool talks to:
// the committed allowlist root, setter restricted on-chain to the owner.
const registryABI = `[
	{"type":"function","name":"setMerkleRoot","stateMutability":"nonpayable","inputs":[{"name":"root","type":"bytes32"}],"outputs":[]},
	{"type":"function","name":"merkleRoot","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bytes32"}]}
]`

// ContractBackend is the subset of an Ethereum client the registry needs.
// *ethclient.Client satisfies it.
type ContractBackend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// Registry submits and reads the committed allowlist merkle root on-chain.
type Registry struct {
	contract   *bind.BoundContract
	backend    ContractBackend
	address    common.Address
	privateKey *ecdsa.PrivateKey
	chainID    *big.Int
	logger     *zap.Logger
}

// NewRegistry creates a registry client for the contract at the given
// address. privateKeyHex may be empty for read-only use; SubmitRoot will
// fail without it.
func NewRegistry(backend ContractBackend, address common.Address, privateKeyHex string, chainID *big.Int, logger *zap.Logger) (*Registry, error) {
	parsed, err := abi.JSON(strings.NewReader(registryABI))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse registry ABI")
	}

	r := &Registry{
		contract: bind.NewBoundContract(address, parsed, backend, backend, backend),
		backend:  backend,
		address:  address,
		chainID:  chainID,
		logger:   logger,
	}

	if privateKeyHex != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse submitter private key")
		}
		r.privateKey = key
	}

	return r, nil
}

// SubmitRoot publishes a merkle root to the registry contract and waits for
// the transaction to be mined.
func (r *Registry) SubmitRoot(ctx context.Context, root [32]byte) (*ethtypes.Receipt, error) {
	if r.privateKey == nil {
		return nil, errors.New("registry has no submitter key configured")
	}

	txOpts, err := bind.NewKeyedTransactorWithChainID(r.privateKey, r.chainID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build transaction options")
	}
	txOpts.Context = ctx

	tx, err := r.contract.Transact(txOpts, "setMerkleRoot", root)
	if err != nil {
		return nil, errors.Wrap(err, "failed to submit merkle root")
	}

	r.logger.Sugar().Infow("Submitting merkle root to registry",
		"registry", r.address.Hex(),
		"root", common.Bytes2Hex(root[:]),
		"tx", tx.Hash().Hex(),
	)

	receipt, err := bind.WaitMined(ctx, r.backend, tx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed waiting for tx %s", tx.Hash().Hex())
	}
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		return receipt, errors.Errorf("setMerkleRoot tx %s reverted", tx.Hash().Hex())
	}

	return receipt, nil
}

// GetRoot reads the currently committed merkle root from the contract.
func (r *Registry) GetRoot(ctx context.Context) ([32]byte, error) {
	var out []interface{}
	err := r.contract.Call(&bind.CallOpts{Context: ctx}, &out, "merkleRoot")
	if err != nil {
		return [32]byte{}, errors.Wrap(err, "failed to read merkle root")
	}

	root, ok := out[0].([32]byte)
	if !ok {
		return [32]byte{}, errors.New("unexpected merkleRoot return type")
	}

	return root, nil
}
