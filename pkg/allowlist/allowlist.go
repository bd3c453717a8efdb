package allowlist

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/daveminer/dapp-punks/pkg/merkle"
)

var (
	// ErrAddressNotFound is returned when a proof is requested for an
	// address that is not in the committed set. This is a caller-facing
	// "unknown identity" condition, distinct from an out-of-range leaf
	// index, which indicates a programming error.
	ErrAddressNotFound = errors.New("address not in allowlist")

	// ErrDuplicateAddress is returned when the same address appears more
	// than once in the input list.
	ErrDuplicateAddress = errors.New("duplicate address in allowlist")
)

// Allowlist is a committed set of addresses with a merkle root.
// Built once from a finalized address list; immutable afterwards, so it may
// be read concurrently without locking. The root is what gets published to
// the minting contract; proofs are regenerated per address on demand.
type Allowlist struct {
	addresses []common.Address
	index     map[common.Address]int
	tree      *merkle.Tree
}

// New builds an allowlist from textual addresses. Addresses are normalized
// (case-insensitive hex) before hashing, and input order is preserved: the
// i-th address owns the i-th leaf. Returns merkle.ErrInvalidAddress for
// malformed entries, ErrDuplicateAddress for repeats, and
// merkle.ErrEmptyLeaves for an empty list.
func New(addresses []string) (*Allowlist, error) {
	normalized := make([]common.Address, 0, len(addresses))
	index := make(map[common.Address]int, len(addresses))
	leaves := make([][32]byte, 0, len(addresses))

	for i, raw := range addresses {
		addr, err := merkle.NormalizeAddress(raw)
		if err != nil {
			return nil, fmt.Errorf("address at position %d: %w", i, err)
		}
		if prev, exists := index[addr]; exists {
			return nil, fmt.Errorf("%w: %s at positions %d and %d",
				ErrDuplicateAddress, merkle.CanonicalAddressHex(addr), prev, i)
		}

		normalized = append(normalized, addr)
		index[addr] = i
		leaves = append(leaves, merkle.AddressLeaf(addr))
	}

	tree, err := merkle.BuildTree(leaves)
	if err != nil {
		return nil, err
	}

	return &Allowlist{
		addresses: normalized,
		index:     index,
		tree:      tree,
	}, nil
}

// Root returns the committed merkle root.
func (a *Allowlist) Root() [32]byte {
	return a.tree.Root
}

// RootHex returns the committed root as a 0x-prefixed hex string.
func (a *Allowlist) RootHex() string {
	return a.tree.RootHex()
}

// ProofFor generates the inclusion proof for an address.
// Returns ErrAddressNotFound if the address is not in the committed set.
func (a *Allowlist) ProofFor(address string) (*merkle.Proof, error) {
	addr, err := merkle.NormalizeAddress(address)
	if err != nil {
		return nil, err
	}

	leafIndex, exists := a.index[addr]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrAddressNotFound, merkle.CanonicalAddressHex(addr))
	}

	return a.tree.GenerateProof(leafIndex)
}

// Contains reports whether an address is in the committed set.
// Malformed addresses are simply not members.
func (a *Allowlist) Contains(address string) bool {
	addr, err := merkle.NormalizeAddress(address)
	if err != nil {
		return false
	}
	_, exists := a.index[addr]
	return exists
}

// Len returns the number of committed addresses.
func (a *Allowlist) Len() int {
	return len(a.addresses)
}

// Addresses returns the committed addresses in canonical hex, in leaf order.
func (a *Allowlist) Addresses() []string {
	out := make([]string, len(a.addresses))
	for i, addr := range a.addresses {
		out[i] = merkle.CanonicalAddressHex(addr)
	}
	return out
}
