package merkle

import "github.com/ethereum/go-ethereum/common/hexutil"

// Tree is a binary merkle tree over 32-byte leaf digests.
// The tree uses keccak256 hashing with sorted pairs for Solidity compatibility:
// the on-chain verifier only checks set membership of a pair, not left/right
// position, so both children are ordered before hashing.
type Tree struct {
	// Leaves contains the leaf digests in their original input order.
	// The leaf at index i always corresponds to the i-th input for the
	// lifetime of the tree.
	Leaves [][32]byte

	// Root is the merkle root digest
	Root [32]byte

	// levels stores all tree levels for proof generation
	// levels[0] = leaves, levels[len-1] = root
	levels [][][32]byte
}

// Proof proves that a leaf is included in a tree with a given root.
// Siblings are ordered from the leaf upward: Siblings[0] pairs with the leaf,
// the last element pairs with the node just below the root.
//
// Levels where the node was carried up without a partner contribute no
// sibling, so the proof may be shorter than the tree depth.
type Proof struct {
	// LeafIndex is the position of the leaf in the original input order
	LeafIndex int

	// Leaf is the digest being proven
	Leaf [32]byte

	// Siblings contains the sibling digests from leaf to root
	Siblings [][32]byte
}

// SiblingsHex returns the proof siblings as 0x-prefixed hex strings, the
// rendering expected by external verifiers and JSON clients.
func (p *Proof) SiblingsHex() []string {
	out := make([]string, len(p.Siblings))
	for i, s := range p.Siblings {
		out[i] = hexutil.Encode(s[:])
	}
	return out
}

// RootHex returns the tree root as a 0x-prefixed hex string.
func (t *Tree) RootHex() string {
	return hexutil.Encode(t.Root[:])
}

// Depth returns the number of levels in the tree, including the leaf level.
func (t *Tree) Depth() int {
	return len(t.levels)
}
