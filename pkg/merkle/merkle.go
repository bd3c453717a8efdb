package merkle

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

var (
	// ErrEmptyLeaves is returned when building a tree from zero leaves.
	ErrEmptyLeaves = errors.New("cannot build merkle tree from empty leaf list")

	// ErrIndexOutOfRange is returned when requesting a proof for a leaf
	// position that does not exist.
	ErrIndexOutOfRange = errors.New("leaf index out of range")
)

// BuildTree creates a binary merkle tree from the given leaf digests.
// Leaf order is preserved: the caller's ordering determines which proof
// belongs to which input, and the root is a deterministic function of the
// ordered leaf sequence.
//
// Levels are built bottom-up by combining adjacent pairs with combinePair.
// If a level has an odd number of nodes, the last node is carried up to the
// next level unchanged. It is never hashed with a copy of itself: duplicating
// the last node lets a single proof element be replayed against the duplicate
// and diverges from the on-chain verifier.
func BuildTree(leaves [][32]byte) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, ErrEmptyLeaves
	}

	// Copy so later mutation of the caller's slice cannot change the tree
	layer := make([][32]byte, len(leaves))
	copy(layer, leaves)

	levels := make([][][32]byte, 0)
	levels = append(levels, layer)

	current := layer
	for len(current) > 1 {
		next := make([][32]byte, 0, (len(current)+1)/2)

		for i := 0; i+1 < len(current); i += 2 {
			next = append(next, combinePair(current[i], current[i+1]))
		}

		// Odd level: promote the unpaired node verbatim
		if len(current)%2 == 1 {
			next = append(next, current[len(current)-1])
		}

		levels = append(levels, next)
		current = next
	}

	return &Tree{
		Leaves: layer,
		Root:   current[0],
		levels: levels,
	}, nil
}

// GenerateProof creates a merkle proof for the leaf at the given index.
// The proof consists of sibling digests along the path from leaf to root.
// Levels where the node was promoted without a partner append nothing.
func (t *Tree) GenerateProof(leafIndex int) (*Proof, error) {
	if leafIndex < 0 || leafIndex >= len(t.Leaves) {
		return nil, fmt.Errorf("%w: index %d with %d leaves", ErrIndexOutOfRange, leafIndex, len(t.Leaves))
	}

	siblings := make([][32]byte, 0, len(t.levels)-1)
	index := leafIndex

	for level := 0; level < len(t.levels)-1; level++ {
		nodes := t.levels[level]

		// Pair partner: right neighbour for even indices, left for odd.
		// An even index at the end of an odd level has no partner; the node
		// was promoted and this level contributes no sibling.
		siblingIndex := index ^ 1
		if siblingIndex < len(nodes) {
			siblings = append(siblings, nodes[siblingIndex])
		}

		// Parent position. This also holds for a promoted node: the level
		// has odd length n, the node sits at n-1, and it lands at (n-1)/2
		// in the next level, after the (n-1)/2 combined pairs.
		index = index / 2
	}

	return &Proof{
		LeafIndex: leafIndex,
		Leaf:      t.Leaves[leafIndex],
		Siblings:  siblings,
	}, nil
}

// VerifyProof checks that a leaf is included in a tree with the given root.
// It folds the siblings into the leaf using the same sorted-pair hashing as
// BuildTree and compares the result to the root.
//
// Verification is total: it never errors, and malformed or hostile proofs
// simply fail to reproduce the root. An empty proof is valid exactly when the
// leaf is itself the root (single-leaf tree). It needs no Tree instance,
// mirroring what the on-chain verifier does.
func VerifyProof(leaf [32]byte, siblings [][32]byte, root [32]byte) bool {
	current := leaf
	for _, sibling := range siblings {
		current = combinePair(current, sibling)
	}
	return current == root
}

// combinePair computes keccak256(min(a,b) || max(a,b)) using byte-wise
// lexicographic comparison. Sorting makes the combination commutative, which
// is what lets the verifier fold a proof without tracking left/right
// positions. This is the single combine rule for both build and verify; any
// divergence between the two paths breaks root compatibility.
func combinePair(a, b [32]byte) [32]byte {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}

	data := make([]byte, 64)
	copy(data[0:32], a[:])
	copy(data[32:64], b[:])

	hash := crypto.Keccak256Hash(data)
	return [32]byte(hash)
}
