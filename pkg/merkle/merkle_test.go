package merkle

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ethereum/go-ethereum/common"
)

// createTestLeaves creates n distinct leaf digests from sequential addresses
func createTestLeaves(n int) [][32]byte {
	leaves := make([][32]byte, n)
	for i := 0; i < n; i++ {
		// Start from 1 to avoid the zero address
		addr := common.BigToAddress(big.NewInt(int64(i + 1)))
		leaves[i] = AddressLeaf(addr)
	}
	return leaves
}

// randomDigest generates a random 32-byte digest for testing
func randomDigest() [32]byte {
	var d [32]byte
	_, _ = rand.Read(d[:]) // Ignore error in test helper
	return d
}

// TestBuildTree tests tree construction and round-trip proofs at various sizes
func TestBuildTree(t *testing.T) {
	testCases := []struct {
		name      string
		numLeaves int
	}{
		{"Single leaf", 1},
		{"Two leaves", 2},
		{"Three leaves", 3},
		{"Four leaves (power of 2)", 4},
		{"Five leaves", 5},
		{"Seven leaves", 7},
		{"Eight leaves (power of 2)", 8},
		{"Fifteen leaves", 15},
		{"Sixteen leaves (power of 2)", 16},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			leaves := createTestLeaves(tc.numLeaves)
			tree, err := BuildTree(leaves)
			require.NoError(t, err)
			require.NotNil(t, tree)

			require.Equal(t, tc.numLeaves, len(tree.Leaves))
			require.NotEqual(t, [32]byte{}, tree.Root)

			// Every leaf must round-trip through proof generation and
			// verification against the committed root
			for i := 0; i < tc.numLeaves; i++ {
				proof, err := tree.GenerateProof(i)
				require.NoError(t, err)
				require.NotNil(t, proof)
				require.Equal(t, i, proof.LeafIndex)
				require.Equal(t, tree.Leaves[i], proof.Leaf)

				valid := VerifyProof(proof.Leaf, proof.Siblings, tree.Root)
				require.True(t, valid, "Proof for leaf %d should be valid", i)
			}
		})
	}
}

// TestBuildTreeEmpty tests that building a tree from zero leaves fails
func TestBuildTreeEmpty(t *testing.T) {
	tree, err := BuildTree([][32]byte{})
	require.Error(t, err)
	require.Nil(t, tree)
	require.ErrorIs(t, err, ErrEmptyLeaves)
}

// TestBuildTreeSingleLeaf tests the singleton tree: root equals the leaf and
// the proof is empty
func TestBuildTreeSingleLeaf(t *testing.T) {
	leaf := AddressLeaf(common.HexToAddress("0x5B38Da6a701c568545dCfcB03FcB875f56beddC4"))
	tree, err := BuildTree([][32]byte{leaf})
	require.NoError(t, err)

	require.Equal(t, leaf, tree.Root)

	proof, err := tree.GenerateProof(0)
	require.NoError(t, err)
	require.Empty(t, proof.Siblings)

	require.True(t, VerifyProof(leaf, [][32]byte{}, tree.Root))
	require.True(t, VerifyProof(leaf, nil, tree.Root))
}

// TestTwoLeafExample tests the worked two-address example: the root is the
// sorted-pair hash of the two leaves and each proof is the other leaf
func TestTwoLeafExample(t *testing.T) {
	addr1 := common.HexToAddress("0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA01")
	addr2 := common.HexToAddress("0xBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB02")

	l1 := AddressLeaf(addr1)
	l2 := AddressLeaf(addr2)

	tree, err := BuildTree([][32]byte{l1, l2})
	require.NoError(t, err)

	require.Equal(t, combinePair(l1, l2), tree.Root)
	// Sorting makes the combination commutative
	require.Equal(t, combinePair(l2, l1), tree.Root)

	proof1, err := tree.GenerateProof(0)
	require.NoError(t, err)
	require.Equal(t, [][32]byte{l2}, proof1.Siblings)
	require.True(t, VerifyProof(l1, [][32]byte{l2}, tree.Root))

	proof2, err := tree.GenerateProof(1)
	require.NoError(t, err)
	require.Equal(t, [][32]byte{l1}, proof2.Siblings)
	require.True(t, VerifyProof(l2, [][32]byte{l1}, tree.Root))
}

// TestOddLevelPromotion tests the exact three-leaf structure: A and B combine
// into one node, C is promoted unchanged, and the root combines the pair hash
// with the promoted C. A duplicated-C variant would produce a different root.
func TestOddLevelPromotion(t *testing.T) {
	leaves := createTestLeaves(3)
	a, b, c := leaves[0], leaves[1], leaves[2]

	tree, err := BuildTree(leaves)
	require.NoError(t, err)

	ab := combinePair(a, b)
	expectedRoot := combinePair(ab, c)
	require.Equal(t, expectedRoot, tree.Root)

	// The duplicated-last-node variant must NOT match
	duplicatedRoot := combinePair(ab, combinePair(c, c))
	require.NotEqual(t, duplicatedRoot, tree.Root)

	// C's proof skips the promoted level: it is just [H(A,B)]
	proofC, err := tree.GenerateProof(2)
	require.NoError(t, err)
	require.Equal(t, [][32]byte{ab}, proofC.Siblings)
	require.True(t, VerifyProof(c, proofC.Siblings, tree.Root))

	// A's proof walks both levels: [B, C]
	proofA, err := tree.GenerateProof(0)
	require.NoError(t, err)
	require.Equal(t, [][32]byte{b, c}, proofA.Siblings)
	require.True(t, VerifyProof(a, proofA.Siblings, tree.Root))
}

// TestPromotionProofLengths tests that proofs vary in length when promotions
// occur along the path, so callers must not assume ceil(log2(n)) elements
func TestPromotionProofLengths(t *testing.T) {
	// 5 leaves: level 0 promotes leaf 4, level 1 promotes it again.
	// Leaf 4's proof has a single sibling; leaf 0's proof has three.
	leaves := createTestLeaves(5)
	tree, err := BuildTree(leaves)
	require.NoError(t, err)

	proof4, err := tree.GenerateProof(4)
	require.NoError(t, err)
	require.Len(t, proof4.Siblings, 1)
	require.True(t, VerifyProof(proof4.Leaf, proof4.Siblings, tree.Root))

	proof0, err := tree.GenerateProof(0)
	require.NoError(t, err)
	require.Len(t, proof0.Siblings, 3)
	require.True(t, VerifyProof(proof0.Leaf, proof0.Siblings, tree.Root))
}

// TestProofVerification tests proof verification with valid and invalid cases
func TestProofVerification(t *testing.T) {
	leaves := createTestLeaves(4)
	tree, err := BuildTree(leaves)
	require.NoError(t, err)

	t.Run("Valid proof", func(t *testing.T) {
		proof, err := tree.GenerateProof(0)
		require.NoError(t, err)
		require.True(t, VerifyProof(proof.Leaf, proof.Siblings, tree.Root))
	})

	t.Run("Invalid proof - wrong root", func(t *testing.T) {
		proof, err := tree.GenerateProof(0)
		require.NoError(t, err)

		invalidRoot := [32]byte{1, 2, 3, 4, 5}
		require.False(t, VerifyProof(proof.Leaf, proof.Siblings, invalidRoot))
	})

	t.Run("Invalid proof - tampered leaf", func(t *testing.T) {
		proof, err := tree.GenerateProof(0)
		require.NoError(t, err)

		proof.Leaf[0] ^= 0xFF
		require.False(t, VerifyProof(proof.Leaf, proof.Siblings, tree.Root))
	})

	t.Run("Invalid proof - tampered sibling", func(t *testing.T) {
		proof, err := tree.GenerateProof(0)
		require.NoError(t, err)

		require.NotEmpty(t, proof.Siblings)
		proof.Siblings[0][0] ^= 0xFF
		require.False(t, VerifyProof(proof.Leaf, proof.Siblings, tree.Root))
	})

	t.Run("Invalid proof - truncated", func(t *testing.T) {
		proof, err := tree.GenerateProof(0)
		require.NoError(t, err)

		require.Len(t, proof.Siblings, 2)
		require.False(t, VerifyProof(proof.Leaf, proof.Siblings[:1], tree.Root))
	})

	t.Run("Invalid proof - extra element", func(t *testing.T) {
		proof, err := tree.GenerateProof(0)
		require.NoError(t, err)

		extended := append(proof.Siblings, randomDigest())
		require.False(t, VerifyProof(proof.Leaf, extended, tree.Root))
	})

	t.Run("Non-member leaf", func(t *testing.T) {
		proof, err := tree.GenerateProof(0)
		require.NoError(t, err)

		outsider := AddressLeaf(common.BigToAddress(big.NewInt(9999)))
		require.False(t, VerifyProof(outsider, proof.Siblings, tree.Root))
	})
}

// TestTamperSensitivity flips every byte of every proof element in turn and
// requires verification to fail each time
func TestTamperSensitivity(t *testing.T) {
	leaves := createTestLeaves(8)
	tree, err := BuildTree(leaves)
	require.NoError(t, err)

	proof, err := tree.GenerateProof(3)
	require.NoError(t, err)

	for i := range proof.Siblings {
		for j := 0; j < 32; j++ {
			tampered := make([][32]byte, len(proof.Siblings))
			copy(tampered, proof.Siblings)
			tampered[i][j] ^= 0x01

			require.False(t, VerifyProof(proof.Leaf, tampered, tree.Root),
				"flipping sibling %d byte %d should break verification", i, j)
		}
	}
}

// TestGenerateProofInvalidIndex tests proof generation with invalid indices
func TestGenerateProofInvalidIndex(t *testing.T) {
	leaves := createTestLeaves(4)
	tree, err := BuildTree(leaves)
	require.NoError(t, err)

	t.Run("Negative index", func(t *testing.T) {
		proof, err := tree.GenerateProof(-1)
		require.Error(t, err)
		require.ErrorIs(t, err, ErrIndexOutOfRange)
		require.Nil(t, proof)
	})

	t.Run("Index out of bounds", func(t *testing.T) {
		proof, err := tree.GenerateProof(10)
		require.Error(t, err)
		require.ErrorIs(t, err, ErrIndexOutOfRange)
		require.Nil(t, proof)
	})
}

// TestTreeDeterminism tests that the same leaves always produce the same tree
func TestTreeDeterminism(t *testing.T) {
	leaves := createTestLeaves(10)

	tree1, err := BuildTree(leaves)
	require.NoError(t, err)

	tree2, err := BuildTree(leaves)
	require.NoError(t, err)

	require.Equal(t, tree1.Root, tree2.Root)
	require.Equal(t, tree1.Leaves, tree2.Leaves)

	for i := range leaves {
		proof1, err := tree1.GenerateProof(i)
		require.NoError(t, err)
		proof2, err := tree2.GenerateProof(i)
		require.NoError(t, err)
		require.Equal(t, proof1.Siblings, proof2.Siblings)
	}
}

// TestTreeOrderSensitivity tests that leaf order is semantically meaningful:
// reordering the input changes which proof belongs to which leaf position
func TestTreeOrderSensitivity(t *testing.T) {
	leaves := createTestLeaves(4)

	reversed := make([][32]byte, len(leaves))
	for i := range leaves {
		reversed[i] = leaves[len(leaves)-1-i]
	}

	tree1, err := BuildTree(leaves)
	require.NoError(t, err)
	tree2, err := BuildTree(reversed)
	require.NoError(t, err)

	// Leaf position follows input position
	require.Equal(t, leaves[0], tree1.Leaves[0])
	require.Equal(t, leaves[0], tree2.Leaves[3])
}

// TestBuildTreeDoesNotAliasInput tests that mutating the caller's slice after
// the build does not change the committed tree
func TestBuildTreeDoesNotAliasInput(t *testing.T) {
	leaves := createTestLeaves(4)
	tree, err := BuildTree(leaves)
	require.NoError(t, err)

	root := tree.Root
	leaves[0][0] ^= 0xFF

	require.Equal(t, root, tree.Root)
	require.NotEqual(t, leaves[0], tree.Leaves[0])

	proof, err := tree.GenerateProof(1)
	require.NoError(t, err)
	require.True(t, VerifyProof(proof.Leaf, proof.Siblings, tree.Root))
}

// TestTreeLargeSet tests with larger leaf sets
func TestTreeLargeSet(t *testing.T) {
	sizes := []int{50, 100, 200}

	for _, size := range sizes {
		t.Run(fmt.Sprintf("Size_%d", size), func(t *testing.T) {
			leaves := createTestLeaves(size)
			tree, err := BuildTree(leaves)
			require.NoError(t, err)
			require.Equal(t, size, len(tree.Leaves))

			testIndices := []int{0, size / 4, size / 2, size - 1}
			for _, idx := range testIndices {
				proof, err := tree.GenerateProof(idx)
				require.NoError(t, err)
				require.True(t, VerifyProof(proof.Leaf, proof.Siblings, tree.Root))
			}
		})
	}
}

// TestCombinePairSorted tests that the combine rule orders its inputs before
// hashing, making it commutative
func TestCombinePairSorted(t *testing.T) {
	for i := 0; i < 16; i++ {
		a := randomDigest()
		b := randomDigest()
		require.Equal(t, combinePair(a, b), combinePair(b, a))
	}

	// Equal children are a degenerate but well-defined case
	d := randomDigest()
	require.Equal(t, combinePair(d, d), combinePair(d, d))
}
